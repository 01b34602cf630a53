package radar

import (
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"
)

const (
	ringStroke  = `fill="none" stroke="#f1f5f9"`
	axisStroke  = `stroke="#f1f5f9" stroke-width="2.5"`
	accentColor = "#0ea5e9"
)

// WriteSVG renders the scene as a standalone SVG document. Coordinates are
// rounded to whole units. A nil scene produces an empty document.
func WriteSVG(w io.Writer, s *Scene) error {
	ew := &errWriter{w: w}
	canvas := svg.New(ew)
	if s == nil {
		canvas.Startview(0, 0, 0, 0, 0, 0)
		canvas.End()
		return ew.err
	}

	vb := px(s.ViewBox)
	canvas.Startview(vb, vb, 0, 0, vb, vb)
	cx, cy := px(s.Center.X), px(s.Center.Y)
	for i, r := range s.Rings {
		width := `stroke-width="1.5"`
		if i == 0 {
			width = `stroke-width="2.5"`
		}
		canvas.Circle(cx, cy, px(r), ringStroke, width)
	}
	for _, a := range s.Axes {
		canvas.Line(px(a.From.X), px(a.From.Y), px(a.To.X), px(a.To.Y), axisStroke)
		canvas.Circle(px(a.To.X), px(a.To.Y), 5, `fill="#cbd5e1" stroke="white" stroke-width="2"`)
	}
	for _, l := range s.Labels {
		canvas.Group(fmt.Sprintf(`data-index="%d"`, l.Index))
		x := px(l.Anchor.X)
		canvas.Text(x, px(l.Anchor.Y-10), l.Name, `font-size="16" font-weight="900"`)
		canvas.Text(x, px(l.Anchor.Y+12), fmt.Sprintf("Lv.%d", l.Level), `font-size="12" fill="`+accentColor+`"`)
		bx, by, bh := px(l.Bar.X), px(l.Bar.Y), px(l.Bar.H)
		canvas.Roundrect(bx, by, px(l.Bar.W), bh, 2, 2, `fill="#f1f5f9"`)
		canvas.Roundrect(bx, by, px(l.Bar.W*l.Bar.Fill), bh, 2, 2, `fill="`+accentColor+`"`)
		canvas.Gend()
	}
	xs := make([]int, len(s.Polygon))
	ys := make([]int, len(s.Polygon))
	for i, p := range s.Polygon {
		xs[i], ys[i] = px(p.X), px(p.Y)
	}
	canvas.Polygon(xs, ys, `fill="rgba(14,165,233,0.18)" stroke="`+accentColor+`" stroke-width="6"`)
	canvas.End()
	return ew.err
}

func px(f float64) int {
	return int(math.Round(f))
}

// errWriter keeps the first write error; svgo does not report them.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}
