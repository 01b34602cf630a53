// Package radar lays out the radar chart: one axis per active dimension
// around a shared center, a label block per axis and the score polygon.
//
// The output is a declarative Scene. Rendering is left to the caller (see
// WriteSVG for the built-in renderer).
package radar

import (
	"math"

	"github.com/starford/lifematrix/internal/models"
	"github.com/starford/lifematrix/internal/scoring"
)

// Geometry constants, in scene units.
const (
	DefaultSize = 400.0
	Padding     = 50.0

	RingRadius  = 125.0
	LabelRadius = 155.0
	BaseOffset  = 25.0
	// SaturationLevel is the level at which a polygon vertex reaches the ring.
	SaturationLevel = 15.0

	labelPush       = 15.0
	labelPushSinMax = -0.5
	labelCosBucket  = 0.3

	blockOffsetLeft   = -85.0
	blockOffsetCenter = -42.0

	barOffsetX = 42.0
	barOffsetY = 8.0
	BarWidth   = 32.0
	BarHeight  = 4.5

	hitX = -15.0
	hitY = -35.0
	hitW = 120.0
	hitH = 70.0

	// MinActive is the fewest active dimensions that form a polygon.
	MinActive = 3
)

// RingFractions are the concentric guide circles drawn behind the chart.
var RingFractions = []float64{1, 0.75, 0.5, 0.25}

// Point is a position in scene coordinates (y grows downward).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Contains reports whether p lies inside r.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// Axis is the spoke for one active dimension.
type Axis struct {
	Index int     `json:"index"`
	Angle float64 `json:"angle"`
	From  Point   `json:"from"`
	To    Point   `json:"to"`
}

// ProgressBar is the in-level progress widget under a label.
type ProgressBar struct {
	Rect
	Fill float64 `json:"fill"` // fraction in [0, 1)
}

// Label is the text block attached to an axis. Index is the dimension's
// position in the full sequence, not among the active ones.
type Label struct {
	Index       int         `json:"index"`
	DimensionID string      `json:"dimensionId"`
	Name        string      `json:"name"`
	Color       string      `json:"color"`
	Score       int         `json:"score"`
	Level       int         `json:"level"`
	Progress    float64     `json:"progress"`
	Anchor      Point       `json:"anchor"`
	Bar         ProgressBar `json:"bar"`
	HitRegion   Rect        `json:"hitRegion"`
}

// Scene is the drawable description of a radar chart.
type Scene struct {
	ViewBox float64   `json:"viewBox"`
	Center  Point     `json:"center"`
	Rings   []float64 `json:"rings"`
	Axes    []Axis    `json:"axes"`
	Labels  []Label   `json:"labels"`
	Polygon []Point   `json:"polygon"`
}

// ActivateFunc receives the full-sequence index of an activated dimension.
type ActivateFunc func(index int)

type activeDimension struct {
	index int
	dim   models.Dimension
}

// Layout computes the scene for the given dimensions and scores. scores is
// aligned to the full dimension sequence. It returns nil when fewer than
// MinActive dimensions are active. A non-positive size selects DefaultSize.
func Layout(dims []models.Dimension, scores []int, size float64) *Scene {
	active := make([]activeDimension, 0, len(dims))
	for i, d := range dims {
		if d.Active {
			active = append(active, activeDimension{index: i, dim: d})
		}
	}
	if len(active) < MinActive {
		return nil
	}
	if size <= 0 {
		size = DefaultSize
	}

	viewBox := size + Padding*2
	c := Point{X: viewBox / 2, Y: viewBox / 2}
	n := len(active)

	scene := &Scene{
		ViewBox: viewBox,
		Center:  c,
		Axes:    make([]Axis, 0, n),
		Labels:  make([]Label, 0, n),
		Polygon: make([]Point, 0, n),
	}
	for _, f := range RingFractions {
		scene.Rings = append(scene.Rings, RingRadius*f)
	}

	for i, a := range active {
		angle := Angle(i, n)
		score := scoreAt(scores, a.index)
		level := scoring.Level(score)
		progress := scoring.Progress(score)

		scene.Axes = append(scene.Axes, Axis{
			Index: a.index,
			Angle: angle,
			From:  c,
			To:    polar(c, RingRadius, angle),
		})
		scene.Polygon = append(scene.Polygon, polar(c, VertexRadius(level), angle))

		pos := polar(c, labelRadius(angle), angle)
		anchor := Point{X: pos.X + blockOffset(angle), Y: pos.Y}
		scene.Labels = append(scene.Labels, Label{
			Index:       a.index,
			DimensionID: a.dim.ID,
			Name:        a.dim.Name,
			Color:       a.dim.Color,
			Score:       score,
			Level:       level,
			Progress:    progress,
			Anchor:      anchor,
			Bar: ProgressBar{
				Rect: Rect{X: anchor.X + barOffsetX, Y: anchor.Y + barOffsetY, W: BarWidth, H: BarHeight},
				Fill: progress / 100,
			},
			HitRegion: Rect{X: anchor.X + hitX, Y: anchor.Y + hitY, W: hitW, H: hitH},
		})
	}
	return scene
}

// Angle returns the angle of the i-th of n axes: axis 0 points up and the
// rest follow clockwise.
func Angle(i, n int) float64 {
	return float64(i)*2*math.Pi/float64(n) - math.Pi/2
}

// VertexRadius is the polygon vertex distance from center for a level. It
// grows linearly up to SaturationLevel and then stays on the ring.
func VertexRadius(level int) float64 {
	return math.Min(RingRadius, float64(level)/SaturationLevel*RingRadius+BaseOffset)
}

// HitTest returns the full-sequence index of the label whose hit region
// contains p. Later labels win on overlap.
func (s *Scene) HitTest(p Point) (int, bool) {
	if s == nil {
		return 0, false
	}
	for i := len(s.Labels) - 1; i >= 0; i-- {
		if s.Labels[i].HitRegion.Contains(p) {
			return s.Labels[i].Index, true
		}
	}
	return 0, false
}

// Dispatch hit-tests p and calls fn with the activated dimension index.
func (s *Scene) Dispatch(p Point, fn ActivateFunc) bool {
	idx, ok := s.HitTest(p)
	if ok && fn != nil {
		fn(idx)
	}
	return ok
}

// labelRadius pushes labels in the upper part of the chart outward so they
// clear the axis points above them.
func labelRadius(angle float64) float64 {
	sin := math.Sin(angle)
	if sin < labelPushSinMax {
		return LabelRadius + math.Abs(sin)*labelPush
	}
	return LabelRadius
}

func blockOffset(angle float64) float64 {
	cos := math.Cos(angle)
	switch {
	case cos < -labelCosBucket:
		return blockOffsetLeft
	case math.Abs(cos) <= labelCosBucket:
		return blockOffsetCenter
	default:
		return 0
	}
}

func polar(c Point, r, angle float64) Point {
	return Point{X: c.X + r*math.Cos(angle), Y: c.Y + r*math.Sin(angle)}
}

func scoreAt(scores []int, i int) int {
	if i < 0 || i >= len(scores) || scores[i] < 0 {
		return 0
	}
	return scores[i]
}
