package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/lifematrix/internal/identity"
	"github.com/starford/lifematrix/internal/models"
	"github.com/starford/lifematrix/internal/profile"
	"github.com/starford/lifematrix/internal/radar"
	"github.com/starford/lifematrix/internal/testutil"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// testEnv builds a fresh service over an in-memory store plus its router.
// A non-empty authToken enables token mode.
func testEnv(t *testing.T, authToken string) (*profile.Service, http.Handler) {
	t.Helper()
	return testEnvWithSSE(t, authToken != "", authToken, nil)
}

func testEnvWithSSE(t *testing.T, authEnabled bool, token string, sseHandler http.Handler) (*profile.Service, http.Handler) {
	t.Helper()
	svc := profile.NewService(testutil.NewMemStore(),
		profile.WithLogger(testutil.DiscardLogger()),
		profile.WithIdentity(identity.NewLocal(identity.Handle{ID: "u1", DisplayName: "Ada"})),
		profile.WithClock(func() time.Time { return fixedNow }),
	)
	svc.Load(context.Background())
	t.Cleanup(svc.Wait)
	return svc, NewRouter(svc, authEnabled, token, sseHandler, radar.DefaultSize)
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d, body = %s", w.Code, want, w.Body.String())
	}
}

// toDashboard walks the guided flow as a guest with the default dimensions.
func toDashboard(t *testing.T, router http.Handler) {
	t.Helper()
	expectStatus(t, do(t, router, http.MethodPost, "/session/guest", nil), http.StatusOK)
	expectStatus(t, do(t, router, http.MethodPut, "/profile", map[string]string{"name": "Ada"}), http.StatusOK)
	expectStatus(t, do(t, router, http.MethodPost, "/profile/continue", nil), http.StatusOK)
	expectStatus(t, do(t, router, http.MethodPost, "/enter", nil), http.StatusOK)
}

func TestGuidedFlow(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/session", nil)
	expectStatus(t, w, http.StatusOK)
	var sess SessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &sess); err != nil {
		t.Fatal(err)
	}
	if sess.Stage != profile.StageWelcome {
		t.Errorf("stage = %s, want welcome", sess.Stage)
	}
	if sess.Session.Kind != identity.SignedOut {
		t.Errorf("session = %s, want signedOut", sess.Session.Kind)
	}

	toDashboard(t, router)

	w = do(t, router, http.MethodGet, "/session", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &sess); err != nil {
		t.Fatal(err)
	}
	if sess.Stage != profile.StageDashboard || sess.Session.Kind != identity.Guest {
		t.Errorf("after flow = %s/%s, want dashboard/guest", sess.Stage, sess.Session.Kind)
	}
}

func TestContinueWithoutName(t *testing.T) {
	_, router := testEnv(t, "")

	expectStatus(t, do(t, router, http.MethodPost, "/session/guest", nil), http.StatusOK)
	expectStatus(t, do(t, router, http.MethodPost, "/profile/continue", nil), http.StatusBadRequest)
}

func TestBackFromConfirm(t *testing.T) {
	_, router := testEnv(t, "")

	expectStatus(t, do(t, router, http.MethodPost, "/session/guest", nil), http.StatusOK)
	expectStatus(t, do(t, router, http.MethodPut, "/profile", map[string]string{"name": "Ada"}), http.StatusOK)
	expectStatus(t, do(t, router, http.MethodPost, "/profile/continue", nil), http.StatusOK)
	expectStatus(t, do(t, router, http.MethodPost, "/profile/back", nil), http.StatusOK)
	expectStatus(t, do(t, router, http.MethodPost, "/profile/back", nil), http.StatusConflict)
}

func TestStageMismatch(t *testing.T) {
	_, router := testEnv(t, "")

	expectStatus(t, do(t, router, http.MethodPost, "/enter", nil), http.StatusConflict)
	expectStatus(t, do(t, router, http.MethodPost, "/records", map[string]any{"index": 0, "text": "early"}), http.StatusConflict)
}

func TestSignIn(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/session/signin", nil)
	expectStatus(t, w, http.StatusOK)
	var sess SessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &sess); err != nil {
		t.Fatal(err)
	}
	if sess.Stage != profile.StageSetup {
		t.Errorf("stage = %s, want setup", sess.Stage)
	}
	if sess.Session.User == nil || sess.Session.User.ID != "u1" {
		t.Errorf("user = %+v, want u1", sess.Session.User)
	}

	w = do(t, router, http.MethodPost, "/session/signout", nil)
	expectStatus(t, w, http.StatusOK)
	if err := json.Unmarshal(w.Body.Bytes(), &sess); err != nil {
		t.Fatal(err)
	}
	if sess.Session.Kind != identity.SignedOut {
		t.Errorf("after sign out = %s", sess.Session.Kind)
	}
}

func TestSignIn_NoAccount(t *testing.T) {
	svc := profile.NewService(testutil.NewMemStore(),
		profile.WithLogger(testutil.DiscardLogger()),
		profile.WithIdentity(identity.NewLocal(identity.Handle{})),
	)
	svc.Load(context.Background())
	router := NewRouter(svc, false, "", nil, radar.DefaultSize)

	expectStatus(t, do(t, router, http.MethodPost, "/session/signin", nil), http.StatusUnauthorized)
	if svc.Stage() != profile.StageWelcome {
		t.Errorf("stage = %s, want welcome", svc.Stage())
	}
}

func TestRecordProgress(t *testing.T) {
	svc, router := testEnv(t, "")
	toDashboard(t, router)

	w := do(t, router, http.MethodPost, "/records", map[string]any{"index": 1, "text": "Shipped the release #work"})
	expectStatus(t, w, http.StatusCreated)
	var entry models.HistoryEntry
	if err := json.Unmarshal(w.Body.Bytes(), &entry); err != nil {
		t.Fatal(err)
	}
	if entry.DimName != "Career" || entry.Points != 1 {
		t.Errorf("entry = %+v", entry)
	}
	if len(entry.Tags) != 1 || entry.Tags[0] != "work" {
		t.Errorf("tags = %v, want [work]", entry.Tags)
	}
	if entry.Timestamp != fixedNow.UnixMilli() {
		t.Errorf("timestamp = %d", entry.Timestamp)
	}
	if got := svc.Snapshot().Score(1); got != 1 {
		t.Errorf("score = %d, want 1", got)
	}
}

func TestRecordProgress_Validation(t *testing.T) {
	_, router := testEnv(t, "")
	toDashboard(t, router)

	cases := []struct {
		name string
		body any
	}{
		{"missing index", map[string]any{"text": "x"}},
		{"negative index", map[string]any{"index": -1, "text": "x"}},
		{"blank text", map[string]any{"index": 0, "text": "   "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expectStatus(t, do(t, router, http.MethodPost, "/records", tc.body), http.StatusBadRequest)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/records", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	expectStatus(t, w, http.StatusBadRequest)
}

func TestDashboard(t *testing.T) {
	_, router := testEnv(t, "")
	toDashboard(t, router)
	for range 5 {
		expectStatus(t, do(t, router, http.MethodPost, "/records", map[string]any{"index": 0, "text": "run"}), http.StatusCreated)
	}

	w := do(t, router, http.MethodGet, "/dashboard", nil)
	expectStatus(t, w, http.StatusOK)
	var dash DashboardResponse
	if err := json.Unmarshal(w.Body.Bytes(), &dash); err != nil {
		t.Fatal(err)
	}
	if dash.Name != "Ada" {
		t.Errorf("name = %q", dash.Name)
	}
	if dash.TotalLevel != 1 {
		t.Errorf("total level = %d, want 1", dash.TotalLevel)
	}
	if dash.Dimensions[0].Level != 1 {
		t.Errorf("health level = %d, want 1", dash.Dimensions[0].Level)
	}
	if len(dash.Recent) != 5 {
		t.Errorf("recent = %d, want 5", len(dash.Recent))
	}
	if dash.Radar == nil || len(dash.Radar.Labels) != 6 {
		t.Fatalf("radar = %+v, want 6 labels", dash.Radar)
	}
}

func TestToggleDimension(t *testing.T) {
	svc, router := testEnv(t, "")
	toDashboard(t, router)

	w := do(t, router, http.MethodPost, "/dimensions/dim_7/toggle", nil)
	expectStatus(t, w, http.StatusOK)
	var dim DimensionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &dim); err != nil {
		t.Fatal(err)
	}
	if !dim.Active || dim.Name != "Spirit" {
		t.Errorf("dim = %+v, want active Spirit", dim)
	}
	if got := svc.Snapshot().ActiveCount(); got != 7 {
		t.Errorf("active = %d, want 7", got)
	}

	expectStatus(t, do(t, router, http.MethodPost, "/dimensions/nope/toggle", nil), http.StatusNotFound)
}

func TestRadar_TooFewDimensions(t *testing.T) {
	_, router := testEnv(t, "")
	toDashboard(t, router)
	for _, id := range []string{"dim_1", "dim_2", "dim_3", "dim_4"} {
		expectStatus(t, do(t, router, http.MethodPost, "/dimensions/"+id+"/toggle", nil), http.StatusOK)
	}

	w := do(t, router, http.MethodGet, "/radar", nil)
	expectStatus(t, w, http.StatusOK)
	if got := strings.TrimSpace(w.Body.String()); got != "null" {
		t.Errorf("radar = %s, want null", got)
	}
}

func TestRadarSVG(t *testing.T) {
	_, router := testEnv(t, "")
	toDashboard(t, router)

	w := do(t, router, http.MethodGet, "/radar.svg?size=300", nil)
	expectStatus(t, w, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), `viewBox="0 0 400 400"`) {
		t.Errorf("svg missing viewBox for size 300: %.200s", w.Body.String())
	}
}

func TestActivate(t *testing.T) {
	svc, router := testEnv(t, "")
	toDashboard(t, router)

	scene := svc.Radar(radar.DefaultSize)
	if scene == nil {
		t.Fatal("nil scene")
	}
	target := scene.Labels[2]
	p := radar.Point{X: target.HitRegion.X + target.HitRegion.W/2, Y: target.HitRegion.Y + target.HitRegion.H/2}

	w := do(t, router, http.MethodPost, "/radar/activate", ActivateRequest{X: p.X, Y: p.Y})
	expectStatus(t, w, http.StatusOK)
	var resp ActivateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Index != target.Index {
		t.Errorf("index = %d, want %d", resp.Index, target.Index)
	}

	expectStatus(t, do(t, router, http.MethodPost, "/radar/activate", ActivateRequest{X: -500, Y: -500}), http.StatusNotFound)
}

func TestHistoryLimit(t *testing.T) {
	_, router := testEnv(t, "")
	toDashboard(t, router)
	for range 4 {
		expectStatus(t, do(t, router, http.MethodPost, "/records", map[string]any{"index": 2, "text": "saved"}), http.StatusCreated)
	}

	w := do(t, router, http.MethodGet, "/history?limit=3", nil)
	expectStatus(t, w, http.StatusOK)
	var resp HistoryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Entries) != 3 || resp.Total != 4 {
		t.Errorf("entries = %d, total = %d, want 3/4", len(resp.Entries), resp.Total)
	}
}

func TestSnapshotETag(t *testing.T) {
	_, router := testEnv(t, "")
	toDashboard(t, router)

	w := do(t, router, http.MethodGet, "/snapshot", nil)
	expectStatus(t, w, http.StatusOK)
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	req := httptest.NewRequest(http.MethodGet, "/snapshot", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	expectStatus(t, w, http.StatusNotModified)

	expectStatus(t, do(t, router, http.MethodPost, "/records", map[string]any{"index": 0, "text": "walk"}), http.StatusCreated)
	req = httptest.NewRequest(http.MethodGet, "/snapshot", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	expectStatus(t, w, http.StatusOK)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := do(t, router, http.MethodGet, "/session", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_QueryTokenOnlyForGet(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := do(t, router, http.MethodGet, "/session?access_token=secret123", nil)
	if w.Code != http.StatusOK {
		t.Errorf("GET with query token = %d, want 200", w.Code)
	}
	w = do(t, router, http.MethodPost, "/session/guest?access_token=secret123", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("POST with query token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/session", nil)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

// blockingSSE writes stream headers and blocks until the request is done.
var blockingSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router := testEnvWithSSE(t, true, "secret", blockingSSE)

	w := do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router := testEnvWithSSE(t, true, "tok", blockingSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events?access_token=tok", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}
