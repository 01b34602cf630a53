package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lifematrix/internal/profile"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// radarSize is the default radar target size.
func NewRouter(svc *profile.Service, authEnabled bool, token string, sseHandler http.Handler, radarSize float64) chi.Router {
	h := NewHandler(svc, radarSize)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Session and guided setup.
	r.Get("/session", h.GetSession)
	r.Post("/session/signin", h.SignIn)
	r.Post("/session/signout", h.SignOut)
	r.Post("/session/guest", h.ContinueAsGuest)
	r.Put("/profile", h.UpdateProfile)
	r.Post("/profile/continue", h.Continue)
	r.Post("/profile/back", h.Back)
	r.Post("/dimensions/{id}/toggle", h.ToggleDimension)
	r.Post("/enter", h.Enter)

	// Dashboard.
	r.Get("/dashboard", h.Dashboard)
	r.Get("/radar", h.Radar)
	r.Get("/radar.svg", h.RadarSVG)
	r.Post("/radar/activate", h.Activate)
	r.Post("/records", h.RecordProgress)
	r.Get("/history", h.History)
	r.Get("/snapshot", h.Snapshot)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
