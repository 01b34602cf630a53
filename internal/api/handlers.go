package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lifematrix/internal/checksum"
	"github.com/starford/lifematrix/internal/profile"
	"github.com/starford/lifematrix/internal/radar"
)

// Handler holds API route handlers.
type Handler struct {
	svc       *profile.Service
	radarSize float64
}

// NewHandler creates a new Handler.
func NewHandler(svc *profile.Service, radarSize float64) *Handler {
	return &Handler{svc: svc, radarSize: radarSize}
}

func (h *Handler) sizeParam(r *http.Request) float64 {
	if v, err := strconv.ParseFloat(r.URL.Query().Get("size"), 64); err == nil && v > 0 {
		return v
	}
	return h.radarSize
}

func (h *Handler) writeSession(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, SessionResponse{Stage: h.svc.Stage(), Session: h.svc.Session()})
}

// GetSession handles GET /api/session.
//
//	@Summary		Current screen stage and identity state
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	SessionResponse
//	@Security		BearerAuth
//	@Router			/session [get]
func (h *Handler) GetSession(w http.ResponseWriter, _ *http.Request) {
	h.writeSession(w)
}

// SignIn handles POST /api/session/signin.
//
//	@Summary		Run the sign-in flow
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	SessionResponse
//	@Failure		401	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/signin [post]
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.SignIn(r.Context()); err != nil {
		writeError(w, "sign in", err)
		return
	}
	h.writeSession(w)
}

// SignOut handles POST /api/session/signout.
func (h *Handler) SignOut(w http.ResponseWriter, _ *http.Request) {
	h.svc.SignOut()
	h.writeSession(w)
}

// ContinueAsGuest handles POST /api/session/guest.
//
//	@Summary		Continue without signing in
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	SessionResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/guest [post]
func (h *Handler) ContinueAsGuest(w http.ResponseWriter, _ *http.Request) {
	if _, err := h.svc.ContinueAsGuest(); err != nil {
		writeError(w, "continue as guest", err)
		return
	}
	h.writeSession(w)
}

// UpdateProfile handles PUT /api/profile.
//
//	@Summary		Set display name and avatar
//	@Tags			profile
//	@Accept			json
//	@Produce		json
//	@Param			body	body		UpdateProfileRequest	true	"Profile"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/profile [put]
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if _, err := h.svc.UpdateProfile(req.Name, req.Avatar); err != nil {
		writeError(w, "update profile", err)
		return
	}
	h.writeSession(w)
}

// Continue handles POST /api/profile/continue.
func (h *Handler) Continue(w http.ResponseWriter, _ *http.Request) {
	if _, err := h.svc.Continue(); err != nil {
		writeError(w, "continue", err)
		return
	}
	h.writeSession(w)
}

// Back handles POST /api/profile/back.
func (h *Handler) Back(w http.ResponseWriter, _ *http.Request) {
	if _, err := h.svc.Back(); err != nil {
		writeError(w, "back", err)
		return
	}
	h.writeSession(w)
}

// ToggleDimension handles POST /api/dimensions/{id}/toggle.
//
//	@Summary		Enable or disable a dimension
//	@Tags			profile
//	@Produce		json
//	@Param			id	path		string	true	"Dimension id"
//	@Success		200	{object}	DimensionResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/dimensions/{id}/toggle [post]
func (h *Handler) ToggleDimension(w http.ResponseWriter, r *http.Request) {
	dim, err := h.svc.ToggleDimension(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "toggle dimension", err)
		return
	}
	writeJSON(w, http.StatusOK, dim)
}

// Enter handles POST /api/enter.
//
//	@Summary		Confirm dimensions and open the dashboard
//	@Tags			profile
//	@Produce		json
//	@Success		200	{object}	SessionResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/enter [post]
func (h *Handler) Enter(w http.ResponseWriter, _ *http.Request) {
	if _, err := h.svc.Enter(); err != nil {
		writeError(w, "enter", err)
		return
	}
	h.writeSession(w)
}

// Dashboard handles GET /api/dashboard.
//
//	@Summary		Level, balance, radar and recent progress
//	@Tags			dashboard
//	@Produce		json
//	@Param			size	query		number	false	"Radar target size"
//	@Success		200		{object}	DashboardResponse
//	@Security		BearerAuth
//	@Router			/dashboard [get]
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Dashboard(h.sizeParam(r)))
}

// Radar handles GET /api/radar.
//
//	@Summary		Radar scene; null with fewer than three active dimensions
//	@Tags			dashboard
//	@Produce		json
//	@Param			size	query		number	false	"Radar target size"
//	@Success		200		{object}	RadarResponse
//	@Security		BearerAuth
//	@Router			/radar [get]
func (h *Handler) Radar(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Radar(h.sizeParam(r)))
}

// RadarSVG handles GET /api/radar.svg.
func (h *Handler) RadarSVG(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := radar.WriteSVG(&buf, h.svc.Radar(h.sizeParam(r))); err != nil {
		writeError(w, "render radar", err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// Activate handles POST /api/radar/activate.
//
//	@Summary		Resolve a pointer position to a dimension
//	@Tags			dashboard
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ActivateRequest	true	"Pointer position"
//	@Success		200		{object}	ActivateResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/radar/activate [post]
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	var req ActivateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	size := req.Size
	if size <= 0 {
		size = h.radarSize
	}
	idx, ok := h.svc.Activate(size, radar.Point{X: req.X, Y: req.Y})
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("no dimension at position"))
		return
	}
	snap := h.svc.Snapshot()
	writeJSON(w, http.StatusOK, ActivateResponse{Index: idx, Dimension: snap.Dimensions[idx]})
}

// RecordProgress handles POST /api/records.
//
//	@Summary		Record progress against a dimension
//	@Tags			dashboard
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RecordRequest	true	"Progress entry"
//	@Success		201		{object}	models.HistoryEntry
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records [post]
func (h *Handler) RecordProgress(w http.ResponseWriter, r *http.Request) {
	var req RecordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	entry, err := h.svc.RecordProgress(*req.Index, req.Text)
	if err != nil {
		writeError(w, "record progress", err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// History handles GET /api/history.
//
//	@Summary		Most recent progress entries
//	@Tags			dashboard
//	@Produce		json
//	@Param			limit	query		int	false	"Max entries"
//	@Success		200		{object}	HistoryResponse
//	@Security		BearerAuth
//	@Router			/history [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	all := h.svc.History(0)
	entries := all
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Entries: entries, Total: len(all)})
}

// Snapshot handles GET /api/snapshot: the full profile document with an ETag.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	data, err := json.Marshal(h.svc.Snapshot())
	if err != nil {
		writeError(w, "snapshot", err)
		return
	}
	etag := checksum.ETag(data)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Debug("snapshot write failed", slog.String("error", err.Error()))
	}
}
