package api

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/lifematrix/internal/identity"
	"github.com/starford/lifematrix/internal/models"
	"github.com/starford/lifematrix/internal/profile"
	"github.com/starford/lifematrix/internal/radar"
)

// SessionResponse reports the screen stage and identity state.
type SessionResponse struct {
	Stage   profile.Stage    `json:"stage" example:"dashboard" validate:"required"`
	Session identity.Session `json:"session" validate:"required"`
}

// UpdateProfileRequest is the request body for setting name and avatar.
type UpdateProfileRequest struct {
	Name   string `json:"name" example:"Ada"`
	Avatar string `json:"avatar" example:"data:image/png;base64,..."`
}

// Validate validates the request.
func (r *UpdateProfileRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Length(0, 64)),
		validation.Field(&r.Avatar, validation.Length(0, 1<<20)),
	)
}

// RecordRequest is the request body for recording progress.
type RecordRequest struct {
	Index *int   `json:"index" example:"0" validate:"required"`
	Text  string `json:"text" example:"Ran 5k before work" validate:"required"`
}

// Validate validates the request.
func (r *RecordRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Index, validation.NotNil, validation.Min(0)),
		validation.Field(&r.Text, validation.By(notBlank), validation.Length(1, 2000)),
	)
}

// ActivateRequest is a pointer event on the radar scene.
type ActivateRequest struct {
	X    float64 `json:"x" example:"312.5"`
	Y    float64 `json:"y" example:"140"`
	Size float64 `json:"size" example:"400"`
}

// ActivateResponse names the dimension under the pointer.
type ActivateResponse struct {
	Index     int              `json:"index" example:"2" validate:"required"`
	Dimension models.Dimension `json:"dimension" validate:"required"`
}

// HistoryResponse wraps history listings.
type HistoryResponse struct {
	Entries []models.HistoryEntry `json:"entries" validate:"required"`
	Total   int                   `json:"total" example:"42" validate:"required"`
}

// DimensionResponse is returned after toggling a dimension.
type DimensionResponse = models.Dimension

// DashboardResponse is the aggregate dashboard view.
type DashboardResponse = profile.Dashboard

// RadarResponse is the radar scene; null when fewer than three dimensions are active.
type RadarResponse = radar.Scene

func notBlank(value any) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return validation.NewError("validation_blank", "cannot be blank")
	}
	return nil
}
