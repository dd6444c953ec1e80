package dto

import (
	"time"

	"gigboard_backend/internal/models"
)

// --- Gig Requests ---

type LocationRequest struct {
	Text      string   `json:"text" validate:"required,max=255"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`
	RadiusKm  *float64 `json:"radius_km" validate:"omitempty,gt=0"`
}

type CreateGigRequest struct {
	OwnerUserID         string          `json:"-"` // Устанавливается сервером
	Title               string          `json:"title" validate:"required,min=3,max=200"`
	Description         string          `json:"description" validate:"omitempty,max=5000"`
	CompensationType    string          `json:"compensation_type" validate:"required,compensation_type"`
	CompensationDetails string          `json:"compensation_details" validate:"omitempty,max=1000"`
	Location            LocationRequest `json:"location" validate:"required"`
	StartTime           time.Time       `json:"start_time" validate:"required"`
	EndTime             time.Time       `json:"end_time" validate:"required,gtfield=StartTime"`
	ApplicationDeadline time.Time       `json:"application_deadline" validate:"required"`
	MaxApplicants       int             `json:"max_applicants" validate:"required,min=1,max=1000"`
	UsageRights         string          `json:"usage_rights" validate:"omitempty,max=2000"`
	SafetyNotes         string          `json:"safety_notes" validate:"omitempty,max=2000"`
	Publish             bool            `json:"publish"`
}

type CancelGigRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=1000"`
}

// GigListQuery - фильтры публичной ленты (query string)
type GigListQuery struct {
	CompensationType string     `form:"compensation_type" validate:"omitempty,compensation_type"`
	Location         string     `form:"location" validate:"omitempty,max=255"`
	StartsAfter      *time.Time `form:"starts_after" time_format:"2006-01-02T15:04:05Z07:00"`
	StartsBefore     *time.Time `form:"starts_before" time_format:"2006-01-02T15:04:05Z07:00"`
	OpenOnly         bool       `form:"open_only"`
	Page             int        `form:"page" validate:"omitempty,min=1"`
	PageSize         int        `form:"page_size" validate:"omitempty,min=1,max=100"`
}

// --- Gig Responses ---

type GigResponse struct {
	ID                  string              `json:"id"`
	OwnerUserID         string              `json:"owner_user_id"`
	Title               string              `json:"title"`
	Description         string              `json:"description"`
	Compensation        models.Compensation `json:"compensation"`
	Location            models.Location     `json:"location"`
	StartTime           time.Time           `json:"start_time"`
	EndTime             time.Time           `json:"end_time"`
	ApplicationDeadline time.Time           `json:"application_deadline"`
	MaxApplicants       int                 `json:"max_applicants"`
	UsageRights         string              `json:"usage_rights,omitempty"`
	SafetyNotes         string              `json:"safety_notes,omitempty"`
	Status              models.GigStatus    `json:"status"`
	AcceptingNow        bool                `json:"accepting_applications"`
	Version             int                 `json:"version"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

type GigListResponse struct {
	Gigs     []*GigResponse `json:"gigs"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

func NewGigResponse(g *models.Gig, now time.Time) *GigResponse {
	return &GigResponse{
		ID:                  g.ID,
		OwnerUserID:         g.OwnerUserID,
		Title:               g.Title,
		Description:         g.Description,
		Compensation:        g.Compensation,
		Location:            g.Location,
		StartTime:           g.StartTime,
		EndTime:             g.EndTime,
		ApplicationDeadline: g.ApplicationDeadline,
		MaxApplicants:       g.MaxApplicants,
		UsageRights:         g.UsageRights,
		SafetyNotes:         g.SafetyNotes,
		Status:              g.Status,
		AcceptingNow:        g.IsApplicationOpen(now),
		Version:             g.Version,
		CreatedAt:           g.CreatedAt,
		UpdatedAt:           g.UpdatedAt,
	}
}
