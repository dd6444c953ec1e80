package dto

import (
	"time"

	"gigboard_backend/internal/models"
)

type ApplyToGigRequest struct {
	GigID       string `json:"-"`
	ApplicantID string `json:"-"`
	Note        string `json:"note" validate:"omitempty,max=2000"`
}

type ReviewApplicationRequest struct {
	Status string `json:"status" validate:"required,application_status"`
}

type ApplicationResponse struct {
	ID          string                   `json:"id"`
	GigID       string                   `json:"gig_id"`
	ApplicantID string                   `json:"applicant_id"`
	Note        string                   `json:"note,omitempty"`
	Status      models.ApplicationStatus `json:"status"`
	AppliedAt   time.Time                `json:"applied_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

type ApplicationListResponse struct {
	Applications []*ApplicationResponse `json:"applications"`
	Total        int64                  `json:"total"`
}

func NewApplicationResponse(a *models.Application) *ApplicationResponse {
	return &ApplicationResponse{
		ID:          a.ID,
		GigID:       a.GigID,
		ApplicantID: a.ApplicantID,
		Note:        a.Note,
		Status:      a.Status,
		AppliedAt:   a.AppliedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}
