package dto

import (
	"time"

	"gigboard_backend/internal/models"
)

type CreateShowcaseRequest struct {
	GigID     string   `json:"gig_id" validate:"required,entity_id"`
	CreatorID string   `json:"-"`
	TalentIDs []string `json:"talent_ids" validate:"omitempty,dive,required"`
	MediaIDs  []string `json:"media_ids" validate:"required,dive,entity_id"`
	Caption   string   `json:"caption" validate:"omitempty,max=2000"`
	Tags      []string `json:"tags" validate:"omitempty,max=20,dive,max=50"`
	Palette   []string `json:"palette" validate:"omitempty,max=12,dive,hexcolor"`
}

type ApproveShowcaseRequest struct {
	ShowcaseID string `json:"-"`
	UserID     string `json:"-"`
	Action     string `json:"action" validate:"required,approval_action"`
	Note       string `json:"note" validate:"omitempty,max=2000"`
}

type ResubmitShowcaseRequest struct {
	MediaIDs []string `json:"media_ids" validate:"omitempty,dive,entity_id"`
	Caption  *string  `json:"caption" validate:"omitempty,max=2000"`
	Tags     []string `json:"tags" validate:"omitempty,max=20,dive,max=50"`
	Palette  []string `json:"palette" validate:"omitempty,max=12,dive,hexcolor"`
}

type ApprovalResponse struct {
	PartyID string                `json:"party_id"`
	Action  models.ApprovalAction `json:"action"`
	Note    string                `json:"note,omitempty"`
	ActedAt *time.Time            `json:"acted_at,omitempty"`
}

type ShowcaseResponse struct {
	ID          string                `json:"id"`
	GigID       string                `json:"gig_id"`
	CreatorID   string                `json:"creator_id"`
	MediaIDs    []string              `json:"media_ids"`
	Caption     string                `json:"caption"`
	Tags        []string              `json:"tags"`
	Palette     []string              `json:"palette"`
	Visibility  models.Visibility     `json:"visibility"`
	Status      models.ShowcaseStatus `json:"status"`
	Approvals   []ApprovalResponse    `json:"approvals"`
	PublishedAt *time.Time            `json:"published_at,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

func NewShowcaseResponse(s *models.Showcase) *ShowcaseResponse {
	resp := &ShowcaseResponse{
		ID:          s.ID,
		GigID:       s.GigID,
		CreatorID:   s.CreatorID,
		MediaIDs:    s.MediaIDs.Data(),
		Caption:     s.Caption,
		Tags:        s.Tags.Data(),
		Palette:     s.Palette.Data(),
		Visibility:  s.Visibility,
		Status:      s.Status,
		PublishedAt: s.PublishedAt,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		Approvals:   make([]ApprovalResponse, 0, len(s.Approvals)),
	}
	for _, a := range s.Approvals {
		resp.Approvals = append(resp.Approvals, ApprovalResponse{
			PartyID: a.PartyID,
			Action:  a.Action,
			Note:    a.Note,
			ActedAt: a.ActedAt,
		})
	}
	return resp
}
