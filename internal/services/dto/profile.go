package dto

import (
	"time"

	"gigboard_backend/internal/models"
)

// UpsertProfileRequest - профиль текущего пользователя; создается при первом сохранении
type UpsertProfileRequest struct {
	Handle      string   `json:"handle" validate:"required,min=3,max=30,handle"`
	DisplayName string   `json:"display_name" validate:"omitempty,max=120"`
	Email       string   `json:"email" validate:"omitempty,email,max=255"`
	Phone       string   `json:"phone" validate:"omitempty,e164"`
	Roles       []string `json:"roles" validate:"required,min=1,max=2,dive,self_role"`
}

type SetTierRequest struct {
	Tier string `json:"tier" validate:"required,subscription_tier"`
}

type ProfileResponse struct {
	UserID           string                  `json:"user_id"`
	Handle           string                  `json:"handle"`
	DisplayName      string                  `json:"display_name"`
	Email            string                  `json:"email,omitempty"`
	Phone            string                  `json:"phone,omitempty"`
	Roles            models.RoleSet          `json:"roles"`
	SubscriptionTier models.SubscriptionTier `json:"subscription_tier"`
	Limits           *models.TierLimits      `json:"limits,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
}

// NewProfileResponse: контакты и лимиты отдаются только владельцу профиля
func NewProfileResponse(p *models.UserProfile, limits *models.TierLimits) *ProfileResponse {
	resp := &ProfileResponse{
		UserID:           p.UserID,
		Handle:           p.Handle,
		DisplayName:      p.DisplayName,
		Roles:            p.Roles,
		SubscriptionTier: p.SubscriptionTier,
		CreatedAt:        p.CreatedAt,
	}
	if limits != nil {
		resp.Email = p.Email
		resp.Phone = p.Phone
		resp.Limits = limits
	}
	return resp
}
