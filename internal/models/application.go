package models

import (
	"strings"
	"time"

	"gigboard_backend/pkg/apperrors"
)

// Application - заявка таланта на гиг. Пара (gig, applicant) уникальна.
type Application struct {
	BaseModel
	GigID       string            `gorm:"size:36;not null;uniqueIndex:idx_applications_gig_applicant,priority:1" json:"gig_id"`
	ApplicantID string            `gorm:"size:64;not null;uniqueIndex:idx_applications_gig_applicant,priority:2;index" json:"applicant_id"`
	Note        string            `gorm:"type:text" json:"note,omitempty"`
	Status      ApplicationStatus `gorm:"size:16;not null;index" json:"status"`
	AppliedAt   time.Time         `gorm:"not null;index" json:"applied_at"`
	Version     int               `gorm:"not null;default:0" json:"version"`
}

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationStatusPending:     {ApplicationStatusShortlisted, ApplicationStatusAccepted, ApplicationStatusDeclined},
	ApplicationStatusShortlisted: {ApplicationStatusAccepted, ApplicationStatusDeclined},
}

// NewApplication создает заявку в статусе PENDING
func NewApplication(gigID, applicantID, note string, now time.Time) (*Application, DomainEvent) {
	now = now.UTC()
	a := &Application{
		GigID:       gigID,
		ApplicantID: applicantID,
		Note:        strings.TrimSpace(note),
		Status:      ApplicationStatusPending,
		AppliedAt:   now,
	}
	a.ID = NewEntityID()
	a.CreatedAt = now
	a.UpdatedAt = now

	evt := NewDomainEvent(a.ID, EventApplicationSubmitted, now, map[string]any{
		"gig_id":       gigID,
		"applicant_id": applicantID,
	})
	return a, evt
}

func (a *Application) CanTransitionTo(next ApplicationStatus) bool {
	for _, s := range applicationTransitions[a.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// ChangeStatus меняет статус заявки. Вызывается только от имени владельца гига.
func (a *Application) ChangeStatus(next ApplicationStatus, now time.Time) (DomainEvent, error) {
	if !a.CanTransitionTo(next) {
		return DomainEvent{}, apperrors.ErrInvalidStateTransition.WithDetails(map[string]string{
			"from": string(a.Status),
			"to":   string(next),
		})
	}
	prev := a.Status
	a.Status = next
	a.UpdatedAt = now.UTC()

	return NewDomainEvent(a.ID, EventApplicationStatusChanged, now, map[string]any{
		"gig_id":       a.GigID,
		"applicant_id": a.ApplicantID,
		"from":         string(prev),
		"to":           string(next),
	}), nil
}

func (a *Application) IsAccepted() bool {
	return a.Status == ApplicationStatusAccepted
}
