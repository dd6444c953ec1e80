package models

import (
	"strings"
	"time"

	"gigboard_backend/pkg/apperrors"
)

// Gig - объявление о съемке/работе, принадлежит создавшему контрибьютору
type Gig struct {
	BaseModel
	OwnerUserID         string       `gorm:"size:64;not null;index" json:"owner_user_id"`
	Title               string       `gorm:"size:200;not null" json:"title"`
	Description         string       `gorm:"type:text" json:"description"`
	Compensation        Compensation `gorm:"embedded;embeddedPrefix:compensation_" json:"compensation"`
	Location            Location     `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	StartTime           time.Time    `gorm:"not null;index" json:"start_time"`
	EndTime             time.Time    `gorm:"not null" json:"end_time"`
	ApplicationDeadline time.Time    `gorm:"not null" json:"application_deadline"`
	MaxApplicants       int          `gorm:"not null" json:"max_applicants"`
	UsageRights         string       `gorm:"type:text" json:"usage_rights"`
	SafetyNotes         string       `gorm:"type:text" json:"safety_notes"`
	Status              GigStatus    `gorm:"size:32;not null;index" json:"status"`
	Version             int          `gorm:"not null;default:0" json:"version"`
}

// GigParams - входные данные конструктора
type GigParams struct {
	OwnerUserID         string
	Title               string
	Description         string
	Compensation        Compensation
	Location            Location
	StartTime           time.Time
	EndTime             time.Time
	ApplicationDeadline time.Time
	MaxApplicants       int
	UsageRights         string
	SafetyNotes         string
}

var gigTransitions = map[GigStatus][]GigStatus{
	GigStatusDraft:              {GigStatusPublished, GigStatusCancelled},
	GigStatusPublished:          {GigStatusApplicationsClosed, GigStatusCancelled},
	GigStatusApplicationsClosed: {GigStatusBooked, GigStatusCancelled},
	GigStatusBooked:             {GigStatusCompleted, GigStatusCancelled},
}

// NewGig создает гиг в статусе DRAFT
func NewGig(p GigParams, now time.Time) (*Gig, DomainEvent, error) {
	g := &Gig{
		OwnerUserID:         p.OwnerUserID,
		Title:               strings.TrimSpace(p.Title),
		Description:         p.Description,
		Compensation:        p.Compensation,
		Location:            p.Location,
		StartTime:           p.StartTime.UTC(),
		EndTime:             p.EndTime.UTC(),
		ApplicationDeadline: p.ApplicationDeadline.UTC(),
		MaxApplicants:       p.MaxApplicants,
		UsageRights:         p.UsageRights,
		SafetyNotes:         p.SafetyNotes,
		Status:              GigStatusDraft,
	}
	if err := g.Validate(); err != nil {
		return nil, DomainEvent{}, err
	}

	g.ID = NewEntityID()
	g.CreatedAt = now.UTC()
	g.UpdatedAt = g.CreatedAt

	evt := NewDomainEvent(g.ID, EventGigCreated, now, map[string]any{
		"owner_user_id": g.OwnerUserID,
		"title":         g.Title,
	})
	return g, evt, nil
}

// Validate проверяет инварианты гига
func (g *Gig) Validate() error {
	problems := map[string]string{}

	if g.OwnerUserID == "" {
		problems["owner_user_id"] = "This field is required"
	}
	if g.Title == "" {
		problems["title"] = "This field is required"
	}
	if err := g.Compensation.Validate(); err != nil {
		problems["compensation"] = err.Error()
	}
	if err := g.Location.Validate(); err != nil {
		problems["location"] = err.Error()
	}
	if !g.EndTime.After(g.StartTime) {
		problems["end_time"] = "Must be after start_time"
	}
	if g.ApplicationDeadline.After(g.StartTime) {
		problems["application_deadline"] = "Must not be after start_time"
	}
	if g.MaxApplicants < 1 {
		problems["max_applicants"] = "Must be at least 1"
	}

	if len(problems) > 0 {
		return apperrors.ValidationError(problems)
	}
	return nil
}

func (g *Gig) IsOwner(userID string) bool {
	return userID != "" && g.OwnerUserID == userID
}

// IsApplicationOpen - прием заявок открыт только в PUBLISHED и до дедлайна включительно
func (g *Gig) IsApplicationOpen(now time.Time) bool {
	return g.Status == GigStatusPublished && !now.After(g.ApplicationDeadline)
}

// CanTransitionTo проверяет наличие ребра в графе статусов
func (g *Gig) CanTransitionTo(next GigStatus) bool {
	for _, s := range gigTransitions[g.Status] {
		if s == next {
			return true
		}
	}
	return false
}

func (g *Gig) transition(next GigStatus, now time.Time) error {
	if !g.CanTransitionTo(next) {
		return apperrors.ErrInvalidStateTransition.WithDetails(map[string]string{
			"from": string(g.Status),
			"to":   string(next),
		})
	}
	g.Status = next
	g.UpdatedAt = now.UTC()
	return nil
}

// Publish: DRAFT -> PUBLISHED. Дедлайн приема заявок не должен быть в прошлом.
func (g *Gig) Publish(now time.Time) (DomainEvent, error) {
	if g.Status == GigStatusDraft && now.After(g.ApplicationDeadline) {
		return DomainEvent{}, apperrors.ValidationError(map[string]string{
			"application_deadline": "Deadline has already passed",
		})
	}
	if err := g.transition(GigStatusPublished, now); err != nil {
		return DomainEvent{}, err
	}
	return NewDomainEvent(g.ID, EventGigPublished, now, map[string]any{
		"owner_user_id": g.OwnerUserID,
	}), nil
}

// CloseApplications: PUBLISHED -> APPLICATIONS_CLOSED
func (g *Gig) CloseApplications(now time.Time) error {
	return g.transition(GigStatusApplicationsClosed, now)
}

// CloseIfExpired лениво закрывает прием заявок после дедлайна
func (g *Gig) CloseIfExpired(now time.Time) bool {
	if g.Status == GigStatusPublished && now.After(g.ApplicationDeadline) {
		g.Status = GigStatusApplicationsClosed
		g.UpdatedAt = now.UTC()
		return true
	}
	return false
}

// Book: APPLICATIONS_CLOSED -> BOOKED, нужен хотя бы один принятый талант
func (g *Gig) Book(acceptedCount int64, now time.Time) error {
	if g.Status != GigStatusApplicationsClosed {
		return g.transition(GigStatusBooked, now)
	}
	if acceptedCount < 1 {
		return apperrors.ErrInvalidOperation("gig", "At least one accepted application is required to book a gig")
	}
	if acceptedCount > int64(g.MaxApplicants) {
		return apperrors.ErrGigFull
	}
	return g.transition(GigStatusBooked, now)
}

// Complete: допустим только из BOOKED
func (g *Gig) Complete(now time.Time) error {
	return g.transition(GigStatusCompleted, now)
}

// Cancel: из любого нетерминального статуса
func (g *Gig) Cancel(reason string, now time.Time) (DomainEvent, error) {
	if err := g.transition(GigStatusCancelled, now); err != nil {
		return DomainEvent{}, err
	}
	return NewDomainEvent(g.ID, EventGigCancelled, now, map[string]any{
		"owner_user_id": g.OwnerUserID,
		"title":         g.Title,
		"reason":        reason,
	}), nil
}

// AcceptsApplicationChanges - статусы заявок замораживаются после завершения или отмены
func (g *Gig) AcceptsApplicationChanges() bool {
	return !g.Status.IsTerminal() && g.Status != GigStatusDraft
}
