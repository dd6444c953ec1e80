package models

import (
	"strings"
	"time"

	"gigboard_backend/pkg/apperrors"

	"gorm.io/datatypes"
)

const (
	MinShowcaseMedia = 3
	MaxShowcaseMedia = 6
)

// Showcase - галерея по итогам завершенного гига.
// Становится PUBLIC только когда одобрили все обязательные участники.
type Showcase struct {
	BaseModel
	GigID       string                       `gorm:"size:36;not null;index" json:"gig_id"`
	CreatorID   string                       `gorm:"size:64;not null;index" json:"creator_id"`
	MediaIDs    datatypes.JSONType[[]string] `json:"media_ids"`
	Caption     string                       `gorm:"type:text" json:"caption"`
	Tags        datatypes.JSONType[[]string] `json:"tags"`
	Palette     datatypes.JSONType[[]string] `json:"palette"`
	Visibility  Visibility                   `gorm:"size:16;not null;index" json:"visibility"`
	Status      ShowcaseStatus               `gorm:"size:32;not null" json:"status"`
	PublishedAt *time.Time                   `json:"published_at,omitempty"`
	Version     int                          `gorm:"not null;default:0" json:"version"`

	Approvals []ShowcaseApproval `gorm:"foreignKey:ShowcaseID;constraint:OnDelete:CASCADE" json:"approvals"`
}

// ShowcaseApproval - голос одного обязательного участника (таланта)
type ShowcaseApproval struct {
	ID         string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	ShowcaseID string         `gorm:"size:36;not null;uniqueIndex:idx_showcase_approvals_party,priority:1" json:"showcase_id"`
	PartyID    string         `gorm:"size:64;not null;uniqueIndex:idx_showcase_approvals_party,priority:2;index" json:"party_id"`
	Action     ApprovalAction `gorm:"size:32;not null" json:"action"`
	Note       string         `gorm:"type:text" json:"note,omitempty"`
	ActedAt    *time.Time     `json:"acted_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// ShowcaseParams - входные данные конструктора
type ShowcaseParams struct {
	GigID     string
	CreatorID string
	TalentIDs []string
	MediaIDs  []string
	Caption   string
	Tags      []string
	Palette   []string
}

// ValidateMediaCount - в шоукейсе от 3 до 6 медиа
func ValidateMediaCount(mediaIDs []string) error {
	if len(mediaIDs) < MinShowcaseMedia || len(mediaIDs) > MaxShowcaseMedia {
		return apperrors.ErrInvalidMediaCount.WithDetails(map[string]int{"count": len(mediaIDs)})
	}
	return nil
}

// NewShowcase создает шоукейс в pending_approval с pending-голосами всех талантов
func NewShowcase(p ShowcaseParams, now time.Time) (*Showcase, DomainEvent, error) {
	if err := ValidateMediaCount(p.MediaIDs); err != nil {
		return nil, DomainEvent{}, err
	}

	talents := uniqueNonEmpty(p.TalentIDs)
	if len(talents) == 0 {
		return nil, DomainEvent{}, apperrors.ValidationError(map[string]string{
			"talent_ids": "At least one talent is required",
		})
	}
	for _, id := range talents {
		if id == p.CreatorID {
			return nil, DomainEvent{}, apperrors.ErrSelfApprovalForbidden
		}
	}

	now = now.UTC()
	s := &Showcase{
		GigID:      p.GigID,
		CreatorID:  p.CreatorID,
		MediaIDs:   datatypes.NewJSONType(append([]string(nil), p.MediaIDs...)),
		Caption:    strings.TrimSpace(p.Caption),
		Tags:       datatypes.NewJSONType(uniqueNonEmpty(p.Tags)),
		Palette:    datatypes.NewJSONType(uniqueNonEmpty(p.Palette)),
		Visibility: VisibilityPrivate,
		Status:     ShowcaseStatusPendingApproval,
	}
	s.ID = NewEntityID()
	s.CreatedAt = now
	s.UpdatedAt = now

	for _, id := range talents {
		s.Approvals = append(s.Approvals, ShowcaseApproval{
			ID:         NewEntityID(),
			ShowcaseID: s.ID,
			PartyID:    id,
			Action:     ApprovalActionPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	evt := NewDomainEvent(s.ID, EventShowcaseCreated, now, map[string]any{
		"gig_id":     s.GigID,
		"creator_id": s.CreatorID,
		"talent_ids": talents,
	})
	return s, evt, nil
}

// RequiredApprovers - ID талантов, чье одобрение нужно для публикации
func (s *Showcase) RequiredApprovers() []string {
	ids := make([]string, 0, len(s.Approvals))
	for _, a := range s.Approvals {
		ids = append(ids, a.PartyID)
	}
	return ids
}

func (s *Showcase) ApprovalFor(partyID string) *ShowcaseApproval {
	for i := range s.Approvals {
		if s.Approvals[i].PartyID == partyID {
			return &s.Approvals[i]
		}
	}
	return nil
}

func (s *Showcase) IsRequiredApprover(partyID string) bool {
	return s.ApprovalFor(partyID) != nil
}

// AllApproved - N из N: каждый обязательный участник выбрал approve
func (s *Showcase) AllApproved() bool {
	if len(s.Approvals) == 0 {
		return false
	}
	for _, a := range s.Approvals {
		if a.Action != ApprovalActionApprove {
			return false
		}
	}
	return true
}

func (s *Showcase) IsPublic() bool {
	return s.Visibility == VisibilityPublic
}

// authorize - общие проверки участника для approve/request_changes
func (s *Showcase) authorize(partyID string) (*ShowcaseApproval, error) {
	if partyID == s.CreatorID {
		return nil, apperrors.ErrSelfApprovalForbidden
	}
	approval := s.ApprovalFor(partyID)
	if approval == nil {
		return nil, apperrors.ErrUnauthorized
	}
	return approval, nil
}

// Approve фиксирует одобрение участника. Повторное одобрение - no-op без событий.
// Возвращает измененную запись голоса (nil, если ничего не поменялось).
func (s *Showcase) Approve(partyID, note string, now time.Time) (*ShowcaseApproval, []DomainEvent, error) {
	approval, err := s.authorize(partyID)
	if err != nil {
		return nil, nil, err
	}
	if approval.Action == ApprovalActionApprove {
		return nil, nil, nil
	}
	if s.Status != ShowcaseStatusPendingApproval {
		return nil, nil, apperrors.ErrInvalidStateTransition.WithDetails(map[string]string{
			"from":   string(s.Status),
			"action": string(ApprovalActionApprove),
		})
	}

	now = now.UTC()
	approval.Action = ApprovalActionApprove
	approval.Note = strings.TrimSpace(note)
	approval.ActedAt = &now
	approval.UpdatedAt = now
	s.UpdatedAt = now

	if !s.AllApproved() {
		return approval, nil, nil
	}

	s.Status = ShowcaseStatusApproved
	s.Visibility = VisibilityPublic
	s.PublishedAt = &now

	evt := NewDomainEvent(s.ID, EventShowcaseApproved, now, map[string]any{
		"showcase_id": s.ID,
		"gig_id":      s.GigID,
		"creator_id":  s.CreatorID,
		"talent_ids":  s.RequiredApprovers(),
	})
	return approval, []DomainEvent{evt}, nil
}

// RequestChanges - одно несогласие сбрасывает публикацию, даже если остальные уже одобрили
func (s *Showcase) RequestChanges(partyID, note string, now time.Time) (*ShowcaseApproval, []DomainEvent, error) {
	approval, err := s.authorize(partyID)
	if err != nil {
		return nil, nil, err
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, nil, apperrors.ErrFeedbackRequired
	}
	if s.Status == ShowcaseStatusApproved {
		return nil, nil, apperrors.ErrInvalidStateTransition.WithDetails(map[string]string{
			"from":   string(s.Status),
			"action": string(ApprovalActionRequestChanges),
		})
	}

	now = now.UTC()
	approval.Action = ApprovalActionRequestChanges
	approval.Note = note
	approval.ActedAt = &now
	approval.UpdatedAt = now

	s.Status = ShowcaseStatusChangesRequested
	s.Visibility = VisibilityPrivate
	s.PublishedAt = nil
	s.UpdatedAt = now

	evt := NewDomainEvent(s.ID, EventShowcaseChangesRequested, now, map[string]any{
		"showcase_id":  s.ID,
		"gig_id":       s.GigID,
		"creator_id":   s.CreatorID,
		"requested_by": partyID,
		"note":         note,
	})
	return approval, []DomainEvent{evt}, nil
}

// ShowcaseRevision - правки, с которыми создатель переотправляет шоукейс
type ShowcaseRevision struct {
	MediaIDs []string
	Caption  *string
	Tags     []string
	Palette  []string
}

// Resubmit возвращает шоукейс из changes_requested в pending_approval и
// сбрасывает все голоса в pending
func (s *Showcase) Resubmit(actorID string, rev ShowcaseRevision, now time.Time) (DomainEvent, error) {
	if actorID != s.CreatorID {
		return DomainEvent{}, apperrors.ErrUnauthorized
	}
	if s.Status != ShowcaseStatusChangesRequested {
		return DomainEvent{}, apperrors.ErrInvalidStateTransition.WithDetails(map[string]string{
			"from": string(s.Status),
			"to":   string(ShowcaseStatusPendingApproval),
		})
	}
	if rev.MediaIDs != nil {
		if err := ValidateMediaCount(rev.MediaIDs); err != nil {
			return DomainEvent{}, err
		}
		s.MediaIDs = datatypes.NewJSONType(append([]string(nil), rev.MediaIDs...))
	}
	if rev.Caption != nil {
		s.Caption = strings.TrimSpace(*rev.Caption)
	}
	if rev.Tags != nil {
		s.Tags = datatypes.NewJSONType(uniqueNonEmpty(rev.Tags))
	}
	if rev.Palette != nil {
		s.Palette = datatypes.NewJSONType(uniqueNonEmpty(rev.Palette))
	}

	now = now.UTC()
	for i := range s.Approvals {
		s.Approvals[i].Action = ApprovalActionPending
		s.Approvals[i].Note = ""
		s.Approvals[i].ActedAt = nil
		s.Approvals[i].UpdatedAt = now
	}
	s.Status = ShowcaseStatusPendingApproval
	s.Visibility = VisibilityPrivate
	s.UpdatedAt = now

	return NewDomainEvent(s.ID, EventShowcaseResubmitted, now, map[string]any{
		"showcase_id": s.ID,
		"gig_id":      s.GigID,
		"creator_id":  s.CreatorID,
		"talent_ids":  s.RequiredApprovers(),
	}), nil
}

func uniqueNonEmpty(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
