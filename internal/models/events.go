package models

import "time"

type EventType string

const (
	EventGigCreated               EventType = "gig.created"
	EventGigPublished             EventType = "gig.published"
	EventGigCancelled             EventType = "gig.cancelled"
	EventApplicationSubmitted     EventType = "application.submitted"
	EventApplicationStatusChanged EventType = "application.status_changed"
	EventShowcaseCreated          EventType = "showcase.created"
	EventShowcaseApproved         EventType = "showcase.approved"
	EventShowcaseChangesRequested EventType = "showcase.changes_requested"
	EventShowcaseResubmitted      EventType = "showcase.resubmitted"
)

// DomainEvent - факт, произошедший с агрегатом. Методы сущностей возвращают
// события вместе с измененным состоянием, сервис публикует их после коммита.
type DomainEvent struct {
	ID          string         `json:"id"`
	AggregateID string         `json:"aggregate_id"`
	EventType   EventType      `json:"event_type"`
	OccurredAt  time.Time      `json:"occurred_at"`
	Payload     map[string]any `json:"payload"`
}

func NewDomainEvent(aggregateID string, eventType EventType, at time.Time, payload map[string]any) DomainEvent {
	if payload == nil {
		payload = map[string]any{}
	}
	return DomainEvent{
		ID:          NewEntityID(),
		AggregateID: aggregateID,
		EventType:   eventType,
		OccurredAt:  at.UTC(),
		Payload:     payload,
	}
}

// PayloadString достает строковое поле payload
func (e DomainEvent) PayloadString(key string) string {
	if v, ok := e.Payload[key].(string); ok {
		return v
	}
	return ""
}

// PayloadStrings достает список строк (talent_ids и т.п.)
func (e DomainEvent) PayloadStrings(key string) []string {
	switch v := e.Payload[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
