package notifications

import (
	"context"
	"fmt"

	"gigboard_backend/internal/events"
	"gigboard_backend/internal/logger"
	"gigboard_backend/internal/models"
	"gigboard_backend/internal/repositories"

	"gorm.io/gorm"
)

// Sender - каналы доставки, которыми пользуются подписчики
type Sender interface {
	SendEmail(ctx context.Context, to []string, subject, template string, data map[string]interface{}) error
	SendPushNotification(ctx context.Context, userID, notificationType, title, message string, data map[string]interface{}) error
	SendSms(ctx context.Context, phone, message string) error
}

// Subscribers превращают доменные события в уведомления участникам
type Subscribers struct {
	db       *gorm.DB
	sender   Sender
	dedupe   events.Deduplicator
	gigRepo  repositories.GigRepository
	appRepo  repositories.ApplicationRepository
	userRepo repositories.UserRepository
}

func NewSubscribers(
	db *gorm.DB,
	sender Sender,
	dedupe events.Deduplicator,
	gigRepo repositories.GigRepository,
	appRepo repositories.ApplicationRepository,
	userRepo repositories.UserRepository,
) *Subscribers {
	return &Subscribers{
		db:       db,
		sender:   sender,
		dedupe:   dedupe,
		gigRepo:  gigRepo,
		appRepo:  appRepo,
		userRepo: userRepo,
	}
}

// Register подписывает обработчики на шину; каждый срабатывает на событие не более одного раза
func (s *Subscribers) Register(bus events.Bus) []string {
	handlers := map[models.EventType]events.Handler{
		models.EventApplicationStatusChanged: s.onApplicationStatusChanged,
		models.EventShowcaseCreated:          s.onShowcaseCreated,
		models.EventShowcaseApproved:         s.onShowcaseApproved,
		models.EventShowcaseChangesRequested: s.onShowcaseChangesRequested,
		models.EventShowcaseResubmitted:      s.onShowcaseResubmitted,
		models.EventGigCancelled:             s.onGigCancelled,
	}

	ids := make([]string, 0, len(handlers))
	for eventType, h := range handlers {
		ids = append(ids, bus.Subscribe(eventType, events.Once(s.dedupe, "notify:"+string(eventType), h)))
	}
	return ids
}

func (s *Subscribers) gigTitle(ctx context.Context, gigID string) string {
	gig, err := s.gigRepo.FindByID(s.db.WithContext(ctx), gigID)
	if err != nil {
		logger.CtxWarn(ctx, "gig lookup for notification failed", "gig_id", gigID, "error", err.Error())
		return "your gig"
	}
	return gig.Title
}

func (s *Subscribers) onApplicationStatusChanged(ctx context.Context, evt models.DomainEvent) error {
	gigID := evt.PayloadString("gig_id")
	status := evt.PayloadString("to")
	title := s.gigTitle(ctx, gigID)

	return s.sender.SendPushNotification(ctx, evt.PayloadString("applicant_id"), string(evt.EventType),
		"Application update",
		fmt.Sprintf("Your application to %q is now %s", title, status),
		map[string]interface{}{"gig_id": gigID, "application_id": evt.AggregateID, "status": status},
	)
}

func (s *Subscribers) onShowcaseCreated(ctx context.Context, evt models.DomainEvent) error {
	title := s.gigTitle(ctx, evt.PayloadString("gig_id"))
	return s.pushEach(ctx, evt, evt.PayloadStrings("talent_ids"),
		"Showcase awaiting your approval",
		fmt.Sprintf("A showcase from %q needs your approval before it can go public", title))
}

func (s *Subscribers) onShowcaseResubmitted(ctx context.Context, evt models.DomainEvent) error {
	title := s.gigTitle(ctx, evt.PayloadString("gig_id"))
	return s.pushEach(ctx, evt, evt.PayloadStrings("talent_ids"),
		"Showcase updated",
		fmt.Sprintf("The showcase from %q was revised and needs your approval again", title))
}

func (s *Subscribers) onShowcaseApproved(ctx context.Context, evt models.DomainEvent) error {
	gigID := evt.PayloadString("gig_id")
	title := s.gigTitle(ctx, gigID)
	parties := append([]string{evt.PayloadString("creator_id")}, evt.PayloadStrings("talent_ids")...)

	err := s.pushEach(ctx, evt, parties, "Showcase published",
		fmt.Sprintf("Everyone approved the showcase from %q. It is now public", title))

	profiles, lookupErr := s.userRepo.FindByUserIDs(s.db.WithContext(ctx), parties)
	if lookupErr != nil {
		return lookupErr
	}
	var to []string
	for _, p := range profiles {
		to = append(to, p.Email)
	}
	if mailErr := s.sender.SendEmail(ctx, to, "Your showcase is live", string(evt.EventType),
		map[string]interface{}{"GigTitle": title, "ShowcaseID": evt.AggregateID}); mailErr != nil {
		return mailErr
	}
	return err
}

func (s *Subscribers) onShowcaseChangesRequested(ctx context.Context, evt models.DomainEvent) error {
	title := s.gigTitle(ctx, evt.PayloadString("gig_id"))
	note := evt.PayloadString("note")

	return s.sender.SendPushNotification(ctx, evt.PayloadString("creator_id"), string(evt.EventType),
		"Changes requested",
		fmt.Sprintf("Changes were requested on the showcase from %q: %s", title, note),
		map[string]interface{}{
			"showcase_id":  evt.AggregateID,
			"gig_id":       evt.PayloadString("gig_id"),
			"requested_by": evt.PayloadString("requested_by"),
		},
	)
}

func (s *Subscribers) onGigCancelled(ctx context.Context, evt models.DomainEvent) error {
	apps, err := s.appRepo.FindByGig(s.db.WithContext(ctx), evt.AggregateID, nil)
	if err != nil {
		return err
	}
	applicants := make([]string, 0, len(apps))
	for _, a := range apps {
		if a.Status != models.ApplicationStatusDeclined {
			applicants = append(applicants, a.ApplicantID)
		}
	}

	msg := fmt.Sprintf("%q was cancelled", evt.PayloadString("title"))
	if reason := evt.PayloadString("reason"); reason != "" {
		msg += ": " + reason
	}
	return s.pushEach(ctx, evt, applicants, "Gig cancelled", msg)
}

// pushEach отправляет push каждому получателю; ошибки не прерывают рассылку
func (s *Subscribers) pushEach(ctx context.Context, evt models.DomainEvent, userIDs []string, title, message string) error {
	var firstErr error
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		err := s.sender.SendPushNotification(ctx, id, string(evt.EventType), title, message,
			map[string]interface{}{"aggregate_id": evt.AggregateID})
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
