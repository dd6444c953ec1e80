package services

import (
	"context"
	"time"

	"gigboard_backend/internal/events"
	"gigboard_backend/internal/logger"
	"gigboard_backend/internal/models"
)

// NotificationService - каналы доставки уведомлений. Вызовы best-effort:
// ошибка логируется и не влияет на результат бизнес-операции.
type NotificationService interface {
	SendEmail(ctx context.Context, to []string, subject, template string, data map[string]interface{}) error
	SendPushNotification(ctx context.Context, userID, notificationType, title, message string, data map[string]interface{}) error
	SendSms(ctx context.Context, phone, message string) error
}

// Clock - источник текущего времени, в тестах подменяется
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// publisher публикует события после коммита. Транзакция уже зафиксирована,
// поэтому сбой шины только логируется.
type publisher struct {
	bus events.Bus
}

func (p publisher) publish(ctx context.Context, evts ...models.DomainEvent) {
	if p.bus == nil || len(evts) == 0 {
		return
	}
	if err := p.bus.PublishMany(ctx, evts); err != nil {
		logger.CtxWithError(ctx, "failed to publish domain events", err, "count", len(evts))
	}
}

// notify выполняет best-effort отправку
func notify(ctx context.Context, what string, send func() error) {
	if err := send(); err != nil {
		logger.CtxWithError(ctx, "notification failed", err, "notification", what)
	}
}
