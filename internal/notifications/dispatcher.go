package notifications

import (
	"context"
	"strings"

	"gigboard_backend/internal/models"
)

// Dispatcher ставит уведомления в очередь доставки.
// Ошибку вызывающий только логирует: уведомление не откатывает операцию.
type Dispatcher struct {
	queue TaskQueue
}

func NewDispatcher(queue TaskQueue) *Dispatcher {
	return &Dispatcher{queue: queue}
}

func (d *Dispatcher) SendEmail(ctx context.Context, to []string, subject, template string, data map[string]interface{}) error {
	recipients := make([]string, 0, len(to))
	for _, addr := range to {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}
	if len(recipients) == 0 {
		return nil
	}
	return d.queue.Enqueue(ctx, &Task{
		Channel:  string(models.ChannelEmail),
		To:       recipients,
		Subject:  subject,
		Template: template,
		Data:     data,
	})
}

func (d *Dispatcher) SendPushNotification(ctx context.Context, userID, notificationType, title, message string, data map[string]interface{}) error {
	return d.queue.Enqueue(ctx, &Task{
		Channel: string(models.ChannelPush),
		UserID:  userID,
		Type:    notificationType,
		Title:   title,
		Message: message,
		Data:    data,
	})
}

func (d *Dispatcher) SendSms(ctx context.Context, phone, message string) error {
	if strings.TrimSpace(phone) == "" {
		return nil
	}
	return d.queue.Enqueue(ctx, &Task{
		Channel: string(models.ChannelSMS),
		Phone:   phone,
		Message: message,
	})
}
