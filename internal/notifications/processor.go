package notifications

import (
	"context"
	"fmt"

	"gigboard_backend/internal/email"
	"gigboard_backend/internal/logger"
	"gigboard_backend/internal/models"
	"gigboard_backend/internal/repositories"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SMSSender отправляет SMS
type SMSSender interface {
	Send(ctx context.Context, phone, message string) error
}

// LogSMSSender пишет SMS в лог: SMS-шлюз не подключен
type LogSMSSender struct{}

func (LogSMSSender) Send(ctx context.Context, phone, message string) error {
	logger.CtxInfo(ctx, "sms suppressed", "phone", maskPhone(phone), "length", len(message))
	return nil
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "****" + phone[len(phone)-4:]
}

// LiveSink доставляет сохраненное уведомление в открытые соединения пользователя
type LiveSink interface {
	SendToUser(userID string, payload any) int
}

// LiveMessage - кадр, который получает клиент в потоке уведомлений
type LiveMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Processor доставляет задачу по ее каналу. Push сохраняется во входящие пользователя.
type Processor struct {
	db               *gorm.DB
	notificationRepo repositories.NotificationRepository
	mailer           email.Provider
	sms              SMSSender
	live             LiveSink
}

func NewProcessor(db *gorm.DB, notificationRepo repositories.NotificationRepository, mailer email.Provider, sms SMSSender) *Processor {
	if sms == nil {
		sms = LogSMSSender{}
	}
	return &Processor{db: db, notificationRepo: notificationRepo, mailer: mailer, sms: sms}
}

// WithLiveSink включает доставку push-уведомлений в реальном времени
func (p *Processor) WithLiveSink(live LiveSink) *Processor {
	p.live = live
	return p
}

func (p *Processor) Process(ctx context.Context, task *Task) error {
	var err error
	switch models.NotificationChannel(task.Channel) {
	case models.ChannelPush:
		n := &models.Notification{
			UserID:  task.UserID,
			Type:    task.Type,
			Title:   task.Title,
			Message: task.Message,
			Data:    datatypes.JSONMap(task.Data),
		}
		err = p.notificationRepo.Create(p.db.WithContext(ctx), n)
		if err == nil && p.live != nil {
			p.live.SendToUser(task.UserID, LiveMessage{Type: "notification", Data: n})
		}
	case models.ChannelEmail:
		template := task.Template
		if template == "" {
			template = "notification"
		}
		data := email.TemplateData{"Title": task.Title, "Message": task.Message}
		for k, v := range task.Data {
			data[k] = v
		}
		err = p.mailer.SendTemplate(task.To, task.Subject, template, data)
	case models.ChannelSMS:
		err = p.sms.Send(ctx, task.Phone, task.Message)
	default:
		err = fmt.Errorf("unknown notification channel %q", task.Channel)
	}

	logger.WorkerLog("notification_processor", task.Channel, err)
	return err
}
