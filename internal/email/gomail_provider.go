package email

import (
	"errors"
	"fmt"

	"gigboard_backend/internal/config"
	"gigboard_backend/internal/logger"

	"gopkg.in/gomail.v2"
)

var ErrNoRecipients = errors.New("no recipients specified")

// sender - часть gomail.Dialer, подменяется в тестах
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// GomailProvider отправляет письма через SMTP
type GomailProvider struct {
	dialer   sender
	from     string
	fromName string
	renderer TemplateRenderer
}

func NewGomailProvider(cfg *config.Config, renderer TemplateRenderer) *GomailProvider {
	d := gomail.NewDialer(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUsername,
		cfg.Email.SMTPPassword,
	)
	return &GomailProvider{
		dialer:   d,
		from:     cfg.Email.FromEmail,
		fromName: cfg.Email.FromName,
		renderer: renderer,
	}
}

func (p *GomailProvider) Send(email *Email) error {
	if len(email.To) == 0 {
		return ErrNoRecipients
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", p.from, p.fromName)
	m.SetHeader("To", email.To...)
	m.SetHeader("Subject", email.Subject)
	if email.HTMLBody != "" {
		m.SetBody("text/html", email.HTMLBody)
		if email.Body != "" {
			m.AddAlternative("text/plain", email.Body)
		}
	} else {
		m.SetBody("text/plain", email.Body)
	}

	if err := p.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (p *GomailProvider) SendTemplate(to []string, subject, templateName string, data TemplateData) error {
	html, err := p.renderer.Render(templateName, data)
	if err != nil {
		return err
	}
	return p.Send(&Email{To: to, Subject: subject, HTMLBody: html})
}

// LogProvider пишет письма в лог вместо отправки (email.enabled: false)
type LogProvider struct {
	renderer TemplateRenderer
}

func NewLogProvider(renderer TemplateRenderer) *LogProvider {
	return &LogProvider{renderer: renderer}
}

func (p *LogProvider) Send(email *Email) error {
	if len(email.To) == 0 {
		return ErrNoRecipients
	}
	logger.Info("email suppressed", "to", email.To, "subject", email.Subject)
	return nil
}

func (p *LogProvider) SendTemplate(to []string, subject, templateName string, data TemplateData) error {
	if _, err := p.renderer.Render(templateName, data); err != nil {
		return err
	}
	return p.Send(&Email{To: to, Subject: subject})
}

// NewProvider выбирает провайдера по конфигу
func NewProvider(cfg *config.Config) Provider {
	renderer := NewTemplateManager()
	if cfg.Email.Enabled {
		return NewGomailProvider(cfg, renderer)
	}
	return NewLogProvider(renderer)
}
