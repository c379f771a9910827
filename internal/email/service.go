package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/clinic-scheduler/internal/config"
	"github.com/jwalitptl/clinic-scheduler/pkg/logger"
)

type Service interface {
	SendCustom(ctx context.Context, to string, subject string, content string) error
}

// Dialer is the part of gomail.Dialer used for delivery.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type smtpService struct {
	dialer Dialer
	from   string
}

// NewService returns an SMTP sender, or a sender that only logs when no SMTP
// host is configured.
func NewService(cfg config.EmailConfig, log *logger.Logger) Service {
	if cfg.Host == "" {
		return &logService{log: log}
	}
	return NewSMTPService(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg.From)
}

func NewSMTPService(dialer Dialer, from string) Service {
	return &smtpService{dialer: dialer, from: from}
}

func (s *smtpService) SendCustom(ctx context.Context, to string, subject string, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", content)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

type logService struct {
	log *logger.Logger
}

func (s *logService) SendCustom(ctx context.Context, to string, subject string, _ string) error {
	s.log.WithContext(ctx).Info("email delivery disabled, dropping message", "to", to, "subject", subject)
	return nil
}
