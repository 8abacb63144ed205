package mail

import (
	"context"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/Upcasted/optimus-courier/internal/domain"
)

// SMTPConfig holds the SMTP relay settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// SMTPMailer sends through an SMTP relay
type SMTPMailer struct {
	config SMTPConfig
}

// NewSMTPMailer creates an SMTP transport
func NewSMTPMailer(config SMTPConfig) *SMTPMailer {
	if config.Port == 0 {
		config.Port = 587
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	return &SMTPMailer{config: config}
}

// Name identifies the transport in logs and metrics
func (s *SMTPMailer) Name() string { return "smtp" }

func (s *SMTPMailer) clientOptions() []gomail.Option {
	opts := []gomail.Option{
		gomail.WithPort(s.config.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(s.config.Timeout),
	}
	if s.config.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.config.Username),
			gomail.WithPassword(s.config.Password),
		)
	}
	return opts
}

// Send dials the relay and delivers msg
func (s *SMTPMailer) Send(ctx context.Context, msg *domain.MailMessage) error {
	if s.config.Host == "" {
		return fmt.Errorf("smtp host is not configured")
	}

	m, err := buildMessage(msg)
	if err != nil {
		return err
	}

	client, err := gomail.NewClient(s.config.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send mail via smtp: %w", err)
	}
	return nil
}
