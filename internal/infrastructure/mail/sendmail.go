package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/Upcasted/optimus-courier/internal/domain"
)

// SendmailMailer pipes messages to the local sendmail binary
type SendmailMailer struct {
	path string
}

// NewSendmailMailer creates a sendmail transport. An empty path uses the go-mail default.
func NewSendmailMailer(path string) *SendmailMailer {
	if path == "" {
		path = gomail.SendmailPath
	}
	return &SendmailMailer{path: path}
}

// Name identifies the transport in logs and metrics
func (s *SendmailMailer) Name() string { return "sendmail" }

// Send writes msg to sendmail
func (s *SendmailMailer) Send(ctx context.Context, msg *domain.MailMessage) error {
	m, err := buildMessage(msg)
	if err != nil {
		return err
	}
	if err := m.WriteToSendmailWithContext(ctx, s.path); err != nil {
		return fmt.Errorf("failed to send mail via sendmail: %w", err)
	}
	return nil
}
