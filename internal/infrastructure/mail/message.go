package mail

import (
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/Upcasted/optimus-courier/internal/domain"
)

// buildMessage converts a rendered notification into a go-mail message
func buildMessage(msg *domain.MailMessage) (*gomail.Msg, error) {
	if msg.To == "" {
		return nil, domain.ErrNoRecipient
	}

	m := gomail.NewMsg()
	if msg.FromEmail != "" {
		if err := m.FromFormat(msg.FromName, msg.FromEmail); err != nil {
			return nil, fmt.Errorf("invalid sender address: %w", err)
		}
		if err := m.ReplyTo(msg.FromEmail); err != nil {
			return nil, fmt.Errorf("invalid reply-to address: %w", err)
		}
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}

	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextHTML, msg.HTMLBody)
	return m, nil
}
