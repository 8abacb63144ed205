package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/Upcasted/optimus-courier/internal/domain"
	"github.com/Upcasted/optimus-courier/pkg/logging"
	"github.com/Upcasted/optimus-courier/pkg/metrics"
)

// Transport is a named domain.Mailer
type Transport interface {
	domain.Mailer
	Name() string
}

// FallbackMailer tries Secondary when Primary fails
type FallbackMailer struct {
	Primary   Transport
	Secondary Transport

	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewFallbackMailer chains two transports. secondary may be nil.
func NewFallbackMailer(primary, secondary Transport, logger *logging.Logger, m *metrics.Metrics) *FallbackMailer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FallbackMailer{
		Primary:   primary,
		Secondary: secondary,
		logger:    logger.WithComponent("mailer"),
		metrics:   m,
	}
}

// Send delivers through the first transport that succeeds
func (f *FallbackMailer) Send(ctx context.Context, msg *domain.MailMessage) error {
	if msg.To == "" {
		return domain.ErrNoRecipient
	}

	err := f.Primary.Send(ctx, msg)
	f.metrics.RecordNotification(f.Primary.Name(), err == nil)
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrNoRecipient) || f.Secondary == nil {
		return err
	}

	f.logger.WithContext(ctx).WithError(err).Warn("Primary mail transport failed, trying fallback",
		"primary", f.Primary.Name(),
		"secondary", f.Secondary.Name(),
	)

	secondaryErr := f.Secondary.Send(ctx, msg)
	f.metrics.RecordNotification(f.Secondary.Name(), secondaryErr == nil)
	if secondaryErr != nil {
		f.logger.WithContext(ctx).WithError(secondaryErr).Error("Fallback mail transport failed",
			"secondary", f.Secondary.Name(),
		)
		return fmt.Errorf("all mail transports failed: %w", errors.Join(err, secondaryErr))
	}
	return nil
}
