package domain

import (
	"context"
	"time"
)

// OrderRepository defines the interface for order persistence.
// FindByID returns nil, nil when the order does not exist.
// SaveStatus writes the status without touching the AWB metadata.
type OrderRepository interface {
	FindByID(ctx context.Context, orderID string) (*Order, error)
	Save(ctx context.Context, order *Order) error
	SaveStatus(ctx context.Context, order *Order) error
	Upsert(ctx context.Context, order *Order) error
}

// Locker is the per-order generation guard
type Locker interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Mailer delivers a rendered notification
type Mailer interface {
	Send(ctx context.Context, msg *MailMessage) error
}

// MailMessage is a rendered HTML email
type MailMessage struct {
	FromName  string
	FromEmail string
	To        string
	Subject   string
	HTMLBody  string
}
