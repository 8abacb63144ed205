package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// AWBGeneratedEvent is recorded when waybills are stored on an order
type AWBGeneratedEvent struct {
	OrderID     string    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	AWBNumber   string    `json:"awbNumber"`
	AWBNumbers  []string  `json:"awbNumbers"`
	GeneratedAt time.Time `json:"generatedAt"`
}

func (e *AWBGeneratedEvent) EventType() string     { return "optimus.awb.generated" }
func (e *AWBGeneratedEvent) OccurredAt() time.Time { return e.GeneratedAt }

// AWBDeletedEvent is recorded when the stored waybills are cleared
type AWBDeletedEvent struct {
	OrderID   string    `json:"orderId"`
	AWBNumber string    `json:"awbNumber"`
	DeletedAt time.Time `json:"deletedAt"`
}

func (e *AWBDeletedEvent) EventType() string     { return "optimus.awb.deleted" }
func (e *AWBDeletedEvent) OccurredAt() time.Time { return e.DeletedAt }

// OrderCompletedEvent is recorded by the auto-complete side effect
type OrderCompletedEvent struct {
	OrderID        string    `json:"orderId"`
	PreviousStatus string    `json:"previousStatus"`
	CompletedAt    time.Time `json:"completedAt"`
}

func (e *OrderCompletedEvent) EventType() string     { return "optimus.order.completed" }
func (e *OrderCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }
