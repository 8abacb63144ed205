package outbox

import (
	"context"

	"github.com/Upcasted/optimus-courier/pkg/cloudevents"
)

// Repository defines the interface for outbox event persistence
type Repository interface {
	// SaveAll saves multiple outbox events in a single operation
	SaveAll(ctx context.Context, events []*OutboxEvent) error

	// FindUnpublished retrieves retryable unpublished events up to the limit, oldest first
	FindUnpublished(ctx context.Context, limit int) ([]*OutboxEvent, error)

	// MarkPublished marks an event as published
	MarkPublished(ctx context.Context, eventID string) error

	// IncrementRetry increments the retry count and updates last error
	IncrementRetry(ctx context.Context, eventID string, errorMsg string) error

	// FindByAggregateID retrieves all events for a specific aggregate
	FindByAggregateID(ctx context.Context, aggregateID string) ([]*OutboxEvent, error)
}

// EventProducer delivers a CloudEvent to a topic. Implemented by kafka.Producer.
type EventProducer interface {
	PublishEvent(ctx context.Context, topic string, event *cloudevents.CloudEvent) error
}
