// Package eventmap converts order domain events into outbox records.
package eventmap

import (
	"context"
	"fmt"

	"github.com/Upcasted/optimus-courier/internal/domain"
	"github.com/Upcasted/optimus-courier/pkg/cloudevents"
	"github.com/Upcasted/optimus-courier/pkg/kafka"
	"github.com/Upcasted/optimus-courier/pkg/outbox"
)

// AggregateType is the outbox aggregate type of orders
const AggregateType = "Order"

// ToOutboxEvents turns the pending domain events of an order into outbox events on the AWB topic.
// Unknown event types are skipped.
func ToOutboxEvents(ctx context.Context, factory *cloudevents.EventFactory, order *domain.Order) ([]*outbox.OutboxEvent, error) {
	domainEvents := order.GetDomainEvents()
	if len(domainEvents) == 0 {
		return nil, nil
	}

	events := make([]*outbox.OutboxEvent, 0, len(domainEvents))
	for _, event := range domainEvents {
		var cloudEvent *cloudevents.CloudEvent
		switch e := event.(type) {
		case *domain.AWBGeneratedEvent:
			cloudEvent = factory.CreateAWBGeneratedEvent(ctx, e.OrderID, e.OrderNumber, e.AWBNumber, e.AWBNumbers)
		case *domain.AWBDeletedEvent:
			cloudEvent = factory.CreateAWBDeletedEvent(ctx, e.OrderID, e.AWBNumber)
		case *domain.OrderCompletedEvent:
			cloudEvent = factory.CreateOrderCompletedEvent(ctx, e.OrderID, e.PreviousStatus)
		default:
			continue
		}
		cloudEvent.Time = event.OccurredAt()

		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(order.ID, AggregateType, kafka.Topics.AWBEvents, cloudEvent)
		if err != nil {
			return nil, fmt.Errorf("failed to create outbox event: %w", err)
		}
		events = append(events, outboxEvent)
	}

	return events, nil
}
