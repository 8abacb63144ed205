package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// EventFactory creates CloudEvents for a single source
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new CloudEvent with the given parameters
func (f *EventFactory) CreateEvent(ctx context.Context, eventType string, subject string, data interface{}) *CloudEvent {
	event := &CloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
		Extensions:      make(map[string]interface{}),
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		event.TraceParent = "00-" + sc.TraceID().String() + "-" + sc.SpanID().String() + "-" + sc.TraceFlags().String()
	}

	return event
}

// CreateAWBGeneratedEvent creates an optimus.awb.generated event
func (f *EventFactory) CreateAWBGeneratedEvent(ctx context.Context, orderID, orderNumber, awbNumber string, awbNumbers []string) *CloudEvent {
	event := f.CreateEvent(ctx, AWBGenerated, "order/"+orderID, AWBGeneratedData{
		OrderID:     orderID,
		OrderNumber: orderNumber,
		AWBNumber:   awbNumber,
		AWBNumbers:  awbNumbers,
	})
	event.OrderID = orderID
	return event
}

// CreateAWBDeletedEvent creates an optimus.awb.deleted event
func (f *EventFactory) CreateAWBDeletedEvent(ctx context.Context, orderID, awbNumber string) *CloudEvent {
	event := f.CreateEvent(ctx, AWBDeleted, "order/"+orderID, AWBDeletedData{
		OrderID:   orderID,
		AWBNumber: awbNumber,
	})
	event.OrderID = orderID
	return event
}

// CreateOrderCompletedEvent creates an optimus.order.completed event
func (f *EventFactory) CreateOrderCompletedEvent(ctx context.Context, orderID, previousStatus string) *CloudEvent {
	event := f.CreateEvent(ctx, OrderCompleted, "order/"+orderID, OrderCompletedData{
		OrderID:        orderID,
		PreviousStatus: previousStatus,
	})
	event.OrderID = orderID
	return event
}
