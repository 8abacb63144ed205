// Package events adapts shop order events from Kafka to the AWB workflows.
package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/Upcasted/optimus-courier/internal/application"
	"github.com/Upcasted/optimus-courier/internal/domain"
	"github.com/Upcasted/optimus-courier/pkg/cloudevents"
	"github.com/Upcasted/optimus-courier/pkg/kafka"
	"github.com/Upcasted/optimus-courier/pkg/logging"
)

// StatusChangeHandler runs the automatic generation trigger
type StatusChangeHandler interface {
	HandleStatusChange(ctx context.Context, change application.StatusChange) *application.GenerationResult
}

// Subscriber is the part of kafka.Consumer the handlers register on
type Subscriber interface {
	Subscribe(topic string, eventType string, handler kafka.EventHandler)
}

// OrderEventHandler consumes shop.orders.events
type OrderEventHandler struct {
	awb    StatusChangeHandler
	orders domain.OrderRepository
	logger *logging.Logger
}

// NewOrderEventHandler creates a new OrderEventHandler
func NewOrderEventHandler(awb StatusChangeHandler, orders domain.OrderRepository, logger *logging.Logger) *OrderEventHandler {
	return &OrderEventHandler{
		awb:    awb,
		orders: orders,
		logger: logger.WithComponent("order-events"),
	}
}

// Register subscribes both handlers on the shop order topic
func (h *OrderEventHandler) Register(s Subscriber) {
	s.Subscribe(kafka.Topics.ShopOrderEvents, cloudevents.OrderStatusChanged, h.HandleStatusChanged)
	s.Subscribe(kafka.Topics.ShopOrderEvents, cloudevents.OrderSynced, h.HandleOrderSynced)
}

// HandleStatusChanged triggers generation for orders entering the configured status.
// Generation outcomes are final: a retry could create a second waybill, so they are never returned as errors.
func (h *OrderEventHandler) HandleStatusChanged(ctx context.Context, event *cloudevents.CloudEvent) error {
	var change application.StatusChange
	if err := event.DecodeData(&change); err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Dropping malformed status change", "eventId", event.ID)
		return nil
	}
	if strings.TrimSpace(change.OrderID) == "" {
		h.logger.WithContext(ctx).Warn("Dropping status change without order id", "eventId", event.ID)
		return nil
	}

	result := h.awb.HandleStatusChange(logging.ContextWithOrderID(ctx, change.OrderID), change)
	if result == nil {
		return nil
	}

	h.logger.WithContext(ctx).WithOrder(change.OrderID).Info("Automatic generation finished",
		"eventId", event.ID,
		"newStatus", change.NewStatus,
		"outcome", result.Outcome,
		"awbNumber", result.AWBNumber,
		"reason", result.ErrorMessage,
	)
	return nil
}

// HandleOrderSynced stores the order snapshot. Storage errors are returned so the message is redelivered.
func (h *OrderEventHandler) HandleOrderSynced(ctx context.Context, event *cloudevents.CloudEvent) error {
	var order domain.Order
	if err := event.DecodeData(&order); err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Dropping malformed order snapshot", "eventId", event.ID)
		return nil
	}
	if strings.TrimSpace(order.ID) == "" {
		h.logger.WithContext(ctx).Warn("Dropping order snapshot without id", "eventId", event.ID)
		return nil
	}

	if err := h.orders.Upsert(ctx, &order); err != nil {
		return fmt.Errorf("failed to store order snapshot %s: %w", order.ID, err)
	}

	h.logger.WithContext(ctx).WithOrder(order.ID).Debug("Order snapshot stored", "status", order.Status)
	return nil
}
