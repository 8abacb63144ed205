package cloudevents

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types published by this service
const (
	AWBGenerated   = "optimus.awb.generated"
	AWBDeleted     = "optimus.awb.deleted"
	OrderCompleted = "optimus.order.completed"
)

// Event types consumed from the shop
const (
	OrderStatusChanged = "shop.order.status-changed"
	OrderSynced        = "shop.order.synced"
)

// SourceOptimusCourier is the CloudEvents source of everything this service emits
const SourceOptimusCourier = "/optimus-courier"

// CloudEvent represents a CloudEvents v1.0 compliant event
type CloudEvent struct {
	SpecVersion     string                 `json:"specversion"`
	Type            string                 `json:"type"`
	Source          string                 `json:"source"`
	Subject         string                 `json:"subject,omitempty"`
	ID              string                 `json:"id"`
	Time            time.Time              `json:"time"`
	DataContentType string                 `json:"datacontenttype"`
	Data            interface{}            `json:"data"`
	Extensions      map[string]interface{} `json:"-"`

	CorrelationID string `json:"correlationid,omitempty"`
	OrderID       string `json:"orderid,omitempty"`
	TraceParent   string `json:"traceparent,omitempty"`
}

// DecodeData converts the (generic, after JSON decoding) payload into target.
func (e *CloudEvent) DecodeData(target interface{}) error {
	raw, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("failed to re-encode event data: %w", err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("failed to decode %s data: %w", e.Type, err)
	}
	return nil
}

// AWBGeneratedData is the payload of optimus.awb.generated
type AWBGeneratedData struct {
	OrderID     string   `json:"orderId"`
	OrderNumber string   `json:"orderNumber"`
	AWBNumber   string   `json:"awbNumber"`
	AWBNumbers  []string `json:"awbNumbers"`
}

// AWBDeletedData is the payload of optimus.awb.deleted
type AWBDeletedData struct {
	OrderID   string `json:"orderId"`
	AWBNumber string `json:"awbNumber"`
}

// OrderCompletedData is the payload of optimus.order.completed
type OrderCompletedData struct {
	OrderID        string `json:"orderId"`
	PreviousStatus string `json:"previousStatus"`
}

// OrderStatusChangedData is the payload of shop.order.status-changed
type OrderStatusChangedData struct {
	OrderID   string `json:"orderId"`
	OldStatus string `json:"oldStatus"`
	NewStatus string `json:"newStatus"`
	OrderRef  string `json:"orderRef,omitempty"`
}
