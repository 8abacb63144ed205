package domain

import (
	"strings"
	"time"
)

// StatusCompleted is the shop status an order is moved to by the auto-complete side effect
const StatusCompleted = "completed"

// Order is the slice of a shop order the courier integration reads and writes
type Order struct {
	ID        string          `bson:"_id" json:"id"`
	Number    string          `bson:"number" json:"number"`
	Status    string          `bson:"status" json:"status"`
	Shipping  ShippingAddress `bson:"shipping" json:"shipping"`
	Billing   BillingContact  `bson:"billing" json:"billing"`
	Items     []LineItem      `bson:"items" json:"items"`
	AWBNumber string          `bson:"_optimus_awb_number" json:"awbNumber,omitempty"`
	CreatedAt time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time       `bson:"updatedAt" json:"updatedAt"`

	DomainEvents []DomainEvent `bson:"-" json:"-"`
}

// ShippingAddress is the recipient side of the waybill
type ShippingAddress struct {
	FirstName string `bson:"firstName" json:"firstName"`
	LastName  string `bson:"lastName" json:"lastName"`
	Company   string `bson:"company,omitempty" json:"company,omitempty"`
	Address1  string `bson:"address1" json:"address1"`
	Address2  string `bson:"address2,omitempty" json:"address2,omitempty"`
	City      string `bson:"city" json:"city"`
	State     string `bson:"state" json:"state"`
	Postcode  string `bson:"postcode" json:"postcode"`
	Phone     string `bson:"phone,omitempty" json:"phone,omitempty"`
}

// BillingContact holds the customer contact used for notifications
type BillingContact struct {
	FirstName string `bson:"firstName" json:"firstName"`
	LastName  string `bson:"lastName" json:"lastName"`
	Email     string `bson:"email" json:"email"`
	Phone     string `bson:"phone,omitempty" json:"phone,omitempty"`
}

// LineItem is an order line. Weight is in kg and 0 when the product has none.
type LineItem struct {
	Name     string  `bson:"name" json:"name"`
	Weight   float64 `bson:"weight" json:"weight"`
	Quantity int     `bson:"quantity" json:"quantity"`
}

// HasAWB reports whether a waybill was already generated for the order
func (o *Order) HasAWB() bool {
	return strings.TrimSpace(o.AWBNumber) != ""
}

// AWBNumbers splits the stored waybill list
func (o *Order) AWBNumbers() []string {
	return SplitAWBNumbers(o.AWBNumber)
}

// FirstAWB returns the first stored waybill number or ""
func (o *Order) FirstAWB() string {
	numbers := o.AWBNumbers()
	if len(numbers) == 0 {
		return ""
	}
	return numbers[0]
}

// TotalWeight sums weight × quantity over the line items
func (o *Order) TotalWeight() float64 {
	total := 0.0
	for _, item := range o.Items {
		if item.Weight <= 0 || item.Quantity <= 0 {
			continue
		}
		total += item.Weight * float64(item.Quantity)
	}
	return total
}

// RecipientName is the shipping first and last name
func (o *Order) RecipientName() string {
	return joinName(o.Shipping.FirstName, o.Shipping.LastName)
}

// CustomerName is the billing first and last name
func (o *Order) CustomerName() string {
	return joinName(o.Billing.FirstName, o.Billing.LastName)
}

// RecipientPhone prefers the shipping phone and falls back to billing
func (o *Order) RecipientPhone() string {
	if phone := strings.TrimSpace(o.Shipping.Phone); phone != "" {
		return phone
	}
	return strings.TrimSpace(o.Billing.Phone)
}

// RecipientAddress joins both address lines
func (o *Order) RecipientAddress() string {
	return strings.TrimSpace(o.Shipping.Address1 + " " + o.Shipping.Address2)
}

// AssignAWB stores the generated waybill numbers and records AWBGenerated
func (o *Order) AssignAWB(numbers []string) {
	now := time.Now().UTC()
	o.AWBNumber = JoinAWBNumbers(numbers)
	o.UpdatedAt = now

	o.AddDomainEvent(&AWBGeneratedEvent{
		OrderID:     o.ID,
		OrderNumber: o.Number,
		AWBNumber:   o.AWBNumber,
		AWBNumbers:  append([]string(nil), numbers...),
		GeneratedAt: now,
	})
}

// ClearAWB removes the stored waybill numbers and records AWBDeleted
func (o *Order) ClearAWB() {
	now := time.Now().UTC()
	previous := o.AWBNumber
	o.AWBNumber = ""
	o.UpdatedAt = now

	o.AddDomainEvent(&AWBDeletedEvent{
		OrderID:   o.ID,
		AWBNumber: previous,
		DeletedAt: now,
	})
}

// Complete moves the order to the completed status. It returns false when it already was.
func (o *Order) Complete() bool {
	if NormalizeStatus(o.Status) == StatusCompleted {
		return false
	}

	now := time.Now().UTC()
	previous := o.Status
	o.Status = StatusCompleted
	o.UpdatedAt = now

	o.AddDomainEvent(&OrderCompletedEvent{
		OrderID:        o.ID,
		PreviousStatus: previous,
		CompletedAt:    now,
	})
	return true
}

// AddDomainEvent adds a domain event to the order
func (o *Order) AddDomainEvent(event DomainEvent) {
	o.DomainEvents = append(o.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (o *Order) ClearDomainEvents() {
	o.DomainEvents = nil
}

// GetDomainEvents returns all domain events
func (o *Order) GetDomainEvents() []DomainEvent {
	return o.DomainEvents
}

// NormalizeStatus strips the shop's "wc-" prefix
func NormalizeStatus(status string) string {
	return strings.TrimPrefix(strings.TrimSpace(status), "wc-")
}

// SplitAWBNumbers parses a comma-separated waybill list
func SplitAWBNumbers(value string) []string {
	var numbers []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			numbers = append(numbers, part)
		}
	}
	return numbers
}

// JoinAWBNumbers formats waybill numbers the way they are stored on the order
func JoinAWBNumbers(numbers []string) string {
	return strings.Join(numbers, ", ")
}

func joinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}
