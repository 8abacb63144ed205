package application

// Generation triggers, recorded on metrics and logs
const (
	TriggerManual  = "manual"
	TriggerAuto    = "auto"
	TriggerBulk    = "bulk"
	TriggerMetaBox = "metabox"
)

// StatusChange is a shop order status transition
type StatusChange struct {
	OrderID   string `json:"orderId"`
	OldStatus string `json:"oldStatus"`
	NewStatus string `json:"newStatus"`
	OrderRef  string `json:"orderRef,omitempty"`
}

// ManualAWBCommand carries the recipient fields an operator edits before generating
type ManualAWBCommand struct {
	OrderID    string  `json:"-" validate:"required"`
	Name       string  `json:"name" validate:"required"`
	Contact    string  `json:"contact" validate:"required"`
	Address    string  `json:"address" validate:"required"`
	City       string  `json:"city" validate:"required"`
	County     string  `json:"county" validate:"required"`
	PostalCode string  `json:"postalCode" validate:"required"`
	Phone      string  `json:"phone" validate:"required"`
	Email      string  `json:"email" validate:"required,email"`
	Parcels    int     `json:"parcels" validate:"gt=0"`
	Weight     float64 `json:"weight" validate:"gt=0"`
}

// BulkGenerateCommand lists orders to generate for, in order
type BulkGenerateCommand struct {
	OrderIDs []string `json:"orderIds" binding:"required,min=1,dive,required"`
}

// LabelsCommand selects the orders whose labels are downloaded
type LabelsCommand struct {
	OrderIDs []string `json:"orderIds" binding:"required,min=1,dive,required"`
}
