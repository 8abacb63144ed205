package domain

import "context"

// CourierClient is the port to the Optimus Courier remote API
type CourierClient interface {
	CreateWaybill(ctx context.Context, req AWBRequest) (*Waybill, error)
	GetWaybillPDF(ctx context.Context, awbID string) ([]byte, error)
	TrackWaybill(ctx context.Context, awbNumber string, extra map[string]string) ([]TrackingEvent, error)
	GetStatus(ctx context.Context, awbNumber string) (*WaybillStatus, error)
	GetCounties(ctx context.Context) ([]County, error)
	CheckCredentials(ctx context.Context) CredentialStatus
}

// Waybill is the result of a successful create call
type Waybill struct {
	Numbers []string `json:"numbers"`
}

// Joined is the value stored on the order
func (w *Waybill) Joined() string {
	return JoinAWBNumbers(w.Numbers)
}

// TrackingEvent is one row of the courier tracking history
type TrackingEvent struct {
	Date  string `json:"date"`
	Title string `json:"title"`
}

// WaybillStatus is the raw /api-status payload
type WaybillStatus struct {
	AWBNumber string         `json:"awbNumber"`
	Raw       map[string]any `json:"raw"`
}

// County is a raw /api-judete entry
type County map[string]any

// CredentialStatus is the outcome of a credential check
type CredentialStatus struct {
	Connected bool   `json:"connected"`
	Message   string `json:"message"`
}

// Credentials authenticate every courier call
type Credentials struct {
	Username string
	APIKey   string
}

// Complete reports whether both credentials are set
func (c Credentials) Complete() bool {
	return c.Username != "" && c.APIKey != ""
}
