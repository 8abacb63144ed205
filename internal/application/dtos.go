package application

import "github.com/Upcasted/optimus-courier/internal/domain"

// Outcome is the terminal state of a generation attempt
type Outcome string

const (
	OutcomeGenerated Outcome = "generated"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
	OutcomeConflict  Outcome = "conflict"
)

// GenerationResult is the result of one generation attempt
type GenerationResult struct {
	OrderID      string            `json:"orderId"`
	Outcome      Outcome           `json:"outcome"`
	AWBNumber    string            `json:"awbNumber,omitempty"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
	ErrorKind    domain.ErrorKind  `json:"errorKind,omitempty"`
	ErrorCode    int               `json:"errorCode,omitempty"`
	Fields       map[string]string `json:"fields,omitempty"`
}

// Reason is the message an operator sees for a non-generated outcome
func (r *GenerationResult) Reason() string {
	return r.ErrorMessage
}

// BulkResult tallies a bulk run. Processed + Failed + Skipped equals the number of requested orders.
type BulkResult struct {
	Processed      int                 `json:"processed"`
	Failed         int                 `json:"failed"`
	Skipped        int                 `json:"skipped"`
	PerOrderErrors map[string]string   `json:"perOrderErrors"`
	SkipReasons    map[string]string   `json:"skipReasons"`
	Results        []*GenerationResult `json:"results"`
}

// TrackingView is what the public tracking page renders
type TrackingView struct {
	AWBNumber string                 `json:"awbNumber"`
	Found     bool                   `json:"found"`
	Message   string                 `json:"message,omitempty"`
	Events    []domain.TrackingEvent `json:"events"`
}

// TrackingLink is one waybill with its public tracking URL
type TrackingLink struct {
	AWBNumber string `json:"awbNumber"`
	URL       string `json:"url"`
}

// LabelFile is a downloadable label document
type LabelFile struct {
	Filename    string
	ContentType string
	Inline      bool
	Data        []byte
	Pages       int
	Missing     []string
}

// Content types of label downloads
const (
	ContentTypePDF = "application/pdf"
	ContentTypeZip = "application/zip"
)
