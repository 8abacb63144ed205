package optimus

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Upcasted/optimus-courier/internal/domain"
)

// envelope is the common courier response shape
type envelope struct {
	Error        errorCode       `json:"error"`
	ErrorMessage string          `json:"error_message"`
	PCL          pclList         `json:"pcl"`
	PDFData      string          `json:"pdf_data"`
	Data         json.RawMessage `json:"data"`

	hasError bool
	raw      map[string]json.RawMessage
}

// errorCode accepts both numeric and string encodings of the error flag
type errorCode int

func (c *errorCode) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	switch s {
	case "", "null", "false":
		*c = 0
		return nil
	case "true":
		*c = 1
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// a non-numeric flag still means the call failed
		*c = 1
		return nil
	}
	*c = errorCode(n)
	return nil
}

// pclList accepts a list of waybill numbers, numeric or string
type pclList []string

func (p *pclList) UnmarshalJSON(b []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		var single json.RawMessage
		if err := json.Unmarshal(b, &single); err != nil {
			return err
		}
		items = []json.RawMessage{single}
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		s := strings.Trim(strings.TrimSpace(string(item)), `"`)
		if s != "" && s != "null" {
			out = append(out, s)
		}
	}
	*p = out
	return nil
}

// decodeEnvelope parses body into an envelope. A body that is not a JSON object fails.
func decodeEnvelope(body []byte) (*envelope, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return nil, domain.NewTransportError("invalid JSON response from courier API", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, domain.NewTransportError("unexpected response shape from courier API", err)
	}
	_, env.hasError = raw["error"]
	env.raw = raw
	return &env, nil
}

// failure returns a domain error when the remote flagged one
func (e *envelope) failure() error {
	if e.Error != 0 {
		return domain.NewDomainError(int(e.Error), strings.TrimSpace(e.ErrorMessage))
	}
	return nil
}

func (e *envelope) pdf() ([]byte, error) {
	if e.PDFData == "" {
		return nil, domain.NewMalformedError("courier response has no pdf_data")
	}
	data, err := base64.StdEncoding.DecodeString(e.PDFData)
	if err != nil {
		return nil, domain.NewMalformedError("courier returned invalid base64 pdf_data")
	}
	return data, nil
}

func (e *envelope) trackingEvents() []domain.TrackingEvent {
	if len(e.Data) == 0 {
		return nil
	}

	var rows []map[string]any
	if err := json.Unmarshal(e.Data, &rows); err != nil {
		return nil
	}

	events := make([]domain.TrackingEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, domain.TrackingEvent{
			Date:  stringify(row["date"]),
			Title: stringify(row["title"]),
		})
	}
	return events
}

func (e *envelope) rawMap() map[string]any {
	out := make(map[string]any, len(e.raw))
	for k, v := range e.raw {
		var value any
		if err := json.Unmarshal(v, &value); err == nil {
			out[k] = value
		}
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
