package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordAWBGeneration(t *testing.T) {
	m := New(DefaultConfig("optimus-courier"))

	m.RecordAWBGeneration("manual", "generated")
	m.RecordAWBGeneration("manual", "generated")
	m.RecordAWBGeneration("bulk", "skipped")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AWBGenerations.WithLabelValues("optimus-courier", "manual", "generated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AWBGenerations.WithLabelValues("optimus-courier", "bulk", "skipped")))
}

func TestMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordAWBGeneration("auto", "failed")
		m.RecordCourierRequest("new_awb", "success", time.Second)
		m.RecordNotification("smtp", true)
		m.SetOutboxPending(3)
		m.IncrementHTTPRequestsInFlight()
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New(DefaultConfig("optimus-courier"))
	m.RecordCourierRequest("get_pdf", "success", 150*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "optimus_courier_requests_total")
}
