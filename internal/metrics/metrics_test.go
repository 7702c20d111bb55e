package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRun(t *testing.T) {
	r := NewRecorder(prometheus.NewRegistry())

	r.ObserveRun(RunOutcome{
		RawRecords:     10,
		KeptRecords:    8,
		Duplicates:     2,
		UnparsedFields: map[string]int{"amount": 1},
		FailedChecks:   []string{"amount_range"},
		Duration:       time.Second,
	})
	r.ObserveRun(RunOutcome{Err: errors.New("boom"), RawRecords: 99})

	assert.Equal(t, 10.0, testutil.ToFloat64(r.recordsIn))
	assert.Equal(t, 8.0, testutil.ToFloat64(r.recordsKept))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.duplicates))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.unparsedFields.WithLabelValues("amount")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.checkFailures.WithLabelValues("amount_range")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("failed")))
}

func TestHandler(t *testing.T) {
	r := NewRecorder(prometheus.NewRegistry())
	r.ObserveHTTP("/health", http.StatusOK)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "txclean_http_requests_total"))
}
