// Package metrics exposes Prometheus collectors for reconciliation runs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns the collectors of one process. Use NewRecorder with a fresh
// registry in tests.
type Recorder struct {
	registry *prometheus.Registry

	recordsIn      prometheus.Counter
	recordsKept    prometheus.Counter
	duplicates     prometheus.Counter
	unparsedFields *prometheus.CounterVec
	checkFailures  *prometheus.CounterVec
	runs           *prometheus.CounterVec
	runDuration    prometheus.Histogram
	httpRequests   *prometheus.CounterVec
}

// NewRecorder registers all collectors on reg.
func NewRecorder(reg *prometheus.Registry) *Recorder {
	r := &Recorder{
		registry: reg,
		recordsIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "txclean",
			Name:      "raw_records_total",
			Help:      "Raw records read into reconciliation runs.",
		}),
		recordsKept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "txclean",
			Name:      "canonical_records_total",
			Help:      "Records kept in canonical datasets.",
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "txclean",
			Name:      "duplicates_removed_total",
			Help:      "Candidates discarded as duplicates.",
		}),
		unparsedFields: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "txclean",
			Name:      "unparsed_fields_total",
			Help:      "Fields left unparsed, by field.",
		}, []string{"field"}),
		checkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "txclean",
			Name:      "check_failures_total",
			Help:      "Validation checks that did not pass, by check.",
		}, []string{"check"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "txclean",
			Name:      "runs_total",
			Help:      "Reconciliation runs by final status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "txclean",
			Name:      "run_duration_seconds",
			Help:      "Wall time of reconciliation runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "txclean",
			Name:      "http_requests_total",
			Help:      "HTTP requests by path and status code.",
		}, []string{"path", "code"}),
	}
	reg.MustRegister(
		r.recordsIn, r.recordsKept, r.duplicates, r.unparsedFields,
		r.checkFailures, r.runs, r.runDuration, r.httpRequests,
	)
	return r
}

// Default is the process-wide recorder served on /metrics.
var Default = NewRecorder(prometheus.NewRegistry())

// RunOutcome is what a finished run reports to the recorder.
type RunOutcome struct {
	RawRecords     int
	KeptRecords    int
	Duplicates     int
	UnparsedFields map[string]int
	FailedChecks   []string
	Err            error
	Duration       time.Duration
}

// ObserveRun records one finished run.
func (r *Recorder) ObserveRun(o RunOutcome) {
	status := "success"
	if o.Err != nil {
		status = "failed"
	}
	r.runs.WithLabelValues(status).Inc()
	r.runDuration.Observe(o.Duration.Seconds())
	if o.Err != nil {
		return
	}

	r.recordsIn.Add(float64(o.RawRecords))
	r.recordsKept.Add(float64(o.KeptRecords))
	r.duplicates.Add(float64(o.Duplicates))
	for field, n := range o.UnparsedFields {
		r.unparsedFields.WithLabelValues(field).Add(float64(n))
	}
	for _, name := range o.FailedChecks {
		r.checkFailures.WithLabelValues(name).Inc()
	}
}

// ObserveHTTP counts one served request.
func (r *Recorder) ObserveHTTP(path string, code int) {
	r.httpRequests.WithLabelValues(path, strconv.Itoa(code)).Inc()
}

// Handler serves the recorder's registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mostly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
