package observability

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type callMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	callMetricsOnce sync.Once
	callRegistry    *callMetrics
)

// Calls returns the lazily-initialised registry recording ledger calls made
// by drivers such as the simulator.
func Calls() *callMetrics {
	callMetricsOnce.Do(func() {
		callRegistry = &callMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "isoledger",
				Subsystem: "calls",
				Name:      "requests_total",
				Help:      "Total ledger calls segmented by module, method and outcome.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "isoledger",
				Subsystem: "calls",
				Name:      "errors_total",
				Help:      "Total failed ledger calls segmented by module, method and error code.",
			}, []string{"module", "method", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "isoledger",
				Subsystem: "calls",
				Name:      "duration_seconds",
				Help:      "Latency distribution of ledger calls.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "isoledger",
				Subsystem: "calls",
				Name:      "throttles_total",
				Help:      "Count of calls rejected before reaching the ledger.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			callRegistry.requests,
			callRegistry.errors,
			callRegistry.latency,
			callRegistry.throttles,
		)
	})
	return callRegistry
}

// ErrorCoder is implemented by errors that carry a stable metric label.
type ErrorCoder interface {
	Code() string
}

// ErrorCode derives a stable label for err: the Code of the first ErrorCoder
// in its chain, or the innermost message with its package prefix removed.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var coder ErrorCoder
	if errors.As(err, &coder) {
		return coder.Code()
	}
	inner := err
	for {
		next := errors.Unwrap(inner)
		if next == nil {
			break
		}
		inner = next
	}
	msg := inner.Error()
	if idx := strings.Index(msg, ": "); idx >= 0 {
		msg = msg[idx+2:]
	}
	return strings.ReplaceAll(strings.TrimSpace(msg), " ", "_")
}

// Observe records the outcome of a ledger call.
func (m *callMetrics) Observe(module, method string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
		m.errors.WithLabelValues(module, method, ErrorCode(err)).Inc()
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason. Reasons should be stable strings such as "quota_calls" or
// "quota_volume" so dashboards and alerts remain consistent.
func (m *callMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}
