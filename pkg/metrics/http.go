package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// APIMetrics records request and checkout outcomes for the HTTP surface.
type APIMetrics struct {
	requestDuration  *prometheus.HistogramVec
	checkoutSuccess  prometheus.Counter
	checkoutFailure  *prometheus.CounterVec
	rateLimitBlocked *prometheus.CounterVec
}

// NewAPIMetrics registers the API metrics on the provided registerer.
func NewAPIMetrics(reg prometheus.Registerer) *APIMetrics {
	if reg == nil {
		return &APIMetrics{}
	}
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
	checkoutSuccess := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_success_total",
		Help: "Builds checked out successfully.",
	})
	checkoutFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failure_total",
		Help: "Checkout attempts rejected, by reason.",
	}, []string{"reason"})
	rateLimitBlocked := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limit_blocked_total",
		Help: "Requests blocked by the fixed-window rate limiter, by scope.",
	}, []string{"scope"})
	reg.MustRegister(requestDuration, checkoutSuccess, checkoutFailure, rateLimitBlocked)
	return &APIMetrics{
		requestDuration:  requestDuration,
		checkoutSuccess:  checkoutSuccess,
		checkoutFailure:  checkoutFailure,
		rateLimitBlocked: rateLimitBlocked,
	}
}

// ObserveRequest records the duration of one handled request.
func (m *APIMetrics) ObserveRequest(route, method, status string, duration time.Duration) {
	if m == nil || m.requestDuration == nil {
		return
	}
	m.requestDuration.WithLabelValues(normalizeLabel(route), method, status).Observe(duration.Seconds())
}

// IncCheckoutSuccess increments the successful checkout counter.
func (m *APIMetrics) IncCheckoutSuccess() {
	if m == nil || m.checkoutSuccess == nil {
		return
	}
	m.checkoutSuccess.Inc()
}

// IncCheckoutFailure increments the failed checkout counter for a reason.
func (m *APIMetrics) IncCheckoutFailure(reason string) {
	if m == nil || m.checkoutFailure == nil {
		return
	}
	m.checkoutFailure.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncRateLimitBlocked increments the limiter block counter for a scope.
func (m *APIMetrics) IncRateLimitBlocked(scope string) {
	if m == nil || m.rateLimitBlocked == nil {
		return
	}
	m.rateLimitBlocked.WithLabelValues(normalizeLabel(scope)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
