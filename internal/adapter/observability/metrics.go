package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of model requests by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "Model request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider"},
	)
	AITokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Estimated tokens sent to and received from the model",
		},
		[]string{"provider", "direction"},
	)
	AIBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ai_breaker_state",
			Help: "Circuit breaker state per provider (0 closed, 1 open, 2 half-open)",
		},
		[]string{"provider"},
	)

	TriageTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_turns_total",
			Help: "Dialogue turns served by stage, payload source and language",
		},
		[]string{"stage", "source", "language"},
	)
	TriageFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_fallbacks_total",
			Help: "Canned payloads substituted for unusable model output",
		},
		[]string{"stage", "reason"},
	)
)

var initOnce sync.Once

// InitMetrics registers all collectors with the default registry. Safe to call
// more than once.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			AIRequestsTotal,
			AIRequestDuration,
			AITokensTotal,
			AIBreakerState,
			TriageTurnsTotal,
			TriageFallbacksTotal,
		)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// ObserveAIRequest records one model call. outcome is "ok" or "error".
func ObserveAIRequest(provider, outcome string, dur time.Duration) {
	AIRequestsTotal.WithLabelValues(provider, outcome).Inc()
	AIRequestDuration.WithLabelValues(provider).Observe(dur.Seconds())
}

// AddAITokens adds n tokens for direction "prompt" or "completion".
func AddAITokens(provider, direction string, n int) {
	if n <= 0 {
		return
	}
	AITokensTotal.WithLabelValues(provider, direction).Add(float64(n))
}

// SetBreakerState publishes the breaker state for provider.
func SetBreakerState(provider string, state int) {
	AIBreakerState.WithLabelValues(provider).Set(float64(state))
}

// RecordTurn counts one served dialogue turn.
func RecordTurn(stage, source, language string) {
	TriageTurnsTotal.WithLabelValues(stage, source, language).Inc()
}

// RecordFallback counts one canned payload substitution.
func RecordFallback(stage, reason string) {
	TriageFallbacksTotal.WithLabelValues(stage, reason).Inc()
}
