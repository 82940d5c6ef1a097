package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for completions and withdrawals.
const (
	OutcomeCredited     = "credited"
	OutcomeAlready      = "already"
	OutcomeInvalid      = "invalid"
	OutcomeAccepted     = "accepted"
	OutcomeInsufficient = "insufficient"
	OutcomeError        = "error"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bear",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bear",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bear",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	completions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bear",
			Subsystem: "rewards",
			Name:      "completions_total",
			Help:      "Task and ad completion attempts by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	withdrawals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bear",
			Subsystem: "rewards",
			Name:      "withdrawals_total",
			Help:      "Withdrawal requests by outcome.",
		},
		[]string{"outcome"},
	)

	balanceFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bear",
			Subsystem: "ledger",
			Name:      "balance_fallbacks_total",
			Help:      "Balance reads answered by direct ledger summation after the aggregate failed.",
		},
	)

	webhookUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bear",
			Subsystem: "telegram",
			Name:      "webhook_updates_total",
			Help:      "Inbound bot updates by handling result.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		completions,
		withdrawals,
		balanceFallbacks,
		webhookUpdates,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

// RecordCompletion counts one completion attempt.
func RecordCompletion(kind, outcome string) {
	if kind == "" {
		kind = "telegram"
	}
	completions.WithLabelValues(kind, outcome).Inc()
}

// RecordWithdrawal counts one withdrawal request.
func RecordWithdrawal(outcome string) {
	withdrawals.WithLabelValues(outcome).Inc()
}

// RecordBalanceFallback counts a balance read served by summation.
func RecordBalanceFallback() {
	balanceFallbacks.Inc()
}

// RecordWebhookUpdate counts one inbound bot update.
func RecordWebhookUpdate(result string) {
	webhookUpdates.WithLabelValues(result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

var knownPaths = map[string]bool{
	"/balance":           true,
	"/tasks":             true,
	"/tasks/complete":    true,
	"/ads/complete":      true,
	"/withdraw":          true,
	"/profile":           true,
	"/ledger":            true,
	"/health":            true,
	"/telegram/webhook":  true,
	"/admin/login":       true,
	"/admin/withdrawals": true,
}

// canonicalPath keeps label cardinality bounded.
func canonicalPath(raw string) string {
	p := "/" + strings.Trim(raw, "/")
	if knownPaths[p] {
		return p
	}
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) == 4 && parts[0] == "admin" && parts[1] == "withdrawals" && parts[3] == "status" {
		return "/admin/withdrawals/:id/status"
	}
	return "other"
}
