package observability

import (
	"time"

	"github.com/boddenberg/orders-dashboard-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the dashboard core.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	loadsTotal      *prometheus.CounterVec
	syncsTotal      *prometheus.CounterVec
	reloadsTotal    *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dashboard_request_duration_seconds",
				Help:    "Duration of dashboard operations and backend calls.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_external_errors_total",
				Help: "Total errors from the ingestion and query backends.",
			},
			[]string{"service"},
		),
		loadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_loads_total",
				Help: "Combined metrics + time-series loads by outcome.",
			},
			[]string{"outcome"},
		),
		syncsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_syncs_total",
				Help: "Sync triggers by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		reloadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_reloads_total",
				Help: "Post-sync reloads by state.",
			},
			[]string{"state"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrLoad counts a finished load: ready, failed or stale.
func (m *Metrics) IncrLoad(outcome string) {
	m.loadsTotal.WithLabelValues(outcome).Inc()
}

// IncrSync counts a sync trigger: kind plain|upload, outcome ok|failed|throttled.
func (m *Metrics) IncrSync(kind, outcome string) {
	m.syncsTotal.WithLabelValues(kind, outcome).Inc()
}

// IncrReload counts a post-sync reload transition: scheduled|cancelled.
func (m *Metrics) IncrReload(state string) {
	m.reloadsTotal.WithLabelValues(state).Inc()
}

// Snapshot returns the counters suitable for the GET /v1/stats endpoint.
func (m *Metrics) Snapshot() *domain.DashboardStats {
	return &domain.DashboardStats{
		LoadsReady:  int64(getCounterValue(m.loadsTotal, "ready")),
		LoadsFailed: int64(getCounterValue(m.loadsTotal, "failed")),
		LoadsStale:  int64(getCounterValue(m.loadsTotal, "stale")),
		SyncsOK: int64(getCounterValue(m.syncsTotal, "plain", "ok") +
			getCounterValue(m.syncsTotal, "upload", "ok")),
		SyncsFailed: int64(getCounterValue(m.syncsTotal, "plain", "failed") +
			getCounterValue(m.syncsTotal, "upload", "failed")),
		SyncsThrottled: int64(getCounterValue(m.syncsTotal, "plain", "throttled") +
			getCounterValue(m.syncsTotal, "upload", "throttled")),
		ReloadsScheduled: int64(getCounterValue(m.reloadsTotal, "scheduled")),
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
