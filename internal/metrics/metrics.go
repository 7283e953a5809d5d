// Package metrics holds the Prometheus collectors of the sync client and the
// remote store server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sync outcomes recorded by [Metrics.ObserveSync].
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeQueued   = "queued"
	OutcomeConflict = "conflict"
	OutcomeNoop     = "noop"
)

// Metrics is a set of collectors registered on one registry. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	// SyncOperationsTotal counts cloud sync operations by action and outcome
	SyncOperationsTotal *prometheus.CounterVec

	// SyncDurationSeconds measures latency of cloud sync operations
	SyncDurationSeconds *prometheus.HistogramVec

	// PendingChanges tracks unsynced entries in the offline queue
	PendingChanges prometheus.Gauge

	// SyncState is 1 for the current sync state and 0 for the others
	SyncState *prometheus.GaugeVec

	// HTTPRequestsTotal counts remote store API requests
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDurationSeconds measures latency of remote store API requests
	HTTPRequestDurationSeconds *prometheus.HistogramVec
}

// New registers all collectors on reg. Passing a fresh
// [prometheus.NewRegistry] keeps instances independent.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		SyncOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confsync_sync_operations_total",
				Help: "Total number of cloud sync operations",
			},
			[]string{"action", "outcome"},
		),
		SyncDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "confsync_sync_duration_seconds",
				Help:    "Latency of cloud sync operations",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"action"},
		),
		PendingChanges: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "confsync_pending_changes",
				Help: "Number of unsynced entries in the offline change queue",
			},
		),
		SyncState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "confsync_sync_state",
				Help: "Current sync state machine state (1 for the active state)",
			},
			[]string{"state"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confsync_http_requests_total",
				Help: "Total number of remote store API requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "confsync_http_request_duration_seconds",
				Help:    "Latency of remote store API requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// ObserveSync records one finished sync operation.
func (m *Metrics) ObserveSync(action, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SyncOperationsTotal.WithLabelValues(action, outcome).Inc()
	m.SyncDurationSeconds.WithLabelValues(action).Observe(elapsed.Seconds())
}

// SetPendingChanges publishes the offline queue depth.
func (m *Metrics) SetPendingChanges(n int) {
	if m == nil {
		return
	}
	m.PendingChanges.Set(float64(n))
}

// SetSyncState marks state as current. Previously set states drop to 0.
func (m *Metrics) SetSyncState(state string, all []string) {
	if m == nil {
		return
	}
	for _, s := range all {
		m.SyncState.WithLabelValues(s).Set(0)
	}
	m.SyncState.WithLabelValues(state).Set(1)
}

// ObserveHTTPRequest records one served API request.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDurationSeconds.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
