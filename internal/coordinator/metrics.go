package coordinator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"reprieve/internal/types"
)

// Metrics instruments the coordinator. A nil *Metrics records nothing.
type Metrics struct {
	requests       *prometheus.CounterVec
	episodes       *prometheus.CounterVec
	undoTooLate    *prometheus.CounterVec
	commitDuration *prometheus.HistogramVec
	pendingItems   *prometheus.GaugeVec
}

// NewMetrics registers the coordinator collectors with reg. A nil reg builds
// unregistered collectors, which is what tests use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reprieve_deletion_requests_total",
			Help: "Deletion requests by scope and how they were absorbed (new, merged, queued).",
		}, []string{"scope", "kind"}),
		episodes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reprieve_deletion_episodes_total",
			Help: "Deletion episodes reaching a terminal state, by scope and outcome.",
		}, []string{"scope", "outcome"}),
		undoTooLate: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reprieve_deletion_undo_too_late_total",
			Help: "Undo attempts rejected because the commit had already started.",
		}, []string{"scope"}),
		commitDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reprieve_deletion_commit_duration_seconds",
			Help:    "Latency of the storage delete call per committed episode.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"scope"}),
		pendingItems: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "reprieve_deletion_pending_items",
			Help: "Refs currently held by live or queued deletion episodes.",
		}, []string{"scope"}),
	}
}

func (m *Metrics) request(scope types.Scope, kind string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(string(scope), kind).Inc()
}

func (m *Metrics) outcome(scope types.Scope, state types.EpisodeState) {
	if m == nil {
		return
	}
	m.episodes.WithLabelValues(string(scope), string(state)).Inc()
}

func (m *Metrics) tooLate(scope types.Scope) {
	if m == nil {
		return
	}
	m.undoTooLate.WithLabelValues(string(scope)).Inc()
}

func (m *Metrics) commitLatency(scope types.Scope, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.commitDuration.WithLabelValues(string(scope)).Observe(elapsed.Seconds())
}

func (m *Metrics) pending(scope types.Scope, count int) {
	if m == nil {
		return
	}
	m.pendingItems.WithLabelValues(string(scope)).Set(float64(count))
}
