package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the warden runtime.
type Metrics struct {
	registry *prometheus.Registry

	authDecisions  *prometheus.CounterVec
	gamesCreated   *prometheus.CounterVec
	gamesEnded     *prometheus.CounterVec
	movesTotal     *prometheus.CounterVec
	sweeperExpired prometheus.Counter
	mirrorFailures prometheus.Counter
	dispatchSecs   prometheus.Histogram
}

// NewMetrics creates a new metrics collector with its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		authDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_auth_decisions_total",
			Help: "Authorization decisions by reason.",
		}, []string{"reason"}),
		gamesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_games_created_total",
			Help: "Game sessions created by type.",
		}, []string{"type"}),
		gamesEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_games_ended_total",
			Help: "Game sessions ended by type and outcome.",
		}, []string{"type", "outcome"}),
		movesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_moves_total",
			Help: "Processed moves by game type and result.",
		}, []string{"type", "result"}),
		sweeperExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_sweeper_expired_total",
			Help: "Game sessions force-ended by the inactivity sweeper.",
		}),
		mirrorFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_mirror_failures_total",
			Help: "Failed persistence mirror attempts.",
		}),
		dispatchSecs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "warden_event_dispatch_seconds",
			Help:    "Inbound event handling latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.authDecisions,
		m.gamesCreated,
		m.gamesEnded,
		m.movesTotal,
		m.sweeperExpired,
		m.mirrorFailures,
		m.dispatchSecs,
	)
	return m
}

// RecordDecision counts an authorization decision by reason.
func (m *Metrics) RecordDecision(reason string) {
	m.authDecisions.WithLabelValues(reason).Inc()
}

// RecordGameCreated counts a created game session.
func (m *Metrics) RecordGameCreated(gameType string) {
	m.gamesCreated.WithLabelValues(gameType).Inc()
}

// RecordGameEnded counts an ended game session.
func (m *Metrics) RecordGameEnded(gameType, outcome string) {
	m.gamesEnded.WithLabelValues(gameType, outcome).Inc()
}

// RecordMove counts a processed move. result is one of
// "accepted", "rejected", "invalid_format" or "error".
func (m *Metrics) RecordMove(gameType, result string) {
	m.movesTotal.WithLabelValues(gameType, result).Inc()
}

// RecordSweep counts sessions force-ended by the sweeper.
func (m *Metrics) RecordSweep(n int) {
	m.sweeperExpired.Add(float64(n))
}

// RecordMirrorFailure counts a failed persistence mirror attempt.
func (m *Metrics) RecordMirrorFailure() {
	m.mirrorFailures.Inc()
}

// ObserveDispatch records the handling latency of one inbound event.
func (m *Metrics) ObserveDispatch(seconds float64) {
	m.dispatchSecs.Observe(seconds)
}

// Handler returns an HTTP handler exposing the metrics in Prometheus
// text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
