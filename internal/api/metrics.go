package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talgya/hearthstead/internal/engine"
	"github.com/talgya/hearthstead/internal/protocol"
)

// Metrics are the server's Prometheus collectors, kept on a private
// registry so several servers can coexist in one process.
type Metrics struct {
	Registry *prometheus.Registry

	Ticks        prometheus.Counter
	TickSeconds  prometheus.Histogram
	Actions      *prometheus.CounterVec
	Autosaves    *prometheus.CounterVec
	Online       prometheus.Gauge
	AIPlayers    prometheus.Gauge
	Listings     prometheus.Gauge
	PendingTasks prometheus.Gauge
	TechLevel    prometheus.Gauge
	WSConns      prometheus.Gauge
	SSEConns     prometheus.Gauge
	Dropped      prometheus.Counter
	RateLimited  *prometheus.CounterVec
}

// NewMetrics builds and registers every collector.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hearth_ticks_total",
			Help: "Simulation ticks run",
		}),
		TickSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hearth_tick_duration_seconds",
			Help:    "Wall time spent in one simulation tick",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hearth_actions_total",
			Help: "Player and AI actions handled, by kind and result",
		}, []string{"kind", "result"}),
		Autosaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hearth_autosaves_total",
			Help: "Autosave runs by result",
		}, []string{"result"}),
		Online: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hearth_online_players",
			Help: "Connected human players",
		}),
		AIPlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hearth_ai_players",
			Help: "AI players in the world",
		}),
		Listings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hearth_market_listings",
			Help: "Open market listings",
		}),
		PendingTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hearth_pending_tasks",
			Help: "Timed actions in flight",
		}),
		TechLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hearth_tech_level",
			Help: "World tech level",
		}),
		WSConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hearth_ws_connections",
			Help: "Open websocket sessions",
		}),
		SSEConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hearth_sse_connections",
			Help: "Open event streams",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hearth_notifications_dropped_total",
			Help: "Notifications not delivered to a lagging subscriber",
		}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hearth_rate_limited_total",
			Help: "Requests or messages rejected by a rate limiter",
		}, []string{"endpoint"}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Ticks, m.TickSeconds, m.Actions, m.Autosaves,
		m.Online, m.AIPlayers, m.Listings, m.PendingTasks, m.TechLevel,
		m.WSConns, m.SSEConns, m.Dropped, m.RateLimited,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveAction matches engine.Room.OnAction.
func (m *Metrics) ObserveAction(kind protocol.ActionKind, accepted bool) {
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	m.Actions.WithLabelValues(string(kind), result).Inc()
}

// ObserveTick matches engine.Loop.OnTick.
func (m *Metrics) ObserveTick(_ uint64, took time.Duration) {
	m.Ticks.Inc()
	m.TickSeconds.Observe(took.Seconds())
}

// ObserveAutosave matches engine.Loop.OnAutosave.
func (m *Metrics) ObserveAutosave(_ int, err error) {
	if err != nil {
		m.Autosaves.WithLabelValues("error").Inc()
		return
	}
	m.Autosaves.WithLabelValues("ok").Inc()
}

// ObserveStatus refreshes the world gauges.
func (m *Metrics) ObserveStatus(s engine.Status) {
	m.Online.Set(float64(s.OnlinePlayers))
	m.AIPlayers.Set(float64(s.AIPlayers))
	m.Listings.Set(float64(s.Listings))
	m.PendingTasks.Set(float64(s.PendingTasks))
	m.TechLevel.Set(float64(s.TechLevel))
}
