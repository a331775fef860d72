package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the signal pipeline.
// Each instance owns its registry, so several can coexist in one process (tests, CLIs).
type Metrics struct {
	registry *prometheus.Registry

	// Feed
	FeedUpdatesTotal  prometheus.Counter
	CandlesClosed     prometheus.Counter
	OutOfOrderCandles prometheus.Counter
	DecodeErrors      prometheus.Counter
	StaleEvents       prometheus.Counter
	Reconnects        prometheus.Counter
	ConnectionState   prometheus.Gauge // 0=disconnected, 1=connecting, 2=connected
	BufferSize        prometheus.Gauge
	CallbackErrors    *prometheus.CounterVec // labels: event

	// Evaluation
	EvaluationDur    prometheus.Histogram
	EvaluationErrors prometheus.Counter
	SignalsTotal     *prometheus.CounterVec // labels: signal
	SinkErrors       *prometheus.CounterVec // labels: sink

	// Dashboard
	DashboardClients prometheus.Gauge
	BroadcastDrops   prometheus.Counter
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		FeedUpdatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wickr_feed_updates_total",
			Help: "Total kline updates received from the live feed",
		}),
		CandlesClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wickr_candles_closed_total",
			Help: "Total finalized candles appended to the rolling window",
		}),
		OutOfOrderCandles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wickr_out_of_order_candles_total",
			Help: "Finalized candles rejected because they were not newer than the window head",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wickr_decode_errors_total",
			Help: "Malformed feed messages skipped",
		}),
		StaleEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wickr_stale_session_events_total",
			Help: "Feed events discarded because their session had already ended",
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wickr_ws_reconnects_total",
			Help: "Total live feed reconnection attempts",
		}),
		ConnectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wickr_connection_state",
			Help: "Live feed state (0=disconnected, 1=connecting, 2=connected)",
		}),
		BufferSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wickr_buffer_candles",
			Help: "Candles currently held in the rolling window",
		}),
		CallbackErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wickr_subscriber_errors_total",
			Help: "Subscriber callbacks that returned an error or panicked",
		}, []string{"event"}),

		EvaluationDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wickr_evaluation_duration_seconds",
			Help:    "Latency of one indicator, condition and strategy pass",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		EvaluationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wickr_evaluation_errors_total",
			Help: "Evaluation passes that failed",
		}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wickr_signals_total",
			Help: "Signals emitted by label",
		}, []string{"signal"}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wickr_sink_errors_total",
			Help: "Signal sink publish failures",
		}, []string{"sink"}),

		DashboardClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wickr_dashboard_clients",
			Help: "Connected dashboard websocket clients",
		}),
		BroadcastDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wickr_broadcast_drops_total",
			Help: "Dashboard messages dropped because a client send buffer was full",
		}),
	}

	m.registry.MustRegister(
		m.FeedUpdatesTotal,
		m.CandlesClosed,
		m.OutOfOrderCandles,
		m.DecodeErrors,
		m.StaleEvents,
		m.Reconnects,
		m.ConnectionState,
		m.BufferSize,
		m.CallbackErrors,
		m.EvaluationDur,
		m.EvaluationErrors,
		m.SignalsTotal,
		m.SinkErrors,
		m.DashboardClients,
		m.BroadcastDrops,
	)

	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
