package instrumentation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors. One set per engine
// process; label them by instrument at the call site.
type Metrics struct {
	EventsApplied     *prometheus.CounterVec
	MalformedMessages *prometheus.CounterVec
	DroppedMessages   *prometheus.CounterVec
	SequenceGaps      *prometheus.CounterVec
	Resyncs           *prometheus.CounterVec
	Reconnects        prometheus.Counter
	BarsClosed        *prometheus.CounterVec
	QueueDepth        prometheus.Gauge
	ApplyLatency      prometheus.Histogram
	BookLevels        *prometheus.GaugeVec
}

// New registers the engine collectors on the given registerer. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EventsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "projectx",
			Subsystem: "engine",
			Name:      "events_applied_total",
			Help:      "Normalized market events applied, by instrument and kind.",
		}, []string{"instrument", "kind"}),
		MalformedMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "projectx",
			Subsystem: "engine",
			Name:      "malformed_messages_total",
			Help:      "Wire messages rejected by the normalizer.",
		}, []string{"instrument"}),
		DroppedMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "projectx",
			Subsystem: "feed",
			Name:      "dropped_messages_total",
			Help:      "Messages dropped by the bounded ingest queue on overflow.",
		}, []string{"instrument"}),
		SequenceGaps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "projectx",
			Subsystem: "feed",
			Name:      "sequence_gaps_total",
			Help:      "Sequence-number gaps detected on the feed.",
		}, []string{"instrument"}),
		Resyncs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "projectx",
			Subsystem: "feed",
			Name:      "resyncs_total",
			Help:      "Full resynchronizations performed.",
		}, []string{"instrument"}),
		Reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "projectx",
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Transport reconnection attempts that succeeded.",
		}),
		BarsClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "projectx",
			Subsystem: "engine",
			Name:      "bars_closed_total",
			Help:      "Bars closed, by instrument and timeframe.",
		}, []string{"instrument", "timeframe"}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "projectx",
			Subsystem: "feed",
			Name:      "ingest_queue_depth",
			Help:      "Messages waiting in the bounded ingest queue.",
		}),
		ApplyLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "projectx",
			Subsystem: "engine",
			Name:      "apply_latency_seconds",
			Help:      "Time to apply one normalized event across book, bars and trades.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		BookLevels: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "projectx",
			Subsystem: "engine",
			Name:      "book_levels",
			Help:      "Resting price levels per book side.",
		}, []string{"instrument", "side"}),
	}
}
