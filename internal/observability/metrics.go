package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the panel.
type Metrics struct {
	// Config sync metrics.
	Writes        *prometheus.CounterVec   // labels: field, outcome={success,error,empty}
	WriteDuration *prometheus.HistogramVec // labels: field
	ItemsPatched  prometheus.Counter
	ItemsSkipped  prometheus.Counter
	WritesMerged  prometheus.Counter

	// Change feed metrics.
	ChangeNotifications prometheus.Counter
	FeedErrors          prometheus.Counter
	FeedRunning         prometheus.Gauge

	// Picker rendering metrics.
	FieldRepaints *prometheus.CounterVec // labels: field={saturation_lightness,hue}
	FieldCache    *prometheus.CounterVec // labels: result={hit,miss}

	// Downstream event metrics.
	EventsPublished *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates and registers all panel metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Writes,
		m.WriteDuration,
		m.ItemsPatched,
		m.ItemsSkipped,
		m.WritesMerged,
		m.ChangeNotifications,
		m.FeedErrors,
		m.FeedRunning,
		m.FieldRepaints,
		m.FieldCache,
		m.EventsPublished,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_panel",
			Name:      "writes_total",
			Help:      "Config sync transactions by field and outcome.",
		}, []string{"field", "outcome"}),
		WriteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "weather_panel",
			Name:      "write_duration_seconds",
			Help:      "Duration of a config sync transaction, selection lookup included.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"field"}),
		ItemsPatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_panel",
			Name:      "items_patched_total",
			Help:      "Items whose weather record was created or patched.",
		}),
		ItemsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_panel",
			Name:      "items_skipped_total",
			Help:      "Items left untouched because the metadata key held foreign data.",
		}),
		WritesMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_panel",
			Name:      "writes_merged_total",
			Help:      "Pointer-drag writes replaced by a later write to the same field before flushing.",
		}),
		ChangeNotifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_panel",
			Name:      "change_notifications_total",
			Help:      "Item-list change notifications received from the host.",
		}),
		FeedErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_panel",
			Name:      "feed_errors_total",
			Help:      "Failures reading the change feed.",
		}),
		FeedRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_panel",
			Name:      "feed_running",
			Help:      "1 when the change feed loop is active, 0 when shut down.",
		}),
		FieldRepaints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_panel",
			Name:      "field_repaints_total",
			Help:      "Color picker gradient field repaints.",
		}, []string{"field"}),
		FieldCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_panel",
			Name:      "field_cache_total",
			Help:      "Encoded gradient image cache lookups by result.",
		}, []string{"result"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_panel",
			Name:      "events_published_total",
			Help:      "Config change events published downstream by outcome.",
		}, []string{"outcome"}),
	}
}
