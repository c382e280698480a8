package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	ItemsSent       prometheus.Counter
	ItemsFailed     prometheus.Counter
	DeliveryLatency prometheus.Histogram
	QueuePending    prometheus.Gauge
	QueueFailed     prometheus.Gauge
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ItemsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queue_items_sent_total",
			Help: "Total number of queued bookmarks successfully delivered.",
		}),

		ItemsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queue_item_attempts_failed_total",
			Help: "Total number of failed delivery attempts for queued bookmarks.",
		}),

		DeliveryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "queue_delivery_seconds",
			Help:    "Delivery latency of a queued bookmark, from attempt start to remote ack.",
			Buckets: prometheus.DefBuckets,
		}),

		QueuePending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queue_pending",
			Help: "Current number of undelivered bookmarks in the queue.",
		}),
		QueueFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queue_failed",
			Help: "Current number of queued bookmarks with at least one failed attempt.",
		}),
	}

	reg.MustRegister(
		m.ItemsSent,
		m.ItemsFailed,
		m.DeliveryLatency,
		m.QueuePending,
		m.QueueFailed,
	)

	return m
}

// WorkerHooks returns the metric callback functions expected by worker.MetricHooks.
// Centralises the prometheus observation calls so the worker stays import-free.
func (m *Metrics) WorkerHooks() (
	onSent func(latency time.Duration),
	onFailed func(),
	onDepth func(pending, failed int64),
) {
	onSent = func(latency time.Duration) {
		m.ItemsSent.Inc()
		m.DeliveryLatency.Observe(latency.Seconds())
	}
	onFailed = func() {
		m.ItemsFailed.Inc()
	}
	onDepth = func(pending, failed int64) {
		m.QueuePending.Set(float64(pending))
		m.QueueFailed.Set(float64(failed))
	}
	return
}
