package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ricirt/meeting-notifier/internal/domain"
	"github.com/ricirt/meeting-notifier/internal/queue"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	NotificationsDelivered *prometheus.CounterVec
	NotificationsFailed    *prometheus.CounterVec
	NotificationsRetried   *prometheus.CounterVec
	NotificationsAccepted  *prometheus.CounterVec
	AttemptLatency         *prometheus.HistogramVec
	QueueReady             *prometheus.GaugeVec
	QueueDelayed           prometheus.Gauge
	QueueActive            prometheus.Gauge
	QueueDead              prometheus.Gauge
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NotificationsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_delivered_total",
			Help: "Total number of successfully delivered notifications.",
		}, []string{"channel"}),

		NotificationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Total number of notifications settled as failed, by reason (exhausted, undeliverable).",
		}, []string{"channel", "reason"}),

		NotificationsRetried: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_retried_total",
			Help: "Total number of failed attempts scheduled for another try.",
		}, []string{"channel"}),

		NotificationsAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_accepted_total",
			Help: "Total number of notifications persisted by intake.",
		}, []string{"channel", "priority"}),

		AttemptLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "notification_attempt_seconds",
			Help:    "Latency of one delivery attempt from dequeue to transport ack.",
			Buckets: prometheus.DefBuckets,
		}, []string{"channel"}),

		QueueReady: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "queue_ready_jobs",
			Help: "Jobs waiting to be dequeued, by priority class.",
		}, []string{"priority"}),
		QueueDelayed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queue_delayed_jobs",
			Help: "Jobs waiting out a retry backoff.",
		}),
		QueueActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queue_active_jobs",
			Help: "Jobs currently leased by a worker.",
		}),
		QueueDead: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queue_dead_jobs",
			Help: "Jobs held in the dead-letter store.",
		}),
	}

	reg.MustRegister(
		m.NotificationsDelivered,
		m.NotificationsFailed,
		m.NotificationsRetried,
		m.NotificationsAccepted,
		m.AttemptLatency,
		m.QueueReady,
		m.QueueDelayed,
		m.QueueActive,
		m.QueueDead,
	)

	return m
}

// WorkerHooks returns the metric callback functions expected by worker.MetricHooks.
// Centralises the prometheus observation calls so worker.go stays import-free.
func (m *Metrics) WorkerHooks() (
	onDelivered func(domain.Channel, time.Duration),
	onFailed func(domain.Channel, string),
	onRetried func(domain.Channel),
) {
	onDelivered = func(ch domain.Channel, latency time.Duration) {
		m.NotificationsDelivered.WithLabelValues(string(ch)).Inc()
		m.AttemptLatency.WithLabelValues(string(ch)).Observe(latency.Seconds())
	}
	onFailed = func(ch domain.Channel, reason string) {
		m.NotificationsFailed.WithLabelValues(string(ch), reason).Inc()
	}
	onRetried = func(ch domain.Channel) {
		m.NotificationsRetried.WithLabelValues(string(ch)).Inc()
	}
	return
}

// Accepted counts one persisted notification.
func (m *Metrics) Accepted(ch domain.Channel, p domain.Priority) {
	m.NotificationsAccepted.WithLabelValues(string(ch), string(p)).Inc()
}

// ObserveDepths publishes a queue snapshot to the depth gauges.
func (m *Metrics) ObserveDepths(d queue.Depths) {
	for _, p := range domain.Priorities {
		m.QueueReady.WithLabelValues(string(p)).Set(float64(d.Ready[p]))
	}
	m.QueueDelayed.Set(float64(d.Delayed))
	m.QueueActive.Set(float64(d.Active))
	m.QueueDead.Set(float64(d.Dead))
}
