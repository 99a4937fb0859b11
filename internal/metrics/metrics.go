package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"walletMonitor/internal/reqqueue"
)

const DefaultNamespace = "wallet_monitor"

// Metrics holds the monitor collectors. A nil *Metrics records nothing.
type Metrics struct {
	registerer prometheus.Registerer
	namespace  string

	webhookEvents    *prometheus.CounterVec
	filterRejections *prometheus.CounterVec
	consensusChecks  *prometheus.CounterVec
	alerts           *prometheus.CounterVec
	notifications    *prometheus.CounterVec
	droppedTasks     prometheus.Counter
	taskDuration     prometheus.Histogram
}

func New(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(reg)
	return &Metrics{
		registerer: reg,
		namespace:  namespace,
		webhookEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_webhook_events_total", namespace),
			Help: "Webhook events by outcome",
		}, []string{"outcome"}),
		filterRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_filter_rejections_total", namespace),
			Help: "Events rejected by the ingestion filter",
		}, []string{"reason"}),
		consensusChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_consensus_checks_total", namespace),
			Help: "Consensus checks by decision reason",
		}, []string{"reason"}),
		alerts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_alerts_total", namespace),
			Help: "Alert evaluations by result",
		}, []string{"result"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_notifications_total", namespace),
			Help: "Notification deliveries by sink and status",
		}, []string{"sink", "status"}),
		droppedTasks: factory.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_executor_dropped_tasks_total", namespace),
			Help: "Background tasks dropped because the executor was full",
		}),
		taskDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    fmt.Sprintf("%s_executor_task_seconds", namespace),
			Help:    "Duration of background tasks",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) WebhookEvent(outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(outcome).Inc()
}

func (m *Metrics) FilterRejected(reason string) {
	if m == nil {
		return
	}
	m.filterRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) ConsensusChecked(reason string) {
	if m == nil {
		return
	}
	m.consensusChecks.WithLabelValues(reason).Inc()
}

func (m *Metrics) AlertResult(result string) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(result).Inc()
}

func (m *Metrics) Notification(sink string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.notifications.WithLabelValues(sink, status).Inc()
}

func (m *Metrics) TaskDropped() {
	if m == nil {
		return
	}
	m.droppedTasks.Inc()
}

func (m *Metrics) ObserveTask(seconds float64) {
	if m == nil {
		return
	}
	m.taskDuration.Observe(seconds)
}

// RegisterQueue exports the sizes of a request queue as gauges.
func (m *Metrics) RegisterQueue(name string, stats func() reqqueue.Stats) {
	if m == nil {
		return
	}
	factory := promauto.With(m.registerer)
	labels := prometheus.Labels{"queue": name}
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        fmt.Sprintf("%s_request_queue_pending", m.namespace),
		Help:        "Keys with a producer queued or running",
		ConstLabels: labels,
	}, func() float64 { return float64(stats().Pending) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        fmt.Sprintf("%s_request_queue_cached", m.namespace),
		Help:        "Keys with a cached value",
		ConstLabels: labels,
	}, func() float64 { return float64(stats().Cached) })
}

// RegisterGauge exports an arbitrary gauge function.
func (m *Metrics) RegisterGauge(name, help string, fn func() float64) {
	if m == nil {
		return
	}
	promauto.With(m.registerer).NewGaugeFunc(prometheus.GaugeOpts{
		Name: fmt.Sprintf("%s_%s", m.namespace, name),
		Help: help,
	}, fn)
}
