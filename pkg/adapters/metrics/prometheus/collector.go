package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements MetricsCollector using Prometheus
type Collector struct {
	ordersReceived  prometheus.Counter
	ordersCompleted *prometheus.CounterVec
	orderDuration   *prometheus.HistogramVec
	tasksExecuted   *prometheus.CounterVec
	taskDuration    *prometheus.HistogramVec

	workerPoolIdle    prometheus.Gauge
	workerPoolBusy    prometheus.Gauge
	workerPoolStopped prometheus.Gauge
	activeOrders      prometheus.Gauge
}

// NewCollector creates a new Prometheus metrics collector
func NewCollector() *Collector {
	return &Collector{
		ordersReceived: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fulfilld_orders_received_total",
				Help: "Total number of orders accepted for fulfillment",
			},
		),
		ordersCompleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fulfilld_orders_completed_total",
				Help: "Total number of orders that reached a terminal state",
			},
			[]string{"status"},
		),
		orderDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fulfilld_order_duration_seconds",
				Help:    "Order fulfillment duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"status"},
		),
		tasksExecuted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fulfilld_tasks_executed_total",
				Help: "Total number of fulfillment task executions",
			},
			[]string{"kind", "status"},
		),
		taskDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fulfilld_task_duration_seconds",
				Help:    "Task execution duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"kind"},
		),
		workerPoolIdle: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "fulfilld_worker_pool_idle",
				Help: "Number of idle workers",
			},
		),
		workerPoolBusy: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "fulfilld_worker_pool_busy",
				Help: "Number of busy workers",
			},
		),
		workerPoolStopped: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "fulfilld_worker_pool_stopped",
				Help: "Number of stopped workers",
			},
		),
		activeOrders: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "fulfilld_active_orders",
				Help: "Number of orders currently in flight",
			},
		),
	}
}

// RecordOrderReceived records an accepted order
func (c *Collector) RecordOrderReceived() {
	c.ordersReceived.Inc()
}

// RecordOrderCompleted records an order reaching a terminal state
func (c *Collector) RecordOrderCompleted(status string, duration time.Duration) {
	c.ordersCompleted.WithLabelValues(status).Inc()
	c.orderDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordTaskExecuted records a task execution attempt and its duration
func (c *Collector) RecordTaskExecuted(kind string, status string, duration time.Duration) {
	c.tasksExecuted.WithLabelValues(kind, status).Inc()
	c.taskDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordWorkerPoolStatus records worker pool status
func (c *Collector) RecordWorkerPoolStatus(idle, busy, stopped int) {
	c.workerPoolIdle.Set(float64(idle))
	c.workerPoolBusy.Set(float64(busy))
	c.workerPoolStopped.Set(float64(stopped))
}

// SetActiveOrders sets the number of orders currently in flight
func (c *Collector) SetActiveOrders(count int) {
	c.activeOrders.Set(float64(count))
}
