// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus-backed metrics collector (C9). Implements the narrow
// dispatch.Metrics observer the core reports to, plus LastUpdated for the
// debug surface and a Handler for exposing /metrics.

package control

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

// Metrics is the Prometheus-backed collector for dispatcher activity. It
// satisfies the dispatch.Metrics interface structurally (IncSubmitted,
// IncCompleted, IncFailed, ObserveLatency, SetWorkerCounts, SetQueueDepth)
// without dispatch importing Prometheus directly.
type Metrics struct {
	registry *prometheus.Registry

	tasksSubmitted prometheus.Counter
	tasksCompleted prometheus.Counter
	tasksFailed    *prometheus.CounterVec
	activeWorkers  prometheus.Gauge
	idleWorkers    prometheus.Gauge
	busyWorkers    prometheus.Gauge
	queueDepth     prometheus.Gauge
	taskLatency    prometheus.Histogram

	mu      sync.RWMutex
	updated time.Time
}

// NewMetrics creates and registers the dispatcher's metric set under its
// own registry, so embedding applications can mount it wherever they like.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		tasksSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatcher_tasks_submitted_total",
			Help: "Total tasks submitted via call() or execute().",
		}),
		tasksCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatcher_tasks_completed_total",
			Help: "Total tasks that settled SUCCESS.",
		}),
		tasksFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatcher_tasks_failed_total",
			Help: "Total tasks that settled with an error, by reason.",
		}, []string{"reason"}),
		activeWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dispatcher_active_workers",
			Help: "Current live worker count (spawning + idle + busy).",
		}),
		idleWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dispatcher_idle_workers",
			Help: "Current idle worker count.",
		}),
		busyWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dispatcher_busy_workers",
			Help: "Current busy worker count.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dispatcher_queue_depth",
			Help: "Current number of queued, unassigned tasks.",
		}),
		taskLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dispatcher_task_latency_seconds",
			Help:    "Time from submission to settlement.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.tasksSubmitted, m.tasksCompleted, m.tasksFailed,
		m.activeWorkers, m.idleWorkers, m.busyWorkers,
		m.queueDepth, m.taskLatency,
	)
	return m
}

func (m *Metrics) IncSubmitted() {
	m.touch()
	m.tasksSubmitted.Inc()
}

func (m *Metrics) IncCompleted() {
	m.touch()
	m.tasksCompleted.Inc()
}

func (m *Metrics) IncFailed(reason string) {
	m.touch()
	m.tasksFailed.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveLatency(d time.Duration) {
	m.touch()
	m.taskLatency.Observe(d.Seconds())
}

func (m *Metrics) SetWorkerCounts(live, idle, busy int) {
	m.touch()
	m.activeWorkers.Set(float64(live))
	m.idleWorkers.Set(float64(idle))
	m.busyWorkers.Set(float64(busy))
}

func (m *Metrics) SetQueueDepth(n int) {
	m.touch()
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) touch() {
	m.mu.Lock()
	m.updated = time.Now()
	m.mu.Unlock()
}

// LastUpdated reports when a metric was last recorded.
func (m *Metrics) LastUpdated() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updated
}

// Handler exposes the dispatcher's metrics in the Prometheus exposition
// format, for mounting under a debug/metrics HTTP surface.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
