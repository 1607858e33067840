// Package metrics exposes Prometheus metrics for the reporting core.
//
// The Recorder observes the messenger (records routed, tasks and job
// recordings active, status renders fired) and maintains the
// corresponding counters and gauges in a Prometheus registry. Server
// embeddings expose the registry for scraping via Handler; one-shot CLI
// runs push a final snapshot to a remote write endpoint with Pusher.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/forgebuild/forge/message"
)

// Recorder maintains reporting-core metrics. It satisfies the messenger
// Observer interface.
type Recorder struct {
	registry *prometheus.Registry

	messages *prometheus.CounterVec
	tasks    prometheus.Gauge
	jobs     prometheus.Gauge
	renders  prometheus.Counter
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() (*Recorder, error) {
	registry := prometheus.NewRegistry()

	r := &Recorder{
		registry: registry,
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forge_messages_total",
			Help: "Activity records routed through the messenger, by kind.",
		}, []string{"kind"}),
		tasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "forge_active_tasks",
			Help: "Simple tasks currently tracked for status display.",
		}),
		jobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "forge_active_job_recordings",
			Help: "Job log recordings currently open.",
		}),
		renders: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forge_status_renders_total",
			Help: "Times the throttled status render callback fired.",
		}),
	}

	for _, c := range []prometheus.Collector{r.messages, r.tasks, r.jobs, r.renders} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("registering collector: %w", err)
		}
	}
	return r, nil
}

// Registry returns the underlying Prometheus registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler returns an http.Handler for a /metrics endpoint.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// MessageObserved counts one routed record.
func (r *Recorder) MessageObserved(kind message.Kind) {
	r.messages.WithLabelValues(string(kind)).Inc()
}

// TaskStarted tracks a task registration.
func (r *Recorder) TaskStarted() { r.tasks.Inc() }

// TaskStopped tracks a task removal.
func (r *Recorder) TaskStopped() { r.tasks.Dec() }

// StatusRendered counts one render callback invocation.
func (r *Recorder) StatusRendered() { r.renders.Inc() }

// JobOpened tracks an opened job recording.
func (r *Recorder) JobOpened() { r.jobs.Inc() }

// JobClosed tracks a closed job recording.
func (r *Recorder) JobClosed() { r.jobs.Dec() }
