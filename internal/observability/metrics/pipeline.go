package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
)

// PipelineMetrics observes pipeline runs. It satisfies the pipeline
// package's Metrics interface and registers into the caller's registry
// so API and worker expose it from their own /metrics endpoints.
type PipelineMetrics struct {
	service string

	stepDuration  *prometheus.HistogramVec
	runsTotal     *prometheus.CounterVec
	parseFallback *prometheus.CounterVec
}

func NewPipelineMetrics(registry *prometheus.Registry, service string) *PipelineMetrics {
	stepDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ti",
			Subsystem: "pipeline",
			Name:      "step_duration_seconds",
			Help:      "Pipeline step execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "step"},
	)
	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ti",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total finished pipeline runs by mode and outcome.",
		},
		[]string{"service", "mode", "outcome"},
	)
	parseFallback := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ti",
			Subsystem: "pipeline",
			Name:      "parse_fallback_total",
			Help:      "Model outputs recovered below the direct parse tier.",
		},
		[]string{"service", "step", "tier"},
	)

	registry.MustRegister(stepDuration, runsTotal, parseFallback)

	return &PipelineMetrics{
		service:       service,
		stepDuration:  stepDuration,
		runsTotal:     runsTotal,
		parseFallback: parseFallback,
	}
}

func (m *PipelineMetrics) StepDuration(step domain.StepName, seconds float64) {
	m.stepDuration.WithLabelValues(m.service, string(step)).Observe(seconds)
}

func (m *PipelineMetrics) RunCompleted(mode domain.Mode, outcome string) {
	m.runsTotal.WithLabelValues(m.service, string(mode), outcome).Inc()
}

func (m *PipelineMetrics) ParseFallback(step domain.StepName, tier string) {
	m.parseFallback.WithLabelValues(m.service, string(step), tier).Inc()
}

// WorkerMetrics observes the queue-driven interaction processor.
type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	queueLag        *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ti",
			Subsystem: "worker",
			Name:      "interaction_process_total",
			Help:      "Total processed interactions by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ti",
			Subsystem: "worker",
			Name:      "interaction_process_duration_seconds",
			Help:      "Interaction processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ti",
			Subsystem: "worker",
			Name:      "interaction_process_in_flight",
			Help:      "Number of in-flight interaction processing tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ti",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between interaction submission and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, queueLag)

	return &WorkerMetrics{
		registry:        registry,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		queueLag:        queueLag,
	}
}

func (m *WorkerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartInteraction() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishInteraction(service string, duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.processTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}
