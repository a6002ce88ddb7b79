package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	embedTotal     *prometheus.CounterVec
	embedDuration  *prometheus.HistogramVec
	embedInFlight  prometheus.Gauge
	queueLag       *prometheus.HistogramVec
	chunksPerDoc   *prometheus.HistogramVec
	providerErrors *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	embedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kr",
			Subsystem: "worker",
			Name:      "embed_total",
			Help:      "Total embedding pipeline runs by status.",
		},
		[]string{"service", "status"},
	)
	embedDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kr",
			Subsystem: "worker",
			Name:      "embed_duration_seconds",
			Help:      "Embedding pipeline duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	embedInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kr",
			Subsystem: "worker",
			Name:      "embed_in_flight",
			Help:      "Number of documents currently being embedded.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kr",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between embed request publication and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	chunksPerDoc := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kr",
			Subsystem: "worker",
			Name:      "chunks_per_document",
			Help:      "Distribution of chunks produced per embedded document.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
		},
		[]string{"service"},
	)
	providerErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kr",
			Subsystem: "provider",
			Name:      "errors_total",
			Help:      "Total embedding provider failures by class.",
		},
		[]string{"service", "provider", "class"},
	)

	registry.MustRegister(embedTotal, embedDuration, embedInFlight, queueLag, chunksPerDoc, providerErrors)

	return &WorkerMetrics{
		registry:       registry,
		embedTotal:     embedTotal,
		embedDuration:  embedDuration,
		embedInFlight:  embedInFlight,
		queueLag:       queueLag,
		chunksPerDoc:   chunksPerDoc,
		providerErrors: providerErrors,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartEmbed() {
	m.embedInFlight.Inc()
}

func (m *WorkerMetrics) FinishEmbed(service string, duration time.Duration, err error) {
	m.embedInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.embedTotal.WithLabelValues(service, status).Inc()
	m.embedDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) ObserveChunkCount(service string, count int) {
	if count < 0 {
		return
	}
	m.chunksPerDoc.WithLabelValues(service).Observe(float64(count))
}

func (m *WorkerMetrics) RecordProviderError(service, provider, class string) {
	if class == "" {
		class = "unknown"
	}
	m.providerErrors.WithLabelValues(service, provider, class).Inc()
}
