package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	*IndexMetrics

	registry        *prometheus.Registry
	jobsInFlight    prometheus.Gauge
	messagesHandled *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	jobsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "reindex_in_flight",
			Help:      "Number of reindex jobs currently running in this worker.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	messagesHandled := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "messages_total",
			Help:      "Reindex messages handled by result.",
		},
		[]string{"service", "result"},
	)
	registry.MustRegister(jobsInFlight, messagesHandled)

	return &WorkerMetrics{
		IndexMetrics:    newIndexMetrics(service, registry),
		registry:        registry,
		jobsInFlight:    jobsInFlight,
		messagesHandled: messagesHandled,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartJob() {
	m.jobsInFlight.Inc()
}

func (m *WorkerMetrics) FinishJob(err error) {
	m.jobsInFlight.Dec()
	result := "success"
	if err != nil {
		result = "error"
	}
	m.messagesHandled.WithLabelValues(m.service, result).Inc()
}
