package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
)

const namespace = "shrag"

// IndexMetrics covers the index lifecycle, the corpus monitor and provider
// retries. Both the API and the worker carry one, since either may run
// reindex jobs and monitor samples.
type IndexMetrics struct {
	service string

	reindexTotal    *prometheus.CounterVec
	reindexDuration *prometheus.HistogramVec

	schemaProblems  prometheus.Gauge
	duplicatePairs  prometheus.Gauge
	probeAvgScore   *prometheus.GaugeVec
	probeResults    *prometheus.GaugeVec
	lastReportEpoch prometheus.Gauge

	retriesTotal *prometheus.CounterVec
}

func newIndexMetrics(service string, registry *prometheus.Registry) *IndexMetrics {
	constLabels := prometheus.Labels{"service": service}

	m := &IndexMetrics{
		service: service,
		reindexTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reindex",
				Name:      "jobs_total",
				Help:      "Finished reindex jobs by status.",
			},
			[]string{"service", "status"},
		),
		reindexDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "reindex",
				Name:      "duration_seconds",
				Help:      "Reindex job duration in seconds by status.",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"service", "status"},
		),
		schemaProblems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "monitor",
			Name:        "schema_problems",
			Help:        "Missing metadata keys found by the last monitor sample.",
			ConstLabels: constLabels,
		}),
		duplicatePairs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "monitor",
			Name:        "duplicate_pairs",
			Help:        "Near-duplicate embedding pairs found by the last monitor sample.",
			ConstLabels: constLabels,
		}),
		probeAvgScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "monitor",
			Name:        "probe_avg_score",
			Help:        "Mean L2 distance of the top results for each probe query.",
			ConstLabels: constLabels,
		}, []string{"query"}),
		probeResults: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "monitor",
			Name:        "probe_result_count",
			Help:        "Number of results returned for each probe query.",
			ConstLabels: constLabels,
		}, []string{"query"}),
		lastReportEpoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "monitor",
			Name:        "last_report_timestamp_seconds",
			Help:        "Unix time of the last monitor report.",
			ConstLabels: constLabels,
		}),
		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "provider",
				Name:      "retries_total",
				Help:      "Retries scheduled for provider operations.",
			},
			[]string{"service", "operation"},
		),
	}

	registry.MustRegister(
		m.reindexTotal,
		m.reindexDuration,
		m.schemaProblems,
		m.duplicatePairs,
		m.probeAvgScore,
		m.probeResults,
		m.lastReportEpoch,
		m.retriesTotal,
	)
	return m
}

func (m *IndexMetrics) ObserveReindex(status domain.JobStatus, duration time.Duration) {
	m.reindexTotal.WithLabelValues(m.service, string(status)).Inc()
	m.reindexDuration.WithLabelValues(m.service, string(status)).Observe(duration.Seconds())
}

func (m *IndexMetrics) ObserveReport(report *domain.MonitorReport) {
	if report == nil {
		return
	}
	m.schemaProblems.Set(float64(len(report.SchemaProblems)))
	m.duplicatePairs.Set(float64(len(report.DuplicatePairs)))
	for query, health := range report.RetrievalHealth {
		m.probeAvgScore.WithLabelValues(query).Set(health.AvgScore)
		m.probeResults.WithLabelValues(query).Set(float64(health.ResultCount))
	}
	if ts, err := time.Parse(time.RFC3339, report.Timestamp); err == nil {
		m.lastReportEpoch.Set(float64(ts.Unix()))
	}
}

// RecordRetry matches resilience.RetryObserver.
func (m *IndexMetrics) RecordRetry(operation string, _ int) {
	m.retriesTotal.WithLabelValues(m.service, operation).Inc()
}
