package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
)

type HTTPServerMetrics struct {
	*IndexMetrics

	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	ragAnswersTotal    *prometheus.CounterVec
	ragNoEvidenceTotal *prometheus.CounterVec
	ragRetrievedChunks *prometheus.HistogramVec
	ragDuration        *prometheus.HistogramVec
	reindexSubmitted   *prometheus.CounterVec
	rollbacksTotal     *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	ragAnswersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "answers_total",
			Help:      "Answered questions by detection outcome and whether the answer was healed.",
		},
		[]string{"service", "endpoint", "outcome", "healed"},
	)
	ragNoEvidenceTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "no_evidence_total",
			Help:      "Questions rejected because retrieval found nothing.",
		},
		[]string{"service", "endpoint"},
	)
	ragRetrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "retrieved_chunks",
			Help:      "Distribution of retrieved chunks per answered question.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "endpoint"},
	)
	ragDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "duration_seconds",
			Help:      "Answer pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	reindexSubmitted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reindex",
			Name:      "submitted_total",
			Help:      "Reindex jobs accepted by the API.",
		},
		[]string{"service"},
	)
	rollbacksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "rollbacks_total",
			Help:      "Rollback requests by result (restored or unknown_tag).",
		},
		[]string{"service", "result"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		ragAnswersTotal,
		ragNoEvidenceTotal,
		ragRetrievedChunks,
		ragDuration,
		reindexSubmitted,
		rollbacksTotal,
	)

	return &HTTPServerMetrics{
		IndexMetrics:       newIndexMetrics(service, registry),
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		ragAnswersTotal:    ragAnswersTotal,
		ragNoEvidenceTotal: ragNoEvidenceTotal,
		ragRetrievedChunks: ragRetrievedChunks,
		ragDuration:        ragDuration,
		reindexSubmitted:   reindexSubmitted,
		rollbacksTotal:     rollbacksTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/reindex/"):
		return "/v1/reindex/{job_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordAnswer(service, endpoint string, record *domain.AnswerRecord, duration time.Duration) {
	if record == nil {
		return
	}
	outcome := string(record.Detection)
	if outcome == "" {
		outcome = "unknown"
	}
	m.ragAnswersTotal.WithLabelValues(service, endpoint, outcome, strconv.FormatBool(record.Healed)).Inc()
	m.ragRetrievedChunks.WithLabelValues(service, endpoint).Observe(float64(len(record.Retrieved)))
	m.ragDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordNoEvidence(service, endpoint string) {
	m.ragNoEvidenceTotal.WithLabelValues(service, endpoint).Inc()
}

func (m *HTTPServerMetrics) RecordReindexSubmitted(service string) {
	m.reindexSubmitted.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordRollback(service string, restored bool) {
	result := "restored"
	if !restored {
		result = "unknown_tag"
	}
	m.rollbacksTotal.WithLabelValues(service, result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
