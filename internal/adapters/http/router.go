package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/self-healing-rag/internal/config"
	"github.com/kirillkom/self-healing-rag/internal/core/domain"
	"github.com/kirillkom/self-healing-rag/internal/core/ports"
	"github.com/kirillkom/self-healing-rag/internal/observability/metrics"
)

const (
	serviceName       = "rag-api"
	maxRequestBody    = 1 << 20
	queueWaitDeadline = 2 * time.Second
)

type Router struct {
	cfg       config.Config
	answerer  ports.QuestionAnswerer
	lifecycle ports.IndexLifecycle
	monitor   ports.CorpusMonitor
	index     ports.IndexReader
	metrics   *metrics.HTTPServerMetrics
	now       func() time.Time
}

func NewRouter(
	cfg config.Config,
	answerer ports.QuestionAnswerer,
	lifecycle ports.IndexLifecycle,
	monitor ports.CorpusMonitor,
	index ports.IndexReader,
) *Router {
	return &Router{
		cfg:       cfg,
		answerer:  answerer,
		lifecycle: lifecycle,
		monitor:   monitor,
		index:     index,
		now:       time.Now,
	}
}

func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics) *Router {
	rt.metrics = m
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/query", rt.query)
	mux.HandleFunc("POST /v1/reindex", rt.submitReindex)
	mux.HandleFunc("GET /v1/reindex/{id}", rt.getReindexJob)
	mux.HandleFunc("GET /v1/monitor", rt.runMonitor)
	mux.HandleFunc("GET /v1/monitor/latest", rt.latestReport)
	mux.HandleFunc("POST /v1/monitor/advice", rt.advice)
	mux.HandleFunc("GET /v1/history", rt.history)
	mux.HandleFunc("POST /v1/history/rollback", rt.rollback)

	var handler http.Handler = mux
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, queueWaitDeadline)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{
		"status": "ok",
		"ts":     rt.now().UTC().Format(time.RFC3339),
	}
	if rt.index != nil {
		payload["index"] = rt.index.Stats()
	}
	writeJSON(w, http.StatusOK, payload)
}

func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
		TopK     int    `json:"top_k"`
	}
	if !decodeBody(w, r, &req, false) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, r, http.StatusBadRequest, "question is required")
		return
	}

	start := time.Now()
	record, err := rt.answerer.Ask(r.Context(), req.Question, req.TopK)
	if err != nil {
		if rt.metrics != nil && domain.IsKind(err, domain.ErrNoEvidence) {
			rt.metrics.RecordNoEvidence(serviceName, "query")
		}
		writeDomainError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordAnswer(serviceName, "query", record, time.Since(start))
	}
	writeJSON(w, http.StatusOK, record)
}

func (rt *Router) submitReindex(w http.ResponseWriter, r *http.Request) {
	job, err := rt.lifecycle.SubmitReindex(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordReindexSubmitted(serviceName)
	}
	w.Header().Set("Location", "/v1/reindex/"+job.ID)
	writeJSON(w, http.StatusAccepted, job)
}

func (rt *Router) getReindexJob(w http.ResponseWriter, r *http.Request) {
	job, err := rt.lifecycle.Job(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (rt *Router) runMonitor(w http.ResponseWriter, r *http.Request) {
	report, err := rt.monitor.RunSample(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) latestReport(w http.ResponseWriter, r *http.Request) {
	report, err := rt.monitor.LatestReport(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// advice summarises the report in the request body, or the latest stored
// report when the body is empty.
func (rt *Router) advice(w http.ResponseWriter, r *http.Request) {
	var report *domain.MonitorReport
	var body domain.MonitorReport
	if !decodeBody(w, r, &body, true) {
		return
	}
	if body.Timestamp != "" || body.RetrievalHealth != nil || body.SchemaProblems != nil || body.DuplicatePairs != nil {
		report = &body
	}

	advice, err := rt.monitor.Advise(r.Context(), report)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, advice)
}

func (rt *Router) history(w http.ResponseWriter, r *http.Request) {
	versions, err := rt.lifecycle.ListVersions(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"versions": versions})
}

func (rt *Router) rollback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tag string `json:"tag"`
	}
	if !decodeBody(w, r, &req, false) {
		return
	}

	ok, err := rt.lifecycle.Rollback(r.Context(), req.Tag)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordRollback(serviceName, ok)
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"rolled_back": false,
			"tag":         req.Tag,
			"error":       "version not found",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rolled_back": true, "tag": req.Tag})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	writeError(w, r, http.StatusBadRequest, "invalid json")
	return false
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("http_handler_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	writeError(w, r, status, err.Error())
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error":      message,
		"request_id": requestIDFromContext(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
