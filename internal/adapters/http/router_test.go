package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/self-healing-rag/internal/config"
	"github.com/kirillkom/self-healing-rag/internal/core/domain"
	"github.com/kirillkom/self-healing-rag/internal/observability/metrics"
)

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	return res
}

func decode(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", res.Body.String(), err)
	}
	return out
}

func TestQueryReturnsAnswerRecord(t *testing.T) {
	reason := "contradicts context"
	answerer := &answererFake{record: &domain.AnswerRecord{
		Question:    "What colour is the sky?",
		RawAnswer:   "The sky is green.",
		FinalAnswer: "The sky is blue.",
		Healed:      true,
		HealReason:  &reason,
		Retrieved:   []domain.RetrievalResult{{VectorID: 0, Score: 0.1, Chunk: "The sky is blue.", Title: "Sky", DocID: "1"}},
	}}
	h := NewRouter(config.Config{}, answerer, &lifecycleFake{}, &monitorFake{}, indexFake{}).Handler()

	res := do(t, h, http.MethodPost, "/v1/query", map[string]any{"question": "What colour is the sky?", "top_k": 2})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	body := decode(t, res)
	if body["final_answer"] != "The sky is blue." || body["healed"] != true || body["heal_reason"] != reason {
		t.Fatalf("unexpected body %v", body)
	}
	if _, leaked := body["Detection"]; leaked {
		t.Fatalf("detection outcome must not be serialised")
	}
	if answerer.gotK != 2 {
		t.Fatalf("expected top_k 2 passed through, got %d", answerer.gotK)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestQueryCleanAnswerHasNullHealReason(t *testing.T) {
	h := newTestHandler(config.Config{})
	res := do(t, h, http.MethodPost, "/v1/query", map[string]any{"question": "q"})
	body := decode(t, res)
	if v, ok := body["heal_reason"]; !ok || v != nil {
		t.Fatalf("expected heal_reason null, got %v (present=%v)", v, ok)
	}
}

func TestQueryMapsErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("bad")), http.StatusBadRequest},
		{"no evidence", domain.WrapError(domain.ErrNoEvidence, "ask", errors.New("nothing")), http.StatusNotFound},
		{"provider down", domain.WrapError(domain.ErrTemporary, "generate", errors.New("503")), http.StatusServiceUnavailable},
		{"healing temporary", domain.WrapError(domain.ErrHealingFailure, "heal",
			domain.WrapError(domain.ErrTemporary, "generate", errors.New("503"))), http.StatusServiceUnavailable},
		{"healing failed", domain.WrapError(domain.ErrHealingFailure, "heal", errors.New("400")), http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewRouter(config.Config{}, &answererFake{err: tc.err}, &lifecycleFake{}, &monitorFake{}, indexFake{}).Handler()
			res := do(t, h, http.MethodPost, "/v1/query", map[string]any{"question": "q"})
			if res.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, res.Code)
			}
			if decode(t, res)["error"] == "" {
				t.Fatalf("expected error message")
			}
		})
	}
}

func TestQueryRejectsBadInput(t *testing.T) {
	h := newTestHandler(config.Config{})

	res := do(t, h, http.MethodPost, "/v1/query", map[string]any{"question": "   "})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("blank question: expected 400, got %d", res.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed json: expected 400, got %d", rec.Code)
	}
}

func TestReindexSubmitAndPoll(t *testing.T) {
	job := &domain.ReindexJob{ID: "job-1", Status: domain.JobPending, CreatedAt: time.Now().UTC()}
	h := NewRouter(config.Config{}, &answererFake{}, &lifecycleFake{job: job}, &monitorFake{}, indexFake{}).Handler()

	res := do(t, h, http.MethodPost, "/v1/reindex", nil)
	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", res.Code)
	}
	if res.Header().Get("Location") != "/v1/reindex/job-1" {
		t.Fatalf("unexpected location %q", res.Header().Get("Location"))
	}

	res = do(t, h, http.MethodGet, "/v1/reindex/job-1", nil)
	if res.Code != http.StatusOK || decode(t, res)["status"] != "pending" {
		t.Fatalf("unexpected poll response %d: %s", res.Code, res.Body.String())
	}

	res = do(t, h, http.MethodGet, "/v1/reindex/unknown", nil)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown job, got %d", res.Code)
	}
}

func TestHistoryAndRollback(t *testing.T) {
	lifecycle := &lifecycleFake{versions: []domain.IndexVersion{{Tag: "20260101T000000", Complete: true}}}
	h := NewRouter(config.Config{}, &answererFake{}, lifecycle, &monitorFake{}, indexFake{}).Handler()

	res := do(t, h, http.MethodGet, "/v1/history", nil)
	versions, _ := decode(t, res)["versions"].([]any)
	if res.Code != http.StatusOK || len(versions) != 1 {
		t.Fatalf("unexpected history %d: %s", res.Code, res.Body.String())
	}

	res = do(t, h, http.MethodPost, "/v1/history/rollback", map[string]string{"tag": "missing"})
	if res.Code != http.StatusNotFound || decode(t, res)["rolled_back"] != false {
		t.Fatalf("expected 404 rolled_back=false, got %d: %s", res.Code, res.Body.String())
	}

	lifecycle.rolledBack = true
	res = do(t, h, http.MethodPost, "/v1/history/rollback", map[string]string{"tag": "20260101T000000"})
	if res.Code != http.StatusOK || decode(t, res)["rolled_back"] != true {
		t.Fatalf("expected rolled_back=true, got %d: %s", res.Code, res.Body.String())
	}
	if lifecycle.gotTag != "20260101T000000" {
		t.Fatalf("tag not passed through: %q", lifecycle.gotTag)
	}

	lifecycle.err = domain.WrapError(domain.ErrManifestCorrupt, "list versions", errors.New("bad json"))
	res = do(t, h, http.MethodGet, "/v1/history", nil)
	if res.Code != http.StatusInternalServerError {
		t.Fatalf("corrupt manifest: expected 500, got %d", res.Code)
	}
}

func TestMonitorEndpoints(t *testing.T) {
	monitor := &monitorFake{err: domain.WrapError(domain.ErrReportNotFound, "latest report", errors.New("no file"))}
	h := NewRouter(config.Config{}, &answererFake{}, &lifecycleFake{}, monitor, indexFake{}).Handler()

	res := do(t, h, http.MethodGet, "/v1/monitor/latest", nil)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a report, got %d", res.Code)
	}

	monitor.err = nil
	monitor.report = &domain.MonitorReport{Timestamp: "2026-10-16T00:00:00Z"}
	res = do(t, h, http.MethodGet, "/v1/monitor", nil)
	if res.Code != http.StatusOK || decode(t, res)["ts"] != "2026-10-16T00:00:00Z" {
		t.Fatalf("unexpected monitor response %d: %s", res.Code, res.Body.String())
	}

	res = do(t, h, http.MethodPost, "/v1/monitor/advice", nil)
	if res.Code != http.StatusOK || monitor.adviseArg != nil {
		t.Fatalf("empty body should advise on the latest report (code=%d arg=%v)", res.Code, monitor.adviseArg)
	}

	res = do(t, h, http.MethodPost, "/v1/monitor/advice", map[string]any{"ts": "x", "duplicate_pairs": []any{}})
	if res.Code != http.StatusOK || monitor.adviseArg == nil || monitor.adviseArg.Timestamp != "x" {
		t.Fatalf("body report not passed through: %v", monitor.adviseArg)
	}
}

func TestHealthzReportsIndexStats(t *testing.T) {
	res := do(t, newTestHandler(config.Config{}), http.MethodGet, "/healthz", nil)
	body := decode(t, res)
	if body["status"] != "ok" || body["ts"] == "" {
		t.Fatalf("unexpected health body %v", body)
	}
	index, _ := body["index"].(map[string]any)
	if index["vectors"] != float64(3) {
		t.Fatalf("expected index stats, got %v", body["index"])
	}
}

func TestMetricsEndpointMountedWithMetrics(t *testing.T) {
	h := NewRouter(config.Config{}, &answererFake{}, &lifecycleFake{}, &monitorFake{}, indexFake{}).
		WithMetrics(metrics.NewHTTPServerMetrics(serviceName)).
		Handler()

	_ = do(t, h, http.MethodPost, "/v1/query", map[string]any{"question": "q"})
	res := do(t, h, http.MethodGet, "/metrics", nil)
	if res.Code != http.StatusOK || !strings.Contains(res.Body.String(), "shrag_rag_answers_total") {
		t.Fatalf("metrics not exposed: %d", res.Code)
	}
}
