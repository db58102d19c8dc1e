package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
	"github.com/kirillkom/self-healing-rag/internal/infrastructure/resilience"
)

func testExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})
}

func TestGeneratorBuildsContextPrompt(t *testing.T) {
	var capturedPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if payload["stream"] != false {
			t.Errorf("expected non-streaming request, got %v", payload["stream"])
		}
		capturedPrompt, _ = payload["prompt"].(string)
		_, _ = w.Write([]byte(`{"response":"  The sky is blue.  "}`))
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL, "gen", "embed", time.Second, testExecutor()))
	answer, err := gen.GenerateAnswer(context.Background(), "What colour is the sky?", []domain.RetrievalResult{
		{Chunk: "The sky is blue."},
		{Chunk: "Grass is green."},
	})
	if err != nil {
		t.Fatalf("GenerateAnswer() error = %v", err)
	}
	if answer != "The sky is blue." {
		t.Fatalf("expected trimmed answer, got %q", answer)
	}
	for _, want := range []string{"What colour is the sky?", "The sky is blue.\n\nGrass is green.", "Information not found"} {
		if !strings.Contains(capturedPrompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, capturedPrompt)
		}
	}
}

func TestEmbedSendsBatchAndRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "loading model", http.StatusServiceUnavailable)
			return
		}
		var payload struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload.Model != "embed" || len(payload.Input) != 2 {
			t.Errorf("unexpected embed request: %+v", payload)
		}
		_, _ = w.Write([]byte(`{"embeddings":[[1,0],[0,1]]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed", time.Second, testExecutor()))
	vectors, err := embedder.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 2 || vectors[1][1] != 1 {
		t.Fatalf("unexpected vectors: %v", vectors)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected one retry, got %d calls", calls.Load())
	}
}

func TestEmbedIncludesHTTPBodyInTemporaryError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed", time.Second, testExecutor()))
	_, err := embedder.Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected HTTPStatusError 502, got %v", err)
	}
}

func TestGenerateIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL, "gen", "embed", time.Second, testExecutor()))
	_, err := gen.GenerateFromPrompt(context.Background(), "prompt")
	if !errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("generation must not be retried, got %d calls", calls.Load())
	}
}

func TestClientErrorIsNotTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewEmbedder(New(server.URL, "gen", "embed", time.Second, testExecutor())).EmbedQuery(context.Background(), "q")
	if err == nil || errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestClassifyOllamaError(t *testing.T) {
	if c := classifyOllamaError(context.Canceled); c.Retryable || c.RecordFailure {
		t.Fatalf("cancellation must be neither retried nor recorded: %+v", c)
	}
	if c := classifyOllamaError(&HTTPStatusError{StatusCode: http.StatusTooManyRequests}); !c.Retryable {
		t.Fatalf("429 must be retryable")
	}
	if c := classifyOllamaError(errors.New("decode response")); c.Retryable || !c.RecordFailure {
		t.Fatalf("unknown errors are recorded but not retried: %+v", c)
	}
}

func TestStatusErrorUnwrapsOllamaErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"embed\" not found, try pulling it first"}`))
	}))
	defer server.Close()

	_, err := NewEmbedder(New(server.URL, "gen", "embed", time.Second, testExecutor())).Embed(context.Background(), []string{"q"})
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if statusErr.Body != `model "embed" not found, try pulling it first` {
		t.Fatalf("unexpected message: %q", statusErr.Body)
	}
}
