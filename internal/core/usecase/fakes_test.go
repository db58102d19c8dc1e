package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
)

// keywordEmbedder counts keyword occurrences, one dimension per keyword.
type keywordEmbedder struct {
	keywords []string
	err      error
	drop     int
	ragged   bool

	mu      sync.Mutex
	batches [][]string
	queries []string
}

func newKeywordEmbedder(keywords ...string) *keywordEmbedder {
	return &keywordEmbedder{keywords: keywords}
}

func (e *keywordEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	vec := make([]float32, len(e.keywords))
	for i, kw := range e.keywords {
		vec[i] = float32(strings.Count(lower, kw))
	}
	return vec
}

func (e *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batches = append(e.batches, texts)
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, 0, len(texts))
	for i, text := range texts {
		vec := e.vector(text)
		if e.ragged && i == len(texts)-1 {
			vec = append(vec, 1)
		}
		out = append(out, vec)
	}
	return out[:len(out)-min(e.drop, len(out))], nil
}

func (e *keywordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.queries = append(e.queries, text)
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	return e.vector(text), nil
}

// scriptedGenerator replays canned prompt responses in order.
type scriptedGenerator struct {
	answer    string
	answerErr error
	responses []string
	errs      []error

	answerCalls int
	prompts     []string
}

func (g *scriptedGenerator) GenerateAnswer(context.Context, string, []domain.RetrievalResult) (string, error) {
	g.answerCalls++
	if g.answerErr != nil {
		return "", g.answerErr
	}
	return g.answer, nil
}

func (g *scriptedGenerator) GenerateFromPrompt(_ context.Context, prompt string) (string, error) {
	call := len(g.prompts)
	g.prompts = append(g.prompts, prompt)
	if call < len(g.errs) && g.errs[call] != nil {
		return "", g.errs[call]
	}
	if call < len(g.responses) {
		return g.responses[call], nil
	}
	return "", errors.New("unexpected generation call")
}

func (g *scriptedGenerator) calls() int {
	return g.answerCalls + len(g.prompts)
}

type staticDocuments struct {
	docs []domain.Document
	err  error
}

func (s *staticDocuments) LoadDocuments(context.Context) ([]domain.Document, error) {
	return s.docs, s.err
}

type recordingNotifier struct {
	tags []string
	err  error
}

func (n *recordingNotifier) IndexUpdated(_ context.Context, tag string) error {
	n.tags = append(n.tags, tag)
	return n.err
}

type recordingDispatcher struct {
	ids []string
	err error
}

func (d *recordingDispatcher) DispatchReindex(_ context.Context, jobID string) error {
	d.ids = append(d.ids, jobID)
	return d.err
}

type staticSearcher struct {
	results []domain.RetrievalResult
	err     error
	topK    int
}

func (s *staticSearcher) Search(_ context.Context, _ string, topK int) ([]domain.RetrievalResult, error) {
	s.topK = topK
	return s.results, s.err
}
