package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
	"github.com/kirillkom/self-healing-rag/internal/core/ports"
)

// Searcher finds evidence for a question.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]domain.RetrievalResult, error)
}

type QueryUseCase struct {
	searcher    Searcher
	generator   ports.AnswerGenerator
	pipeline    *AnswerPipeline
	defaultTopK int
}

func NewQueryUseCase(
	searcher Searcher,
	generator ports.AnswerGenerator,
	pipeline *AnswerPipeline,
	defaultTopK int,
) *QueryUseCase {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &QueryUseCase{
		searcher:    searcher,
		generator:   generator,
		pipeline:    pipeline,
		defaultTopK: defaultTopK,
	}
}

// Ask runs retrieval, generation, detection and healing in sequence.
func (uc *QueryUseCase) Ask(ctx context.Context, question string, topK int) (*domain.AnswerRecord, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("question is required"))
	}
	if topK < 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", fmt.Errorf("top_k must be positive, got %d", topK))
	}
	if topK == 0 {
		topK = uc.defaultTopK
	}

	retrieved, err := uc.searcher.Search(ctx, question, topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve evidence: %w", err)
	}
	if len(retrieved) == 0 {
		return nil, domain.WrapError(domain.ErrNoEvidence, "retrieve evidence", errors.New("retriever returned no results"))
	}

	rawAnswer, err := uc.generator.GenerateAnswer(ctx, question, retrieved)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	rawAnswer = strings.TrimSpace(rawAnswer)

	healed, err := uc.pipeline.Run(ctx, question, rawAnswer, retrieved)
	if err != nil {
		return nil, err
	}

	record := &domain.AnswerRecord{
		Question:    question,
		RawAnswer:   rawAnswer,
		FinalAnswer: healed.FinalAnswer,
		Healed:      healed.Healed,
		Retrieved:   retrieved,
		Detection:   healed.Outcome,
	}
	if healed.Healed {
		reason := healed.Reason
		record.HealReason = &reason
	}
	return record, nil
}
