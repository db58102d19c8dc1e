package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
	"github.com/kirillkom/self-healing-rag/internal/core/ports"
)

var (
	errNoVerdictObject = errors.New("no JSON object in detector output")
	errNoVerdictFlag   = errors.New("detector output has no hallucinated flag")
)

type detectionPayload struct {
	Hallucinated  *bool  `json:"hallucinated"`
	Hallucination *bool  `json:"hallucination"`
	Reason        string `json:"reason"`
}

// AnswerPipeline verifies a raw answer against its evidence and rewrites it
// when the detector reports a hallucination. It never retries and never
// verifies a healed answer a second time.
type AnswerPipeline struct {
	generator ports.AnswerGenerator
}

func NewAnswerPipeline(generator ports.AnswerGenerator) *AnswerPipeline {
	return &AnswerPipeline{generator: generator}
}

// Detect asks the generator for a verdict. Any failure to obtain or parse one
// yields VerdictUnavailable with hallucinated=false.
func (p *AnswerPipeline) Detect(ctx context.Context, answer string, evidence []domain.RetrievalResult) domain.Verdict {
	raw, err := p.generator.GenerateFromPrompt(ctx, buildDetectionPrompt(answer, evidence))
	if err != nil {
		return failOpen(fmt.Errorf("generate verdict: %w", err))
	}
	verdict, err := parseVerdict(raw)
	if err != nil {
		return failOpen(err)
	}
	return verdict
}

// Heal rewrites answer from the evidence. The trimmed output is returned as is.
func (p *AnswerPipeline) Heal(ctx context.Context, question, answer string, evidence []domain.RetrievalResult) (string, error) {
	healed, err := p.generator.GenerateFromPrompt(ctx, buildHealPrompt(question, answer, evidence))
	if err != nil {
		return "", domain.WrapError(domain.ErrHealingFailure, "heal answer", err)
	}
	return strings.TrimSpace(healed), nil
}

func (p *AnswerPipeline) Run(ctx context.Context, question, rawAnswer string, evidence []domain.RetrievalResult) (domain.HealResult, error) {
	verdict := p.Detect(ctx, rawAnswer, evidence)
	if !verdict.Hallucinated {
		return domain.HealResult{
			FinalAnswer: rawAnswer,
			Outcome:     verdict.Outcome,
		}, nil
	}

	slog.Info("hallucination_detected", "reason", verdict.Reason)
	healed, err := p.Heal(ctx, question, rawAnswer, evidence)
	if err != nil {
		return domain.HealResult{}, err
	}
	return domain.HealResult{
		FinalAnswer: healed,
		Healed:      true,
		Reason:      verdict.Reason,
		Outcome:     domain.VerdictHallucinated,
	}, nil
}

func parseVerdict(raw string) (domain.Verdict, error) {
	block, ok := extractJSONObject(raw)
	if !ok {
		return domain.Verdict{}, errNoVerdictObject
	}
	var payload detectionPayload
	if err := json.Unmarshal([]byte(block), &payload); err != nil {
		return domain.Verdict{}, fmt.Errorf("decode verdict: %w", err)
	}
	flag := payload.Hallucinated
	if flag == nil {
		flag = payload.Hallucination
	}
	if flag == nil {
		return domain.Verdict{}, errNoVerdictFlag
	}
	if !*flag {
		return domain.Verdict{Outcome: domain.VerdictClean, Reason: payload.Reason}, nil
	}
	return domain.Verdict{
		Outcome:      domain.VerdictHallucinated,
		Hallucinated: true,
		Reason:       payload.Reason,
	}, nil
}

func failOpen(cause error) domain.Verdict {
	slog.Warn("detector_fail_open", "error", cause)
	return domain.Verdict{
		Outcome: domain.VerdictUnavailable,
		Reason:  domain.ReasonVerificationUnavailable,
	}
}
