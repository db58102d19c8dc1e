package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
)

// Advise summarises a monitor report into concrete fixes. When report is nil
// the latest persisted report is used. Output that is not a JSON object is
// returned as the summary with no fixes.
func (uc *CorpusMonitorUseCase) Advise(ctx context.Context, report *domain.MonitorReport) (*domain.Advice, error) {
	if report == nil {
		latest, err := uc.reports.LatestReport(ctx)
		if err != nil {
			return nil, fmt.Errorf("load latest report: %w", err)
		}
		report = latest
	}
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}

	raw, err := uc.generator.GenerateFromPrompt(ctx, buildAdvicePrompt(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("generate advice: %w", err)
	}
	return parseAdvice(raw), nil
}

func parseAdvice(raw string) *domain.Advice {
	raw = strings.TrimSpace(raw)
	if block, ok := extractJSONObject(raw); ok {
		var advice domain.Advice
		if err := json.Unmarshal([]byte(block), &advice); err == nil && advice.Summary != "" {
			if advice.Fixes == nil {
				advice.Fixes = []string{}
			}
			return &advice
		} else if err != nil {
			slog.Debug("advice_parse_fallback", "error", err)
		}
	}
	return &domain.Advice{Summary: raw, Fixes: []string{}}
}
