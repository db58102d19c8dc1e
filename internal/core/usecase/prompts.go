package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
)

func joinEvidence(evidence []domain.RetrievalResult) string {
	parts := make([]string, 0, len(evidence))
	for _, item := range evidence {
		parts = append(parts, item.Chunk)
	}
	return strings.Join(parts, "\n\n")
}

func buildDetectionPrompt(answer string, evidence []domain.RetrievalResult) string {
	return fmt.Sprintf(`You are a hallucination detector.
Given the retrieved context and the model's answer, decide whether the answer contains:

1. Unsupported facts
2. Missing key information
3. Contradictions
4. Hallucinations

Return ONLY a JSON object like this:
{"hallucinated": true, "reason": "short explanation"}

Answer:
%s

Context:
%s
`, answer, joinEvidence(evidence))
}

func buildHealPrompt(question, answer string, evidence []domain.RetrievalResult) string {
	return fmt.Sprintf(`You are a RAG healer.
Rewrite the answer using ONLY the retrieved context below.
Fix hallucinations and remove unsupported claims. The answer must be grounded strictly in context, factual and concise.

QUESTION:
%s

OLD ANSWER:
%s

RETRIEVED CONTEXT:
%s

Return only the corrected answer.
`, question, answer, joinEvidence(evidence))
}

func buildAdvicePrompt(reportJSON string) string {
	return `You are a system debug assistant. Given the monitor report below, summarize the top 3 issues and give concrete step-by-step fixes for each.

Report:
` + reportJSON + `

Return a JSON object with keys: summary (string), fixes (array of strings).`
}
