package ollama

import (
	"fmt"
	"strings"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
)

func buildAnswerPrompt(question string, evidence []domain.RetrievalResult) string {
	parts := make([]string, 0, len(evidence))
	for _, item := range evidence {
		parts = append(parts, item.Chunk)
	}

	return fmt.Sprintf(`You are an AI assistant.
Answer the user's question using ONLY the provided context.
Do NOT hallucinate. If the answer is not present, say "Information not found".

QUESTION:
%s

CONTEXT:
%s

ANSWER:
`, question, strings.Join(parts, "\n\n"))
}
