package pdf

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
)

func TestExtractEmptyInput(t *testing.T) {
	got, err := NewExtractor().Extract(context.Background(), "empty.pdf", nil)
	if err != nil || got != "" {
		t.Fatalf("Extract(nil) = %q, %v", got, err)
	}
}

func TestExtractRejectsNonPDF(t *testing.T) {
	_, err := NewExtractor().Extract(context.Background(), "notes.pdf", []byte("plain text, not a pdf"))
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
