package plaintext

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
)

func TestExtractTrimsText(t *testing.T) {
	got, err := NewExtractor().Extract(context.Background(), "a.md", []byte("\ufeff  # Title\nbody \n"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "# Title\nbody" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestExtractRejectsBinary(t *testing.T) {
	_, err := NewExtractor().Extract(context.Background(), "a.txt", []byte{0xff, 0xfe, 0xfd})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
