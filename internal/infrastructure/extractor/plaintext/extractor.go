package plaintext

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
)

// Extractor accepts UTF-8 text files (txt, md) as they are.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(_ context.Context, name string, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract "+name, errors.New("file is not valid UTF-8 text"))
	}
	return strings.TrimSpace(strings.TrimPrefix(string(data), "\ufeff")), nil
}
