// Package extractor maps source file extensions to text extractors.
package extractor

import (
	"github.com/kirillkom/self-healing-rag/internal/core/ports"
	"github.com/kirillkom/self-healing-rag/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/self-healing-rag/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/self-healing-rag/internal/infrastructure/extractor/spreadsheet"
)

func Registry() map[string]ports.TextExtractor {
	text := plaintext.NewExtractor()
	sheets := spreadsheet.NewExtractor()
	return map[string]ports.TextExtractor{
		".txt":  text,
		".md":   text,
		".pdf":  pdf.NewExtractor(),
		".xlsx": sheets,
		".xlsm": sheets,
	}
}
