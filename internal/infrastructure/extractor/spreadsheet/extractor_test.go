package spreadsheet

import (
	"context"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
)

func workbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetRow("Sheet1", "A1", &[]any{"planet", "moons"}); err != nil {
		t.Fatalf("SetSheetRow() error = %v", err)
	}
	if err := f.SetSheetRow("Sheet1", "A2", &[]any{"Mars", 2}); err != nil {
		t.Fatalf("SetSheetRow() error = %v", err)
	}
	if _, err := f.NewSheet("Empty"); err != nil {
		t.Fatalf("NewSheet() error = %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() error = %v", err)
	}
	return buf.Bytes()
}

func TestExtractFlattensRows(t *testing.T) {
	got, err := NewExtractor().Extract(context.Background(), "planets.xlsx", workbook(t))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := "# Sheet1\nplanet | moons\nMars | 2"
	if got != want {
		t.Fatalf("Extract() = %q, want %q", got, want)
	}
}

func TestExtractRejectsGarbage(t *testing.T) {
	_, err := NewExtractor().Extract(context.Background(), "x.xlsx", []byte("nope"))
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
