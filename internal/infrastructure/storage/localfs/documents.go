package localfs

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
)

const maxDocumentLine = 16 << 20

// DocumentFile is a JSONL corpus, one document per line.
type DocumentFile struct {
	path string
}

func NewDocumentFile(path string) *DocumentFile {
	if path == "" {
		path = "./data/data.jsonl"
	}
	return &DocumentFile{path: path}
}

func (f *DocumentFile) Path() string { return f.path }

func (f *DocumentFile) LoadDocuments(ctx context.Context) ([]domain.Document, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open documents: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxDocumentLine)

	docs := make([]domain.Document, 0)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var doc domain.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "decode documents", fmt.Errorf("line %d: %w", line, err))
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan documents: %w", err)
	}
	return docs, nil
}

func (f *DocumentFile) WriteDocuments(_ context.Context, docs []domain.Document) error {
	var buf strings.Builder
	for _, doc := range docs {
		line, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode document %s: %w", doc.ID, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if err := writeFileAtomic(f.path, []byte(buf.String()), 0o644); err != nil {
		return fmt.Errorf("write documents: %w", err)
	}
	return nil
}
