package localfs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
)

// MetadataFiles stores chunk metadata as a JSON array whose positions match
// vector ids.
type MetadataFiles struct{}

func (MetadataFiles) LoadMetadata(_ context.Context, path string) ([]domain.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var chunks []domain.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "decode metadata", err)
	}
	return chunks, nil
}

// LoadRawMetadata keeps each record as raw key/value pairs so schema checks
// can see which keys are actually present.
func (MetadataFiles) LoadRawMetadata(_ context.Context, path string) ([]map[string]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var records []map[string]json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "decode metadata", err)
	}
	return records, nil
}

func (MetadataFiles) SaveMetadata(_ context.Context, path string, chunks []domain.Chunk) error {
	if chunks == nil {
		chunks = []domain.Chunk{}
	}
	data, err := json.Marshal(chunks)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}
