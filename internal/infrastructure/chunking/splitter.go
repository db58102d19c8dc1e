package chunking

import (
	"iter"
	"strings"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
)

const DefaultChunkSize = 200

// WordSplitter cuts documents into non-overlapping windows of whitespace
// separated words. The last window may be shorter.
type WordSplitter struct {
	ChunkSize int
}

func NewWordSplitter(chunkSize int) *WordSplitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &WordSplitter{ChunkSize: chunkSize}
}

// Chunks yields the windows of doc lazily. The sequence can be ranged over
// more than once and always produces the same chunks.
func (s *WordSplitter) Chunks(doc domain.Document) iter.Seq[domain.Chunk] {
	size := s.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	return func(yield func(domain.Chunk) bool) {
		words := strings.Fields(doc.Text)
		for start := 0; start < len(words); start += size {
			end := min(start+size, len(words))
			chunk := domain.Chunk{
				DocID: doc.ID,
				Title: doc.Title,
				Text:  strings.Join(words[start:end], " "),
			}
			if !yield(chunk) {
				return
			}
		}
	}
}
