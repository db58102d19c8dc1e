package chunking

import (
	"slices"
	"strings"
	"testing"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
)

func collect(s *WordSplitter, doc domain.Document) []domain.Chunk {
	return slices.Collect(s.Chunks(doc))
}

func TestChunksWindowsAndShortTail(t *testing.T) {
	s := NewWordSplitter(3)
	doc := domain.Document{ID: "d1", Title: "T", Text: "a b c d e f g"}

	chunks := collect(s, doc)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	want := []string{"a b c", "d e f", "g"}
	for i, chunk := range chunks {
		if chunk.Text != want[i] {
			t.Fatalf("chunk %d = %q, want %q", i, chunk.Text, want[i])
		}
		if chunk.DocID != "d1" || chunk.Title != "T" {
			t.Fatalf("chunk %d lost document fields: %+v", i, chunk)
		}
	}
}

func TestChunksCountIsCeilOfWords(t *testing.T) {
	s := NewWordSplitter(200)
	for _, words := range []int{1, 199, 200, 201, 450} {
		doc := domain.Document{ID: "d", Text: strings.TrimSpace(strings.Repeat("w ", words))}
		got := len(collect(s, doc))
		want := (words + 199) / 200
		if got != want {
			t.Fatalf("words=%d: expected %d chunks, got %d", words, want, got)
		}
	}
}

func TestChunksEmptyTextYieldsNothing(t *testing.T) {
	s := NewWordSplitter(10)
	if got := collect(s, domain.Document{ID: "d", Text: "  \n\t "}); len(got) != 0 {
		t.Fatalf("expected no chunks, got %+v", got)
	}
}

func TestChunksIsDeterministicAndRestartable(t *testing.T) {
	s := NewWordSplitter(2)
	doc := domain.Document{ID: "d", Text: "one two\tthree\nfour five"}
	seq := s.Chunks(doc)

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	if !slices.Equal(first, second) {
		t.Fatalf("sequence changed between iterations: %+v vs %+v", first, second)
	}
	if !slices.Equal(first, collect(NewWordSplitter(2), doc)) {
		t.Fatalf("expected identical chunks from a fresh splitter")
	}
}

func TestNewWordSplitterDefaultsNonPositiveSize(t *testing.T) {
	if s := NewWordSplitter(0); s.ChunkSize != DefaultChunkSize {
		t.Fatalf("expected default chunk size, got %d", s.ChunkSize)
	}
	if s := NewWordSplitter(-5); s.ChunkSize != DefaultChunkSize {
		t.Fatalf("expected default chunk size, got %d", s.ChunkSize)
	}
}

func TestChunksStopsWhenConsumerBreaks(t *testing.T) {
	s := NewWordSplitter(1)
	count := 0
	for range s.Chunks(domain.Document{Text: "a b c d"}) {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Fatalf("expected early stop after 2 chunks, got %d", count)
	}
}
