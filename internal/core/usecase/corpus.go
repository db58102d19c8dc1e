package usecase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
	"github.com/kirillkom/self-healing-rag/internal/core/ports"
)

// SeedDocuments is the starter corpus written by `ragctl seed`.
var SeedDocuments = []domain.Document{
	{
		ID:    "1",
		Title: "Photosynthesis Basics",
		Text:  "Photosynthesis is the process by which green plants use sunlight to synthesize foods from carbon dioxide and water.",
	},
	{
		ID:    "2",
		Title: "Machine Learning Definition",
		Text:  "Machine learning is a field of AI that allows systems to learn patterns from data and improve over time without explicit programming.",
	},
	{
		ID:    "3",
		Title: "RAG Pipeline Explanation",
		Text:  "Retrieval Augmented Generation (RAG) is an architecture where an LLM retrieves relevant documents before generating an answer.",
	},
	{
		ID:    "4",
		Title: "The Solar System",
		Text:  "The solar system consists of the Sun and the objects that orbit it, including the eight planets and their moons.",
	},
	{
		ID:    "5",
		Title: "Neural Networks",
		Text:  "A neural network is a computational model inspired by the human brain, consisting of layers of interconnected nodes.",
	},
}

// CorpusUseCase writes the JSONL document source, either from the seed set
// or from a directory of source files.
type CorpusUseCase struct {
	sink       ports.DocumentSink
	extractors map[string]ports.TextExtractor
}

// NewCorpusUseCase registers one extractor per lower-case file extension
// (".txt", ".pdf", ...).
func NewCorpusUseCase(sink ports.DocumentSink, extractors map[string]ports.TextExtractor) *CorpusUseCase {
	return &CorpusUseCase{sink: sink, extractors: extractors}
}

func (uc *CorpusUseCase) Seed(ctx context.Context) (int, error) {
	if err := uc.sink.WriteDocuments(ctx, SeedDocuments); err != nil {
		return 0, fmt.Errorf("write seed documents: %w", err)
	}
	return len(SeedDocuments), nil
}

// Import extracts every supported file under fsys in lexical order and
// replaces the document source with the result. Document ids are derived from
// the relative path so re-importing the same tree yields the same ids.
func (uc *CorpusUseCase) Import(ctx context.Context, fsys fs.FS) (int, error) {
	paths := make([]string, 0)
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := uc.extractors[strings.ToLower(path.Ext(p))]; ok {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walk source tree: %w", err)
	}
	slices.Sort(paths)

	docs := make([]domain.Document, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		doc, err := uc.extract(ctx, fsys, p)
		if err != nil {
			return 0, err
		}
		if strings.TrimSpace(doc.Text) == "" {
			slog.Warn("import_skipped_empty", "path", p)
			continue
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "import documents", errors.New("no supported files with text found"))
	}

	if err := uc.sink.WriteDocuments(ctx, docs); err != nil {
		return 0, fmt.Errorf("write documents: %w", err)
	}
	return len(docs), nil
}

func (uc *CorpusUseCase) extract(ctx context.Context, fsys fs.FS, p string) (domain.Document, error) {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return domain.Document{}, fmt.Errorf("read %s: %w", p, err)
	}
	text, err := uc.extractors[strings.ToLower(path.Ext(p))].Extract(ctx, p, data)
	if err != nil {
		return domain.Document{}, fmt.Errorf("extract %s: %w", p, err)
	}
	base := path.Base(p)
	return domain.Document{
		ID:    uuid.NewSHA1(uuid.NameSpaceURL, []byte(p)).String(),
		Title: strings.TrimSuffix(base, path.Ext(base)),
		Text:  text,
	}, nil
}
