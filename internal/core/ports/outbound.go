package ports

import (
	"context"
	"encoding/json"
	"iter"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
)

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// AnswerGenerator produces raw answers and free-form completions.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, evidence []domain.RetrievalResult) (string, error)
	GenerateFromPrompt(ctx context.Context, prompt string) (string, error)
}

// Chunker splits a document into word windows.
type Chunker interface {
	Chunks(doc domain.Document) iter.Seq[domain.Chunk]
}

// VectorIndex is an exact nearest-neighbour index addressed by insertion order.
// Search pads missing results with id -1.
type VectorIndex interface {
	Dimension() int
	Len() int
	Add(vectors [][]float32) error
	Search(query []float32, k int) ([]int64, []float32, error)
	Reconstruct(id int64) ([]float32, error)
	Persist(path string) error
}

type IndexFactory interface {
	NewIndex(dimension int) (VectorIndex, error)
	LoadIndex(path string) (VectorIndex, error)
}

// DocumentSource reads the corpus.
type DocumentSource interface {
	LoadDocuments(ctx context.Context) ([]domain.Document, error)
}

// DocumentSink replaces the corpus.
type DocumentSink interface {
	WriteDocuments(ctx context.Context, docs []domain.Document) error
}

// MetadataStore reads and writes the chunk list that sits beside an index file.
type MetadataStore interface {
	LoadMetadata(ctx context.Context, path string) ([]domain.Chunk, error)
	SaveMetadata(ctx context.Context, path string, chunks []domain.Chunk) error
	LoadRawMetadata(ctx context.Context, path string) ([]map[string]json.RawMessage, error)
}

// VersionStore owns the snapshot folders and the version manifest.
type VersionStore interface {
	SaveVersion(ctx context.Context, indexPath, metaPath string) (domain.IndexVersion, error)
	ListVersions(ctx context.Context) ([]domain.IndexVersion, error)
	RollbackTo(ctx context.Context, tag, destIndexPath, destMetaPath string) (bool, error)
}

// JobStore persists reindex job state.
type JobStore interface {
	CreateJob(ctx context.Context, job *domain.ReindexJob) error
	GetJob(ctx context.Context, id string) (*domain.ReindexJob, error)
	UpdateJob(ctx context.Context, job *domain.ReindexJob) error
}

// JobDispatcher hands a pending reindex job to whatever executes it.
type JobDispatcher interface {
	DispatchReindex(ctx context.Context, jobID string) error
}

// IndexNotifier announces that the on-disk index changed.
type IndexNotifier interface {
	IndexUpdated(ctx context.Context, tag string) error
}

type ReportStore interface {
	SaveReport(ctx context.Context, report *domain.MonitorReport) error
	LatestReport(ctx context.Context) (*domain.MonitorReport, error)
}

type EmbeddingCache interface {
	GetVector(ctx context.Context, key string) ([]float32, bool, error)
	SetVector(ctx context.Context, key string, vector []float32) error
}

// TextExtractor pulls plain text out of a source file.
type TextExtractor interface {
	Extract(ctx context.Context, name string, data []byte) (string, error)
}

// MonitorObserver receives every finished monitor report.
type MonitorObserver interface {
	ObserveReport(report *domain.MonitorReport)
}

// WriterLock serialises index writes (reindex and rollback).
type WriterLock interface {
	Acquire(ctx context.Context) (release func(), err error)
}
