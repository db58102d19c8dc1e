package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
	"github.com/kirillkom/self-healing-rag/internal/core/ports"
)

// BuildIndex chunks every document, embeds all chunks in one batch and adds
// them to a fresh index in chunk order. Position i of the returned metadata
// is vector id i.
func BuildIndex(
	ctx context.Context,
	chunker ports.Chunker,
	embedder ports.Embedder,
	factory ports.IndexFactory,
	docs []domain.Document,
) (ports.VectorIndex, []domain.Chunk, error) {
	metadata := make([]domain.Chunk, 0)
	texts := make([]string, 0)
	for _, doc := range docs {
		for chunk := range chunker.Chunks(doc) {
			metadata = append(metadata, chunk)
			texts = append(texts, chunk.Text)
		}
	}
	if len(texts) == 0 {
		return nil, nil, domain.WrapError(domain.ErrBuild, "build index", errors.New("corpus produced zero chunks"))
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, nil, domain.WrapError(
			domain.ErrBuild,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(texts)),
		)
	}
	dim := len(vectors[0])
	for i, vec := range vectors {
		if len(vec) == 0 || len(vec) != dim {
			return nil, nil, domain.WrapError(
				domain.ErrBuild,
				"embed chunks",
				fmt.Errorf("vector %d has dimension %d, expected %d", i, len(vec), dim),
			)
		}
	}

	index, err := factory.NewIndex(dim)
	if err != nil {
		return nil, nil, domain.WrapError(domain.ErrBuild, "create index", err)
	}
	if err := index.Add(vectors); err != nil {
		return nil, nil, domain.WrapError(domain.ErrBuild, "add vectors", err)
	}
	if index.Len() != len(metadata) {
		return nil, nil, domain.WrapError(
			domain.ErrIndexMismatch,
			"build index",
			fmt.Errorf("index has %d vectors, metadata has %d records", index.Len(), len(metadata)),
		)
	}
	return index, metadata, nil
}

type snapshot struct {
	index    ports.VectorIndex
	metadata []domain.Chunk
}

// Retriever answers similarity queries against one in-memory snapshot. Reloads
// swap the snapshot atomically; searches already running keep the old one.
type Retriever struct {
	embedder  ports.Embedder
	factory   ports.IndexFactory
	store     ports.MetadataStore
	indexPath string
	metaPath  string

	current atomic.Pointer[snapshot]
	lastTag atomic.Pointer[string]
}

// FileChangeTag marks reloads triggered by file changes rather than by a
// published version. Such reloads are never skipped.
const FileChangeTag = "fs"

func NewRetriever(
	embedder ports.Embedder,
	factory ports.IndexFactory,
	store ports.MetadataStore,
	indexPath string,
	metaPath string,
) *Retriever {
	return &Retriever{
		embedder:  embedder,
		factory:   factory,
		store:     store,
		indexPath: indexPath,
		metaPath:  metaPath,
	}
}

// Load reads the persisted index and metadata and installs them.
func (r *Retriever) Load(ctx context.Context) error {
	index, err := r.factory.LoadIndex(r.indexPath)
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}
	metadata, err := r.store.LoadMetadata(ctx, r.metaPath)
	if err != nil {
		return fmt.Errorf("load metadata: %w", err)
	}
	return r.Install(index, metadata)
}

// Install swaps in an index built in memory.
func (r *Retriever) Install(index ports.VectorIndex, metadata []domain.Chunk) error {
	if index.Len() != len(metadata) {
		return domain.WrapError(
			domain.ErrIndexMismatch,
			"install index",
			fmt.Errorf("index has %d vectors, metadata has %d records", index.Len(), len(metadata)),
		)
	}
	r.current.Store(&snapshot{index: index, metadata: metadata})
	return nil
}

// IndexUpdated reloads the snapshot after a reindex or rollback. A tag equal
// to the one last installed is skipped: a process that publishes its own
// changes on the bus sees each tag twice.
func (r *Retriever) IndexUpdated(ctx context.Context, tag string) error {
	if tag != "" && tag != FileChangeTag {
		if last := r.lastTag.Load(); last != nil && *last == tag {
			slog.Debug("index_reload_skipped", "tag", tag)
			return nil
		}
	}
	if err := r.Load(ctx); err != nil {
		return err
	}
	r.lastTag.Store(&tag)
	slog.Info("index_reloaded", "tag", tag, "vectors", r.Stats().Vectors)
	return nil
}

func (r *Retriever) Stats() domain.IndexStats {
	snap := r.current.Load()
	if snap == nil {
		return domain.IndexStats{}
	}
	return domain.IndexStats{
		Loaded:    true,
		Vectors:   snap.index.Len(),
		Dimension: snap.index.Dimension(),
	}
}

// Search returns at most topK results ordered by ascending distance. An empty
// or missing index yields an empty slice.
func (r *Retriever) Search(ctx context.Context, query string, topK int) ([]domain.RetrievalResult, error) {
	if topK <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", fmt.Errorf("top_k must be positive, got %d", topK))
	}
	snap := r.current.Load()
	if snap == nil || snap.index.Len() == 0 {
		return []domain.RetrievalResult{}, nil
	}
	k := min(topK, snap.index.Len())

	queryVector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	ids, distances, err := snap.index.Search(queryVector, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	results := make([]domain.RetrievalResult, 0, len(ids))
	for i, id := range ids {
		if id < 0 || id >= int64(len(snap.metadata)) {
			continue
		}
		chunk := snap.metadata[id]
		results = append(results, domain.RetrievalResult{
			VectorID: id,
			Score:    float64(distances[i]),
			Chunk:    chunk.Text,
			Title:    chunk.Title,
			DocID:    chunk.DocID,
		})
	}
	return results, nil
}
