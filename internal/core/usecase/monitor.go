package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/viant/vec/search"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
	"github.com/kirillkom/self-healing-rag/internal/core/ports"
)

var (
	DefaultSchemaKeys   = []string{"doc_id", "title", "chunk"}
	DefaultProbeQueries = []string{"What is photosynthesis?", "Explain neural networks", "What is blockchain?"}
)

const (
	DefaultSampleN      = 500
	DefaultSimThreshold = 0.93
	DefaultProbeTopK    = 5
)

type MonitorSettings struct {
	SchemaKeys   []string
	SampleN      int
	SimThreshold float64
	ProbeQueries []string
	TopK         int
}

func (s MonitorSettings) normalize() MonitorSettings {
	if len(s.SchemaKeys) == 0 {
		s.SchemaKeys = DefaultSchemaKeys
	}
	if s.SampleN <= 0 {
		s.SampleN = DefaultSampleN
	}
	if s.SimThreshold <= 0 {
		s.SimThreshold = DefaultSimThreshold
	}
	if len(s.ProbeQueries) == 0 {
		s.ProbeQueries = DefaultProbeQueries
	}
	if s.TopK <= 0 {
		s.TopK = DefaultProbeTopK
	}
	return s
}

// CorpusMonitorUseCase inspects the persisted index and metadata for schema
// gaps, near-duplicate vectors and weak retrieval on probe queries.
type CorpusMonitorUseCase struct {
	embedder  ports.Embedder
	factory   ports.IndexFactory
	metadata  ports.MetadataStore
	reports   ports.ReportStore
	generator ports.AnswerGenerator
	files     IndexFiles
	settings  MonitorSettings
	observer  ports.MonitorObserver
	now       func() time.Time
}

func NewCorpusMonitorUseCase(
	embedder ports.Embedder,
	factory ports.IndexFactory,
	metadata ports.MetadataStore,
	reports ports.ReportStore,
	generator ports.AnswerGenerator,
	files IndexFiles,
	settings MonitorSettings,
) *CorpusMonitorUseCase {
	return &CorpusMonitorUseCase{
		embedder:  embedder,
		factory:   factory,
		metadata:  metadata,
		reports:   reports,
		generator: generator,
		files:     files,
		settings:  settings.normalize(),
		now:       time.Now,
	}
}

func (uc *CorpusMonitorUseCase) WithObserver(observer ports.MonitorObserver) *CorpusMonitorUseCase {
	uc.observer = observer
	return uc
}

// CheckSchema lists every expected key missing from a metadata record.
func (uc *CorpusMonitorUseCase) CheckSchema(ctx context.Context, expectedKeys []string) ([]domain.SchemaProblem, error) {
	records, err := uc.metadata.LoadRawMetadata(ctx, uc.files.MetaPath)
	if err != nil {
		return nil, fmt.Errorf("load metadata: %w", err)
	}
	problems := make([]domain.SchemaProblem, 0)
	for idx, record := range records {
		for _, key := range expectedKeys {
			if _, ok := record[key]; !ok {
				problems = append(problems, domain.SchemaProblem{Index: idx, MissingKey: key})
			}
		}
	}
	return problems, nil
}

// DetectDuplicateEmbeddings samples up to sampleN evenly spaced vectors and
// reports every pair whose cosine similarity exceeds threshold.
func (uc *CorpusMonitorUseCase) DetectDuplicateEmbeddings(ctx context.Context, sampleN int, threshold float64) ([]domain.DuplicatePair, error) {
	index, err := uc.factory.LoadIndex(uc.files.IndexPath)
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	ids := sampleIDs(index.Len(), sampleN)
	pairs := make([]domain.DuplicatePair, 0)
	if len(ids) < 2 {
		return pairs, nil
	}

	vectors := make([]search.Float32s, len(ids))
	magnitudes := make([]float32, len(ids))
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := index.Reconstruct(id)
		if err != nil {
			return nil, fmt.Errorf("reconstruct vector %d: %w", id, err)
		}
		vectors[i] = search.Float32s(vec)
		magnitudes[i] = vectors[i].Magnitude()
	}

	for i := range vectors {
		for j := i + 1; j < len(vectors); j++ {
			if magnitudes[i] == 0 || magnitudes[j] == 0 {
				continue
			}
			sim := 1 - float64(vectors[i].CosineDistance(vectors[j]))
			if sim > threshold {
				pairs = append(pairs, domain.DuplicatePair{I: ids[i], J: ids[j], Similarity: sim})
			}
		}
	}
	return pairs, nil
}

// RetrievalHealthCheck runs each probe query against the persisted index and
// records the mean distance and result count.
func (uc *CorpusMonitorUseCase) RetrievalHealthCheck(ctx context.Context, queries []string, topK int) (map[string]domain.ProbeHealth, error) {
	retriever := NewRetriever(uc.embedder, uc.factory, uc.metadata, uc.files.IndexPath, uc.files.MetaPath)
	if err := retriever.Load(ctx); err != nil {
		return nil, err
	}
	health := make(map[string]domain.ProbeHealth, len(queries))
	for _, query := range queries {
		results, err := retriever.Search(ctx, query, topK)
		if err != nil {
			return nil, fmt.Errorf("probe %q: %w", query, err)
		}
		var sum float64
		for _, result := range results {
			sum += result.Score
		}
		health[query] = domain.ProbeHealth{
			AvgScore:    sum / float64(max(1, len(results))),
			ResultCount: len(results),
		}
	}
	return health, nil
}

// RunSample composes the three checks, persists the report over the previous
// one and returns it.
func (uc *CorpusMonitorUseCase) RunSample(ctx context.Context) (*domain.MonitorReport, error) {
	schema, err := uc.CheckSchema(ctx, uc.settings.SchemaKeys)
	if err != nil {
		return nil, fmt.Errorf("check schema: %w", err)
	}
	duplicates, err := uc.DetectDuplicateEmbeddings(ctx, uc.settings.SampleN, uc.settings.SimThreshold)
	if err != nil {
		return nil, fmt.Errorf("detect duplicates: %w", err)
	}
	health, err := uc.RetrievalHealthCheck(ctx, uc.settings.ProbeQueries, uc.settings.TopK)
	if err != nil {
		return nil, fmt.Errorf("check retrieval health: %w", err)
	}

	report := &domain.MonitorReport{
		Timestamp:       uc.now().UTC().Format(time.RFC3339),
		SchemaProblems:  schema,
		DuplicatePairs:  duplicates,
		RetrievalHealth: health,
	}
	if err := uc.reports.SaveReport(ctx, report); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}
	if uc.observer != nil {
		uc.observer.ObserveReport(report)
	}
	slog.Info("monitor_report_written",
		"schema_problems", len(schema),
		"duplicate_pairs", len(duplicates),
		"probes", len(health),
	)
	return report, nil
}

func (uc *CorpusMonitorUseCase) LatestReport(ctx context.Context) (*domain.MonitorReport, error) {
	return uc.reports.LatestReport(ctx)
}

// RunPeriodic samples once per interval until ctx is done. Failed samples are
// logged and the loop keeps going.
func (uc *CorpusMonitorUseCase) RunPeriodic(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return domain.WrapError(domain.ErrInvalidInput, "run periodic monitor", fmt.Errorf("interval must be positive, got %s", interval))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := uc.RunSample(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Warn("monitor_sample_failed", "error", err)
			}
		}
	}
}

// sampleIDs picks n ids spread evenly over [0, total), endpoints included.
func sampleIDs(total, n int) []int64 {
	n = min(n, total)
	if n < 2 {
		return nil
	}
	ids := make([]int64, n)
	for i := range n {
		ids[i] = int64(i * (total - 1) / (n - 1))
	}
	return ids
}
