// Package cli is the ragctl management command line.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
	"github.com/kirillkom/self-healing-rag/internal/core/ports"
)

// Indexer rebuilds the index in the foreground and manages its versions.
type Indexer interface {
	Reindex(ctx context.Context) (domain.IndexVersion, int, error)
	ListVersions(ctx context.Context) ([]domain.IndexVersion, error)
	Rollback(ctx context.Context, tag string) (bool, error)
}

// Corpus writes the document source.
type Corpus interface {
	Seed(ctx context.Context) (int, error)
	Import(ctx context.Context, fsys fs.FS) (int, error)
}

type Services struct {
	Indexer  Indexer
	Monitor  ports.CorpusMonitor
	Corpus   Corpus
	Answerer ports.QuestionAnswerer
}

// Provider builds the services on first use, so `--help` works without any
// backing store configured.
type Provider func(ctx context.Context) (*Services, error)

type app struct {
	provide Provider
	cached  *Services
}

func (a *app) services(cmd *cobra.Command) (*Services, error) {
	if a.cached != nil {
		return a.cached, nil
	}
	if a.provide == nil {
		return nil, errors.New("services not configured")
	}
	svc, err := a.provide(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("init services: %w", err)
	}
	a.cached = svc
	return svc, nil
}

func NewRootCommand(provide Provider) *cobra.Command {
	a := &app{provide: provide}

	root := &cobra.Command{
		Use:   "ragctl",
		Short: "Manage the self-healing RAG index",
		Long: `ragctl rebuilds and versions the vector index, rolls it back,
runs the corpus monitor and asks questions against the local index.`,
		SilenceUsage: true,
	}
	root.AddCommand(
		newReindexCmd(a),
		newVersionsCmd(a),
		newRollbackCmd(a),
		newMonitorCmd(a),
		newAdviceCmd(a),
		newSeedCmd(a),
		newImportCmd(a),
		newAskCmd(a),
	)
	return root
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
