package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newReindexCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the index from the document source",
		Long: `Chunks and embeds every document, replaces the live index and
metadata files, and saves the result as a new version.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.services(cmd)
			if err != nil {
				return err
			}
			version, chunks, err := svc.Indexer.Reindex(cmd.Context())
			if err != nil {
				return fmt.Errorf("reindex failed: %w", err)
			}
			if asJSON {
				return printJSON(cmd, map[string]any{"version": version, "chunks": chunks})
			}
			cmd.Printf("Index rebuilt: %d chunks, saved as version %s\n", chunks, version.Tag)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output result as JSON")
	return cmd
}

func newVersionsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "versions",
		Aliases: []string{"history"},
		Short:   "List saved index versions, oldest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.services(cmd)
			if err != nil {
				return err
			}
			versions, err := svc.Indexer.ListVersions(cmd.Context())
			if err != nil {
				return fmt.Errorf("list versions failed: %w", err)
			}
			if asJSON {
				return printJSON(cmd, map[string]any{"versions": versions})
			}
			if len(versions) == 0 {
				cmd.Println("No versions saved.")
				return nil
			}
			for _, v := range versions {
				state := "complete"
				if !v.Complete {
					state = "incomplete"
				}
				cmd.Printf("  %s  %s  %s\n", v.Tag, v.CreatedAt.Format(time.RFC3339), state)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output versions as JSON")
	return cmd
}

func newRollbackCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback [tag]",
		Short: "Restore a saved version over the live index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.services(cmd)
			if err != nil {
				return err
			}
			ok, err := svc.Indexer.Rollback(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}
			if !ok {
				return fmt.Errorf("version %s not found", args[0])
			}
			cmd.Printf("Rolled back to %s\n", args[0])
			return nil
		},
	}
}
