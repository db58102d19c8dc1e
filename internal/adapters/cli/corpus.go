package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write the sample five-document corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.services(cmd)
			if err != nil {
				return err
			}
			n, err := svc.Corpus.Seed(cmd.Context())
			if err != nil {
				return fmt.Errorf("seed failed: %w", err)
			}
			cmd.Printf("Wrote %d documents\n", n)
			return nil
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import [dir]",
		Short: "Build the document source from a directory of files",
		Long: `Extracts text from every .txt, .md, .pdf and .xlsx file under dir
and replaces the document source. Run reindex afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := os.Stat(args[0])
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			if !info.IsDir() {
				return fmt.Errorf("import failed: %s is not a directory", args[0])
			}
			svc, err := a.services(cmd)
			if err != nil {
				return err
			}
			n, err := svc.Corpus.Import(cmd.Context(), os.DirFS(args[0]))
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			cmd.Printf("Imported %d documents\n", n)
			return nil
		},
	}
}
