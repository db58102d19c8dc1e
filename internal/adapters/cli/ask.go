package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd(a *app) *cobra.Command {
	var (
		topK   int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question against the local index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.services(cmd)
			if err != nil {
				return err
			}
			record, err := svc.Answerer.Ask(cmd.Context(), strings.Join(args, " "), topK)
			if err != nil {
				return fmt.Errorf("ask failed: %w", err)
			}
			if asJSON {
				return printJSON(cmd, record)
			}
			cmd.Println(record.FinalAnswer)
			if record.Healed && record.HealReason != nil {
				cmd.Printf("\n(corrected: %s)\n", *record.HealReason)
			}
			cmd.Println()
			cmd.Println("Sources:")
			for _, r := range record.Retrieved {
				cmd.Printf("  - %s (%.4f)\n", r.Title, r.Score)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of chunks to retrieve (0 uses the configured default)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output the full answer record as JSON")
	return cmd
}
