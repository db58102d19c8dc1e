package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMonitorCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Run one monitor sample and print the report",
		Long: `Checks metadata schema, samples embeddings for near duplicates and
runs the probe queries, then overwrites the stored report.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.services(cmd)
			if err != nil {
				return err
			}
			report, err := svc.Monitor.RunSample(cmd.Context())
			if err != nil {
				return fmt.Errorf("monitor failed: %w", err)
			}
			return printJSON(cmd, report)
		},
	}
}

func newAdviceCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "advice",
		Short: "Summarise the latest monitor report with suggested fixes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.services(cmd)
			if err != nil {
				return err
			}
			advice, err := svc.Monitor.Advise(cmd.Context(), nil)
			if err != nil {
				return fmt.Errorf("advice failed: %w", err)
			}
			if asJSON {
				return printJSON(cmd, advice)
			}
			cmd.Println(advice.Summary)
			for i, fix := range advice.Fixes {
				cmd.Printf("  %d. %s\n", i+1, fix)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output advice as JSON")
	return cmd
}
