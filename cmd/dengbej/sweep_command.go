package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dengbej/internal/jobs"
	"dengbej/internal/staging"
)

type sweepOutput struct {
	Removed      []string `json:"removed"`
	RemovedBytes int64    `json:"removed_bytes"`
	Errors       int      `json:"errors"`
	JobsPruned   int64    `json:"jobs_pruned"`
}

func newSweepCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove aged scratch and output files once",
		Long: "Remove scratch files older than sweep.scratch_max_age_hours and output files older " +
			"than sweep.output_max_age_hours (0 keeps outputs). Safe to run while the server is up.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.cliLogger()

			var ledger staging.Ledger
			if cfg.Jobs.Enabled {
				store, err := jobs.Open(cfg)
				if err != nil {
					return fmt.Errorf("open job ledger: %w", err)
				}
				defer store.Close()
				ledger = store
			}

			summary := staging.Sweep(cmd.Context(), staging.ConfigFromApp(cfg), ledger, nil, logger)
			result := sweepOutput{
				Removed:      summary.Removed(),
				RemovedBytes: summary.Scratch.RemovedBytes + summary.Outputs.RemovedBytes,
				Errors:       summary.ErrorCount(),
				JobsPruned:   summary.JobsPruned,
			}
			if jsonOut {
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				for _, path := range result.Removed {
					fmt.Fprintf(out, "removed %s\n", path)
				}
				fmt.Fprintf(out, "Removed %d files (%s)", len(result.Removed), formatBytes(result.RemovedBytes))
				if result.JobsPruned > 0 {
					fmt.Fprintf(out, ", pruned %d jobs", result.JobsPruned)
				}
				fmt.Fprintln(out)
			}
			if result.Errors > 0 {
				return fmt.Errorf("%d paths could not be removed", result.Errors)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
