package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"adrescue/internal/config"
	"adrescue/internal/logging"
	"adrescue/internal/preflight"
	"adrescue/internal/queue"
	"adrescue/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process the current disapproval feed once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				logger, err := logging.NewFromConfig(cfg)
				if err != nil {
					return fmt.Errorf("init logger: %w", err)
				}

				if !skipPreflight {
					results := preflight.RunAll(cmd.Context(), cfg)
					if !preflight.Passed(results) {
						printPreflight(cmd.OutOrStdout(), results)
						return errors.New("preflight checks failed")
					}
				}

				orchestrator, err := buildOrchestrator(cfg, store, logger)
				if err != nil {
					return err
				}
				summary, err := orchestrator.RunBatch(cmd.Context())
				if err != nil {
					return err
				}
				printSummary(cmd.OutOrStdout(), summary)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip readiness checks before the batch")
	return cmd
}

func printSummary(out io.Writer, summary workflow.Summary) {
	if summary.Total == 0 {
		fmt.Fprintln(out, "No disapproved creatives found")
		return
	}
	fmt.Fprintf(out, "Processed %d creatives: %d recovered, %d failed, %d skipped (%s)\n",
		summary.Total, summary.Succeeded, summary.Failed, summary.Skipped,
		summary.Duration.Round(time.Second))
}

func printPreflight(out io.Writer, results []preflight.Result) {
	colorize := shouldColorize(out)
	for _, result := range results {
		kind := statusOK
		if !result.Passed {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}
}
