package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"adrescue/internal/config"
	"adrescue/internal/preflight"
	"adrescue/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show readiness checks and queue summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				for _, line := range renderSectionHeader("Readiness", colorize) {
					fmt.Fprintln(out, line)
				}
				printPreflight(out, preflight.RunAll(cmd.Context(), cfg))

				counts, err := store.CountsByStatus(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out)
				for _, line := range renderSectionHeader("Queue", colorize) {
					fmt.Fprintln(out, line)
				}
				if counts.Total == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Status", "Count"},
					countRows(counts),
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func countRows(counts queue.Counts) [][]string {
	rows := [][]string{}
	add := func(label string, n int) {
		if n > 0 {
			rows = append(rows, []string{label, strconv.Itoa(n)})
		}
	}
	add("Pending", counts.Pending)
	add("Processing", counts.Processing)
	add("Completed", counts.Completed)
	add("Failed", counts.Failed)
	add("Review", counts.Review)
	rows = append(rows, []string{"Total", strconv.Itoa(counts.Total)})
	return rows
}
