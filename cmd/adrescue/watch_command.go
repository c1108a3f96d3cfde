package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"adrescue/internal/config"
	"adrescue/internal/daemon"
	"adrescue/internal/logging"
	"adrescue/internal/queue"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Process the feed continuously until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				logger, err := logging.NewFromConfig(cfg)
				if err != nil {
					return fmt.Errorf("init logger: %w", err)
				}

				orchestrator, err := buildOrchestrator(cfg, store, logger)
				if err != nil {
					return err
				}
				d, err := daemon.New(cfg, orchestrator, logger)
				if err != nil {
					return err
				}

				signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer cancel()

				fmt.Fprintf(cmd.OutOrStdout(), "Watching feed every %ds (lock %s)\n",
					cfg.Workflow.WatchIntervalSeconds, d.LockPath())
				return d.Run(signalCtx)
			})
		},
	}
}
