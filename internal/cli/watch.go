package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/avelinab/notodon/internal/watch"
)

var watchInterval string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the source and run the workflow when content changes",
	RunE:  watchAction,
}

func init() {
	watchCmd.Flags().StringVar(&watchInterval, "interval", "", "poll interval (e.g. 5m), overrides config")
	rootCmd.AddCommand(watchCmd)
}

func watchAction(cmd *cobra.Command, _ []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	interval := a.cfg.Watch.Interval.Duration
	if watchInterval != "" {
		interval, err = time.ParseDuration(watchInterval)
		if err != nil {
			return fmt.Errorf("parse --interval: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := watch.New(a.src, a.pipeline, a.store, interval, a.log)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
