package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"adtrim/internal/config"
	"adtrim/internal/deps"
	"adtrim/internal/ledger"
	"adtrim/internal/logging"
	"adtrim/internal/notifications"
	"adtrim/internal/preflight"
	"adtrim/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var intervalSeconds int
	var once bool

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Process new episodes in a directory until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				dir, err := config.ExpandPath(args[0])
				if err != nil {
					return fmt.Errorf("resolve %s: %w", args[0], err)
				}
				cfg.Watch.Directory = dir
			}
			if intervalSeconds > 0 {
				cfg.Watch.IntervalSeconds = intervalSeconds
			}
			if err := checkWatchReady(cfg); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			return ctx.withLedger(func(store *ledger.Store) error {
				t, err := newTrimmer(cfg, logger, store)
				if err != nil {
					return err
				}
				w, err := watch.New(t, watch.Options{
					Directory:  cfg.Watch.Directory,
					Interval:   time.Duration(cfg.Watch.IntervalSeconds) * time.Second,
					Extensions: cfg.Watch.Extensions,
					LockPath:   cfg.LockPath(),
					Resetter:   store,
					Notifier:   notifications.NewService(cfg),
					Logger:     logger,
				})
				if err != nil {
					return err
				}
				if once {
					summary, err := w.RunOnce(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Found %d, processed %d, skipped %d, failed %d\n",
						summary.Found, summary.Processed, summary.Skipped, summary.Failed)
					return nil
				}
				logger.Info("watching directory",
					logging.String("directory", cfg.Watch.Directory),
					logging.Int("interval_seconds", cfg.Watch.IntervalSeconds),
					logging.String("extensions", strings.Join(cfg.Watch.Extensions, ",")),
				)
				err = w.Run(cmd.Context())
				if errors.Is(err, watch.ErrAlreadyRunning) {
					return fmt.Errorf("%w (lock %s)", err, cfg.LockPath())
				}
				return err
			})
		},
	}

	cmd.Flags().IntVar(&intervalSeconds, "interval", 0, "Seconds to sleep between passes (default from config)")
	cmd.Flags().BoolVar(&once, "once", false, "Run a single pass and exit")
	return cmd
}

// checkWatchReady fails fast when a long-running watcher could never succeed.
func checkWatchReady(cfg *config.Config) error {
	if missing := deps.Missing(preflight.CheckSystemDeps(cfg)); len(missing) > 0 {
		return fmt.Errorf("missing required dependencies: %s", deps.Summary(missing))
	}
	if failed := preflight.Failed(preflight.RunLocal(cfg)); len(failed) > 0 {
		details := make([]string, 0, len(failed))
		for _, r := range failed {
			details = append(details, r.Name+": "+r.Detail)
		}
		return fmt.Errorf("preflight failed: %s", strings.Join(details, "; "))
	}
	return nil
}
