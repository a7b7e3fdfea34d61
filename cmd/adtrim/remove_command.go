package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"adtrim/internal/config"
	"adtrim/internal/ledger"
	"adtrim/internal/trimmer"
)

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	var force bool
	var output string

	cmd := &cobra.Command{
		Use:   "remove <file>...",
		Short: "Replace advertising in one or more episodes with the notification clip",
		Long: "Transcribe, classify and re-render each episode in place. Episodes the\n" +
			"ledger already lists as processed are skipped unless --force is given.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(output) != "" && len(args) > 1 {
				return errors.New("--output can only be used with a single episode")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
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
				var failed int
				for _, arg := range args {
					path, err := config.ExpandPath(arg)
					if err != nil {
						return fmt.Errorf("resolve %s: %w", arg, err)
					}
					outcome, err := t.Process(cmd.Context(), path, trimmer.Options{Force: force, Output: output})
					if err != nil {
						if cmd.Context().Err() != nil {
							return cmd.Context().Err()
						}
						failed++
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
						continue
					}
					printOutcome(cmd, outcome)
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d episodes failed", failed, len(args))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Reprocess episodes already recorded in the ledger")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the trimmed episode here instead of replacing the source")
	return cmd
}

func printOutcome(cmd *cobra.Command, outcome trimmer.Outcome) {
	out := cmd.OutOrStdout()
	if outcome.Skipped {
		fmt.Fprintf(out, "Skipped %s (%s)\n", outcome.Path, outcome.SkipReason)
		return
	}
	fmt.Fprintf(out, "Trimmed %s: %d part(s), %s of ads replaced in %s\n",
		outcome.Output,
		len(outcome.Parts),
		formatSeconds(outcome.AdSeconds()),
		outcome.Elapsed.Round(100*time.Millisecond),
	)
}
