package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"adtrim/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var episode string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent adtrim log output",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.LogFilePath()
			if path == "" {
				return fmt.Errorf("no log file configured (set paths.log_dir)")
			}

			out := cmd.OutOrStdout()
			emit := func(batch []string) error {
				_, err := fmt.Fprintln(out, strings.Join(batch, "\n"))
				return err
			}

			res, err := logs.Tail(cmd.Context(), path, logs.TailOptions{Offset: -1, Limit: lines, Match: episode})
			if err != nil {
				return err
			}
			if len(res.Lines) > 0 {
				if err := emit(res.Lines); err != nil {
					return err
				}
			} else if !follow {
				fmt.Fprintf(out, "No log lines in %s\n", path)
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, res.Offset, episode, emit)
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().StringVarP(&episode, "episode", "e", "", "Only show lines mentioning this text, such as an episode file name")
	return cmd
}
