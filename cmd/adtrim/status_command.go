package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"adtrim/internal/deps"
	"adtrim/internal/ledger"
	"adtrim/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check dependencies, configuration and ledger state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			var lines []string
			problems := 0

			lines = append(lines, renderSectionHeader("Configuration", colorize)...)
			configPath := ctx.configPath
			if configPath == "" {
				configPath = "(defaults)"
			}
			lines = append(lines, renderStatusLine("Config file", statusInfo, configPath, colorize))
			lines = append(lines, renderStatusLine("Transcription", statusInfo, cfg.Transcription.Provider, colorize))
			credErr := cfg.RequireCredentials()
			lines = append(lines, renderStatusLine("Credentials", credentialKind(credErr), credentialDetail(credErr), colorize))
			if credErr != nil {
				problems++
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
			statuses := preflight.CheckSystemDeps(cfg)
			for _, status := range statuses {
				lines = append(lines, dependencyLine(status, colorize))
			}
			problems += len(deps.Missing(statuses))

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Preflight", colorize)...)
			var results []preflight.Result
			if offline {
				results = preflight.RunLocal(cfg)
			} else {
				results = preflight.RunAll(cmd.Context(), cfg)
			}
			for _, result := range results {
				lines = append(lines, preflightLine(result, colorize))
			}
			problems += len(preflight.Failed(results))

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Ledger", colorize)...)
			if err := ctx.withLedger(func(store *ledger.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				lines = append(lines, renderStatusLine("Database", statusInfo, store.Path(), colorize))
				parts := make([]string, 0, len(stats))
				for _, status := range ledger.AllStatuses() {
					parts = append(parts, fmt.Sprintf("%d %s", stats[status], status))
				}
				lines = append(lines, renderStatusLine("Episodes", statusInfo, strings.Join(parts, ", "), colorize))
				if n := stats[ledger.StatusReview]; n > 0 {
					lines = append(lines, renderStatusLine("Needs review", statusWarn, strconv.Itoa(n)+" episode(s); see adtrim history -s review", colorize))
				}
				return nil
			}); err != nil {
				lines = append(lines, renderStatusLine("Database", statusError, err.Error(), colorize))
				problems++
			}

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			if problems > 0 {
				return fmt.Errorf("%d problem(s) found", problems)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the LLM reachability check")
	return cmd
}

func credentialKind(err error) statusKind {
	if err != nil {
		return statusError
	}
	return statusOK
}

func credentialDetail(err error) string {
	if err != nil {
		return err.Error()
	}
	return "API keys configured"
}
