package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"adtrim/internal/adwindow"
	"adtrim/internal/config"
	"adtrim/internal/language"
	"adtrim/internal/logging"
)

type windowsReport struct {
	File            string            `json:"file"`
	Language        string            `json:"language,omitempty"`
	DurationSeconds float64           `json:"duration_seconds,omitempty"`
	AdSeconds       float64           `json:"ad_seconds"`
	Windows         []adwindow.Window `json:"windows"`
}

func newWindowsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "windows <file>",
		Short: "Print the ad and content windows detected in an episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve %s: %w", args[0], err)
			}
			t, err := newTrimmer(cfg, logger, nil)
			if err != nil {
				return err
			}
			windows, err := t.TimeWindows(cmd.Context(), path)
			if err != nil {
				return err
			}
			if windows == nil {
				windows = []adwindow.Window{}
			}

			report := windowsReport{
				File:      path,
				AdSeconds: adwindow.TotalDuration(windows, adwindow.TypeAd),
				Windows:   windows,
			}
			if probe, err := newEditor(cfg, logger).Probe(cmd.Context(), path); err != nil {
				logger.Debug("probe failed; omitting duration and language", logging.Error(err))
			} else {
				report.DurationSeconds = probe.DurationSeconds()
				report.Language = probe.Language()
			}

			if jsonOutput {
				return writeJSON(cmd, report)
			}
			renderWindows(cmd, report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderWindows(cmd *cobra.Command, report windowsReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "File: %s\n", report.File)
	if report.DurationSeconds > 0 {
		fmt.Fprintf(out, "Duration: %s\n", formatClock(report.DurationSeconds))
	}
	if report.Language != "" {
		fmt.Fprintf(out, "Language: %s\n", language.DisplayName(report.Language))
	}
	if len(report.Windows) == 0 {
		fmt.Fprintln(out, "No windows detected")
		return
	}

	rows := make([][]string, 0, len(report.Windows))
	for i, w := range report.Windows {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			formatClock(w.Start),
			formatClock(w.End),
			formatSeconds(w.Duration()),
			string(w.SegmentType),
		})
	}
	fmt.Fprint(out, renderTable(
		[]string{"#", "Start", "End", "Length", "Type"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft},
	))
	fmt.Fprintf(out, "\nAd time: %s across %d window(s)\n",
		formatSeconds(report.AdSeconds),
		len(adwindow.FilterType(report.Windows, adwindow.TypeAd)),
	)
}
