package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"adtrim/internal/accuracy"
	"adtrim/internal/config"
)

type evalRow struct {
	Fixture string           `json:"fixture"`
	Passed  bool             `json:"passed"`
	Error   string           `json:"error,omitempty"`
	Report  *accuracy.Report `json:"report,omitempty"`
}

type evalSummary struct {
	MinF1    float64   `json:"min_f1"`
	MinIoU   float64   `json:"min_iou"`
	Passed   int       `json:"passed"`
	Failed   int       `json:"failed"`
	Fixtures []evalRow `json:"fixtures"`
}

func newEvalCommand(ctx *commandContext) *cobra.Command {
	var workers int
	var minF1 float64
	var minIoU float64
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "eval [fixtures-dir]",
		Short: "Score the classifier against labelled fixtures",
		Long: "Classify every fixture transcript and compare the result with its ground\n" +
			"truth. Exits non-zero when any fixture misses the F1 or IoU threshold.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.LLM.APIKey) == "" {
				return errors.New("llm.api_key is required. Set OPENAI_API_KEY or OPENROUTER_API_KEY")
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			root := cfg.Evaluation.FixturesDir
			if len(args) == 1 {
				if root, err = config.ExpandPath(args[0]); err != nil {
					return fmt.Errorf("resolve %s: %w", args[0], err)
				}
			}
			dirs, err := accuracy.DiscoverFixtures(root)
			if err != nil {
				return err
			}
			if len(dirs) == 0 {
				return fmt.Errorf("no fixtures found under %s", root)
			}
			fixtures := make([]accuracy.Fixture, 0, len(dirs))
			for _, dir := range dirs {
				fx, err := accuracy.LoadFixture(dir)
				if err != nil {
					return err
				}
				fixtures = append(fixtures, fx)
			}

			th := accuracy.Thresholds{MinF1: cfg.Evaluation.MinF1, MinIoU: cfg.Evaluation.MinIoU}
			if cmd.Flags().Changed("min-f1") {
				th.MinF1 = minF1
			}
			if cmd.Flags().Changed("min-iou") {
				th.MinIoU = minIoU
			}
			if workers <= 0 {
				workers = cfg.Evaluation.Workers
			}

			results := accuracy.Evaluate(cmd.Context(), newLLMClassifier(cfg, logger), fixtures, workers)
			if err := cmd.Context().Err(); err != nil {
				return err
			}
			summary := summarizeEval(results, th)

			if jsonOutput {
				if err := writeJSON(cmd, summary); err != nil {
					return err
				}
			} else {
				renderEval(cmd, summary)
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d fixtures below threshold", summary.Failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Fixtures classified in parallel (default from config, 0 = CPU count)")
	cmd.Flags().Float64Var(&minF1, "min-f1", 0, "Minimum segment F1 to pass (default from config)")
	cmd.Flags().Float64Var(&minIoU, "min-iou", 0, "Minimum time IoU to pass (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func summarizeEval(results []accuracy.Result, th accuracy.Thresholds) evalSummary {
	summary := evalSummary{
		MinF1:    th.MinF1,
		MinIoU:   th.MinIoU,
		Fixtures: make([]evalRow, 0, len(results)),
	}
	for _, res := range results {
		row := evalRow{Fixture: res.Fixture, Passed: res.Passed(th)}
		if res.Err != nil {
			row.Error = res.Err.Error()
		} else {
			report := res.Report
			row.Report = &report
		}
		if row.Passed {
			summary.Passed++
		} else {
			summary.Failed++
		}
		summary.Fixtures = append(summary.Fixtures, row)
	}
	return summary
}

func renderEval(cmd *cobra.Command, summary evalSummary) {
	rows := make([][]string, 0, len(summary.Fixtures))
	for _, row := range summary.Fixtures {
		if row.Report == nil {
			rows = append(rows, []string{row.Fixture, "-", "-", "-", "-", "ERROR: " + row.Error})
			continue
		}
		result := "PASS"
		if !row.Passed {
			result = "FAIL"
		}
		rows = append(rows, []string{
			row.Fixture,
			formatPercent(row.Report.SegmentPrecision),
			formatPercent(row.Report.SegmentRecall),
			formatPercent(row.Report.SegmentF1),
			formatPercent(row.Report.TimeIoU),
			result,
		})
	}
	out := cmd.OutOrStdout()
	fmt.Fprint(out, renderTable(
		[]string{"Fixture", "Precision", "Recall", "F1", "IoU", "Result"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
	))
	fmt.Fprintf(out, "\n%d passed, %d failed (min F1 %s, min IoU %s)\n",
		summary.Passed, summary.Failed,
		formatPercent(summary.MinF1), formatPercent(summary.MinIoU),
	)
}
