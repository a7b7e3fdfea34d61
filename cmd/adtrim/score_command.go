package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"adtrim/internal/accuracy"
	"adtrim/internal/transcript"
)

func newScoreCommand() *cobra.Command {
	var predictedPath string
	var groundTruthPath string
	var transcriptPath string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:         "score",
		Short:       "Compare predicted annotations with ground truth offline",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(predictedPath) == "" || strings.TrimSpace(groundTruthPath) == "" || strings.TrimSpace(transcriptPath) == "" {
				return errors.New("--predicted, --ground-truth and --transcript are required")
			}
			predicted, err := accuracy.LoadGroundTruth(predictedPath)
			if err != nil {
				return fmt.Errorf("load predicted annotations: %w", err)
			}
			groundTruth, err := accuracy.LoadGroundTruth(groundTruthPath)
			if err != nil {
				return fmt.Errorf("load ground truth: %w", err)
			}
			tr, err := transcript.Load(transcriptPath)
			if err != nil {
				return err
			}
			report, err := accuracy.Score(predicted, groundTruth, tr)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, report)
			}
			renderScore(cmd, report)
			return nil
		},
	}

	cmd.Flags().StringVar(&predictedPath, "predicted", "", "Predicted annotations (JSON or YAML)")
	cmd.Flags().StringVar(&groundTruthPath, "ground-truth", "", "Ground-truth annotations (JSON or YAML)")
	cmd.Flags().StringVar(&transcriptPath, "transcript", "", "Transcript the annotations refer to")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderScore(cmd *cobra.Command, report accuracy.Report) {
	rows := [][]string{
		{"Segment precision", formatPercent(report.SegmentPrecision)},
		{"Segment recall", formatPercent(report.SegmentRecall)},
		{"Segment F1", formatPercent(report.SegmentF1)},
		{"Time precision", formatPercent(report.TimePrecision)},
		{"Time recall", formatPercent(report.TimeRecall)},
		{"Time F1", formatPercent(report.TimeF1)},
		{"Time IoU", formatPercent(report.TimeIoU)},
	}
	out := cmd.OutOrStdout()
	fmt.Fprint(out, renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
	fmt.Fprintln(out)
	if len(report.FalsePositiveSegments) > 0 {
		fmt.Fprintf(out, "False positive segments: %s\n", joinInts(report.FalsePositiveSegments))
	}
	if len(report.FalseNegativeSegments) > 0 {
		fmt.Fprintf(out, "False negative segments: %s\n", joinInts(report.FalseNegativeSegments))
	}
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
