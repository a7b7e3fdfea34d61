package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"adtrim/internal/accuracy"
)

const scoreTranscript = `{
  "language": "english",
  "duration": 40,
  "segments": [
    {"start": 0, "end": 10, "text": "Welcome back to the show."},
    {"start": 10, "end": 20, "text": "This episode is brought to you by a sponsor."},
    {"start": 20, "end": 30, "text": "Use code SHOW for ten percent off."},
    {"start": 30, "end": 40, "text": "Now back to our guest."}
  ]
}`

func writeScoreInputs(t *testing.T, predicted string) (string, string, string) {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"transcription.json": scoreTranscript,
		"predicted.json":     predicted,
		"ground_truth.yaml":  "- segment_type: content\n  segment_index: 0\n- segment_type: ad\n  segment_index: 1\n- segment_type: content\n  segment_index: 3\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return filepath.Join(dir, "predicted.json"), filepath.Join(dir, "ground_truth.yaml"), filepath.Join(dir, "transcription.json")
}

func TestScoreCommandPerfectPrediction(t *testing.T) {
	predicted, truth, tr := writeScoreInputs(t,
		`[{"segment_type":"content","segment_index":0},{"segment_type":"ad","segment_index":1},{"segment_type":"content","segment_index":3}]`)

	out, _, err := runCLI(t, []string{"score", "--predicted", predicted, "--ground-truth", truth, "--transcript", tr, "--json"}, "")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	var report accuracy.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if report.SegmentF1 != 1 || report.TimeIoU != 1 {
		t.Fatalf("expected perfect scores, got %+v", report)
	}
}

func TestScoreCommandTableShowsMisses(t *testing.T) {
	predicted, truth, tr := writeScoreInputs(t,
		`[{"segment_type":"content","segment_index":0},{"segment_type":"ad","segment_index":2},{"segment_type":"content","segment_index":3}]`)

	out, _, err := runCLI(t, []string{"score", "--predicted", predicted, "--ground-truth", truth, "--transcript", tr}, "")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	requireContains(t, out, "Segment F1")
	requireContains(t, out, "66.7%")
	requireContains(t, out, "False negative segments: 1")
}

func TestScoreCommandRequiresAllInputs(t *testing.T) {
	if _, _, err := runCLI(t, []string{"score", "--predicted", "x.json"}, ""); err == nil {
		t.Fatal("expected error when inputs are missing")
	}
}
