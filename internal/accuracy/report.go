package accuracy

// Report holds the metrics from one predicted-versus-ground-truth comparison.
type Report struct {
	SegmentPrecision float64 `json:"segment_precision"`
	SegmentRecall    float64 `json:"segment_recall"`
	SegmentF1        float64 `json:"segment_f1"`
	TimePrecision    float64 `json:"time_precision"`
	TimeRecall       float64 `json:"time_recall"`
	TimeF1           float64 `json:"time_f1"`
	TimeIoU          float64 `json:"time_iou"`

	FalsePositiveSegments []int `json:"false_positive_segments"`
	FalseNegativeSegments []int `json:"false_negative_segments"`
}

// Thresholds are the minimum scores an evaluation must reach to pass.
type Thresholds struct {
	MinF1  float64
	MinIoU float64
}

// Passes reports whether r clears both thresholds.
func (r Report) Passes(th Thresholds) bool {
	return r.SegmentF1 >= th.MinF1 && r.TimeIoU >= th.MinIoU
}
