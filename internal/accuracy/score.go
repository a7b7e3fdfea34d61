package accuracy

import (
	"fmt"

	"adtrim/internal/adwindow"
)

// Score compares predicted annotations against ground truth over one transcript.
func Score(predicted, groundTruth []adwindow.Annotation, timeline adwindow.Timeline) (Report, error) {
	total := timeline.Len()
	predLabels, err := adwindow.Expand(predicted, total)
	if err != nil {
		return Report{}, fmt.Errorf("expand predicted: %w", err)
	}
	gtLabels, err := adwindow.Expand(groundTruth, total)
	if err != nil {
		return Report{}, fmt.Errorf("expand ground truth: %w", err)
	}

	report := Report{
		FalsePositiveSegments: []int{},
		FalseNegativeSegments: []int{},
	}
	var truePos, falsePos, falseNeg int
	for i := 0; i < total; i++ {
		predAd := predLabels[i] == adwindow.TypeAd
		gtAd := gtLabels[i] == adwindow.TypeAd
		switch {
		case predAd && gtAd:
			truePos++
		case predAd:
			falsePos++
			report.FalsePositiveSegments = append(report.FalsePositiveSegments, i)
		case gtAd:
			falseNeg++
			report.FalseNegativeSegments = append(report.FalseNegativeSegments, i)
		}
	}
	report.SegmentPrecision = ratioOr(truePos, truePos+falsePos, 1)
	report.SegmentRecall = ratioOr(truePos, truePos+falseNeg, 1)
	report.SegmentF1 = f1(report.SegmentPrecision, report.SegmentRecall)

	predWindows, err := adwindow.Windows(timeline, adwindow.SortAnnotations(predicted))
	if err != nil {
		return Report{}, fmt.Errorf("predicted windows: %w", err)
	}
	gtWindows, err := adwindow.Windows(timeline, adwindow.SortAnnotations(groundTruth))
	if err != nil {
		return Report{}, fmt.Errorf("ground truth windows: %w", err)
	}
	report.TimePrecision, report.TimeRecall = TimePrecisionRecall(predWindows, gtWindows)
	report.TimeF1 = f1(report.TimePrecision, report.TimeRecall)
	report.TimeIoU = TimeIoU(predWindows, gtWindows)
	return report, nil
}

// TimeIoU returns the intersection-over-union of the ad windows in both sets.
// It is 1.0 when neither set has any ad time and 0.0 when only one does.
func TimeIoU(predicted, groundTruth []adwindow.Window) float64 {
	predAds := adwindow.FilterType(predicted, adwindow.TypeAd)
	gtAds := adwindow.FilterType(groundTruth, adwindow.TypeAd)
	predTotal := adwindow.TotalDuration(predAds, adwindow.TypeAd)
	gtTotal := adwindow.TotalDuration(gtAds, adwindow.TypeAd)
	switch {
	case predTotal == 0 && gtTotal == 0:
		return 1
	case predTotal == 0 || gtTotal == 0:
		return 0
	}
	intersection := overlap(predAds, gtAds)
	union := predTotal + gtTotal - intersection
	if union <= 0 {
		return 1
	}
	return clamp01(intersection / union)
}

// TimePrecisionRecall returns the share of predicted ad time that is real ad
// time, and the share of real ad time that was predicted.
func TimePrecisionRecall(predicted, groundTruth []adwindow.Window) (float64, float64) {
	predAds := adwindow.FilterType(predicted, adwindow.TypeAd)
	gtAds := adwindow.FilterType(groundTruth, adwindow.TypeAd)
	predTotal := adwindow.TotalDuration(predAds, adwindow.TypeAd)
	gtTotal := adwindow.TotalDuration(gtAds, adwindow.TypeAd)
	if predTotal == 0 && gtTotal == 0 {
		return 1, 1
	}
	intersection := overlap(predAds, gtAds)
	var precision, recall float64
	if predTotal > 0 {
		precision = intersection / predTotal
	}
	if gtTotal > 0 {
		recall = intersection / gtTotal
	}
	return precision, recall
}

// overlap sums the pairwise positive overlap between two window sets. Ad
// window counts per episode are small, so the quadratic walk is fine.
func overlap(a, b []adwindow.Window) float64 {
	var total float64
	for _, p := range a {
		for _, g := range b {
			start := max(p.Start, g.Start)
			end := min(p.End, g.End)
			if end > start {
				total += end - start
			}
		}
	}
	return total
}

func ratioOr(num, denom int, fallback float64) float64 {
	if denom == 0 {
		return fallback
	}
	return float64(num) / float64(denom)
}

func f1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
