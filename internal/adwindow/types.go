package adwindow

import (
	"fmt"
	"sort"
	"strconv"
)

// SegmentType labels a block of audio as advertising or editorial content.
type SegmentType string

const (
	TypeAd      SegmentType = "ad"
	TypeContent SegmentType = "content"
)

// Valid reports whether t is one of the recognized segment types.
func (t SegmentType) Valid() bool {
	return t == TypeAd || t == TypeContent
}

// Label is the dense, per-segment form of a SegmentType.
type Label = SegmentType

// Annotation marks a transition: from SegmentIndex (inclusive) onward the
// label is SegmentType, until the next annotation with a higher index.
type Annotation struct {
	SegmentType  SegmentType `json:"segment_type" yaml:"segment_type" validate:"required,oneof=ad content"`
	SegmentIndex int         `json:"segment_index" yaml:"segment_index" validate:"min=0"`
}

// Window is a contiguous time range in seconds tagged ad or content.
type Window struct {
	Start       float64     `json:"start"`
	End         float64     `json:"end"`
	SegmentType SegmentType `json:"segment_type"`
}

// Duration returns the window length in seconds.
func (w Window) Duration() float64 {
	return w.End - w.Start
}

func (w Window) String() string {
	return fmt.Sprintf("Window(%s-%s, %s)",
		strconv.FormatFloat(w.Start, 'f', -1, 64),
		strconv.FormatFloat(w.End, 'f', -1, 64),
		w.SegmentType,
	)
}

// SegmentTiming is the slice of a transcript segment the window derivation needs.
type SegmentTiming struct {
	Start float64
	End   float64
}

// Timeline exposes ordered segment timing. transcript.Transcript satisfies it.
type Timeline interface {
	Len() int
	Timing(index int) SegmentTiming
}

// SortAnnotations returns a copy of annotations ordered by segment index.
// The sort is stable, so annotations sharing an index keep their input order.
func SortAnnotations(annotations []Annotation) []Annotation {
	sorted := make([]Annotation, len(annotations))
	copy(sorted, annotations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SegmentIndex < sorted[j].SegmentIndex
	})
	return sorted
}

// FilterType returns the windows tagged with segmentType, preserving order.
func FilterType(windows []Window, segmentType SegmentType) []Window {
	out := make([]Window, 0, len(windows))
	for _, w := range windows {
		if w.SegmentType == segmentType {
			out = append(out, w)
		}
	}
	return out
}

// TotalDuration sums the duration of every window tagged segmentType.
func TotalDuration(windows []Window, segmentType SegmentType) float64 {
	var total float64
	for _, w := range windows {
		if w.SegmentType == segmentType {
			total += w.Duration()
		}
	}
	return total
}
