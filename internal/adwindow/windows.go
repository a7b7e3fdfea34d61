package adwindow

// Windows derives contiguous time windows from annotations over the segment
// timing in timeline.
//
// The first annotation sets the label of the implicit window that starts at
// 0. Each later annotation whose type differs closes the open window at the
// start of its segment and opens the next one there. A final window runs to
// the end of the last segment. Adjacent annotations of the same type never
// split a window, so consecutive windows always alternate labels.
//
// An empty annotation list yields no windows, unlike Expand, which defaults
// every segment to content.
func Windows(timeline Timeline, annotations []Annotation) ([]Window, error) {
	if len(annotations) == 0 {
		return []Window{}, nil
	}
	total := timeline.Len()
	if err := checkIndices(annotations, total); err != nil {
		return nil, err
	}

	sorted := SortAnnotations(annotations)
	windows := make([]Window, 0, len(sorted))
	currentTime := 0.0
	var current SegmentType
	for _, ann := range sorted {
		if current == "" {
			current = ann.SegmentType
			continue
		}
		if ann.SegmentType == current {
			continue
		}
		boundary := timeline.Timing(ann.SegmentIndex).Start
		windows = append(windows, Window{Start: currentTime, End: boundary, SegmentType: current})
		current = ann.SegmentType
		currentTime = boundary
	}

	last := timeline.Timing(total - 1)
	windows = append(windows, Window{Start: currentTime, End: last.End, SegmentType: current})
	return windows, nil
}
