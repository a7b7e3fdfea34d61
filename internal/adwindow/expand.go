package adwindow

// Expand turns sparse transition annotations into one label per segment.
//
// Annotations are stable-sorted by index first; when two share an index the
// one appearing later in the input wins. Segments before the first annotation
// are content. The result always has totalSegments entries, and with
// totalSegments == 0 it is empty whatever the annotations say.
func Expand(annotations []Annotation, totalSegments int) ([]Label, error) {
	if totalSegments <= 0 {
		return []Label{}, nil
	}
	if err := checkIndices(annotations, totalSegments); err != nil {
		return nil, err
	}

	sorted := SortAnnotations(annotations)
	labels := make([]Label, 0, totalSegments)
	current := TypeContent
	cursor := 0
	for idx := 0; idx < totalSegments; idx++ {
		for cursor < len(sorted) && sorted[cursor].SegmentIndex == idx {
			current = sorted[cursor].SegmentType
			cursor++
		}
		labels = append(labels, current)
	}
	return labels, nil
}
