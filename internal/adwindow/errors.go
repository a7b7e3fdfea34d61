package adwindow

import (
	"errors"
	"fmt"
)

// ErrIndexOutOfRange is matched by every *IndexError.
var ErrIndexOutOfRange = errors.New("annotation segment index out of range")

// IndexError reports an annotation that points outside the transcript.
type IndexError struct {
	Index int
	Total int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("annotation segment index %d out of range [0,%d)", e.Index, e.Total)
}

// Is lets errors.Is match ErrIndexOutOfRange.
func (e *IndexError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}

func checkIndices(annotations []Annotation, total int) error {
	for _, ann := range annotations {
		if ann.SegmentIndex < 0 || ann.SegmentIndex >= total {
			return &IndexError{Index: ann.SegmentIndex, Total: total}
		}
	}
	return nil
}
