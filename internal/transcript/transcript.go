package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"adtrim/internal/adwindow"
	"adtrim/internal/fileutil"
)

// Segment is the smallest time-indexed unit of a transcript.
type Segment struct {
	Index int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is an ordered sequence of segments. Treat it as read-only once
// loaded; the core packages receive it by reference.
type Transcript struct {
	Language string    `json:"language,omitempty"`
	Duration float64   `json:"duration,omitempty"`
	Text     string    `json:"text,omitempty"`
	Segments []Segment `json:"segments"`
}

// New builds a transcript from segments, renumbering indices to match order.
func New(segments []Segment) *Transcript {
	out := make([]Segment, len(segments))
	copy(out, segments)
	for i := range out {
		out[i].Index = i
	}
	t := &Transcript{Segments: out}
	t.Duration = t.TotalDuration()
	return t
}

// Len returns the number of segments.
func (t *Transcript) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Segments)
}

// SegmentAt returns the segment at index i.
func (t *Transcript) SegmentAt(i int) Segment {
	return t.Segments[i]
}

// Timing satisfies adwindow.Timeline.
func (t *Transcript) Timing(i int) adwindow.SegmentTiming {
	seg := t.Segments[i]
	return adwindow.SegmentTiming{Start: seg.Start, End: seg.End}
}

// TotalDuration returns the end time of the last segment, or 0 when empty.
func (t *Transcript) TotalDuration() float64 {
	if t.Len() == 0 {
		return 0
	}
	return t.Segments[len(t.Segments)-1].End
}

// Issue describes a timing irregularity found by Validate.
type Issue struct {
	Index  int
	Detail string
}

func (i Issue) String() string {
	return fmt.Sprintf("segment %d: %s", i.Index, i.Detail)
}

// Validate reports timing irregularities. Segments are expected to be
// time-ordered and contiguous, but transcription services do not guarantee
// it, so issues are informational rather than fatal.
func (t *Transcript) Validate() []Issue {
	var issues []Issue
	for i, seg := range t.Segments {
		if seg.End <= seg.Start {
			issues = append(issues, Issue{Index: i, Detail: fmt.Sprintf("end %.3f not after start %.3f", seg.End, seg.Start)})
		}
		if i == 0 {
			continue
		}
		prev := t.Segments[i-1]
		switch {
		case seg.Start < prev.End:
			issues = append(issues, Issue{Index: i, Detail: fmt.Sprintf("overlaps previous segment by %.3fs", prev.End-seg.Start)})
		case seg.Start > prev.End:
			issues = append(issues, Issue{Index: i, Detail: fmt.Sprintf("gap of %.3fs after previous segment", seg.Start-prev.End)})
		}
	}
	return issues
}

// Decode parses a transcription payload from r.
func Decode(r io.Reader) (*Transcript, error) {
	var t Transcript
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	for i := range t.Segments {
		t.Segments[i].Index = i
	}
	if t.Duration == 0 {
		t.Duration = t.TotalDuration()
	}
	return &t, nil
}

// Load reads a transcription payload from disk.
func Load(path string) (*Transcript, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	t, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Save writes t to path as JSON, replacing any existing file atomically.
func Save(path string, t *Transcript) error {
	if t == nil {
		return errors.New("save transcript: nil transcript")
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// FormatIndexed renders one "Segment <i>: <text>" line per segment.
func FormatIndexed(t *Transcript) string {
	var b strings.Builder
	for i, seg := range t.Segments {
		fmt.Fprintf(&b, "Segment %d: %s\n", i, strings.TrimSpace(seg.Text))
	}
	return b.String()
}
