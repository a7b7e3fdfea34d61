package ledger

import (
	"strings"
	"time"

	"adtrim/internal/adwindow"
)

// Status represents the lifecycle of an episode in the ledger.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusReview     Status = "review"
)

var allStatuses = []Status{StatusProcessing, StatusCompleted, StatusFailed, StatusReview}

// AllStatuses returns every known status in display order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a user supplied value to a Status.
func ParseStatus(value string) (Status, bool) {
	candidate := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == candidate {
			return status, true
		}
	}
	return "", false
}

// Processed reports whether an entry in this status should be skipped by the
// watcher. Review entries wait for a human instead of being retried.
func (s Status) Processed() bool {
	return s == StatusCompleted || s == StatusReview
}

// Entry is one episode row.
type Entry struct {
	ID           int64
	Path         string
	Status       Status
	Parts        int
	AdSeconds    float64
	Windows      []adwindow.Window
	ErrorMessage string
	RequestID    string
	Attempts     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

// AdWindows returns only the ad windows recorded for the entry.
func (e Entry) AdWindows() []adwindow.Window {
	return adwindow.FilterType(e.Windows, adwindow.TypeAd)
}

// Result captures a finished run.
type Result struct {
	Parts   int
	Windows []adwindow.Window
}

// AdSeconds sums the ad time in the result.
func (r Result) AdSeconds() float64 {
	return adwindow.TotalDuration(r.Windows, adwindow.TypeAd)
}

// ListOptions filters List results.
type ListOptions struct {
	Statuses []Status
	Limit    int
}
