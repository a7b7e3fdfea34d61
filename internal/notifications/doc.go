// Package notifications pushes episode results to ntfy.
//
// NewService returns an ntfy-backed Service when a topic is configured and a
// no-op otherwise, so callers never need to check whether notifications are
// enabled. Messages cover trimmed episodes, episodes held for review, errors
// and watch pass summaries.
package notifications
