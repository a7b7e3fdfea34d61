package services

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	episodeKey   contextKey = "episode"
	partKey      contextKey = "part"
	stageKey     contextKey = "stage"
	requestIDKey contextKey = "request_id"
)

// WithEpisode annotates context with the audio file being processed.
func WithEpisode(ctx context.Context, path string) context.Context {
	if path == "" {
		return ctx
	}
	return context.WithValue(ctx, episodeKey, path)
}

// EpisodeFromContext returns the episode path if present.
func EpisodeFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(episodeKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithPart annotates context with the 1-based chunk index of a split episode.
func WithPart(ctx context.Context, part int) context.Context {
	return context.WithValue(ctx, partKey, part)
}

// PartFromContext extracts the chunk index if present.
func PartFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(partKey).(int)
	return v, ok
}

// WithStage annotates context with the processing stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// EnsureRequestID returns ctx carrying a correlation identifier, minting a new
// one when none is present.
func EnsureRequestID(ctx context.Context) (context.Context, string) {
	if id, ok := RequestIDFromContext(ctx); ok {
		return ctx, id
	}
	id := uuid.NewString()
	return WithRequestID(ctx, id), id
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
