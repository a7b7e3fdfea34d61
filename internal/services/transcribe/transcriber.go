package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"adtrim/internal/fileutil"
	"adtrim/internal/logging"
	"adtrim/internal/transcript"
)

// CacheSuffix names the sidecar file holding a cached transcription.
const CacheSuffix = ".transcription.json"

// Transcriber produces a transcript for an audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (*transcript.Transcript, error)
}

// Cached reuses on-disk transcriptions and only calls Next on a miss.
type Cached struct {
	Next     Transcriber
	CacheDir string
	Logger   *slog.Logger
}

// NewCached wraps next with sidecar caching.
func NewCached(next Transcriber, cacheDir string, logger *slog.Logger) *Cached {
	return &Cached{Next: next, CacheDir: cacheDir, Logger: logging.NewComponentLogger(logger, "transcribe")}
}

// Path returns the cache file used for source.
func (c *Cached) Path(source string) string {
	return fileutil.CachePath(source, c.CacheDir, CacheSuffix)
}

// Transcribe returns the cached transcript for path or transcribes and stores it.
func (c *Cached) Transcribe(ctx context.Context, path string) (*transcript.Transcript, error) {
	logger := logging.WithContext(ctx, c.Logger)
	cachePath := c.Path(path)
	cached, err := transcript.Load(cachePath)
	switch {
	case err == nil:
		logger.Debug("transcription cache hit", logging.String("cache_path", cachePath), logging.Int("segments", cached.Len()))
		return cached, nil
	case errors.Is(err, fs.ErrNotExist):
	default:
		logging.WarnWithContext(logger, "transcription cache unreadable", "transcription_cache_invalid",
			logging.String("cache_path", cachePath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "episode will be transcribed again"),
		)
	}

	if c.Next == nil {
		return nil, errors.New("transcribe: no transcriber configured")
	}
	fresh, err := c.Next.Transcribe(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := transcript.Save(cachePath, fresh); err != nil {
		return nil, fmt.Errorf("transcribe: store cache: %w", err)
	}
	logger.Info("transcription stored",
		logging.String("cache_path", cachePath),
		logging.Int("segments", fresh.Len()),
		logging.Float64("duration_seconds", fresh.Duration),
	)
	return fresh, nil
}

// Invalidate removes the cached transcription for path, if any.
func (c *Cached) Invalidate(path string) error {
	if err := os.Remove(c.Path(path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
