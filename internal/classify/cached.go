package classify

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"adtrim/internal/adwindow"
	"adtrim/internal/fileutil"
	"adtrim/internal/logging"
	"adtrim/internal/services/llm"
	"adtrim/internal/transcript"
)

// CacheSuffix names the sidecar file holding a cached model answer.
const CacheSuffix = ".segments.json"

// Cached stores raw completions next to the source and replays them.
type Cached struct {
	Classifier *LLMClassifier
	CacheDir   string
}

// NewCached wraps classifier with sidecar caching.
func NewCached(classifier *LLMClassifier, cacheDir string) *Cached {
	return &Cached{Classifier: classifier, CacheDir: cacheDir}
}

// Path returns the cache file used for key.
func (c *Cached) Path(key string) string {
	return fileutil.CachePath(key, c.CacheDir, CacheSuffix)
}

// Classify replays the cached completion for key when present, otherwise asks
// the model and stores the answer before parsing it.
func (c *Cached) Classify(ctx context.Context, key string, t *transcript.Transcript) ([]adwindow.Annotation, error) {
	if t == nil || t.Len() == 0 {
		return []adwindow.Annotation{}, nil
	}
	logger := logging.WithContext(ctx, c.Classifier.logger)
	cachePath := c.Path(key)

	raw, err := os.ReadFile(cachePath)
	switch {
	case err == nil:
		completion, parseErr := llm.ParseCompletion(raw)
		if parseErr == nil {
			logger.Debug("classification cache hit", logging.String("cache_path", cachePath))
			return c.Classifier.parse(ctx, key, completion, t.Len())
		}
		logging.WarnWithContext(logger, "classification cache unreadable", "classification_cache_invalid",
			logging.String("cache_path", cachePath),
			logging.Error(parseErr),
			logging.String(logging.FieldImpact, "transcript will be classified again"),
		)
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	completion, err := c.Classifier.Complete(ctx, t)
	if err != nil {
		return nil, err
	}
	if len(completion.Raw) > 0 {
		if err := fileutil.WriteFileAtomic(cachePath, completion.Raw, 0o644); err != nil {
			logging.WarnWithContext(logger, "classification cache write failed", "classification_cache_write_failed",
				logging.String("cache_path", cachePath),
				logging.Error(err),
				logging.String(logging.FieldImpact, "next run will call the model again"),
			)
		}
	}
	return c.Classifier.parse(ctx, key, completion, t.Len())
}

// Invalidate removes the cached completion for key, if any.
func (c *Cached) Invalidate(key string) error {
	if err := os.Remove(c.Path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
