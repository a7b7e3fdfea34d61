package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"adtrim/internal/logging"
	"adtrim/internal/trimmer"
)

// ErrAlreadyRunning reports that another watcher holds the lock.
var ErrAlreadyRunning = errors.New("another adtrim watcher is already running")

// Processor trims a single episode.
type Processor interface {
	Process(ctx context.Context, file string, opts trimmer.Options) (trimmer.Outcome, error)
}

// Resetter recovers entries left in processing by a crashed run.
type Resetter interface {
	ResetInterrupted(ctx context.Context) (int64, error)
}

// PassNotifier announces passes that did work. notifications.Service
// satisfies it.
type PassNotifier interface {
	NotifyPassCompleted(ctx context.Context, processed, failed int, duration time.Duration) error
}

// Options configures a Watcher.
type Options struct {
	Directory  string
	Interval   time.Duration
	Extensions []string
	LockPath   string
	Resetter   Resetter
	Notifier   PassNotifier
	Logger     *slog.Logger
}

// PassSummary counts what a single pass did.
type PassSummary struct {
	SessionID string
	Found     int
	Processed int
	Skipped   int
	Failed    int
}

// Watcher repeatedly scans a directory and processes new episodes.
type Watcher struct {
	proc      Processor
	opts      Options
	logger    *slog.Logger
	lock      *flock.Flock
	running   atomic.Bool
	newID     func() string
	afterPass func(PassSummary)
}

// New constructs a Watcher.
func New(proc Processor, opts Options) (*Watcher, error) {
	if proc == nil {
		return nil, errors.New("watch requires a processor")
	}
	if strings.TrimSpace(opts.Directory) == "" {
		return nil, errors.New("watch requires a directory")
	}
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("watch interval must be positive, got %s", opts.Interval)
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".mp3"}
	}
	w := &Watcher{
		proc:   proc,
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "watch"),
		newID:  uuid.NewString,
	}
	if strings.TrimSpace(opts.LockPath) != "" {
		w.lock = flock.New(opts.LockPath)
	}
	return w, nil
}

// Run acquires the watcher lock and processes passes until ctx is cancelled.
// Cancellation is a clean shutdown and returns nil.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return errors.New("watcher already running")
	}
	defer w.running.Store(false)

	if w.lock != nil {
		ok, err := w.lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return ErrAlreadyRunning
		}
		defer func() {
			if err := w.lock.Unlock(); err != nil {
				w.logger.Warn("failed to release watcher lock", logging.Error(err))
			}
		}()
	}

	if w.opts.Resetter != nil {
		if count, err := w.opts.Resetter.ResetInterrupted(ctx); err != nil {
			w.logger.Warn("reset interrupted episodes failed", logging.Error(err))
		} else if count > 0 {
			w.logger.Info("interrupted episodes queued for retry", logging.Int64("count", count))
		}
	}

	w.logger.Info("watcher started",
		logging.String("directory", w.opts.Directory),
		logging.Duration("interval", w.opts.Interval),
		logging.String("extensions", strings.Join(w.opts.Extensions, ",")),
	)
	for {
		summary, err := w.RunOnce(ctx)
		if w.afterPass != nil {
			w.afterPass(summary)
		}
		if err != nil && ctx.Err() == nil {
			logging.WarnWithContext(w.logger, "watch pass failed", "watch_pass_failed",
				logging.String("session_id", summary.SessionID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "retrying after the next interval"),
			)
		}

		timer := time.NewTimer(w.opts.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			w.logger.Info("watcher stopped")
			return nil
		case <-timer.C:
		}
	}
}

// RunOnce scans the directory a single time and processes every eligible file.
func (w *Watcher) RunOnce(ctx context.Context) (PassSummary, error) {
	started := time.Now()
	summary := PassSummary{SessionID: w.newID()}
	logger := w.logger.With(logging.String("session_id", summary.SessionID))

	files, err := Scan(w.opts.Directory, w.opts.Extensions)
	if err != nil {
		return summary, fmt.Errorf("scan %s: %w", w.opts.Directory, err)
	}
	summary.Found = len(files)
	logger.Debug("watch pass started", logging.Int("files", len(files)))

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		outcome, err := w.proc.Process(ctx, file, trimmer.Options{})
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			summary.Failed++
			logger.Warn("episode failed",
				logging.String(logging.FieldEpisode, file),
				logging.Error(err),
			)
		case outcome.Skipped:
			summary.Skipped++
		default:
			summary.Processed++
		}
	}

	if summary.Processed > 0 || summary.Failed > 0 {
		logger.Info("watch pass complete",
			logging.Int("found", summary.Found),
			logging.Int("processed", summary.Processed),
			logging.Int("skipped", summary.Skipped),
			logging.Int("failed", summary.Failed),
		)
		if w.opts.Notifier != nil {
			if err := w.opts.Notifier.NotifyPassCompleted(ctx, summary.Processed, summary.Failed, time.Since(started)); err != nil {
				logger.Warn("pass notification failed", logging.Error(err))
			}
		}
	} else {
		logger.Debug("watch pass complete", logging.Int("found", summary.Found), logging.Int("skipped", summary.Skipped))
	}
	return summary, nil
}
