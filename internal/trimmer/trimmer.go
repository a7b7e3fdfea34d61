package trimmer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"adtrim/internal/adwindow"
	"adtrim/internal/classify"
	"adtrim/internal/ledger"
	"adtrim/internal/logging"
	"adtrim/internal/services"
	"adtrim/internal/services/transcribe"
)

// Editor cuts and reassembles audio.
type Editor interface {
	Split(ctx context.Context, path string, maxChunkMB float64) ([]string, error)
	Render(ctx context.Context, src string, windows []adwindow.Window, notifClip, out string) (string, error)
	Join(ctx context.Context, original, out string) (string, error)
	Cleanup(original string) error
}

// Ledger tracks which episodes have been processed.
type Ledger interface {
	Processed(ctx context.Context, path string) (bool, string, error)
	Begin(ctx context.Context, path, requestID string) (*ledger.Entry, error)
	Complete(ctx context.Context, path string, result ledger.Result) error
	Fail(ctx context.Context, path string, status ledger.Status, message string) error
}

// Notifier announces episode results. notifications.Service satisfies it.
type Notifier interface {
	NotifyEpisodeTrimmed(ctx context.Context, episode string, adSeconds float64, parts int) error
	NotifyReviewNeeded(ctx context.Context, episode, reason string) error
	NotifyError(ctx context.Context, err error, episode string) error
}

// invalidator is implemented by caching collaborators.
type invalidator interface {
	Invalidate(key string) error
}

// Trimmer wires the pipeline stages together. Ledger is optional; without it
// every call processes the episode.
type Trimmer struct {
	Transcriber      transcribe.Transcriber
	Classifier       classify.Classifier
	Editor           Editor
	Ledger           Ledger
	Notifier         Notifier
	NotificationClip string
	MaxChunkMB       float64
	Logger           *slog.Logger
}

// Options adjusts a single Process call.
type Options struct {
	// Force reprocesses an episode the ledger already lists and drops cached
	// transcripts and annotations for its parts.
	Force bool
	// Output writes the trimmed episode to this path instead of over the source.
	Output string
}

// PartResult describes one processed chunk. Windows are relative to the part.
type PartResult struct {
	Path     string
	Offset   float64
	Duration float64
	Windows  []adwindow.Window
}

// Outcome summarizes a Process call.
type Outcome struct {
	Path       string
	Output     string
	RequestID  string
	Skipped    bool
	SkipReason string
	Parts      []PartResult
	Elapsed    time.Duration
}

// Windows returns every part's windows shifted onto the episode timeline.
func (o Outcome) Windows() []adwindow.Window {
	var out []adwindow.Window
	for _, part := range o.Parts {
		for _, w := range part.Windows {
			out = append(out, adwindow.Window{
				Start:       w.Start + part.Offset,
				End:         w.End + part.Offset,
				SegmentType: w.SegmentType,
			})
		}
	}
	return out
}

// AdSeconds returns the total ad time replaced across all parts.
func (o Outcome) AdSeconds() float64 {
	var total float64
	for _, part := range o.Parts {
		total += adwindow.TotalDuration(part.Windows, adwindow.TypeAd)
	}
	return total
}

func (t *Trimmer) logger() *slog.Logger {
	return logging.NewComponentLogger(t.Logger, "trimmer")
}

func (t *Trimmer) validate() error {
	var missing []string
	if t.Transcriber == nil {
		missing = append(missing, "transcriber")
	}
	if t.Classifier == nil {
		missing = append(missing, "classifier")
	}
	if len(missing) > 0 {
		return services.Wrap(services.ErrConfiguration, "trimmer", "validate", "missing "+strings.Join(missing, ", "), nil)
	}
	return nil
}

// TimeWindows transcribes and classifies file as a single unit and returns
// its ad/content windows.
func (t *Trimmer) TimeWindows(ctx context.Context, file string) ([]adwindow.Window, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	windows, _, err := t.timeWindows(ctx, file)
	return windows, err
}

func (t *Trimmer) timeWindows(ctx context.Context, file string) ([]adwindow.Window, float64, error) {
	tctx := services.WithStage(ctx, "transcribe")
	tr, err := t.Transcriber.Transcribe(tctx, file)
	if err != nil {
		return nil, 0, services.Wrap(services.ErrExternalTool, "transcribe", "transcribe", file, err)
	}
	duration := tr.Duration
	if duration <= 0 {
		duration = tr.TotalDuration()
	}
	if issues := tr.Validate(); len(issues) > 0 {
		logging.WarnWithContext(logging.WithContext(tctx, t.logger()), "transcript timing irregular", "transcript_timing_irregular",
			logging.Int("issues", len(issues)),
			logging.String("first_issue", issues[0].String()),
			logging.String(logging.FieldImpact, "window boundaries may be imprecise"),
		)
	}

	cctx := services.WithStage(ctx, "classify")
	annotations, err := t.Classifier.Classify(cctx, file, tr)
	if err != nil {
		return nil, 0, err
	}

	windows, err := adwindow.Windows(tr, annotations)
	if err != nil {
		return nil, 0, services.Wrap(services.ErrValidation, "windows", "derive", file, err)
	}
	logging.WithContext(cctx, t.logger()).Debug("windows derived",
		logging.Int("segments", tr.Len()),
		logging.Int("annotations", len(annotations)),
		logging.Int("windows", len(windows)),
		logging.Float64("ad_seconds", adwindow.TotalDuration(windows, adwindow.TypeAd)),
	)
	return windows, duration, nil
}

// Process trims ads from file. Episodes the ledger lists as processed are
// skipped unless opts.Force is set.
func (t *Trimmer) Process(ctx context.Context, file string, opts Options) (Outcome, error) {
	started := time.Now()
	ctx, requestID := services.EnsureRequestID(ctx)
	ctx = services.WithEpisode(ctx, file)
	logger := logging.WithContext(ctx, t.logger())
	outcome := Outcome{Path: file, RequestID: requestID}

	if err := t.validate(); err != nil {
		return outcome, err
	}
	if t.Editor == nil {
		return outcome, services.Wrap(services.ErrConfiguration, "trimmer", "validate", "missing editor", nil)
	}

	if t.Ledger != nil && !opts.Force {
		processed, reason, err := t.Ledger.Processed(ctx, file)
		if err != nil {
			return outcome, fmt.Errorf("check ledger: %w", err)
		}
		if processed {
			logger.Info("episode already processed", logging.String("reason", reason))
			outcome.Skipped = true
			outcome.SkipReason = reason
			return outcome, nil
		}
	}

	if t.Ledger != nil {
		if _, err := t.Ledger.Begin(ctx, file, requestID); err != nil {
			return outcome, fmt.Errorf("record start: %w", err)
		}
	}
	logger.Info("episode processing started", logging.String(logging.FieldEventType, "episode_started"))

	output, parts, err := t.process(ctx, file, opts)
	outcome.Parts = parts
	outcome.Elapsed = time.Since(started)
	if err != nil {
		if cleanupErr := t.Editor.Cleanup(file); cleanupErr != nil {
			logger.Warn("part cleanup failed", logging.Error(cleanupErr))
		}
		status := services.FailureStatus(err)
		logging.ErrorWithContext(logger, "episode processing failed", "episode_failed",
			logging.Error(err),
			logging.String("ledger_status", string(status)),
			logging.String(logging.FieldErrorHint, failureHint(status)),
		)
		if t.Ledger != nil {
			if ledgerErr := t.Ledger.Fail(context.WithoutCancel(ctx), file, status, err.Error()); ledgerErr != nil {
				logger.Warn("ledger update failed", logging.Error(ledgerErr))
			}
		}
		if ctx.Err() == nil {
			t.notify(logger, func(n Notifier) error {
				if status == ledger.StatusReview {
					return n.NotifyReviewNeeded(ctx, file, err.Error())
				}
				return n.NotifyError(ctx, err, file)
			})
		}
		return outcome, err
	}
	outcome.Output = output

	if t.Ledger != nil {
		if err := t.Ledger.Complete(ctx, file, ledger.Result{Parts: len(parts), Windows: outcome.Windows()}); err != nil {
			return outcome, fmt.Errorf("record completion: %w", err)
		}
	}
	logger.Info("episode processing completed",
		logging.String(logging.FieldEventType, "episode_completed"),
		logging.String("output", output),
		logging.Int("parts", len(parts)),
		logging.Float64("ad_seconds", outcome.AdSeconds()),
		logging.Duration("elapsed", outcome.Elapsed),
	)
	t.notify(logger, func(n Notifier) error {
		return n.NotifyEpisodeTrimmed(ctx, file, outcome.AdSeconds(), len(parts))
	})
	return outcome, nil
}

// notify delivers a notification when a Notifier is configured. Delivery
// failures never fail the episode.
func (t *Trimmer) notify(logger *slog.Logger, send func(Notifier) error) {
	if t.Notifier == nil {
		return
	}
	if err := send(t.Notifier); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "episode result was recorded but not announced"),
		)
	}
}

func (t *Trimmer) process(ctx context.Context, file string, opts Options) (string, []PartResult, error) {
	sctx := services.WithStage(ctx, "split")
	paths, err := t.Editor.Split(sctx, file, t.MaxChunkMB)
	if err != nil {
		return "", nil, services.Wrap(services.ErrExternalTool, "split", "split", file, err)
	}
	logging.WithContext(sctx, t.logger()).Info("episode split", logging.Int("parts", len(paths)))

	results := make([]PartResult, 0, len(paths))
	var offset float64
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return "", results, err
		}
		pctx := services.WithPart(ctx, i+1)
		if opts.Force {
			t.invalidate(pctx, path)
		}
		windows, duration, err := t.timeWindows(pctx, path)
		if err != nil {
			return "", results, err
		}
		rctx := services.WithStage(pctx, "render")
		if _, err := t.Editor.Render(rctx, path, windows, t.NotificationClip, ""); err != nil {
			return "", results, services.Wrap(services.ErrExternalTool, "render", "render", path, err)
		}
		logging.WithContext(rctx, t.logger()).Info("part rendered",
			logging.Int("ad_windows", len(adwindow.FilterType(windows, adwindow.TypeAd))),
			logging.Float64("ad_seconds", adwindow.TotalDuration(windows, adwindow.TypeAd)),
		)
		results = append(results, PartResult{Path: path, Offset: offset, Duration: duration, Windows: windows})
		offset += duration
	}

	jctx := services.WithStage(ctx, "join")
	output, err := t.Editor.Join(jctx, file, opts.Output)
	if err != nil {
		return "", results, services.Wrap(services.ErrExternalTool, "join", "join", file, err)
	}
	return output, results, nil
}

func (t *Trimmer) invalidate(ctx context.Context, path string) {
	for _, candidate := range []any{t.Transcriber, t.Classifier} {
		inv, ok := candidate.(invalidator)
		if !ok {
			continue
		}
		if err := inv.Invalidate(path); err != nil && !errors.Is(err, context.Canceled) {
			logging.WithContext(ctx, t.logger()).Warn("cache invalidation failed", logging.Error(err))
		}
	}
}

func failureHint(status ledger.Status) string {
	if status == ledger.StatusReview {
		return "inspect the episode and run adtrim remove --force once resolved"
	}
	return "the next watch pass retries this episode"
}
