package ledger_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"adtrim/internal/adwindow"
	"adtrim/internal/ledger"
	"adtrim/internal/testsupport"
)

func TestOpenCreatesSchemaAndReopens(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	if store.Path() != cfg.LedgerPath() {
		t.Fatalf("expected ledger at %s, got %s", cfg.LedgerPath(), store.Path())
	}
	if _, err := store.Begin(context.Background(), "/podcasts/ep1.mp3", ""); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := testsupport.MustOpenLedger(t, cfg)
	entry, err := reopened.Get(context.Background(), "/podcasts/ep1.mp3")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry == nil || entry.Status != ledger.StatusProcessing {
		t.Fatalf("expected persisted processing entry, got %#v", entry)
	}
}

func TestBeginCompleteLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()
	path := "/podcasts/show/ep2.mp3"

	entry, err := store.Begin(ctx, path, "req-1")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if entry.ID == 0 || entry.Attempts != 1 || entry.RequestID != "req-1" {
		t.Fatalf("unexpected entry after Begin: %#v", entry)
	}

	windows := []adwindow.Window{
		{Start: 0, End: 30, SegmentType: adwindow.TypeContent},
		{Start: 30, End: 75.5, SegmentType: adwindow.TypeAd},
		{Start: 75.5, End: 120, SegmentType: adwindow.TypeContent},
	}
	if err := store.Complete(ctx, path, ledger.Result{Parts: 2, Windows: windows}); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	got, err := store.Get(ctx, path)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != ledger.StatusCompleted || got.Parts != 2 {
		t.Fatalf("unexpected completed entry: %#v", got)
	}
	if got.AdSeconds != 45.5 {
		t.Fatalf("expected 45.5 ad seconds, got %v", got.AdSeconds)
	}
	if len(got.Windows) != 3 || len(got.AdWindows()) != 1 {
		t.Fatalf("expected windows round trip, got %v", got.Windows)
	}
	if got.CompletedAt == nil || got.CreatedAt.IsZero() {
		t.Fatalf("expected timestamps, got %#v", got)
	}

	processed, reason, err := store.Processed(ctx, path)
	if err != nil {
		t.Fatalf("Processed failed: %v", err)
	}
	if !processed || reason != "ledger status completed" {
		t.Fatalf("expected processed via ledger, got %v %q", processed, reason)
	}
}

func TestBeginAgainIncrementsAttempts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()
	path := "/podcasts/ep3.mp3"

	if _, err := store.Begin(ctx, path, "a"); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.Fail(ctx, path, ledger.StatusFailed, "ffmpeg exploded"); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}
	entry, err := store.Begin(ctx, path, "b")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if entry.Attempts != 2 || entry.Status != ledger.StatusProcessing || entry.ErrorMessage != "" {
		t.Fatalf("unexpected retried entry: %#v", entry)
	}
}

func TestProcessedByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	cases := []struct {
		status ledger.Status
		want   bool
	}{
		{ledger.StatusFailed, false},
		{ledger.StatusReview, true},
	}
	for _, tc := range cases {
		path := "/podcasts/" + string(tc.status) + ".mp3"
		if _, err := store.Begin(ctx, path, ""); err != nil {
			t.Fatalf("Begin failed: %v", err)
		}
		if err := store.Fail(ctx, path, tc.status, "boom"); err != nil {
			t.Fatalf("Fail failed: %v", err)
		}
		got, _, err := store.Processed(ctx, path)
		if err != nil {
			t.Fatalf("Processed failed: %v", err)
		}
		if got != tc.want {
			t.Fatalf("status %s: processed = %v, want %v", tc.status, got, tc.want)
		}
	}

	unknown, _, err := store.Processed(ctx, "/podcasts/never.mp3")
	if err != nil || unknown {
		t.Fatalf("expected unknown path unprocessed, got %v %v", unknown, err)
	}
}

func TestProcessedHonoursLegacyMarker(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	dir := t.TempDir()
	episode := filepath.Join(dir, "ep.mp3")
	testsupport.WriteFile(t, episode, 10)
	marker := ledger.MarkerPath(episode)
	if filepath.Base(marker) != ".hit.ep.mp3.txt" {
		t.Fatalf("unexpected marker name %s", marker)
	}
	if err := os.WriteFile(marker, nil, 0o644); err != nil {
		t.Fatalf("write marker: %v", err)
	}

	processed, reason, err := store.Processed(context.Background(), episode)
	if err != nil {
		t.Fatalf("Processed failed: %v", err)
	}
	if !processed || reason != "marker .hit.ep.mp3.txt" {
		t.Fatalf("expected marker hit, got %v %q", processed, reason)
	}
	if !ledger.IsMarker(marker) || ledger.IsMarker(episode) {
		t.Fatal("unexpected IsMarker results")
	}
}

func TestFailRejectsUnknownPathAndStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	if err := store.Fail(ctx, "/nowhere.mp3", ledger.StatusFailed, "x"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Fail(ctx, "/nowhere.mp3", ledger.StatusCompleted, "x"); err == nil {
		t.Fatal("expected invalid status error")
	}
	if err := store.Complete(ctx, "/nowhere.mp3", ledger.Result{}); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Complete, got %v", err)
	}
}

func TestListStatsAndForget(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	for _, path := range []string{"/p/a.mp3", "/p/b.mp3", "/p/c.mp3"} {
		if _, err := store.Begin(ctx, path, ""); err != nil {
			t.Fatalf("Begin failed: %v", err)
		}
	}
	if err := store.Complete(ctx, "/p/a.mp3", ledger.Result{Parts: 1}); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if err := store.Fail(ctx, "/p/b.mp3", ledger.StatusReview, "bad annotations"); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}

	all, err := store.List(ctx, ledger.ListOptions{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	review, err := store.List(ctx, ledger.ListOptions{Statuses: []ledger.Status{ledger.StatusReview}})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(review) != 1 || review[0].ErrorMessage != "bad annotations" {
		t.Fatalf("unexpected review list: %#v", review)
	}
	limited, err := store.List(ctx, ledger.ListOptions{Limit: 2})
	if err != nil || len(limited) != 2 {
		t.Fatalf("expected 2 limited entries, got %d (%v)", len(limited), err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[ledger.StatusCompleted] != 1 || stats[ledger.StatusReview] != 1 || stats[ledger.StatusProcessing] != 1 {
		t.Fatalf("unexpected stats %v", stats)
	}

	removed, err := store.Forget(ctx, "/p/a.mp3")
	if err != nil || !removed {
		t.Fatalf("expected Forget to remove entry, got %v %v", removed, err)
	}
	removed, err = store.Forget(ctx, "/p/a.mp3")
	if err != nil || removed {
		t.Fatalf("expected second Forget to be a no-op, got %v %v", removed, err)
	}
}

func TestResetInterrupted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	if _, err := store.Begin(ctx, "/p/stuck.mp3", ""); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if _, err := store.Begin(ctx, "/p/done.mp3", ""); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.Complete(ctx, "/p/done.mp3", ledger.Result{Parts: 1}); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	count, err := store.ResetInterrupted(ctx)
	if err != nil {
		t.Fatalf("ResetInterrupted failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 reset, got %d", count)
	}
	entry, _ := store.Get(ctx, "/p/stuck.mp3")
	if entry.Status != ledger.StatusFailed || entry.ErrorMessage != ledger.InterruptedMessage {
		t.Fatalf("unexpected reset entry: %#v", entry)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := ledger.ParseStatus(" Review "); !ok || status != ledger.StatusReview {
		t.Fatalf("expected review, got %q %v", status, ok)
	}
	if _, ok := ledger.ParseStatus("pending"); ok {
		t.Fatal("expected unknown status rejected")
	}
	if len(ledger.AllStatuses()) != 4 {
		t.Fatal("expected four statuses")
	}
}
