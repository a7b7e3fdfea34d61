package trimmer_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"adtrim/internal/adwindow"
	"adtrim/internal/ledger"
	"adtrim/internal/services"
	"adtrim/internal/testsupport"
	"adtrim/internal/transcript"
	"adtrim/internal/trimmer"
)

type fakeTranscriber struct {
	segments    int
	each        float64
	err         error
	calls       []string
	invalidated []string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, path string) (*transcript.Transcript, error) {
	f.calls = append(f.calls, path)
	if f.err != nil {
		return nil, f.err
	}
	segs := make([]transcript.Segment, f.segments)
	for i := range segs {
		segs[i] = transcript.Segment{Index: i, Start: float64(i) * f.each, End: float64(i+1) * f.each, Text: "text"}
	}
	return transcript.New(segs), nil
}

func (f *fakeTranscriber) Invalidate(key string) error {
	f.invalidated = append(f.invalidated, key)
	return nil
}

type fakeClassifier struct {
	annotations []adwindow.Annotation
	err         error
	keys        []string
}

func (f *fakeClassifier) Classify(_ context.Context, key string, _ *transcript.Transcript) ([]adwindow.Annotation, error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return nil, f.err
	}
	return f.annotations, nil
}

type renderCall struct {
	src     string
	windows []adwindow.Window
	clip    string
}

type fakeEditor struct {
	parts     int
	splitErr  error
	renderErr error
	renders   []renderCall
	joined    string
	cleaned   []string
}

func (f *fakeEditor) Split(_ context.Context, path string, _ float64) ([]string, error) {
	if f.splitErr != nil {
		return nil, f.splitErr
	}
	out := make([]string, f.parts)
	for i := range out {
		out[i] = filepath.Join(filepath.Dir(path), "part_"+string(rune('0'+i))+"_"+filepath.Base(path))
	}
	return out, nil
}

func (f *fakeEditor) Render(_ context.Context, src string, windows []adwindow.Window, clip, _ string) (string, error) {
	if f.renderErr != nil {
		return "", f.renderErr
	}
	f.renders = append(f.renders, renderCall{src: src, windows: windows, clip: clip})
	return src, nil
}

func (f *fakeEditor) Join(_ context.Context, original, out string) (string, error) {
	if out == "" {
		out = original
	}
	f.joined = out
	return out, nil
}

func (f *fakeEditor) Cleanup(original string) error {
	f.cleaned = append(f.cleaned, original)
	return nil
}

func newTrimmer(t *testing.T, editor *fakeEditor, tr *fakeTranscriber, cl *fakeClassifier) (*trimmer.Trimmer, *ledger.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithNotificationClip())
	store := testsupport.MustOpenLedger(t, cfg)
	return &trimmer.Trimmer{
		Transcriber:      tr,
		Classifier:       cl,
		Editor:           editor,
		Ledger:           store,
		NotificationClip: cfg.Paths.NotificationClip,
		MaxChunkMB:       25,
	}, store
}

func TestTimeWindows(t *testing.T) {
	tr := &fakeTranscriber{segments: 5, each: 5}
	cl := &fakeClassifier{annotations: []adwindow.Annotation{
		{SegmentType: adwindow.TypeContent, SegmentIndex: 0},
		{SegmentType: adwindow.TypeAd, SegmentIndex: 3},
	}}
	trim := &trimmer.Trimmer{Transcriber: tr, Classifier: cl}

	windows, err := trim.TimeWindows(context.Background(), "/episodes/ep.mp3")
	if err != nil {
		t.Fatalf("TimeWindows returned error: %v", err)
	}
	want := []adwindow.Window{
		{Start: 0, End: 15, SegmentType: adwindow.TypeContent},
		{Start: 15, End: 25, SegmentType: adwindow.TypeAd},
	}
	if len(windows) != len(want) || windows[0] != want[0] || windows[1] != want[1] {
		t.Fatalf("TimeWindows = %v, want %v", windows, want)
	}
	if len(cl.keys) != 1 || cl.keys[0] != "/episodes/ep.mp3" {
		t.Fatalf("expected classifier keyed by file, got %v", cl.keys)
	}
}

func TestTimeWindowsRequiresCollaborators(t *testing.T) {
	_, err := (&trimmer.Trimmer{}).TimeWindows(context.Background(), "x.mp3")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestProcessRendersEveryPartAndRecords(t *testing.T) {
	editor := &fakeEditor{parts: 2}
	tr := &fakeTranscriber{segments: 4, each: 10}
	cl := &fakeClassifier{annotations: []adwindow.Annotation{
		{SegmentType: adwindow.TypeContent, SegmentIndex: 0},
		{SegmentType: adwindow.TypeAd, SegmentIndex: 2},
		{SegmentType: adwindow.TypeContent, SegmentIndex: 3},
	}}
	trim, store := newTrimmer(t, editor, tr, cl)
	ctx := context.Background()
	file := filepath.Join(t.TempDir(), "ep.mp3")

	outcome, err := trim.Process(ctx, file, trimmer.Options{})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if outcome.Skipped || outcome.Output != file || outcome.RequestID == "" {
		t.Fatalf("unexpected outcome: %#v", outcome)
	}
	if len(editor.renders) != 2 {
		t.Fatalf("expected 2 renders, got %d", len(editor.renders))
	}
	for _, call := range editor.renders {
		if call.clip != trim.NotificationClip || !strings.HasPrefix(filepath.Base(call.src), "part_") {
			t.Fatalf("unexpected render call %#v", call)
		}
	}
	if outcome.AdSeconds() != 20 {
		t.Fatalf("expected 20 ad seconds, got %v", outcome.AdSeconds())
	}
	shifted := outcome.Windows()
	if len(shifted) != 6 || shifted[4].Start != 60 || shifted[4].End != 70 || shifted[4].SegmentType != adwindow.TypeAd {
		t.Fatalf("unexpected shifted windows %v", shifted)
	}

	entry, err := store.Get(ctx, file)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry == nil || entry.Status != ledger.StatusCompleted || entry.Parts != 2 || entry.AdSeconds != 20 {
		t.Fatalf("unexpected ledger entry %#v", entry)
	}
	if entry.RequestID != outcome.RequestID {
		t.Fatalf("expected request id %s recorded, got %s", outcome.RequestID, entry.RequestID)
	}

	again, err := trim.Process(ctx, file, trimmer.Options{})
	if err != nil {
		t.Fatalf("second Process returned error: %v", err)
	}
	if !again.Skipped || again.SkipReason != "ledger status completed" {
		t.Fatalf("expected skip on second run, got %#v", again)
	}
	if len(tr.calls) != 2 {
		t.Fatalf("expected no further transcription, got %d calls", len(tr.calls))
	}
}

func TestProcessForceInvalidatesCaches(t *testing.T) {
	editor := &fakeEditor{parts: 1}
	tr := &fakeTranscriber{segments: 2, each: 5}
	cl := &fakeClassifier{annotations: []adwindow.Annotation{{SegmentType: adwindow.TypeContent, SegmentIndex: 0}}}
	trim, _ := newTrimmer(t, editor, tr, cl)
	file := filepath.Join(t.TempDir(), "ep.mp3")
	out := filepath.Join(t.TempDir(), "clean.mp3")

	if _, err := trim.Process(context.Background(), file, trimmer.Options{}); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	outcome, err := trim.Process(context.Background(), file, trimmer.Options{Force: true, Output: out})
	if err != nil {
		t.Fatalf("forced Process returned error: %v", err)
	}
	if outcome.Skipped || outcome.Output != out || editor.joined != out {
		t.Fatalf("expected forced run to write %s, got %#v", out, outcome)
	}
	if len(tr.invalidated) != 1 {
		t.Fatalf("expected cache invalidated once, got %v", tr.invalidated)
	}
}

func TestProcessFailureStatus(t *testing.T) {
	tests := []struct {
		name   string
		editor *fakeEditor
		tr     *fakeTranscriber
		cl     *fakeClassifier
		want   ledger.Status
	}{
		{
			name:   "transcription outage retries",
			editor: &fakeEditor{parts: 1},
			tr:     &fakeTranscriber{err: errors.New("503 from upstream")},
			cl:     &fakeClassifier{},
			want:   ledger.StatusFailed,
		},
		{
			name:   "bad annotations need review",
			editor: &fakeEditor{parts: 1},
			tr:     &fakeTranscriber{segments: 3, each: 1},
			cl:     &fakeClassifier{annotations: []adwindow.Annotation{{SegmentType: adwindow.TypeAd, SegmentIndex: 9}}},
			want:   ledger.StatusReview,
		},
		{
			name:   "classifier validation needs review",
			editor: &fakeEditor{parts: 1},
			tr:     &fakeTranscriber{segments: 3, each: 1},
			cl:     &fakeClassifier{err: services.Wrap(services.ErrValidation, "classify", "parse", "", nil)},
			want:   ledger.StatusReview,
		},
		{
			name:   "render failure retries",
			editor: &fakeEditor{parts: 1, renderErr: errors.New("ffmpeg died")},
			tr:     &fakeTranscriber{segments: 3, each: 1},
			cl:     &fakeClassifier{annotations: []adwindow.Annotation{{SegmentType: adwindow.TypeAd, SegmentIndex: 1}}},
			want:   ledger.StatusFailed,
		},
		{
			name:   "split failure retries",
			editor: &fakeEditor{splitErr: errors.New("no such file")},
			tr:     &fakeTranscriber{},
			cl:     &fakeClassifier{},
			want:   ledger.StatusFailed,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			trim, store := newTrimmer(t, tc.editor, tc.tr, tc.cl)
			file := filepath.Join(t.TempDir(), "ep.mp3")

			if _, err := trim.Process(context.Background(), file, trimmer.Options{}); err == nil {
				t.Fatal("expected error")
			}
			entry, err := store.Get(context.Background(), file)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if entry == nil || entry.Status != tc.want || entry.ErrorMessage == "" {
				t.Fatalf("expected %s entry with message, got %#v", tc.want, entry)
			}
			if len(tc.editor.cleaned) != 1 || tc.editor.cleaned[0] != file {
				t.Fatalf("expected parts cleaned up, got %v", tc.editor.cleaned)
			}
		})
	}
}

func TestProcessWithoutLedger(t *testing.T) {
	editor := &fakeEditor{parts: 1}
	trim := &trimmer.Trimmer{
		Transcriber: &fakeTranscriber{segments: 1, each: 1},
		Classifier:  &fakeClassifier{},
		Editor:      editor,
	}
	outcome, err := trim.Process(context.Background(), "/tmp/ep.mp3", trimmer.Options{})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if outcome.AdSeconds() != 0 || len(editor.renders) != 1 || len(editor.renders[0].windows) != 0 {
		t.Fatalf("expected untouched render without annotations, got %#v", editor.renders)
	}
}

type fakeNotifier struct {
	events []string
	err    error
}

func (f *fakeNotifier) NotifyEpisodeTrimmed(_ context.Context, episode string, adSeconds float64, parts int) error {
	f.events = append(f.events, "trimmed:"+filepath.Base(episode))
	return f.err
}

func (f *fakeNotifier) NotifyReviewNeeded(_ context.Context, episode, _ string) error {
	f.events = append(f.events, "review:"+filepath.Base(episode))
	return f.err
}

func (f *fakeNotifier) NotifyError(_ context.Context, _ error, episode string) error {
	f.events = append(f.events, "error:"+filepath.Base(episode))
	return f.err
}

func TestProcessNotifiesResults(t *testing.T) {
	tests := []struct {
		name   string
		editor *fakeEditor
		cl     *fakeClassifier
		want   string
	}{
		{
			name:   "trimmed",
			editor: &fakeEditor{parts: 1},
			cl:     &fakeClassifier{annotations: []adwindow.Annotation{{SegmentType: adwindow.TypeAd, SegmentIndex: 1}}},
			want:   "trimmed:ep.mp3",
		},
		{
			name:   "review",
			editor: &fakeEditor{parts: 1},
			cl:     &fakeClassifier{annotations: []adwindow.Annotation{{SegmentType: adwindow.TypeAd, SegmentIndex: 7}}},
			want:   "review:ep.mp3",
		},
		{
			name:   "error",
			editor: &fakeEditor{parts: 1, renderErr: errors.New("ffmpeg died")},
			cl:     &fakeClassifier{annotations: []adwindow.Annotation{{SegmentType: adwindow.TypeAd, SegmentIndex: 1}}},
			want:   "error:ep.mp3",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			notifier := &fakeNotifier{}
			trim, _ := newTrimmer(t, tc.editor, &fakeTranscriber{segments: 3, each: 1}, tc.cl)
			trim.Notifier = notifier
			_, _ = trim.Process(context.Background(), filepath.Join(t.TempDir(), "ep.mp3"), trimmer.Options{})
			if len(notifier.events) != 1 || notifier.events[0] != tc.want {
				t.Fatalf("expected [%s], got %v", tc.want, notifier.events)
			}
		})
	}
}

func TestNotificationFailureDoesNotFailEpisode(t *testing.T) {
	trim, store := newTrimmer(t, &fakeEditor{parts: 1}, &fakeTranscriber{segments: 2, each: 1}, &fakeClassifier{})
	trim.Notifier = &fakeNotifier{err: errors.New("ntfy down")}
	file := filepath.Join(t.TempDir(), "ep.mp3")
	if _, err := trim.Process(context.Background(), file, trimmer.Options{}); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	entry, err := store.Get(context.Background(), file)
	if err != nil || entry == nil || entry.Status != ledger.StatusCompleted {
		t.Fatalf("expected completed entry, got %#v (%v)", entry, err)
	}
}
