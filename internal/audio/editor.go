package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"adtrim/internal/adwindow"
	"adtrim/internal/fileutil"
	"adtrim/internal/logging"
)

// PartPrefix marks chunk files produced by Split.
const PartPrefix = "part_"

// ErrDestructive reports a render that would overwrite an original episode in place.
var ErrDestructive = errors.New("refusing to overwrite original episode without an explicit output path")

// Runner executes an external command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Options configures an Editor.
type Options struct {
	FFmpegBinary  string
	FFprobeBinary string
	Bitrate       string
	Logger        *slog.Logger
	Runner        Runner
}

// Editor splits, renders and joins audio files through ffmpeg.
type Editor struct {
	ffmpeg  string
	ffprobe string
	bitrate string
	logger  *slog.Logger
	runner  Runner
}

// NewEditor constructs an Editor with defaults for unset options.
func NewEditor(opts Options) *Editor {
	e := &Editor{
		ffmpeg:  strings.TrimSpace(opts.FFmpegBinary),
		ffprobe: strings.TrimSpace(opts.FFprobeBinary),
		bitrate: strings.TrimSpace(opts.Bitrate),
		logger:  logging.NewComponentLogger(opts.Logger, "audio"),
		runner:  opts.Runner,
	}
	if e.ffmpeg == "" {
		e.ffmpeg = "ffmpeg"
	}
	if e.ffprobe == "" {
		e.ffprobe = "ffprobe"
	}
	if e.bitrate == "" {
		e.bitrate = "128k"
	}
	if e.runner == nil {
		e.runner = execRunner
	}
	return e
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return output, nil
}

func (e *Editor) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return e.runner(ctx, name, args...)
}

// IsPart reports whether path names a chunk produced by Split.
func IsPart(path string) bool {
	return strings.HasPrefix(filepath.Base(path), PartPrefix)
}

// PartPath returns the chunk path for index i of source.
func PartPath(source string, i int) string {
	return filepath.Join(filepath.Dir(source), PartPrefix+strconv.Itoa(i)+"_"+filepath.Base(source))
}

// ChunkCount returns how many chunks a file of sizeBytes needs so each stays
// under maxChunkMB. It is never less than one.
func ChunkCount(sizeBytes int64, maxChunkMB float64) int {
	if maxChunkMB <= 0 || sizeBytes <= 0 {
		return 1
	}
	sizeMB := float64(sizeBytes) / 1024 / 1024
	return max(int(math.Ceil(sizeMB/maxChunkMB)), 1)
}

// Split cuts path into equal-duration chunks next to the source so each chunk
// stays under maxChunkMB. Paths are returned in playback order.
func (e *Editor) Split(ctx context.Context, path string, maxChunkMB float64) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	count := ChunkCount(info.Size(), maxChunkMB)
	if count == 1 {
		part := PartPath(path, 0)
		if err := fileutil.CopyFile(path, part); err != nil {
			return nil, fmt.Errorf("split: copy single part: %w", err)
		}
		return []string{part}, nil
	}

	probe, err := e.Probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	duration := probe.DurationSeconds()
	if duration <= 0 || math.IsNaN(duration) {
		return nil, fmt.Errorf("split: %s has no usable duration", filepath.Base(path))
	}

	parts := make([]string, 0, count)
	for i := range count {
		start := duration * float64(i) / float64(count)
		end := duration * float64(i+1) / float64(count)
		part := PartPath(path, i)
		args := []string{
			"-y", "-v", "error", "-hide_banner",
			"-ss", formatSeconds(start),
			"-t", formatSeconds(end - start),
			"-i", path,
			"-vn", "-c:a", "libmp3lame", "-b:a", e.bitrate,
			part,
		}
		if _, err := e.run(ctx, e.ffmpeg, args...); err != nil {
			removeAll(parts)
			return nil, fmt.Errorf("split: part %d: %w", i, err)
		}
		parts = append(parts, part)
	}
	e.logger.Debug("episode split",
		logging.String("source", path),
		logging.Int("parts", len(parts)),
		logging.Float64("duration_seconds", duration),
	)
	return parts, nil
}

// Render writes src with every ad window replaced by notifClip. An empty
// notifClip drops ad windows without a replacement. When out is empty the
// result replaces src, which is only permitted for split parts.
func (e *Editor) Render(ctx context.Context, src string, windows []adwindow.Window, notifClip, out string) (string, error) {
	if out == "" {
		if !IsPart(src) {
			return "", ErrDestructive
		}
		out = src
	}

	hasAd := slices.ContainsFunc(windows, func(w adwindow.Window) bool {
		return w.SegmentType == adwindow.TypeAd && w.Duration() > 0
	})
	if !hasAd {
		if out != src {
			if err := fileutil.CopyFile(src, out); err != nil {
				return "", fmt.Errorf("render: copy: %w", err)
			}
		}
		return out, nil
	}

	args, err := renderArgs(src, windows, notifClip, e.bitrate)
	if err != nil {
		return "", err
	}
	tmp := filepath.Join(filepath.Dir(out), ".render_"+filepath.Base(out))
	args = append(args, tmp)
	if _, err := e.run(ctx, e.ffmpeg, args...); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("render: %w", err)
	}
	if err := os.Rename(tmp, out); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("render: commit: %w", err)
	}
	e.logger.Debug("ads replaced",
		logging.String("source", src),
		logging.String("output", out),
		logging.Float64("ad_seconds", adwindow.TotalDuration(windows, adwindow.TypeAd)),
	)
	return out, nil
}

// renderArgs builds an ffmpeg invocation that trims each content window from
// input 0 and inserts the clip for each ad window, concatenated in order.
func renderArgs(src string, windows []adwindow.Window, notifClip, bitrate string) ([]string, error) {
	args := []string{"-y", "-v", "error", "-hide_banner", "-i", src}
	var filters []string
	var labels []string
	inputs := 1
	for i, w := range windows {
		label := fmt.Sprintf("[s%d]", i)
		switch w.SegmentType {
		case adwindow.TypeContent:
			if w.End <= w.Start {
				continue
			}
			filters = append(filters, fmt.Sprintf("[0:a]atrim=start=%s:end=%s,asetpts=PTS-STARTPTS%s",
				formatSeconds(w.Start), formatSeconds(w.End), label))
		case adwindow.TypeAd:
			if notifClip == "" || w.End <= w.Start {
				continue
			}
			args = append(args, "-i", notifClip)
			filters = append(filters, fmt.Sprintf("[%d:a]asetpts=PTS-STARTPTS%s", inputs, label))
			inputs++
		default:
			return nil, fmt.Errorf("render: unknown segment type %q", w.SegmentType)
		}
		labels = append(labels, label)
	}
	if len(labels) == 0 {
		return nil, errors.New("render: nothing left to keep")
	}
	graph := strings.Join(filters, ";") + ";" + strings.Join(labels, "") +
		fmt.Sprintf("concat=n=%d:v=0:a=1[out]", len(labels))
	args = append(args,
		"-filter_complex", graph,
		"-map", "[out]",
		"-c:a", "libmp3lame", "-b:a", bitrate,
		"-f", "mp3",
	)
	return args, nil
}

var partPattern = regexp.MustCompile(`^part_(\d+)_`)

// Parts lists the chunks of original that exist on disk, ordered by index.
func Parts(original string) ([]string, error) {
	pattern := filepath.Join(filepath.Dir(original), PartPrefix+"*_"+filepath.Base(original))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	suffix := "_" + filepath.Base(original)
	type indexed struct {
		index int
		path  string
	}
	found := make([]indexed, 0, len(matches))
	for _, match := range matches {
		base := filepath.Base(match)
		m := partPattern.FindStringSubmatch(base)
		if m == nil || base != m[0]+strings.TrimPrefix(suffix, "_") {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		found = append(found, indexed{index: idx, path: match})
	}
	slices.SortFunc(found, func(a, b indexed) int { return a.index - b.index })
	out := make([]string, len(found))
	for i, f := range found {
		out[i] = f.path
	}
	return out, nil
}

// Join concatenates the chunks of original into out (original when empty) and
// removes the chunks.
func (e *Editor) Join(ctx context.Context, original, out string) (string, error) {
	if out == "" {
		out = original
	}
	parts, err := Parts(original)
	if err != nil {
		return "", fmt.Errorf("join: %w", err)
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("join: no parts found for %s", filepath.Base(original))
	}

	tmp := filepath.Join(filepath.Dir(out), ".joined_"+filepath.Base(out))
	if len(parts) == 1 {
		if err := fileutil.CopyFileVerified(parts[0], tmp); err != nil {
			_ = os.Remove(tmp)
			return "", fmt.Errorf("join: %w", err)
		}
	} else {
		listPath := filepath.Join(filepath.Dir(original), ".concat_"+filepath.Base(original)+".txt")
		var list strings.Builder
		for _, part := range parts {
			abs, err := filepath.Abs(part)
			if err != nil {
				return "", fmt.Errorf("join: %w", err)
			}
			fmt.Fprintf(&list, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
		}
		if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
			return "", fmt.Errorf("join: write list: %w", err)
		}
		defer os.Remove(listPath)
		args := []string{"-y", "-v", "error", "-hide_banner", "-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", "-f", "mp3", tmp}
		if _, err := e.run(ctx, e.ffmpeg, args...); err != nil {
			_ = os.Remove(tmp)
			return "", fmt.Errorf("join: %w", err)
		}
	}
	if err := os.Rename(tmp, out); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("join: commit: %w", err)
	}
	removeAll(parts)
	return out, nil
}

// Cleanup removes leftover chunks of original, for example after a failed run.
func (e *Editor) Cleanup(original string) error {
	return Cleanup(original)
}

// Cleanup removes leftover chunks of original.
func Cleanup(original string) error {
	parts, err := Parts(original)
	if err != nil {
		return err
	}
	removeAll(parts)
	return nil
}

func removeAll(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
