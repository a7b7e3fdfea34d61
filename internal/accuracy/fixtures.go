package accuracy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"adtrim/internal/adwindow"
	"adtrim/internal/transcript"
)

const (
	transcriptFileName = "transcription.json"
	groundTruthBase    = "ground_truth"
)

var groundTruthExtensions = []string{".json", ".yaml", ".yml"}

// Fixture is one hand-annotated evaluation case.
type Fixture struct {
	Name        string
	Dir         string
	Transcript  *transcript.Transcript
	GroundTruth []adwindow.Annotation
}

// LoadGroundTruth reads an array of {segment_type, segment_index} objects
// from a JSON or YAML file, chosen by extension.
func LoadGroundTruth(path string) ([]adwindow.Annotation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var anns []adwindow.Annotation
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &anns)
	default:
		err = json.Unmarshal(data, &anns)
	}
	if err != nil {
		return nil, fmt.Errorf("parse ground truth %s: %w", path, err)
	}
	for i, ann := range anns {
		if !ann.SegmentType.Valid() {
			return nil, fmt.Errorf("ground truth %s: entry %d: unknown segment_type %q", path, i, ann.SegmentType)
		}
	}
	return anns, nil
}

// DiscoverFixtures lists fixture directories under root that contain both a
// transcript and a ground-truth file, sorted by name. A missing root yields
// no fixtures.
func DiscoverFixtures(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read fixtures dir: %w", err)
	}
	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		if !fileExists(filepath.Join(dir, transcriptFileName)) {
			continue
		}
		if groundTruthPath(dir) == "" {
			continue
		}
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// LoadFixture reads the transcript and ground truth stored in dir.
func LoadFixture(dir string) (Fixture, error) {
	tr, err := transcript.Load(filepath.Join(dir, transcriptFileName))
	if err != nil {
		return Fixture{}, fmt.Errorf("load fixture transcript: %w", err)
	}
	gtPath := groundTruthPath(dir)
	if gtPath == "" {
		return Fixture{}, fmt.Errorf("fixture %s: no %s file", dir, groundTruthBase)
	}
	gt, err := LoadGroundTruth(gtPath)
	if err != nil {
		return Fixture{}, err
	}
	return Fixture{
		Name:        filepath.Base(dir),
		Dir:         dir,
		Transcript:  tr,
		GroundTruth: gt,
	}, nil
}

func groundTruthPath(dir string) string {
	for _, ext := range groundTruthExtensions {
		candidate := filepath.Join(dir, groundTruthBase+ext)
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
