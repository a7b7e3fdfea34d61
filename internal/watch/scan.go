package watch

import (
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"adtrim/internal/audio"
	"adtrim/internal/ledger"
)

// Scan returns the files below dir whose extension is in extensions, sorted.
// Extensions are matched case-insensitively and must include the leading dot.
func Scan(dir string, extensions []string) ([]string, error) {
	wanted := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		wanted[strings.ToLower(ext)] = struct{}{}
	}

	var found []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != dir && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !eligible(name) {
			return nil
		}
		if _, ok := wanted[strings.ToLower(filepath.Ext(name))]; !ok {
			return nil
		}
		found = append(found, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(found)
	return found, nil
}

func eligible(name string) bool {
	switch {
	case strings.HasPrefix(name, "."):
		return false
	case ledger.IsMarker(name):
		return false
	case audio.IsPart(name):
		return false
	}
	return true
}
