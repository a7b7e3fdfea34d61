package ledger

import (
	"os"
	"path/filepath"
)

const markerPrefix = ".hit."

// MarkerPath returns the legacy marker file that flags path as processed.
func MarkerPath(path string) string {
	return filepath.Join(filepath.Dir(path), markerPrefix+filepath.Base(path)+".txt")
}

// HasMarker reports whether a legacy marker exists for path.
func HasMarker(path string) bool {
	info, err := os.Stat(MarkerPath(path))
	return err == nil && !info.IsDir()
}

// IsMarker reports whether name is itself a legacy marker file.
func IsMarker(name string) bool {
	base := filepath.Base(name)
	return len(base) > len(markerPrefix) && base[:len(markerPrefix)] == markerPrefix
}
