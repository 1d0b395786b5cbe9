package layerfs

import (
	"os"
	"path/filepath"
)

// FindParentWith walks up from dir and returns the first directory that
// contains an entry called name.
func FindParentWith(dir, name string) (string, bool) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		if _, err := os.Stat(filepath.Join(current, name)); err == nil {
			return current, true
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}
