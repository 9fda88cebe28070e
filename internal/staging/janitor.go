// Package staging manages the shared root under which Anki package
// parsing and building create their per-call working directories.
package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Prepare ensures the staging root exists.
func Prepare(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create staging directory %s: %w", dir, err)
	}
	return nil
}

// Cleanup removes per-call staging directories older than maxAge.
// Normal operation cleans up after itself; this sweeps up what crashed
// requests and media-handling callers left behind.
func Cleanup(dir string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read staging directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, "anki-import-") && !strings.HasPrefix(name, "anki-export-") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, name)); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", name, err)
		}
		removed++
	}
	return removed, nil
}
