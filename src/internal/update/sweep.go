package update

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// SweepStale removes leftover update payloads and staged updaters from dir.
// Files younger than minAge are kept so a hand-off still in flight is not
// disturbed. Errors are logged and ignored.
func SweepStale(dir, appName string, minAge time.Duration, logger *log.Logger) int {
	if logger == nil {
		logger = log.Default()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Debug("temp sweep skipped", "dir", dir, "err", err)
		return 0
	}

	prefix := tempPrefix(appName)
	cutoff := time.Now().Add(-minAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.Remove(path); err != nil {
			logger.Debug("stale update file kept", "path", path, "err", err)
			continue
		}
		logger.Info("removed stale update file", "path", path)
		removed++
	}
	return removed
}
