package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// PruneLogs deletes files in dir matching pattern that were last modified
// more than days ago and returns their paths. keep names the active log and
// is never touched. days <= 0 disables pruning.
func PruneLogs(logger *slog.Logger, dir, pattern, keep string, days int) []string {
	if days <= 0 || dir == "" {
		return nil
	}
	if pattern == "" {
		pattern = "*"
	}
	candidates, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil
	}
	if logger == nil {
		logger = NewNop()
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	var pruned []string
	for _, path := range candidates {
		if filepath.Base(path) == keep {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "could not prune old log", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check permissions on the log directory"),
				String(FieldImpact, "old log file stays on disk"),
			)
			continue
		}
		logger.Debug("old log pruned", String("path", path))
		pruned = append(pruned, path)
	}
	return pruned
}
