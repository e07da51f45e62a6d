package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"foodlog/internal/config"
)

// WriteNote creates the configured note with content.
func WriteNote(t testing.TB, cfg *config.Config, content string) {
	t.Helper()

	path := cfg.Paths.NotePath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReadNote returns the configured note's content.
func ReadNote(t testing.TB, cfg *config.Config) string {
	t.Helper()

	data, err := os.ReadFile(cfg.Paths.NotePath)
	if err != nil {
		t.Fatalf("read %s: %v", cfg.Paths.NotePath, err)
	}
	return string(data)
}
