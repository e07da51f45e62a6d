package testsupport

import (
	"path/filepath"
	"testing"

	"foodlog/internal/config"
	"foodlog/internal/ledger"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The note path points into the temp vault but the note itself is not created.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.NotePath = filepath.Join(base, "vault", "Food Log.md")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Ledger.Timezone = "UTC"
	cfgVal.Estimator.WorkerURL = "http://127.0.0.1:0/estimate"
	cfgVal.Server.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithMode selects the ledger mode.
func WithMode(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ledger.Mode = mode
	}
}

// WithTargets sets daily targets on the test config.
func WithTargets(targets ledger.Targets) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Targets = targets
	}
}

// WithCapacity overrides the entry store capacity.
func WithCapacity(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ledger.EntryCapacity = n
	}
}

// WithWorkerURL points the estimator at url.
func WithWorkerURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Estimator.Backend = config.BackendWorker
		b.cfg.Estimator.WorkerURL = url
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
