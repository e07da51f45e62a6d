package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"foodlog/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	t.Setenv("FOODLOG_WORKER_URL", "https://worker.example/estimate")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "foodlog")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Paths.NotePath != filepath.Join(tempHome, "notes", "Food Log.md") {
		t.Fatalf("unexpected note path: %q", cfg.Paths.NotePath)
	}
	if cfg.DatabasePath() != filepath.Join(wantState, "entries.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Ledger.Mode != config.ModeMealsTable {
		t.Fatalf("unexpected ledger mode: %q", cfg.Ledger.Mode)
	}
	if cfg.Ledger.EntryCapacity != 2000 {
		t.Fatalf("unexpected entry capacity: %d", cfg.Ledger.EntryCapacity)
	}
	if cfg.Estimator.WorkerURL != "https://worker.example/estimate" {
		t.Fatalf("expected worker url from env, got %q", cfg.Estimator.WorkerURL)
	}
	if err := cfg.EstimatorReady(); err != nil {
		t.Fatalf("EstimatorReady: %v", err)
	}
	if cfg.Debounce() != 750*time.Millisecond {
		t.Fatalf("unexpected debounce: %s", cfg.Debounce())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "foodlog.toml")

	type payload struct {
		Paths struct {
			NotePath string `toml:"note_path"`
		} `toml:"paths"`
		Ledger struct {
			Mode     string `toml:"mode"`
			Timezone string `toml:"timezone"`
		} `toml:"ledger"`
		Targets struct {
			Calories float64 `toml:"calories"`
		} `toml:"targets"`
		Estimator struct {
			Backend      string `toml:"backend"`
			GeminiAPIKey string `toml:"gemini_api_key"`
			Fields       struct {
				Per100g string `toml:"per_100g"`
			} `toml:"fields"`
		} `toml:"estimator"`
	}
	custom := payload{}
	custom.Paths.NotePath = filepath.Join(tempDir, "vault", "Meals.md")
	custom.Ledger.Mode = "DAILY"
	custom.Ledger.Timezone = "UTC"
	custom.Targets.Calories = 2200
	custom.Estimator.Backend = "gemini"
	custom.Estimator.GeminiAPIKey = "file-key"
	custom.Estimator.Fields.Per100g = " $.result.nutrition "
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.NotePath != custom.Paths.NotePath {
		t.Fatalf("unexpected note path %q", cfg.Paths.NotePath)
	}
	if cfg.Ledger.Mode != config.ModeDaily {
		t.Fatalf("expected mode to be normalized, got %q", cfg.Ledger.Mode)
	}
	if cfg.Location().String() != "UTC" {
		t.Fatalf("unexpected location %s", cfg.Location())
	}
	if cfg.Targets.Calories != 2200 {
		t.Fatalf("unexpected calorie target %v", cfg.Targets.Calories)
	}
	if cfg.Estimator.GeminiAPIKey != "file-key" {
		t.Fatalf("expected gemini key from file, got %q", cfg.Estimator.GeminiAPIKey)
	}
	if cfg.Estimator.Fields.Per100g != "$.result.nutrition" {
		t.Fatalf("expected trimmed field path, got %q", cfg.Estimator.Fields.Per100g)
	}
}

func TestConfigFileValueWinsOverEnv(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "foodlog.toml")
	if err := os.WriteFile(configPath, []byte("[estimator]\nbackend = \"gemini\"\ngemini_api_key = \"file-key\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Estimator.GeminiAPIKey != "file-key" {
		t.Fatalf("expected file key to win, got %q", cfg.Estimator.GeminiAPIKey)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"mode", func(c *config.Config) { c.Ledger.Mode = "weekly" }, "ledger.mode"},
		{"timezone", func(c *config.Config) { c.Ledger.Timezone = "Mars/Olympus" }, "ledger.timezone"},
		{"capacity", func(c *config.Config) { c.Ledger.EntryCapacity = -1 }, "ledger.entry_capacity"},
		{"targets", func(c *config.Config) { c.Targets.Fats = -5 }, "targets.fats"},
		{"backend", func(c *config.Config) { c.Estimator.Backend = "oracle" }, "estimator.backend"},
		{"debounce", func(c *config.Config) { c.Watch.DebounceMillis = 0 }, "watch.debounce_ms"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestEstimatorReadyRequiresCredentials(t *testing.T) {
	cfg := config.Default()
	if err := cfg.EstimatorReady(); err == nil {
		t.Fatal("expected missing worker url to be reported")
	}
	cfg.Estimator.WorkerURL = "ftp://nope"
	if err := cfg.EstimatorReady(); err == nil {
		t.Fatal("expected non-http worker url to be rejected")
	}
	cfg.Estimator.Backend = config.BackendGemini
	if err := cfg.EstimatorReady(); err == nil {
		t.Fatal("expected missing gemini key to be reported")
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists || cfg.Ledger.Mode != config.ModeMealsTable || cfg.Logging.RetentionDays != 30 {
		t.Fatalf("unexpected sample config %+v", cfg)
	}
}
