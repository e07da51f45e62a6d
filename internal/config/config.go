package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"foodlog/internal/ledger"
)

//go:embed sample_config.toml
var sampleConfig string

// Ledger modes.
const (
	// ModeMealsTable writes meal blocks plus a running Meals Table.
	ModeMealsTable = "meals_table"
	// ModeDaily writes per-day base tables with derived totals.
	ModeDaily = "daily"
)

// Estimator backends.
const (
	BackendWorker = "worker"
	BackendGemini = "gemini"
)

// Paths contains file and directory locations.
type Paths struct {
	NotePath string `toml:"note_path"`
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Ledger controls how meals are written into the note.
type Ledger struct {
	Mode          string `toml:"mode"`
	Timezone      string `toml:"timezone"`
	EntryCapacity int    `toml:"entry_capacity"`
}

// FieldPaths are JSONPath expressions locating meal fields inside estimator
// responses. Empty paths fall back to the built-in key lookup.
type FieldPaths struct {
	Item    string `toml:"item"`
	Portion string `toml:"portion"`
	Per100g string `toml:"per_100g"`
	Totals  string `toml:"totals"`
}

// Estimator contains configuration for the nutrition estimation backend.
type Estimator struct {
	Backend        string     `toml:"backend"`
	WorkerURL      string     `toml:"worker_url"`
	TimeoutSeconds int        `toml:"timeout_seconds"`
	GeminiAPIKey   string     `toml:"gemini_api_key"`
	GeminiModel    string     `toml:"gemini_model"`
	Fields         FieldPaths `toml:"fields"`
}

// Watch contains configuration for the note watcher.
type Watch struct {
	DebounceMillis int `toml:"debounce_ms"`
}

// Server contains configuration for the tool server.
type Server struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config is the full foodlog configuration as read from TOML.
type Config struct {
	Paths     Paths          `toml:"paths"`
	Ledger    Ledger         `toml:"ledger"`
	Targets   ledger.Targets `toml:"targets"`
	Estimator Estimator      `toml:"estimator"`
	Watch     Watch          `toml:"watch"`
	Server    Server         `toml:"server"`
	Logging   Logging        `toml:"logging"`
}

// DefaultConfigPath is ~/.config/foodlog/config.toml, expanded.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/foodlog/config.toml")
}

// Load reads the configuration at path, or the first existing default
// location when path is empty, on top of Default. A missing file is not an
// error: defaults plus environment fallbacks are used. Load returns the
// config, the file it resolved to and whether that file exists.
func Load(path string) (*Config, string, bool, error) {
	resolved, found, err := locate(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if found {
		raw, err := os.ReadFile(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("read config %s: %w", resolved, err)
		}
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, found, nil
}

// locate picks the config file. An explicit path is used as given; otherwise
// the user config wins over ./foodlog.toml.
func locate(path string) (string, bool, error) {
	var candidates []string
	if path != "" {
		candidates = []string{path}
	} else {
		candidates = []string{"~/.config/foodlog/config.toml", "foodlog.toml"}
	}

	first := ""
	for _, candidate := range candidates {
		abs, err := ExpandPath(candidate)
		if err != nil {
			return "", false, err
		}
		if first == "" {
			first = abs
		}
		info, err := os.Stat(abs)
		switch {
		case err == nil && !info.IsDir():
			return abs, true, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return "", false, fmt.Errorf("stat config %s: %w", abs, err)
		}
	}
	return first, false, nil
}

// EnsureDirectories creates the state and log directories. The note's
// directory is left alone: a missing note is reported, never created.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath is the SQLite file holding recorded entries.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "entries.db")
}

// Location returns the timezone used to stamp meals.
func (c *Config) Location() *time.Location {
	if c.Ledger.Timezone == "" || strings.EqualFold(c.Ledger.Timezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Ledger.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Debounce is the watcher quiet period.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMillis) * time.Millisecond
}

// EstimatorTimeout bounds a single estimation request.
func (c *Config) EstimatorTimeout() time.Duration {
	return time.Duration(c.Estimator.TimeoutSeconds) * time.Second
}

// ExpandPath resolves a leading ~ to the home directory and returns an
// absolute, cleaned path. An empty value stays empty.
func ExpandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") || strings.HasPrefix(value, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, value[1:])
	}
	abs, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", value, err)
	}
	return abs, nil
}

// CreateSample writes the commented sample configuration to path, creating
// parent directories.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config %s: %w", path, err)
	}
	return nil
}
