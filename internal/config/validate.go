package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLedger(); err != nil {
		return err
	}
	if err := c.validateTargets(); err != nil {
		return err
	}
	if err := c.validateEstimator(); err != nil {
		return err
	}
	return ensurePositiveMap(map[string]int{
		"watch.debounce_ms":         c.Watch.DebounceMillis,
		"estimator.timeout_seconds": c.Estimator.TimeoutSeconds,
	})
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.NotePath) == "" {
		return errors.New("paths.note_path must be set")
	}
	if strings.HasSuffix(c.Paths.NotePath, "/") {
		return errors.New("paths.note_path must name a file, not a directory")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateLedger() error {
	switch c.Ledger.Mode {
	case ModeMealsTable, ModeDaily:
	default:
		return fmt.Errorf("ledger.mode must be %q or %q, got %q", ModeMealsTable, ModeDaily, c.Ledger.Mode)
	}
	if !strings.EqualFold(c.Ledger.Timezone, "local") {
		if _, err := time.LoadLocation(c.Ledger.Timezone); err != nil {
			return fmt.Errorf("ledger.timezone: %w", err)
		}
	}
	if c.Ledger.EntryCapacity <= 0 {
		return errors.New("ledger.entry_capacity must be positive")
	}
	return nil
}

func (c *Config) validateTargets() error {
	for name, value := range map[string]float64{
		"targets.calories":      c.Targets.Calories,
		"targets.proteins":      c.Targets.Proteins,
		"targets.fats":          c.Targets.Fats,
		"targets.carbohydrates": c.Targets.Carbohydrates,
	} {
		if value < 0 {
			return fmt.Errorf("%s must be >= 0", name)
		}
	}
	return nil
}

func (c *Config) validateEstimator() error {
	switch c.Estimator.Backend {
	case BackendWorker, BackendGemini:
	default:
		return fmt.Errorf("estimator.backend must be %q or %q, got %q", BackendWorker, BackendGemini, c.Estimator.Backend)
	}
	return nil
}

// EstimatorReady reports whether the selected backend has the credentials
// it needs. Only commands that estimate meals call it.
func (c *Config) EstimatorReady() error {
	switch c.Estimator.Backend {
	case BackendWorker:
		if c.Estimator.WorkerURL == "" {
			return errors.New("estimator.worker_url is required. Set FOODLOG_WORKER_URL env var or edit the config (create with 'foodlog config init')")
		}
		if !strings.HasPrefix(c.Estimator.WorkerURL, "http://") && !strings.HasPrefix(c.Estimator.WorkerURL, "https://") {
			return fmt.Errorf("estimator.worker_url must be an http(s) URL, got %q", c.Estimator.WorkerURL)
		}
	case BackendGemini:
		if c.Estimator.GeminiAPIKey == "" {
			return errors.New("estimator.gemini_api_key is required. Set GEMINI_API_KEY env var or edit the config")
		}
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
