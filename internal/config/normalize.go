package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLedger()
	c.normalizeEstimator()
	if c.Watch.DebounceMillis <= 0 {
		c.Watch.DebounceMillis = defaultDebounceMillis
	}
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	if c.Server.Token == "" {
		if value, ok := os.LookupEnv("FOODLOG_SERVER_TOKEN"); ok {
			c.Server.Token = strings.TrimSpace(value)
		}
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.NotePath) == "" {
		c.Paths.NotePath = defaultNotePath
	}
	if c.Paths.NotePath, err = ExpandPath(c.Paths.NotePath); err != nil {
		return fmt.Errorf("paths.note_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = ExpandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLedger() {
	c.Ledger.Mode = strings.ToLower(strings.TrimSpace(c.Ledger.Mode))
	if c.Ledger.Mode == "" {
		c.Ledger.Mode = defaultLedgerMode
	}
	c.Ledger.Timezone = strings.TrimSpace(c.Ledger.Timezone)
	if c.Ledger.Timezone == "" {
		c.Ledger.Timezone = defaultTimezone
	}
	if c.Ledger.EntryCapacity == 0 {
		c.Ledger.EntryCapacity = defaultEntryCapacity
	}
}

func (c *Config) normalizeEstimator() {
	c.Estimator.Backend = strings.ToLower(strings.TrimSpace(c.Estimator.Backend))
	if c.Estimator.Backend == "" {
		c.Estimator.Backend = defaultBackend
	}
	c.Estimator.WorkerURL = strings.TrimSpace(c.Estimator.WorkerURL)
	if c.Estimator.WorkerURL == "" {
		if value, ok := os.LookupEnv("FOODLOG_WORKER_URL"); ok {
			c.Estimator.WorkerURL = strings.TrimSpace(value)
		}
	}
	c.Estimator.GeminiAPIKey = strings.TrimSpace(c.Estimator.GeminiAPIKey)
	if c.Estimator.GeminiAPIKey == "" {
		if value, ok := os.LookupEnv("GEMINI_API_KEY"); ok {
			c.Estimator.GeminiAPIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("GOOGLE_API_KEY"); ok {
			c.Estimator.GeminiAPIKey = strings.TrimSpace(value)
		}
	}
	c.Estimator.GeminiModel = strings.TrimSpace(c.Estimator.GeminiModel)
	if c.Estimator.GeminiModel == "" {
		c.Estimator.GeminiModel = defaultGeminiModel
	}
	if c.Estimator.TimeoutSeconds <= 0 {
		c.Estimator.TimeoutSeconds = defaultEstimatorTimeout
	}
	c.Estimator.Fields.Item = strings.TrimSpace(c.Estimator.Fields.Item)
	c.Estimator.Fields.Portion = strings.TrimSpace(c.Estimator.Fields.Portion)
	c.Estimator.Fields.Per100g = strings.TrimSpace(c.Estimator.Fields.Per100g)
	c.Estimator.Fields.Totals = strings.TrimSpace(c.Estimator.Fields.Totals)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
