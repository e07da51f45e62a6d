package config

const (
	defaultNotePath         = "~/notes/Food Log.md"
	defaultStateDir         = "~/.local/share/foodlog"
	defaultLogDir           = "~/.local/share/foodlog/logs"
	defaultLogRetentionDays = 30
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLedgerMode       = ModeMealsTable
	defaultTimezone         = "Local"
	defaultEntryCapacity    = 2000
	defaultBackend          = BackendWorker
	defaultEstimatorTimeout = 60
	defaultGeminiModel      = "gemini-2.5-flash"
	defaultDebounceMillis   = 750
	defaultServerBind       = "127.0.0.1:7431"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			NotePath: defaultNotePath,
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Ledger: Ledger{
			Mode:          defaultLedgerMode,
			Timezone:      defaultTimezone,
			EntryCapacity: defaultEntryCapacity,
		},
		Estimator: Estimator{
			Backend:        defaultBackend,
			TimeoutSeconds: defaultEstimatorTimeout,
			GeminiModel:    defaultGeminiModel,
		},
		Watch: Watch{
			DebounceMillis: defaultDebounceMillis,
		},
		Server: Server{
			Bind: defaultServerBind,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
