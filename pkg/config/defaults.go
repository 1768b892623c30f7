package config

import "time"

// Default values for configuration fields.
const (
	// Policy defaults
	DefaultRulesPath     = "./rules.yaml"
	DefaultPolicyWatch   = false
	DefaultWatchDebounce = 500 * time.Millisecond

	// Audit defaults
	DefaultAuditBackend      = "jsonl"
	DefaultJSONLPath         = "data/audit.jsonl"
	DefaultSQLitePath        = "data/audit.db"
	DefaultSQLiteBusyTimeout = 5 * time.Second
	DefaultRetentionEnabled  = false
	DefaultRetentionDays     = 90
	DefaultRetentionSchedule = "0 3 * * *"

	// Classifier defaults
	DefaultClassifierTimeout = 10 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "json"
	DefaultMetricsEnabled       = false
	DefaultMetricsListenAddress = "127.0.0.1:9090"
	DefaultMetricsPath          = "/metrics"
)

// ApplyDefaults fills in default values for all unset configuration
// fields. It never overwrites a value already set.
func ApplyDefaults(cfg *Config) {
	if cfg.Policy.RulesPath == "" {
		cfg.Policy.RulesPath = DefaultRulesPath
	}
	if cfg.Policy.WatchDebounce <= 0 {
		cfg.Policy.WatchDebounce = DefaultWatchDebounce
	}

	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = DefaultAuditBackend
	}
	if cfg.Audit.JSONL.Path == "" {
		cfg.Audit.JSONL.Path = DefaultJSONLPath
	}
	if cfg.Audit.SQLite.Path == "" {
		cfg.Audit.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Audit.SQLite.BusyTimeout <= 0 {
		cfg.Audit.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.Audit.Retention.Days == 0 {
		cfg.Audit.Retention.Days = DefaultRetentionDays
	}
	if cfg.Audit.Retention.Schedule == "" {
		cfg.Audit.Retention.Schedule = DefaultRetentionSchedule
	}

	if cfg.Classifier.Timeout <= 0 {
		cfg.Classifier.Timeout = DefaultClassifierTimeout
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
}
