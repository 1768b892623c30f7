package config

import "time"

// Config is the root configuration structure for Warden. It contains
// all configuration sections for policy rules, audit storage, the
// classifier, and telemetry.
type Config struct {
	// Policy contains configuration for the policy gate including the
	// rule file location and watch mode.
	Policy PolicyConfig `yaml:"policy"`

	// Audit contains configuration for audit record storage including
	// backend selection and retention settings.
	Audit AuditConfig `yaml:"audit"`

	// Classifier contains configuration for intent classification.
	Classifier ClassifierConfig `yaml:"classifier"`

	// Telemetry contains configuration for logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// PolicyConfig contains configuration for the policy gate.
type PolicyConfig struct {
	// RulesPath is the path to the YAML rule file.
	// Default: "./rules.yaml"
	RulesPath string `yaml:"rules_path"`

	// Watch controls whether the rule file is watched for changes and
	// reloaded automatically.
	// Default: false
	Watch bool `yaml:"watch"`

	// WatchDebounce is how long to wait after a file event before
	// reloading, coalescing editor write bursts into one reload.
	// Default: 500ms
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// AuditConfig contains configuration for audit record storage.
type AuditConfig struct {
	// Backend selects the audit sink: "jsonl", "sqlite", or "memory".
	// Default: "jsonl"
	Backend string `yaml:"backend"`

	// JSONL contains settings for the append-only JSONL file backend.
	JSONL JSONLConfig `yaml:"jsonl"`

	// SQLite contains settings for the SQLite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Retention contains pruning settings. Retention applies only to
	// the sqlite backend; the jsonl backend is append-only.
	Retention RetentionConfig `yaml:"retention"`
}

// JSONLConfig contains settings for the JSONL audit backend.
type JSONLConfig struct {
	// Path is the audit log file location.
	// Default: "data/audit.jsonl"
	Path string `yaml:"path"`
}

// SQLiteConfig contains settings for the SQLite audit backend.
type SQLiteConfig struct {
	// Path is the database file location.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long a write waits on a locked database
	// before failing.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig contains audit pruning settings.
type RetentionConfig struct {
	// Enabled controls whether the retention scheduler runs.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Days is the maximum record age. Zero disables age-based pruning.
	// Default: 90
	Days int `yaml:"days"`

	// MaxRecords caps the total record count. Zero disables
	// count-based pruning.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`

	// Schedule is the cron expression for prune runs.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`
}

// ClassifierConfig contains configuration for intent classification.
type ClassifierConfig struct {
	// Timeout bounds a single classification call.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains structured logging settings.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics settings.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled controls whether the metrics endpoint is served.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address for the metrics HTTP server.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path for the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`
}
