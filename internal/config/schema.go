// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for gemgram.
package config

import "gopkg.in/yaml.v3"

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// Log controls the process-wide logger.
	Log LogConfig `yaml:"log,omitempty"`

	// Relay tunes the message-handling pipeline.
	Relay RelayConfig `yaml:"relay,omitempty"`

	// Tracing configures the optional OpenTelemetry trace exporter.
	Tracing TracingConfig `yaml:"tracing,omitempty"`

	// Cron configures the background maintenance jobs.
	Cron CronConfig `yaml:"cron,omitempty"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "channel.telegram").
	Modules map[string]yaml.Node `yaml:"modules"`
}

// LogConfig controls log output.
type LogConfig struct {
	// Level is the minimum level: debug, info, warn, or error. Default info.
	Level string `yaml:"level,omitempty"`

	// Format selects the handler: json or text. Default json.
	Format string `yaml:"format,omitempty"`
}

// RelayConfig tunes the relay pipeline.
type RelayConfig struct {
	// Workers is the number of concurrent message handlers. Default 4.
	Workers int `yaml:"workers,omitempty"`

	// InboxSize is the inbound queue capacity. Messages arriving while the
	// queue is full are dropped and counted. Default 64.
	InboxSize int `yaml:"inbox_size,omitempty"`

	// ResponseTimeoutSeconds bounds one AI completion call. Default 60.
	ResponseTimeoutSeconds int `yaml:"response_timeout_seconds,omitempty"`

	// DrainTimeoutSeconds is how long shutdown waits for queued messages
	// to finish before cancelling them. Default 5.
	DrainTimeoutSeconds int `yaml:"drain_timeout_seconds,omitempty"`
}

// TracingConfig configures OTLP trace export.
type TracingConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`

	// Endpoint is the OTLP/HTTP collector host:port (e.g. "localhost:4318").
	Endpoint string `yaml:"endpoint,omitempty"`

	// ServiceName overrides the reported service.name. Default "gemgram".
	ServiceName string `yaml:"service_name,omitempty"`

	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure,omitempty"`
}

// CronConfig holds schedules for background jobs, in standard cron syntax.
type CronConfig struct {
	// ProviderProbe is the schedule of the AI provider health probe.
	// Default "*/5 * * * *". "off" disables the probe.
	ProviderProbe string `yaml:"provider_probe,omitempty"`

	// StatsPrune is the schedule of the counter retention job.
	// Default "10 3 * * *". "off" disables pruning.
	StatsPrune string `yaml:"stats_prune,omitempty"`

	// StatsRetentionDays is how many days of counters to keep. Default 90.
	StatsRetentionDays int `yaml:"stats_retention_days,omitempty"`
}

// Defaults applies default values to unset top-level fields. Load calls it
// automatically; callers constructing a Config by hand should call it too.
func (c *Config) Defaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Relay.Workers == 0 {
		c.Relay.Workers = 4
	}
	if c.Relay.InboxSize == 0 {
		c.Relay.InboxSize = 64
	}
	if c.Relay.ResponseTimeoutSeconds == 0 {
		c.Relay.ResponseTimeoutSeconds = 60
	}
	if c.Relay.DrainTimeoutSeconds == 0 {
		c.Relay.DrainTimeoutSeconds = 5
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "gemgram"
	}
	if c.Cron.ProviderProbe == "" {
		c.Cron.ProviderProbe = "*/5 * * * *"
	}
	if c.Cron.StatsPrune == "" {
		c.Cron.StatsPrune = "10 3 * * *"
	}
	if c.Cron.StatsRetentionDays == 0 {
		c.Cron.StatsRetentionDays = 90
	}
}
