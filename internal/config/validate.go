package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gemgram/gemgram/internal/core"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

// Validate checks the structural validity of a Config.
// It verifies the version field, ensures modules are present, and checks
// that all referenced module IDs exist in the registry. It also enforces
// that Configurable modules have a config entry and validates the
// cross-cutting sections (log, relay, tracing, cron).
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if len(cfg.Modules) == 0 {
		errs = append(errs, errors.New("config: at least one module must be configured"))
	}

	for id := range cfg.Modules {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
	}

	// Strict check: registered Configurable modules must have a config entry.
	for _, info := range core.GetModules() {
		mod := info.New()
		if _, ok := mod.(core.Configurable); ok {
			if _, exists := cfg.Modules[string(info.ID)]; !exists {
				errs = append(errs, fmt.Errorf("config: module %q requires configuration but has no entry", info.ID))
			}
		}
	}

	errs = append(errs, validateLog(cfg.Log)...)
	errs = append(errs, validateRelay(cfg.Relay)...)
	errs = append(errs, validateTracing(cfg.Tracing)...)
	errs = append(errs, validateCron(cfg.Cron)...)

	return errors.Join(errs...)
}

func validateLog(log LogConfig) []error {
	var errs []error
	if log.Level != "" && !slices.Contains(validLogLevels, log.Level) {
		errs = append(errs, fmt.Errorf("config: log.level must be one of %v, got %q", validLogLevels, log.Level))
	}
	if log.Format != "" && log.Format != "json" && log.Format != "text" {
		errs = append(errs, fmt.Errorf("config: log.format must be json or text, got %q", log.Format))
	}
	return errs
}

func validateRelay(relay RelayConfig) []error {
	var errs []error
	if relay.Workers < 0 || relay.Workers > 64 {
		errs = append(errs, fmt.Errorf("config: relay.workers must be 0-64, got %d", relay.Workers))
	}
	if relay.InboxSize < 0 || relay.InboxSize > 4096 {
		errs = append(errs, fmt.Errorf("config: relay.inbox_size must be 0-4096, got %d", relay.InboxSize))
	}
	if relay.ResponseTimeoutSeconds < 0 || relay.ResponseTimeoutSeconds > 600 {
		errs = append(errs, fmt.Errorf("config: relay.response_timeout_seconds must be 0-600, got %d", relay.ResponseTimeoutSeconds))
	}
	if relay.DrainTimeoutSeconds < 0 || relay.DrainTimeoutSeconds > 60 {
		errs = append(errs, fmt.Errorf("config: relay.drain_timeout_seconds must be 0-60, got %d", relay.DrainTimeoutSeconds))
	}
	return errs
}

func validateTracing(tr TracingConfig) []error {
	if !tr.Enabled {
		return nil
	}
	var errs []error
	if tr.Endpoint == "" {
		errs = append(errs, errors.New("config: tracing.enabled requires tracing.endpoint"))
	}
	return errs
}

func validateCron(cr CronConfig) []error {
	var errs []error
	if cr.StatsRetentionDays < 0 {
		errs = append(errs, fmt.Errorf("config: cron.stats_retention_days must not be negative, got %d", cr.StatsRetentionDays))
	}
	return errs
}
