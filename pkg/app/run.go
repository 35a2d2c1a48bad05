// Package app assembles and runs the gemgram relay service: configuration,
// logging, module lifecycle, relay wiring, scheduled jobs, and signal
// handling.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gopkg.in/yaml.v3"

	"github.com/gemgram/gemgram/internal/config"
	"github.com/gemgram/gemgram/internal/core"
	"github.com/gemgram/gemgram/internal/events"
	"github.com/gemgram/gemgram/internal/security"
	"github.com/gemgram/gemgram/internal/tracing"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, standard locations are searched; when no file exists
	// anywhere, the built-in environment-only configuration is used.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides the default persistent data directory.
	DataDir string
}

// Run loads configuration, starts all modules, and blocks until a shutdown
// signal is received. Configuration is read once and held for the process
// lifetime; there is no live reload.
func Run(params RunParams) error {
	// A .env file is loaded before anything reads the environment so both
	// ${VAR} expansion and the built-in default config can see it.
	LoadDotEnv(params.ConfigPath)

	cfg, cfgPath, err := loadConfig(params.ConfigPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	// Security foundation: the credential store collects every secret the
	// modules load, and the redactor keeps them out of log output.
	credStore := security.NewCredentialStore()
	redactor := security.NewRedactor()
	logger := newLogger(cfg.Log, redactor)

	if cfgPath != "" {
		logger.Info("configuration loaded", "path", cfgPath)
	} else {
		logger.Info("no configuration file found, using environment-only defaults")
	}

	tracer, stopTracing, err := tracing.Setup(context.Background(), tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Insecure:    cfg.Tracing.Insecure,
	})
	if err != nil {
		return err
	}

	dataDir := params.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}

	appCtx := core.NewAppContext(logger, dataDir)
	appCtx = appCtx.WithModuleConfigs(cfg.Modules)

	hub := events.NewHub()
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Register shared services for cross-module discovery.
	appCtx.RegisterService("security.credentials", credStore)
	appCtx.RegisterService("security.redactor", redactor)
	appCtx.RegisterService("events.hub", hub)
	appCtx.RegisterService("metrics.gatherer", prometheus.Gatherer(registry))

	view, err := configView(cfg, redactor)
	if err != nil {
		return err
	}
	appCtx.RegisterService("config.view", view)

	application := core.NewApp(appCtx)
	ids := config.Resolve(cfg)
	if err := application.LoadModules(ids); err != nil {
		return err
	}

	// Wire the relay between LoadModules and Start: discover channels and
	// the provider, connect every channel inbox, and append the relay to
	// the app lifecycle.
	rly, prov, err := wireRelay(application, appCtx, ids, wiring{
		cfg:      cfg,
		logger:   logger,
		hub:      hub,
		registry: registry,
		tracer:   tracer,
	})
	if err != nil {
		return err
	}

	if err := wireScheduler(application, appCtx, cfg.Cron, prov, rly.Status(), hub, logger); err != nil {
		return err
	}

	if err := application.Start(); err != nil {
		return err
	}

	// Modules registered their secrets during provisioning; from here on
	// the literal values are scrubbed from every log line.
	redactor.SyncCredentials(credStore)

	logger.Info("gemgram started",
		"version", params.Version,
		"modules", len(ids),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	sig := <-sigCh
	logger.Info("shutdown signal received", "signal", sig.String())

	application.Stop()
	hub.Close()

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := stopTracing(flushCtx); err != nil {
		logger.Warn("trace exporter shutdown failed", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// loadConfig loads the configuration: an explicit path, then the standard
// locations, then the built-in environment-only default. The returned path
// is empty when the built-in default was used.
func loadConfig(explicit string) (*config.Config, string, error) {
	if explicit != "" {
		cfg, err := config.Load(explicit)
		return cfg, explicit, err
	}

	if path, err := ResolveConfigPath(); err == nil {
		cfg, err := config.Load(path)
		return cfg, path, err
	}

	cfg, err := config.Default()
	return cfg, "", err
}

// LoadDotEnv loads a .env file if one exists next to the config file or in
// the working directory. Already-set variables are never overwritten, and
// a missing file is not an error.
func LoadDotEnv(cfgPath string) {
	var candidates []string
	if cfgPath != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(cfgPath), ".env"))
	}
	candidates = append(candidates, ".env")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

// newLogger builds the process logger: JSON or text per config, with every
// record passing through the redacting handler.
func newLogger(cfg config.LogConfig, redactor *security.Redactor) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var inner slog.Handler
	if cfg.Format == "text" {
		inner = slog.NewTextHandler(os.Stderr, opts)
	} else {
		inner = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(security.NewRedactingHandler(inner, redactor))
}

// configView renders the effective configuration as a redacted map for the
// gateway's configz endpoint. Values under secret-named keys are replaced
// before the view leaves this function, so raw credentials never sit in
// the service registry.
func configView(cfg *config.Config, redactor *security.Redactor) (map[string]any, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("app: render config view: %w", err)
	}

	var view map[string]any
	if err := yaml.Unmarshal(raw, &view); err != nil {
		return nil, fmt.Errorf("app: parse config view: %w", err)
	}

	redactor.RedactMap(view)
	return view, nil
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/gemgram/gemgram.yaml →
// ~/.config/gemgram/gemgram.yaml → ./gemgram.yaml
func ResolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "gemgram", "gemgram.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "gemgram", "gemgram.yaml"))
	}

	candidates = append(candidates, "gemgram.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/gemgram if set, otherwise ~/.local/share/gemgram.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok {
		return filepath.Join(dir, "gemgram")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "gemgram")
}
