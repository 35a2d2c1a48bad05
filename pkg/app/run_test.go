package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gemgram/gemgram/internal/config"
	"github.com/gemgram/gemgram/internal/security"
	"github.com/gemgram/gemgram/internal/security/securitytest"
)

func TestResolveConfigPath_XDGConfigHome(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "gemgram")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfgPath := filepath.Join(cfgDir, "gemgram.yaml")
	if err := os.WriteFile(cfgPath, []byte("version: \"1\""), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("XDG_CONFIG_HOME", dir)

	got, err := ResolveConfigPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != cfgPath {
		t.Errorf("got %q, want %q", got, cfgPath)
	}
}

func TestResolveConfigPath_NotFound(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/nonexistent/path")

	// Also ensure there's no gemgram.yaml in the current directory.
	origDir, _ := os.Getwd()
	tmpDir := t.TempDir()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origDir) })

	_, err := ResolveConfigPath()
	if err == nil {
		t.Error("expected error when no config file found")
	}
}

func TestDefaultDataDir_XDGDataHome(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	got := DefaultDataDir()
	want := "/custom/data/gemgram"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDefaultDataDir_Fallback(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "")
	_ = os.Unsetenv("XDG_DATA_HOME")

	got := DefaultDataDir()
	home, _ := os.UserHomeDir()
	want := filepath.Join(home, ".local", "share", "gemgram")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoadConfig_ExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gemgram.yaml")
	content := "version: \"1\"\nmodules:\n  channel.telegram:\n    token: tok\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, gotPath, err := loadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != path {
		t.Errorf("path: got %q, want %q", gotPath, path)
	}
	if _, ok := cfg.Modules["channel.telegram"]; !ok {
		t.Error("expected channel.telegram in modules")
	}
}

func TestLoadConfig_ExplicitPathMissing(t *testing.T) {
	_, _, err := loadConfig("/nonexistent/gemgram.yaml")
	if err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestLoadConfig_BuiltinDefault(t *testing.T) {
	// With no config file anywhere the built-in environment-only
	// configuration applies, reading both credentials from the environment.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	origDir, _ := os.Getwd()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origDir) })

	t.Setenv("TELEGRAM_BOT_TOKEN", "12345678:TESTTOKENTESTTOKENTESTTOKENTESTTOK")
	t.Setenv("GEMINI_API_KEY", "test-api-key")

	cfg, path, err := loadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path for built-in config, got %q", path)
	}
	for _, id := range []string{"channel.telegram", "provider.gemini", "store.sqlite", "gateway.http"} {
		if _, ok := cfg.Modules[id]; !ok {
			t.Errorf("built-in config missing module %q", id)
		}
	}
}

func TestLoadConfig_BuiltinDefaultMissingCredentials(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	origDir, _ := os.Getwd()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origDir) })

	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("GEMINI_API_KEY", "")
	_ = os.Unsetenv("TELEGRAM_BOT_TOKEN")
	_ = os.Unsetenv("GEMINI_API_KEY")

	_, _, err := loadConfig("")
	if err == nil {
		t.Fatal("expected error when credentials are absent")
	}
	if !strings.Contains(err.Error(), "TELEGRAM_BOT_TOKEN") {
		t.Errorf("error should name the missing variable, got: %v", err)
	}
	if !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Errorf("error should name the missing variable, got: %v", err)
	}
}

func TestLoadDotEnv_NextToConfig(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("GEMGRAM_DOTENV_PROBE=loaded\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("GEMGRAM_DOTENV_PROBE") })

	LoadDotEnv(filepath.Join(dir, "gemgram.yaml"))

	if got := os.Getenv("GEMGRAM_DOTENV_PROBE"); got != "loaded" {
		t.Errorf("expected .env to be loaded, got %q", got)
	}
}

func TestNewLogger_Levels(t *testing.T) {
	redactor := securitytest.NewTestRedactor()

	tests := []struct {
		level   string
		enabled slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		logger := newLogger(config.LogConfig{Level: tt.level, Format: "text"}, redactor)
		if !logger.Enabled(context.Background(), tt.enabled) {
			t.Errorf("level %q: expected %v to be enabled", tt.level, tt.enabled)
		}
		if tt.enabled > slog.LevelDebug && logger.Enabled(context.Background(), tt.enabled-4) {
			t.Errorf("level %q: expected %v to be disabled", tt.level, tt.enabled-4)
		}
	}
}

func TestRedactingLogger_ScrubsSecrets(t *testing.T) {
	redactor := security.NewRedactor()
	redactor.AddLiteral("super-secret-value")

	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(security.NewRedactingHandler(inner, redactor))

	logger.Info("connecting", "credential", "super-secret-value")

	if strings.Contains(buf.String(), "super-secret-value") {
		t.Error("secret leaked into log output")
	}
	if !strings.Contains(buf.String(), security.RedactPlaceholder) {
		t.Error("expected redaction placeholder in log output")
	}
}

func TestRun_InvalidConfigPath(t *testing.T) {
	err := Run(RunParams{ConfigPath: "/nonexistent/config.yaml"})
	if err == nil {
		t.Error("expected error for invalid config path")
	}
}

func TestRun_InvalidConfigContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("not: valid: yaml: ["), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	err := Run(RunParams{ConfigPath: path})
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestRun_ValidationFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "noversion.yaml")
	if err := os.WriteFile(path, []byte("modules:\n  foo: {}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	err := Run(RunParams{ConfigPath: path})
	if err == nil {
		t.Error("expected validation error")
	}
}
