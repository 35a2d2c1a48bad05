package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_GEMGRAM_TOKEN", "123:abc")

	path := filepath.Join(t.TempDir(), "gemgram.yaml")
	raw := `version: "1"
modules:
  channel.telegram:
    token: ${TEST_GEMGRAM_TOKEN}
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	node := cfg.Modules["channel.telegram"]
	var parsed struct {
		Token string `yaml:"token"`
	}
	if err := node.Decode(&parsed); err != nil {
		t.Fatal(err)
	}
	if parsed.Token != "123:abc" {
		t.Errorf("token = %q, want %q", parsed.Token, "123:abc")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadBytes_UnresolvedVariable(t *testing.T) {
	raw := `version: "1"
modules:
  provider.gemini:
    api_key: ${TEST_GEMGRAM_DEFINITELY_UNSET}
`
	_, err := LoadBytes([]byte(raw))
	if err == nil {
		t.Fatal("expected error for unresolved variable")
	}
	if !strings.Contains(err.Error(), "TEST_GEMGRAM_DEFINITELY_UNSET") {
		t.Errorf("error should name the variable: %v", err)
	}
}

func TestLoadBytes_DefaultValue(t *testing.T) {
	raw := `version: "1"
modules:
  provider.gemini:
    model: ${TEST_GEMGRAM_MODEL_UNSET:-gemini-2.5-flash}
`
	cfg, err := LoadBytes([]byte(raw))
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	node := cfg.Modules["provider.gemini"]
	var parsed struct {
		Model string `yaml:"model"`
	}
	if err := node.Decode(&parsed); err != nil {
		t.Fatal(err)
	}
	if parsed.Model != "gemini-2.5-flash" {
		t.Errorf("model = %q, want default applied", parsed.Model)
	}
}

func TestLoadBytes_AppliesDefaults(t *testing.T) {
	cfg, err := LoadBytes([]byte("version: \"1\"\nmodules: {}\n"))
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	if cfg.Relay.Workers != 4 {
		t.Errorf("Relay.Workers = %d, want 4", cfg.Relay.Workers)
	}
	if cfg.Relay.InboxSize != 64 {
		t.Errorf("Relay.InboxSize = %d, want 64", cfg.Relay.InboxSize)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v, want info/json defaults", cfg.Log)
	}
	if cfg.Cron.StatsRetentionDays != 90 {
		t.Errorf("StatsRetentionDays = %d, want 90", cfg.Cron.StatsRetentionDays)
	}
}

func TestDefault_RequiresBothCredentials(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "42:token")
	t.Setenv("GEMINI_API_KEY", "placeholder") // register restore, then unset
	os.Unsetenv("GEMINI_API_KEY")

	_, err := Default()
	if err == nil {
		t.Fatal("expected error when GEMINI_API_KEY is unset")
	}
	if !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Errorf("error should name GEMINI_API_KEY: %v", err)
	}
}

func TestDefault_Complete(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "42:token")
	t.Setenv("GEMINI_API_KEY", "AIzaTestKey")

	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	for _, id := range []string{"channel.telegram", "provider.gemini", "store.sqlite", "gateway.http"} {
		if _, ok := cfg.Modules[id]; !ok {
			t.Errorf("default config missing module %q", id)
		}
	}
}

func TestResolve_Sorted(t *testing.T) {
	cfg, err := LoadBytes([]byte(`version: "1"
modules:
  store.sqlite: {}
  channel.telegram: {}
  provider.gemini: {}
`))
	if err != nil {
		t.Fatal(err)
	}
	ids := Resolve(cfg)
	want := []string{"channel.telegram", "provider.gemini", "store.sqlite"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}
