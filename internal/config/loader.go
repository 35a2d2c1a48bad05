package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// envPattern matches ${VAR} and ${VAR:-default} expressions.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Load reads a YAML configuration file, expands environment variables,
// and parses it into a Config struct with defaults applied.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg, err := LoadBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// LoadBytes parses raw YAML configuration bytes, expanding environment
// variables first.
func LoadBytes(raw []byte) (*Config, error) {
	expanded, err := expandEnv(raw)
	if err != nil {
		return nil, fmt.Errorf("expanding variables: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}

	cfg.Defaults()
	return &cfg, nil
}

// defaultYAML is the built-in configuration used when no config file exists.
// It reads both credentials from the environment with no fallback, so a
// missing TELEGRAM_BOT_TOKEN or GEMINI_API_KEY fails the load with an
// unresolved-variable error before anything starts.
const defaultYAML = `version: "1"
modules:
  channel.telegram:
    token: ${TELEGRAM_BOT_TOKEN}
  provider.gemini:
    api_key: ${GEMINI_API_KEY}
  store.sqlite: {}
  gateway.http: {}
`

// Default builds the built-in environment-only configuration. Both
// credentials must be present in the environment.
func Default() (*Config, error) {
	cfg, err := LoadBytes([]byte(defaultYAML))
	if err != nil {
		return nil, fmt.Errorf("config: built-in default: %w", err)
	}
	return cfg, nil
}

// expandEnv replaces ${VAR} and ${VAR:-default} patterns in raw YAML bytes.
// Returns an error listing all unresolved variables (no default, no env value).
func expandEnv(raw []byte) ([]byte, error) {
	var errs []error

	result := envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		subs := envPattern.FindSubmatch(match)
		name := string(subs[1])
		hasDefault := len(subs) > 2 && subs[2] != nil
		defaultVal := ""
		if hasDefault {
			defaultVal = string(subs[2])
		}

		value, ok := os.LookupEnv(name)
		if ok {
			return []byte(value)
		}

		if hasDefault {
			return []byte(defaultVal)
		}

		errs = append(errs, fmt.Errorf("unresolved variable: %s", name))
		return match
	})

	return result, errors.Join(errs...)
}
