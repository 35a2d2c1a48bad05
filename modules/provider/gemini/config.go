package gemini

import (
	"fmt"
	"time"
)

// defaultModel is used when no model is configured. Flash models answer
// chat-sized prompts quickly and cheaply.
const defaultModel = "gemini-2.5-flash"

// Config holds the configuration for the Gemini provider module.
type Config struct {
	APIKey       string   `yaml:"api_key"`
	Model        string   `yaml:"model"`
	BaseURL      string   `yaml:"base_url"`
	MaxTokens    int      `yaml:"max_tokens"`
	Temperature  *float64 `yaml:"temperature"`
	TopP         *float64 `yaml:"top_p"`
	SystemPrompt string   `yaml:"system_prompt"`
	Timeout      string   `yaml:"timeout"`
}

// defaults fills zero-valued fields with sensible defaults.
func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Timeout == "" {
		c.Timeout = "60s"
	}
}

// parsedTimeout returns the timeout as a time.Duration.
// Assumes the value has been validated by validateTimeout.
func (c *Config) parsedTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// validateTimeout checks that the timeout string is a valid Go duration.
func (c *Config) validateTimeout() error {
	_, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return fmt.Errorf("provider.gemini: invalid timeout %q: %w", c.Timeout, err)
	}
	return nil
}
