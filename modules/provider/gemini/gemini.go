// Package gemini implements the provider.gemini module, backing completions
// with the Google Gemini API through the official Go SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"google.golang.org/genai"
	"gopkg.in/yaml.v3"

	"github.com/gemgram/gemgram/internal/core"
	"github.com/gemgram/gemgram/internal/provider"
	"github.com/gemgram/gemgram/internal/security"
)

func init() {
	core.RegisterModule(&Provider{})
}

// Compile-time interface guards.
var (
	_ provider.Provider      = (*Provider)(nil)
	_ provider.HealthChecker = (*Provider)(nil)
	_ core.Module            = (*Provider)(nil)
	_ core.Configurable      = (*Provider)(nil)
	_ core.Provisioner       = (*Provider)(nil)
	_ core.Validator         = (*Provider)(nil)
)

// Provider implements the Gemini API as a gemgram provider module.
type Provider struct {
	config Config
	logger *slog.Logger
	client *genai.Client
}

// ModuleInfo implements core.Module.
func (p *Provider) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "provider.gemini",
		New: func() core.Module { return &Provider{} },
	}
}

// Configure implements core.Configurable.
func (p *Provider) Configure(node *yaml.Node) error {
	if err := node.Decode(&p.config); err != nil {
		return err
	}
	p.config.defaults()
	return nil
}

// Provision implements core.Provisioner. It builds the SDK client; no
// network traffic happens until the first completion or probe.
func (p *Provider) Provision(ctx *core.AppContext) error {
	p.logger = ctx.Logger

	if p.config.APIKey == "" {
		return errors.New("provider.gemini: api_key is required (set GEMINI_API_KEY)")
	}

	// Register the key so the redactor scrubs it from log output.
	if svc, ok := ctx.GetService("security.credentials"); ok {
		if store, ok := svc.(*security.CredentialStore); ok {
			store.Set("gemini.api_key", p.config.APIKey)
		}
	}

	cc := &genai.ClientConfig{
		APIKey:  p.config.APIKey,
		Backend: genai.BackendGeminiAPI,
		// The SDK has no per-request timeout knob; the client-level
		// timeout backstops requests whose context has no deadline.
		HTTPClient: &http.Client{Timeout: p.config.parsedTimeout()},
	}
	if p.config.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: p.config.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return fmt.Errorf("provider.gemini: create client: %w", err)
	}
	p.client = client

	ctx.RegisterService("provider.gemini", p)

	return nil
}

// Validate implements core.Validator.
func (p *Provider) Validate() error {
	if p.config.APIKey == "" {
		return errors.New("provider.gemini: api_key is required (set GEMINI_API_KEY)")
	}
	if p.config.Model == "" {
		return errors.New("provider.gemini: model is required")
	}
	return p.config.validateTimeout()
}
