// Package providertest provides test helpers for the provider package.
package providertest

import (
	"context"
	"sync"

	"github.com/gemgram/gemgram/internal/provider"
)

// MockProvider is a configurable test double for provider.Provider.
// Set the Func fields to control behavior. An unset CompleteFunc or
// HealthCheckFunc panics on call; ModelNameFunc falls back to
// "mock-model". All methods are safe for concurrent use.
type MockProvider struct {
	CompleteFunc    func(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error)
	ModelNameFunc   func() string
	HealthCheckFunc func(ctx context.Context) error

	mu          sync.Mutex
	requests    []provider.CompletionRequest
	healthCalls int
}

// Complete records the request and delegates to CompleteFunc.
func (m *MockProvider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.CompleteFunc(ctx, req)
}

// ModelName delegates to ModelNameFunc.
func (m *MockProvider) ModelName() string {
	if m.ModelNameFunc == nil {
		return "mock-model"
	}
	return m.ModelNameFunc()
}

// HealthCheck delegates to HealthCheckFunc and tracks call count.
func (m *MockProvider) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	m.healthCalls++
	m.mu.Unlock()
	return m.HealthCheckFunc(ctx)
}

// CompleteCalls returns the number of Complete invocations.
func (m *MockProvider) CompleteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of every recorded completion request, in
// call order.
func (m *MockProvider) Requests() []provider.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]provider.CompletionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// HealthCalls returns the number of HealthCheck invocations.
func (m *MockProvider) HealthCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthCalls
}

// Interface guards.
var (
	_ provider.Provider      = (*MockProvider)(nil)
	_ provider.HealthChecker = (*MockProvider)(nil)
)
