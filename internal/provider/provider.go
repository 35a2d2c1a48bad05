package provider

import "context"

// Provider is the interface for communicating with an LLM.
// Concrete implementations live in separate packages (e.g., provider.gemini)
// and typically also implement core.Module for lifecycle management.
type Provider interface {
	// Complete sends a completion request and returns the full response.
	// Implementations make a single upstream attempt per call and map
	// transport failures onto the package sentinels.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// ModelName returns the identifier of the underlying model.
	ModelName() string
}

// HealthChecker is an optional interface that providers may implement
// to support active probing. The scheduled probe calls HealthCheck and
// feeds the result into the shared Status.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
