package provider

import "errors"

// Sentinel errors for provider operations.
var (
	// ErrRateLimit indicates the provider returned a rate limit response.
	ErrRateLimit = errors.New("provider rate limited")

	// ErrContextLength indicates the request exceeded the model's context window.
	ErrContextLength = errors.New("context length exceeded")

	// ErrProviderDown indicates the provider is temporarily unavailable.
	ErrProviderDown = errors.New("provider unavailable")
)

// IsTransient reports whether the error is a temporary upstream condition.
// The classification feeds logging and health reporting only; completions
// are never retried.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrProviderDown)
}
