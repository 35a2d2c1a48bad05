package gemini

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"google.golang.org/genai"

	"github.com/gemgram/gemgram/internal/provider"
)

// errAuth is a non-retryable authentication error.
var errAuth = errors.New("gemini: authentication failed")

// mapError maps SDK and transport errors to provider sentinel errors.
// Context errors pass through unchanged so callers can distinguish their
// own timeouts from upstream failures.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429:
			return fmt.Errorf("%w: %s", provider.ErrRateLimit, apiErr.Message)
		case apiErr.Code == 401 || apiErr.Code == 403:
			return fmt.Errorf("%w: %s", errAuth, apiErr.Message)
		case apiErr.Code == 400 && looksLikeContextOverflow(apiErr.Message):
			return fmt.Errorf("%w: %s", provider.ErrContextLength, apiErr.Message)
		case apiErr.Code >= 500:
			return fmt.Errorf("%w: %s", provider.ErrProviderDown, apiErr.Message)
		default:
			return fmt.Errorf("gemini: HTTP %d: %s", apiErr.Code, apiErr.Message)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", provider.ErrProviderDown, err)
	}

	// The SDK occasionally surfaces upstream conditions as plain strings;
	// classify the recognizable ones so health tracking stays accurate.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "resource_exhausted"):
		return fmt.Errorf("%w: %w", provider.ErrRateLimit, err)
	case strings.Contains(msg, "unavailable") || strings.Contains(msg, "overloaded") || strings.Contains(msg, "503"):
		return fmt.Errorf("%w: %w", provider.ErrProviderDown, err)
	}

	return fmt.Errorf("gemini: %w", err)
}

// looksLikeContextOverflow reports whether a 400 response message describes
// an oversized prompt. Gemini reports these as INVALID_ARGUMENT with a
// token-count explanation rather than a dedicated status code.
func looksLikeContextOverflow(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "token") && (strings.Contains(m, "exceed") || strings.Contains(m, "too large") || strings.Contains(m, "too long"))
}
