// Package relay forwards inbound chat messages to the AI provider and
// sends the generated reply back to the originating conversation.
// Commands (/start, /help) are answered locally and never reach the
// provider; everything else is forwarded verbatim, exactly once.
package relay

import "errors"

// Sentinel errors for relay operations.
var (
	// ErrInboxFull indicates the relay's inbox is at capacity and the
	// incoming message was dropped. Callers should alert the operator.
	ErrInboxFull = errors.New("relay: inbox full, message dropped")

	// ErrRelayStopped indicates the relay has been shut down and is no
	// longer accepting messages.
	ErrRelayStopped = errors.New("relay: stopped")

	// ErrNoProvider indicates no completion provider has been configured.
	// The relay cannot answer prompts without one.
	ErrNoProvider = errors.New("relay: no provider configured")

	// ErrNoSender indicates no reply sender has been configured.
	// The relay cannot deliver replies without one.
	ErrNoSender = errors.New("relay: no reply sender configured")
)
