// Package channel defines the bridge between messaging platforms and the
// relay. It provides the Channel interface, outbound dispatch, message
// chunking, and allow-list filtering.
package channel

import (
	"context"

	"github.com/gemgram/gemgram/internal/core"
	"github.com/gemgram/gemgram/pkg/message"
)

// Channel is the bridge between a messaging platform and the relay.
// Every concrete channel (Telegram today) must implement this interface.
//
// A channel receives messages from its platform, checks the allow-list,
// and pushes them to the relay via the inbox callback. It also receives
// outbound replies from the relay via Send().
type Channel interface {
	core.Module

	// Send delivers an outbound reply to the platform.
	Send(ctx context.Context, msg message.Outbound) error

	// SetInbox gives the channel a function to push inbound messages to
	// the relay. The relay calls this during wiring, before Start().
	SetInbox(fn func(msg message.Inbound) error)
}

// Liveness is an optional interface channels implement to report whether
// their ingest loop is running. The gateway's health endpoint consults it.
type Liveness interface {
	Running() bool
}
