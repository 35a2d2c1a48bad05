// Package channeltest provides test doubles for the channel package.
package channeltest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/gemgram/gemgram/internal/channel"
	"github.com/gemgram/gemgram/internal/core"
	"github.com/gemgram/gemgram/pkg/message"
)

// MockChannel is a test double that implements channel.Channel. It records
// sent replies and allows simulating inbound messages via SimulateMessage.
type MockChannel struct {
	name      string
	allowList *channel.AllowList
	running   atomic.Bool

	mu    sync.Mutex
	inbox func(msg message.Inbound) error
	sent  []message.Outbound

	// SendFunc, if set, is called instead of the default recording behavior.
	SendFunc func(ctx context.Context, msg message.Outbound) error
}

// Compile-time interface guards.
var (
	_ channel.Channel  = (*MockChannel)(nil)
	_ channel.Liveness = (*MockChannel)(nil)
)

// NewMockChannel creates a MockChannel with the given name and an optional
// allow-list. A nil allowList permits every sender.
func NewMockChannel(name string, allowList *channel.AllowList) *MockChannel {
	return &MockChannel{
		name:      name,
		allowList: allowList,
	}
}

// ModuleInfo implements core.Module.
func (m *MockChannel) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID: core.ModuleID("channel." + m.name),
		New: func() core.Module {
			return NewMockChannel(m.name, m.allowList)
		},
	}
}

// Send records the outbound reply. If SendFunc is set, it delegates to it.
func (m *MockChannel) Send(ctx context.Context, msg message.Outbound) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

// SetInbox stores the inbox callback provided by the relay.
func (m *MockChannel) SetInbox(fn func(msg message.Inbound) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbox = fn
}

// SimulateMessage pushes an inbound message through the allow-list and into
// the inbox. It returns ErrDenied if the sender is not allowed, and ErrNoInbox
// if SetInbox has not been called.
func (m *MockChannel) SimulateMessage(msg message.Inbound) error {
	m.mu.Lock()
	al := m.allowList
	inbox := m.inbox
	m.mu.Unlock()

	if !al.IsAllowed(msg) {
		return channel.ErrDenied
	}
	if inbox == nil {
		return channel.ErrNoInbox
	}

	// Tag the message with this channel's name.
	msg.Channel = m.name
	return inbox(msg)
}

// SetRunning flips the liveness flag reported by Running.
func (m *MockChannel) SetRunning(running bool) {
	m.running.Store(running)
}

// Running implements channel.Liveness.
func (m *MockChannel) Running() bool {
	return m.running.Load()
}

// SentMessages returns a copy of all outbound replies recorded by Send.
func (m *MockChannel) SentMessages() []message.Outbound {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]message.Outbound, len(m.sent))
	copy(cp, m.sent)
	return cp
}

// Reset clears recorded sent replies.
func (m *MockChannel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}
