package relay

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/gemgram/gemgram/internal/events"
	"github.com/gemgram/gemgram/internal/provider"
	"github.com/gemgram/gemgram/internal/security"
	"github.com/gemgram/gemgram/internal/stats"
	"github.com/gemgram/gemgram/pkg/message"
)

const (
	defaultInboxSize       = 64
	defaultResponseTimeout = 60 * time.Second
	defaultDrainTimeout    = 5 * time.Second
)

// ReplySender delivers outbound replies to a channel.
// Implemented by channel.Dispatcher.
type ReplySender interface {
	Send(ctx context.Context, msg message.Outbound) error
}

// Config holds the configuration for a Relay.
type Config struct {
	Provider provider.Provider
	Sender   ReplySender

	Workers   int
	InboxSize int

	// ResponseTimeout bounds a single completion call. Zero means the
	// default (60s).
	ResponseTimeout time.Duration

	// DrainTimeout bounds how long Stop waits for queued messages to
	// finish before cancelling in-flight completions. Zero means the
	// default (5s).
	DrainTimeout time.Duration

	// MaxMessageSize is the maximum allowed raw payload size in bytes.
	// Zero means the default (1 MiB).
	MaxMessageSize int

	// Status receives every completion outcome. Nil means the relay
	// creates a private tracker.
	Status *provider.Status

	// Stats, if non-nil, records per-day operational counters.
	Stats stats.Recorder

	// Events, if non-nil, receives operator events for handled messages
	// and completion failures.
	Events events.Sink

	// Metrics, if non-nil, exposes Prometheus instruments.
	Metrics *Metrics

	// Tracer traces message handling. Nil means no spans are recorded.
	Tracer trace.Tracer

	Logger *slog.Logger
}

// withDefaults returns a copy of the config with zero values replaced by defaults.
func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkerCount
	}
	if c.InboxSize <= 0 {
		c.InboxSize = defaultInboxSize
	}
	if c.ResponseTimeout <= 0 {
		c.ResponseTimeout = defaultResponseTimeout
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = defaultDrainTimeout
	}
	if c.Status == nil {
		c.Status = provider.NewStatus(provider.StatusConfig{}, nil)
	}
	if c.Tracer == nil {
		c.Tracer = noop.NewTracerProvider().Tracer("relay")
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Relay is the message-handling core. It accepts inbound messages into a
// buffered inbox, answers commands itself, forwards everything else to
// the provider exactly once, and sends the reply back through the sender.
type Relay struct {
	config   Config
	inbox    chan envelope
	inboxMu  sync.RWMutex
	pool     *WorkerPool
	cancel   context.CancelFunc
	stopOnce sync.Once
	logger   *slog.Logger
	stopped  atomic.Bool
}

// New creates a Relay with the given configuration.
func New(cfg Config) (*Relay, error) {
	cfg = cfg.withDefaults()

	if cfg.Provider == nil {
		return nil, ErrNoProvider
	}
	if cfg.Sender == nil {
		return nil, ErrNoSender
	}

	return &Relay{
		config: cfg,
		inbox:  make(chan envelope, cfg.InboxSize),
		pool:   NewWorkerPool(cfg.Workers),
		logger: cfg.Logger,
	}, nil
}

// Start launches the worker pool and begins handling messages.
func (r *Relay) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.inboxMu.Lock()
	if r.stopped.Load() {
		r.inboxMu.Unlock()
		cancel()
		r.logger.Warn("relay: start ignored, relay already stopped")
		return
	}
	r.cancel = cancel
	r.inboxMu.Unlock()

	r.pool.Start(ctx, r.inbox, r.handle)
	r.logger.Info("relay: started",
		"workers", r.config.Workers,
		"inbox_size", r.config.InboxSize,
		"model", r.config.Provider.ModelName(),
	)
}

// Submit enqueues an inbound message for handling.
// If the inbox is full, the message is dropped with a warning log.
func (r *Relay) Submit(msg message.Inbound) error {
	r.inboxMu.RLock()
	defer r.inboxMu.RUnlock()

	if r.stopped.Load() {
		return ErrRelayStopped
	}

	// Validate raw payload size and JSON depth at the system boundary.
	if len(msg.Raw) > 0 {
		if err := security.ValidateMessageSize(msg.Raw, r.config.MaxMessageSize); err != nil {
			r.logger.Warn("relay: message too large, rejected",
				"size", len(msg.Raw),
				"channel", msg.Channel,
			)
			return err
		}
		if err := security.ValidateJSONDepth(msg.Raw, 0); err != nil {
			r.logger.Warn("relay: message JSON too deep, rejected",
				"channel", msg.Channel,
			)
			return err
		}
	}

	env := envelope{Message: msg, Received: time.Now()}

	// Non-blocking send; drop with warning if inbox is full.
	select {
	case r.inbox <- env:
		r.config.Metrics.InboxAdd(1)
		return nil
	default:
		r.logger.Warn("relay: inbox full, message dropped",
			"channel", msg.Channel,
			"chat_id", msg.Chat.ID,
		)
		r.config.Metrics.CountMessage(outcomeDropped)
		r.count(context.Background(), stats.CounterDropped)
		return ErrInboxFull
	}
}

// Stop gracefully shuts down the relay. The inbox is closed so no new
// messages are accepted, then queued and in-flight messages get up to
// DrainTimeout (or less, if ctx expires first) to finish before the
// remaining completions are cancelled.
func (r *Relay) Stop(ctx context.Context) {
	r.stopOnce.Do(func() {
		r.logger.Info("relay: stopping")

		r.inboxMu.Lock()
		r.stopped.Store(true)
		close(r.inbox)
		cancel := r.cancel
		r.inboxMu.Unlock()

		drained := make(chan struct{})
		go func() {
			r.pool.Wait()
			close(drained)
		}()

		timer := time.NewTimer(r.config.DrainTimeout)
		defer timer.Stop()

		select {
		case <-drained:
		case <-ctx.Done():
		case <-timer.C:
		}

		// Cancelling after the drain window is a no-op when the workers
		// already finished; otherwise it fails the stragglers fast.
		if cancel != nil {
			cancel()
		}
		<-drained

		r.logger.Info("relay: stopped")
	})
}

// Status returns the provider status tracker the relay feeds.
func (r *Relay) Status() *provider.Status {
	return r.config.Status
}

// count increments a stats counter. Accounting failures never affect
// message handling; they are logged at debug and dropped.
func (r *Relay) count(ctx context.Context, name string) {
	if r.config.Stats == nil {
		return
	}
	if err := r.config.Stats.Increment(ctx, name); err != nil {
		r.logger.Debug("relay: stats increment failed", "counter", name, "error", err)
	}
}

// publish emits an operator event when an event sink is configured.
func (r *Relay) publish(kind string, data map[string]any) {
	if r.config.Events == nil {
		return
	}
	r.config.Events.Publish(events.Event{Kind: kind, Data: data})
}
