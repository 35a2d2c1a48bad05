package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gemgram/gemgram/internal/events"
	"github.com/gemgram/gemgram/internal/provider"
	"github.com/gemgram/gemgram/internal/stats"
	"github.com/gemgram/gemgram/pkg/message"
)

// Static replies. Command replies never touch the provider.
const (
	greetingText = "👋 Hello! I'm your AI assistant powered by Gemini. Feel free to ask me anything!"

	helpText = "Here are the available commands:\n" +
		"/start - Start the bot\n" +
		"/help - Show this help message\n\n" +
		"Simply send any message, and I'll respond using Gemini AI!"

	// errorReplyText is the only text users see when a completion fails.
	// Provider error detail never reaches the chat.
	errorReplyText = "Sorry, something went wrong while processing your message. Please try again."
)

// errEmptyCompletion marks a completion that succeeded but carried no text.
var errEmptyCompletion = errors.New("relay: provider returned empty completion")

// handle processes one inbound message: commands are answered locally,
// everything else is forwarded to the provider exactly once.
func (r *Relay) handle(ctx context.Context, env envelope) {
	r.config.Metrics.InboxAdd(-1)

	msg := env.Message
	ctx, span := r.config.Tracer.Start(ctx, "relay.handle",
		trace.WithAttributes(
			attribute.String("channel", msg.Channel),
			attribute.Bool("command", msg.IsCommand()),
		))
	defer span.End()

	r.count(ctx, stats.CounterMessages)

	if msg.IsCommand() {
		r.handleCommand(ctx, msg)
		return
	}
	r.handlePrompt(ctx, env)
}

// handleCommand answers /start and /help with their static texts.
// Unrecognized commands are ignored without a reply.
func (r *Relay) handleCommand(ctx context.Context, msg message.Inbound) {
	switch msg.Command {
	case "start":
		r.count(ctx, stats.CounterCommandStart)
		r.sendReply(ctx, msg, greetingText)
	case "help":
		r.count(ctx, stats.CounterCommandHelp)
		r.sendReply(ctx, msg, helpText)
	default:
		r.count(ctx, stats.CounterCommandUnknown)
		r.config.Metrics.CountMessage(outcomeIgnored)
		r.logger.Debug("relay: unknown command ignored",
			"channel", msg.Channel,
			"command", msg.Command,
		)
		return
	}

	r.config.Metrics.CountMessage(outcomeCommand)
	r.publish(events.KindMessageHandled, map[string]any{
		"channel": msg.Channel,
		"outcome": outcomeCommand,
		"command": msg.Command,
	})
	r.logger.Info("relay: command handled",
		"channel", msg.Channel,
		"chat_id", msg.Chat.ID,
		"command", msg.Command,
	)
}

// handlePrompt forwards the message text to the provider and replies with
// the completion, or with the generic error text on failure.
func (r *Relay) handlePrompt(ctx context.Context, env envelope) {
	msg := env.Message
	queued := time.Since(env.Received)

	// Channels only submit text messages, but an empty prompt would be
	// rejected upstream anyway.
	if msg.Text == "" {
		r.config.Metrics.CountMessage(outcomeIgnored)
		r.logger.Debug("relay: empty message ignored", "channel", msg.Channel)
		return
	}

	cctx, cancel := context.WithTimeout(ctx, r.config.ResponseTimeout)
	start := time.Now()
	resp, err := r.complete(cctx, provider.CompletionRequest{Prompt: msg.Text})
	cancel()
	elapsed := time.Since(start)

	if err == nil && resp.Content == "" {
		err = errEmptyCompletion
	}
	if err != nil {
		r.completionFailed(ctx, msg, err, elapsed)
		return
	}

	r.config.Status.RecordSuccess()
	r.count(ctx, stats.CounterCompletionsOK)
	r.config.Metrics.ObserveCompletion(outcomeOK, elapsed)
	r.config.Metrics.CountMessage(outcomeOK)

	r.sendReply(ctx, msg, resp.Content)

	r.publish(events.KindMessageHandled, map[string]any{
		"channel":     msg.Channel,
		"outcome":     outcomeOK,
		"duration_ms": elapsed.Milliseconds(),
	})
	r.logger.Info("relay: message handled",
		"channel", msg.Channel,
		"chat_id", msg.Chat.ID,
		"model", r.config.Provider.ModelName(),
		"duration_ms", elapsed.Milliseconds(),
		"queued_ms", queued.Milliseconds(),
	)
}

// complete performs the single provider attempt. A panicking provider is
// recovered into an error so a bad SDK response can never kill a worker.
func (r *Relay) complete(ctx context.Context, req provider.CompletionRequest) (resp provider.CompletionResponse, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("relay: provider panic: %v", v)
		}
	}()
	return r.config.Provider.Complete(ctx, req)
}

// completionFailed records a failed completion and sends the one generic
// error reply. The error itself is logged once, through the redacting
// handler; the event feed never carries error text.
func (r *Relay) completionFailed(ctx context.Context, msg message.Inbound, err error, elapsed time.Duration) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, "completion failed")

	r.config.Status.RecordFailure(err)
	r.count(ctx, stats.CounterCompletionsFail)
	r.config.Metrics.ObserveCompletion(outcomeError, elapsed)
	r.config.Metrics.CountMessage(outcomeError)

	r.logger.Error("relay: completion failed",
		"channel", msg.Channel,
		"chat_id", msg.Chat.ID,
		"error", err,
		"transient", provider.IsTransient(err),
		"duration_ms", elapsed.Milliseconds(),
	)

	r.publish(events.KindCompletionError, map[string]any{
		"channel":   msg.Channel,
		"transient": provider.IsTransient(err),
	})

	r.sendReply(ctx, msg, errorReplyText)
}

// sendReply delivers one outbound reply. A failed send is logged and
// counted; it is never propagated.
func (r *Relay) sendReply(ctx context.Context, in message.Inbound, text string) {
	out := message.NewReply(&in, text)
	if err := r.config.Sender.Send(ctx, out); err != nil {
		r.count(ctx, stats.CounterRepliesFailed)
		r.logger.Error("relay: failed to send reply",
			"channel", in.Channel,
			"chat_id", in.Chat.ID,
			"error", err,
		)
		return
	}
	r.count(ctx, stats.CounterRepliesSent)
}
