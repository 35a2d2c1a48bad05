package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/gemgram/gemgram/internal/channel"
	"github.com/gemgram/gemgram/internal/core"
	"github.com/gemgram/gemgram/internal/security"
	"github.com/gemgram/gemgram/pkg/message"
)

func init() {
	core.RegisterModule(&Telegram{})
}

// Compile-time interface guards.
var (
	_ channel.Channel   = (*Telegram)(nil)
	_ channel.Liveness  = (*Telegram)(nil)
	_ core.Configurable = (*Telegram)(nil)
	_ core.Provisioner  = (*Telegram)(nil)
	_ core.Validator    = (*Telegram)(nil)
	_ core.Starter      = (*Telegram)(nil)
	_ core.Stopper      = (*Telegram)(nil)
)

// Telegram implements the Telegram Bot API channel for gemgram.
type Telegram struct {
	config    Config
	client    *Client
	logger    *slog.Logger
	allowList *channel.AllowList
	inbox     func(message.Inbound) error
	botUser   *User
	appCtx    *core.AppContext

	// Set during Start() depending on mode.
	poller  *Poller
	webhook *WebhookReceiver
	started atomic.Bool
}

// ModuleInfo implements core.Module.
func (t *Telegram) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "channel.telegram",
		New: func() core.Module { return &Telegram{} },
	}
}

// Configure implements core.Configurable.
func (t *Telegram) Configure(node *yaml.Node) error {
	if err := node.Decode(&t.config); err != nil {
		return fmt.Errorf("telegram: decode config: %w", err)
	}
	t.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (t *Telegram) Provision(ctx *core.AppContext) error {
	t.appCtx = ctx
	t.logger = ctx.Logger
	t.client = NewClient(t.config.Token, t.config.APIURL)
	t.allowList = channel.NewAllowList(t.config.AllowUsers, t.config.AllowGroups)

	// Register the token so the redactor scrubs it from log output.
	if svc, ok := ctx.GetService("security.credentials"); ok {
		if store, ok := svc.(*security.CredentialStore); ok {
			store.Set("telegram.token", t.config.Token)
		}
	}
	return nil
}

// Validate implements core.Validator.
func (t *Telegram) Validate() error {
	if t.config.Token == "" {
		return errors.New("telegram: token is required (set TELEGRAM_BOT_TOKEN)")
	}
	switch t.config.Mode {
	case "polling", "webhook":
	default:
		return fmt.Errorf("telegram: invalid mode %q (must be \"polling\" or \"webhook\")", t.config.Mode)
	}
	if t.config.Mode == "webhook" && t.config.WebhookURL == "" {
		return errors.New("telegram: webhook_url is required when mode is \"webhook\"")
	}
	return t.config.validate()
}

// Start implements core.Starter. It validates the bot token with getMe,
// then starts either polling or webhook mode.
func (t *Telegram) Start() error {
	if t.inbox == nil {
		return errors.New("telegram: inbox not set, call SetInbox before Start")
	}

	user, err := t.client.GetMe(context.Background())
	if err != nil {
		return fmt.Errorf("telegram: getMe failed (check token): %w", err)
	}
	t.botUser = user
	t.logger.Info("telegram bot authenticated",
		"id", user.ID,
		"username", user.Username,
	)

	channelName := string(t.ModuleInfo().ID)

	switch t.config.Mode {
	case "polling":
		t.poller = NewPoller(
			t.client, t.inbox, t.allowList, t.logger,
			user.Username, channelName, t.config,
		)
		t.poller.Start()
		t.logger.Info("telegram polling started",
			"timeout", t.config.PollingTimeout,
		)

	case "webhook":
		if t.config.WebhookSecret == "" {
			t.logger.Warn("telegram webhook running without secret_token, " +
				"consider setting webhook_secret for production deployments")
		}
		t.webhook = NewWebhookReceiver(
			t.inbox, t.allowList, t.logger,
			user.Username, channelName, t.config.WebhookSecret,
		)

		// The gateway resolves this service and mounts it on its
		// configured webhook path.
		t.appCtx.RegisterService("telegram.webhook", t.webhook)

		if err := t.client.SetWebhook(context.Background(), SetWebhookRequest{
			URL:            t.config.WebhookURL,
			SecretToken:    t.config.WebhookSecret,
			AllowedUpdates: t.config.AllowedUpdates,
		}); err != nil {
			return fmt.Errorf("telegram: setWebhook failed: %w", err)
		}
		t.logger.Info("telegram webhook configured",
			"url", t.config.WebhookURL,
		)
	}

	t.started.Store(true)
	return nil
}

// Stop implements core.Stopper.
func (t *Telegram) Stop(ctx context.Context) error {
	t.logger.Info("telegram channel stopping")
	t.started.Store(false)

	switch t.config.Mode {
	case "polling":
		if t.poller != nil {
			t.poller.Stop()
		}
	case "webhook":
		if err := t.client.DeleteWebhook(ctx); err != nil {
			t.logger.Warn("telegram: failed to delete webhook on shutdown", "error", err)
		}
	}

	return nil
}

// Send implements channel.Channel.
func (t *Telegram) Send(ctx context.Context, msg message.Outbound) error {
	return t.sendOutbound(ctx, msg)
}

// SetInbox implements channel.Channel.
func (t *Telegram) SetInbox(fn func(msg message.Inbound) error) {
	t.inbox = fn
}

// Running implements channel.Liveness. In polling mode it reflects the
// poll loop; in webhook mode the channel is passive, so started is enough.
func (t *Telegram) Running() bool {
	if t.poller != nil {
		return t.poller.Running()
	}
	return t.started.Load()
}
