package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gemgram/gemgram/internal/channel"
	"github.com/gemgram/gemgram/internal/core"
	"github.com/gemgram/gemgram/internal/security/securitytest"
	"github.com/gemgram/gemgram/pkg/message"
)

// TestLifecycle exercises the full Configure → Provision → Validate → Start →
// inbound message → outbound reply → Stop flow using httptest mock servers.
func TestLifecycle(t *testing.T) {
	// Set up a mock Telegram API server.
	var mu sync.Mutex
	var sentMessages []SendMessageRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			writeJSON(t, w, APIResponse[User]{
				OK: true,
				Result: User{
					ID:        111,
					IsBot:     true,
					FirstName: "TestBot",
					Username:  "lifecycle_bot",
				},
			})

		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			var req GetUpdatesRequest
			_ = json.Unmarshal(body, &req)

			mu.Lock()
			count := len(sentMessages)
			mu.Unlock()

			// On the first poll, return one update. After that, return empty.
			if req.Offset == 0 && count == 0 {
				writeJSON(t, w, APIResponse[[]Update]{
					OK: true,
					Result: []Update{
						{
							UpdateID: 1,
							Message: &Message{
								MessageID: 100,
								From:      &User{ID: 42, FirstName: "Alice", Username: "alice"},
								Chat:      Chat{ID: 42, Type: "private"},
								Text:      "ping",
								Date:      int(time.Now().Unix()),
							},
						},
					},
				})
			} else {
				writeJSON(t, w, APIResponse[[]Update]{OK: true, Result: []Update{}})
				// Slow down polling so we don't spin.
				time.Sleep(50 * time.Millisecond)
			}

		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var req SendMessageRequest
			_ = json.Unmarshal(body, &req)
			mu.Lock()
			sentMessages = append(sentMessages, req)
			mu.Unlock()
			writeJSON(t, w, APIResponse[Message]{
				OK: true,
				Result: Message{
					MessageID: 200,
					Chat:      Chat{ID: req.ChatID, Type: "private"},
					Text:      req.Text,
				},
			})

		default:
			t.Logf("unexpected API call: %s", r.URL.Path)
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	// 1. Configure: decode YAML into the module.
	tg := &Telegram{}

	cfgYAML := `
token: "12345:TEST_TOKEN"
mode: "polling"
polling_timeout: 0
allow_users: ["42"]
api_url: "` + srv.URL + `"
`

	var node yaml.Node
	if err := yaml.Unmarshal([]byte(cfgYAML), &node); err != nil {
		t.Fatalf("unmarshal yaml: %v", err)
	}
	// yaml.Unmarshal wraps in a document node; pass the first child.
	if err := tg.Configure(node.Content[0]); err != nil {
		t.Fatalf("Configure() error: %v", err)
	}

	if tg.config.Token != "12345:TEST_TOKEN" {
		t.Errorf("config.Token = %q, want %q", tg.config.Token, "12345:TEST_TOKEN")
	}
	if tg.config.Mode != "polling" {
		t.Errorf("config.Mode = %q, want %q", tg.config.Mode, "polling")
	}

	// 2. Provision: set up client, logger, allowlist.
	appCtx := core.NewAppContext(discardLogger(), t.TempDir())
	if err := tg.Provision(appCtx); err != nil {
		t.Fatalf("Provision() error: %v", err)
	}

	if tg.client == nil {
		t.Fatal("client should be set after Provision()")
	}
	if tg.allowList == nil {
		t.Fatal("allowList should be set after Provision()")
	}

	// 3. Validate.
	if err := tg.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}

	// 4. SetInbox: simulate the relay wiring.
	var inboxMu sync.Mutex
	var inboxMessages []message.Inbound
	tg.SetInbox(func(msg message.Inbound) error {
		inboxMu.Lock()
		inboxMessages = append(inboxMessages, msg)
		inboxMu.Unlock()
		return nil
	})

	// 5. Start: this calls getMe + starts polling.
	if err := tg.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	if !tg.Running() {
		t.Error("Running() = false after Start()")
	}

	// Wait for the inbound message to arrive via polling.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		inboxMu.Lock()
		n := len(inboxMessages)
		inboxMu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	inboxMu.Lock()
	if len(inboxMessages) != 1 {
		t.Fatalf("inbox received %d messages, want 1", len(inboxMessages))
	}
	inbound := inboxMessages[0]
	inboxMu.Unlock()

	if inbound.Sender.Username != "alice" {
		t.Errorf("Sender.Username = %q, want %q", inbound.Sender.Username, "alice")
	}
	if inbound.Text != "ping" {
		t.Errorf("Text = %q, want %q", inbound.Text, "ping")
	}
	if inbound.Command != "" {
		t.Errorf("Command = %q, want empty for a plain message", inbound.Command)
	}

	// 6. Send an outbound reply.
	outbound := message.NewReply(&inbound, "pong")
	if err := tg.Send(context.Background(), outbound); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	mu.Lock()
	if len(sentMessages) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sentMessages))
	}
	if sentMessages[0].Text != "pong" {
		t.Errorf("sent text = %q, want %q", sentMessages[0].Text, "pong")
	}
	if sentMessages[0].ParseMode != "" {
		t.Errorf("sent parse_mode = %q, want empty (replies go out verbatim)", sentMessages[0].ParseMode)
	}
	mu.Unlock()

	// 7. Verify interface compliance.
	var _ channel.Channel = tg
	var _ channel.Liveness = tg

	// 8. Stop.
	if err := tg.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if tg.Running() {
		t.Error("Running() = true after Stop()")
	}
}

// TestModuleRegistered verifies the module is registered via init().
func TestModuleRegistered(t *testing.T) {
	info, ok := core.GetModule("channel.telegram")
	if !ok {
		t.Fatal("channel.telegram module not registered")
	}
	if info.ID != "channel.telegram" {
		t.Errorf("ID = %q, want %q", info.ID, "channel.telegram")
	}
	if info.New == nil {
		t.Fatal("New function is nil")
	}
	mod := info.New()
	if _, ok := mod.(*Telegram); !ok {
		t.Errorf("New() returned %T, want *Telegram", mod)
	}
}

// TestProvisionRegistersCredential verifies Provision publishes the bot
// token to the credential store so the redactor can scrub it from logs.
func TestProvisionRegistersCredential(t *testing.T) {
	tg := &Telegram{}
	tg.config.defaults()
	tg.config.Token = "12345:PROVISION_SECRET"

	appCtx := core.NewAppContext(discardLogger(), t.TempDir())
	store := securitytest.NewTestCredentialStore()
	appCtx.RegisterService("security.credentials", store)

	if err := tg.Provision(appCtx); err != nil {
		t.Fatalf("Provision() error: %v", err)
	}

	got, ok := store.Get("telegram.token")
	if !ok {
		t.Fatal("telegram.token not registered in credential store")
	}
	if got != "12345:PROVISION_SECRET" {
		t.Errorf("stored token = %q, want %q", got, "12345:PROVISION_SECRET")
	}
}

// TestValidateRejectsEmptyToken verifies that Validate fails without a token.
func TestValidateRejectsEmptyToken(t *testing.T) {
	tg := &Telegram{}
	tg.config.defaults()
	tg.config.Token = ""

	if err := tg.Validate(); err == nil {
		t.Error("Validate() should error with empty token")
	}
}

// TestValidateRejectsInvalidMode verifies that Validate rejects unknown modes.
func TestValidateRejectsInvalidMode(t *testing.T) {
	tg := &Telegram{}
	tg.config.Token = "12345:test"
	tg.config.Mode = "invalid"

	if err := tg.Validate(); err == nil {
		t.Error("Validate() should error with invalid mode")
	}
}

// TestValidateWebhookRequiresURL verifies webhook mode needs a URL.
func TestValidateWebhookRequiresURL(t *testing.T) {
	tg := &Telegram{}
	tg.config.Token = "12345:test"
	tg.config.Mode = "webhook"
	tg.config.WebhookURL = ""

	if err := tg.Validate(); err == nil {
		t.Error("Validate() should error when webhook mode has no URL")
	}
}
