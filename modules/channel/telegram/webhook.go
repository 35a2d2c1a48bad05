package telegram

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gemgram/gemgram/internal/channel"
	"github.com/gemgram/gemgram/pkg/message"
)

// maxUpdateBytes caps webhook request bodies. Telegram updates are small;
// anything larger is not from Telegram.
const maxUpdateBytes = 1 << 20

// WebhookReceiver processes incoming Telegram webhook payloads. It is an
// http.Handler; the module registers it as the "telegram.webhook" service
// and the gateway mounts it on the configured path.
type WebhookReceiver struct {
	inbox       func(message.Inbound) error
	allowList   *channel.AllowList
	logger      *slog.Logger
	botUsername string
	channelName string
	secret      string
}

// NewWebhookReceiver creates a new WebhookReceiver.
func NewWebhookReceiver(inbox func(message.Inbound) error, allowList *channel.AllowList, logger *slog.Logger, botUsername, channelName, secret string) *WebhookReceiver {
	return &WebhookReceiver{
		inbox:       inbox,
		allowList:   allowList,
		logger:      logger,
		botUsername: botUsername,
		channelName: channelName,
		secret:      secret,
	}
}

// Compile-time interface guard.
var _ http.Handler = (*WebhookReceiver)(nil)

// ServeHTTP validates the Telegram secret token header, parses the update,
// checks the allow list, and pushes the message to the inbox. Updates the
// bot does not handle get a 200 so Telegram never redelivers them; a full
// inbox gets a 500 so it does.
func (w *WebhookReceiver) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if w.secret != "" {
		token := r.Header.Get("X-Telegram-Bot-Api-Secret-Token")
		if subtle.ConstantTimeCompare([]byte(w.secret), []byte(token)) != 1 {
			w.logger.Warn("telegram: webhook secret token mismatch", "remote", r.RemoteAddr)
			http.Error(rw, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateBytes))
	if err != nil {
		http.Error(rw, "read failed", http.StatusBadRequest)
		return
	}

	var update Update
	if err := json.Unmarshal(body, &update); err != nil {
		http.Error(rw, "invalid update JSON", http.StatusBadRequest)
		return
	}

	w.logger.Debug("telegram: webhook update received", "update_id", update.UpdateID)

	msg, err := convertInbound(&update, w.botUsername, w.channelName)
	if err != nil {
		w.logger.Debug("telegram: skipping webhook update", "update_id", update.UpdateID, "reason", err)
		rw.WriteHeader(http.StatusOK)
		return
	}

	if !w.allowList.IsAllowed(msg) {
		w.logger.Debug("telegram: webhook update denied by allow list",
			"update_id", update.UpdateID,
			"sender", msg.Sender.ID,
			"chat", msg.Chat.ID,
		)
		rw.WriteHeader(http.StatusOK)
		return
	}

	if err := w.inbox(msg); err != nil {
		w.logger.Error("telegram: failed to deliver webhook update to inbox",
			"update_id", update.UpdateID,
			"error", err,
		)
		http.Error(rw, "delivery failed", http.StatusInternalServerError)
		return
	}

	rw.WriteHeader(http.StatusOK)
}
