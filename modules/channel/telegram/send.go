package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/gemgram/gemgram/internal/channel"
	"github.com/gemgram/gemgram/pkg/message"
)

// sendOutbound delivers a reply through the Telegram API, splitting it into
// multiple sendMessage calls when it exceeds the platform limit. Replies go
// out as plain text so the AI's words arrive unchanged; a parse mode is only
// set when the hints ask for one.
func (t *Telegram) sendOutbound(ctx context.Context, msg message.Outbound) error {
	chunks := channel.SplitMessage(msg, channel.ChunkConfig{
		MaxLength:      t.config.MaxMessageLength,
		PreserveBlocks: true,
	})

	chatID, err := strconv.ParseInt(msg.Chat.ID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat ID %q: %w", msg.Chat.ID, err)
	}

	for _, chunk := range chunks {
		if err := t.sendChunk(ctx, chunk, chatID); err != nil {
			return err
		}
	}

	return nil
}

// sendChunk performs a single sendMessage call. Fail-fast: if a chunk send
// fails, remaining chunks are skipped and the error is returned so partial
// delivery is never reported as success.
func (t *Telegram) sendChunk(ctx context.Context, chunk message.Outbound, chatID int64) error {
	req := SendMessageRequest{
		ChatID:           chatID,
		Text:             chunk.Text,
		ReplyToMessageID: parseOptionalInt(chunk.ReplyToID, t.logger),
	}

	if chunk.Hints != nil {
		req.ParseMode = chunk.Hints.ParseMode
		req.DisableWebPagePreview = chunk.Hints.DisablePreview
		req.DisableNotification = chunk.Hints.DisableNotification
	}

	if _, err := t.client.SendMessage(ctx, req); err != nil {
		return fmt.Errorf("telegram: send message: %w", err)
	}
	return nil
}

// parseOptionalInt converts a string to int, returning 0 for empty strings.
// Logs a warning if the string is non-empty but not a valid integer.
func parseOptionalInt(s string, logger *slog.Logger) int {
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		logger.Warn("telegram: invalid message ID reference",
			"value", s,
			"error", err,
		)
		return 0
	}
	return v
}
