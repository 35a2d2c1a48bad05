package telegram

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/gemgram/gemgram/pkg/message"
)

// convertInbound transforms a Telegram Update into a platform-agnostic
// Inbound message. It returns an error for updates the bot does not
// handle: non-message updates, messages without text, and commands
// addressed to a different bot in the same group.
func convertInbound(update *Update, botUsername, channelName string) (message.Inbound, error) {
	msg := update.Message
	if msg == nil {
		return message.Inbound{}, fmt.Errorf("telegram: update %d contains no message", update.UpdateID)
	}
	if msg.Text == "" {
		return message.Inbound{}, fmt.Errorf("telegram: update %d has no text", update.UpdateID)
	}

	raw, err := json.Marshal(update)
	if err != nil {
		return message.Inbound{}, fmt.Errorf("telegram: marshal update: %w", err)
	}

	inbound := message.Inbound{
		ID:        strconv.Itoa(msg.MessageID),
		Timestamp: time.Unix(int64(msg.Date), 0),
		Channel:   channelName,
		Sender:    convertSender(msg.From),
		Chat:      convertChat(msg.Chat),
		Text:      msg.Text,
		Raw:       raw,
	}

	if msg.ReplyToMessage != nil {
		inbound.ReplyToID = strconv.Itoa(msg.ReplyToMessage.MessageID)
	}

	cmd, err := extractCommand(msg, botUsername)
	if err != nil {
		return message.Inbound{}, err
	}
	inbound.Command = cmd

	return inbound, nil
}

// convertSender maps a Telegram User to a platform-agnostic Sender.
func convertSender(user *User) message.Sender {
	if user == nil {
		return message.Sender{}
	}
	displayName := user.FirstName
	if user.LastName != "" {
		displayName += " " + user.LastName
	}
	return message.Sender{
		ID:          strconv.FormatInt(user.ID, 10),
		Username:    user.Username,
		DisplayName: displayName,
	}
}

// convertChat maps a Telegram Chat to a platform-agnostic Chat.
func convertChat(chat Chat) message.Chat {
	return message.Chat{
		ID:    strconv.FormatInt(chat.ID, 10),
		Type:  mapChatType(chat.Type),
		Title: chat.Title,
	}
}

// mapChatType converts Telegram chat type strings to message.ChatType.
func mapChatType(tgType string) message.ChatType {
	switch tgType {
	case "private":
		return message.ChatDM
	case "group", "supergroup":
		return message.ChatGroup
	case "channel":
		return message.ChatBroadcast
	default:
		return message.ChatGroup
	}
}

// extractCommand returns the bot command name when the message starts with
// a bot_command entity. Telegram marks commands as entities with UTF-16
// offsets; only an entity at offset 0 makes the message a command. A
// command suffixed with another bot's username (e.g. /start@otherbot in a
// group) is not for us; the whole update is skipped, mirroring how
// Telegram clients route group commands.
func extractCommand(msg *Message, botUsername string) (string, error) {
	for _, ent := range msg.Entities {
		if ent.Type != "bot_command" || ent.Offset != 0 {
			continue
		}

		cmd := extractEntityText(msg.Text, ent.Offset, ent.Length)
		cmd = strings.TrimPrefix(cmd, "/")

		if at := strings.IndexByte(cmd, '@'); at >= 0 {
			target := cmd[at+1:]
			cmd = cmd[:at]
			if !strings.EqualFold(target, botUsername) {
				return "", fmt.Errorf("telegram: command %q addressed to @%s", cmd, target)
			}
		}

		if cmd == "" {
			return "", nil
		}
		return strings.ToLower(cmd), nil
	}
	return "", nil
}

// extractEntityText safely extracts a substring from text using UTF-16 offsets,
// which is what Telegram uses for entity offsets and lengths.
// Telegram encodes offsets as UTF-16 code units, so we must convert
// to UTF-16, slice, and convert back to handle non-BMP characters (emojis).
func extractEntityText(text string, offset, length int) string {
	encoded := utf16.Encode([]rune(text))
	if offset >= len(encoded) {
		return ""
	}
	end := offset + length
	if end > len(encoded) {
		end = len(encoded)
	}
	return string(utf16.Decode(encoded[offset:end]))
}
