package message

import (
	"encoding/json"
	"strings"
	"time"
)

// Inbound represents a text message received from a channel.
type Inbound struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Channel   string    `json:"channel"`
	Sender    Sender    `json:"sender"`
	Chat      Chat      `json:"chat"`
	ReplyToID string    `json:"reply_to_id,omitempty"`
	Text      string    `json:"text"`
	// Command holds the bot command name without the leading slash
	// ("start", "help") when the channel recognized one. Empty otherwise.
	Command string          `json:"command,omitempty"`
	Raw     json.RawMessage `json:"raw,omitempty"`
}

// IsCommand reports whether the message carries a bot command.
func (m *Inbound) IsCommand() bool {
	return m.Command != ""
}

// ParseCommand extracts a bot command name from raw text: a leading slash
// followed by the command word, with an optional @botname suffix. It returns
// "" when the text is not a command. Channels that expose structured command
// metadata should prefer it over this fallback.
func ParseCommand(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	word := text[1:]
	if i := strings.IndexFunc(word, func(r rune) bool { return r == ' ' || r == '\n' || r == '\t' }); i >= 0 {
		word = word[:i]
	}
	if at := strings.IndexByte(word, '@'); at >= 0 {
		word = word[:at]
	}
	if word == "" {
		return ""
	}
	return strings.ToLower(word)
}
