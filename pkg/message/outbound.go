package message

// Outbound represents a reply to be sent through a channel.
type Outbound struct {
	Channel   string         `json:"channel"`
	Chat      Chat           `json:"chat"`
	ReplyToID string         `json:"reply_to_id,omitempty"`
	Text      string         `json:"text"`
	Hints     *OutboundHints `json:"hints,omitempty"`
}

// OutboundHints carries optional delivery hints for channels.
// Zero value means no hints are set.
type OutboundHints struct {
	DisablePreview      bool   `json:"disable_preview,omitempty"`
	DisableNotification bool   `json:"disable_notification,omitempty"`
	ParseMode           string `json:"parse_mode,omitempty"`
}

// NewText creates an outbound message addressed to a chat.
func NewText(channel string, chat Chat, text string) Outbound {
	return Outbound{Channel: channel, Chat: chat, Text: text}
}

// NewReply creates an outbound message addressed to the conversation an
// inbound message came from.
func NewReply(in *Inbound, text string) Outbound {
	return Outbound{
		Channel: in.Channel,
		Chat:    in.Chat,
		Text:    text,
	}
}
