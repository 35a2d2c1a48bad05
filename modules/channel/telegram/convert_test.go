package telegram

import (
	"testing"

	"github.com/gemgram/gemgram/pkg/message"
)

func textUpdate(id int, text string, entities ...MessageEntity) *Update {
	return &Update{
		UpdateID: id,
		Message: &Message{
			MessageID: id * 10,
			From:      &User{ID: 100, FirstName: "Alice", LastName: "Smith", Username: "alice"},
			Chat:      Chat{ID: 200, Type: "private"},
			Date:      1700000000,
			Text:      text,
			Entities:  entities,
		},
	}
}

func TestConvertInbound_TextMessage(t *testing.T) {
	t.Parallel()

	update := textUpdate(1, "hello world")
	msg, err := convertInbound(update, "test_bot", "telegram")
	if err != nil {
		t.Fatalf("convertInbound() error: %v", err)
	}

	if msg.ID != "10" {
		t.Errorf("ID = %q, want %q", msg.ID, "10")
	}
	if msg.Channel != "telegram" {
		t.Errorf("Channel = %q, want %q", msg.Channel, "telegram")
	}
	if msg.Text != "hello world" {
		t.Errorf("Text = %q, want %q", msg.Text, "hello world")
	}
	if msg.Command != "" {
		t.Errorf("Command = %q, want empty", msg.Command)
	}
	if msg.Sender.ID != "100" {
		t.Errorf("Sender.ID = %q, want %q", msg.Sender.ID, "100")
	}
	if msg.Sender.DisplayName != "Alice Smith" {
		t.Errorf("DisplayName = %q, want %q", msg.Sender.DisplayName, "Alice Smith")
	}
	if msg.Chat.ID != "200" {
		t.Errorf("Chat.ID = %q, want %q", msg.Chat.ID, "200")
	}
	if msg.Chat.Type != message.ChatDM {
		t.Errorf("Chat.Type = %q, want %q", msg.Chat.Type, message.ChatDM)
	}
	if msg.Timestamp.Unix() != 1700000000 {
		t.Errorf("Timestamp = %v, want unix 1700000000", msg.Timestamp)
	}
	if len(msg.Raw) == 0 {
		t.Error("Raw should carry the original update JSON")
	}
}

func TestConvertInbound_Command(t *testing.T) {
	t.Parallel()

	update := textUpdate(2, "/start", MessageEntity{Type: "bot_command", Offset: 0, Length: 6})
	msg, err := convertInbound(update, "test_bot", "telegram")
	if err != nil {
		t.Fatalf("convertInbound() error: %v", err)
	}
	if msg.Command != "start" {
		t.Errorf("Command = %q, want %q", msg.Command, "start")
	}
	if !msg.IsCommand() {
		t.Error("IsCommand() = false, want true")
	}
}

func TestConvertInbound_CommandWithArguments(t *testing.T) {
	t.Parallel()

	update := textUpdate(3, "/help me please", MessageEntity{Type: "bot_command", Offset: 0, Length: 5})
	msg, err := convertInbound(update, "test_bot", "telegram")
	if err != nil {
		t.Fatalf("convertInbound() error: %v", err)
	}
	if msg.Command != "help" {
		t.Errorf("Command = %q, want %q", msg.Command, "help")
	}
	if msg.Text != "/help me please" {
		t.Errorf("Text = %q, want full text preserved", msg.Text)
	}
}

func TestConvertInbound_CommandAddressedToMe(t *testing.T) {
	t.Parallel()

	update := textUpdate(4, "/start@test_bot", MessageEntity{Type: "bot_command", Offset: 0, Length: 15})
	msg, err := convertInbound(update, "test_bot", "telegram")
	if err != nil {
		t.Fatalf("convertInbound() error: %v", err)
	}
	if msg.Command != "start" {
		t.Errorf("Command = %q, want %q", msg.Command, "start")
	}
}

func TestConvertInbound_CommandForAnotherBot(t *testing.T) {
	t.Parallel()

	update := textUpdate(5, "/start@other_bot", MessageEntity{Type: "bot_command", Offset: 0, Length: 16})
	if _, err := convertInbound(update, "test_bot", "telegram"); err == nil {
		t.Fatal("expected skip error for another bot's command")
	}
}

func TestConvertInbound_CommandCaseInsensitiveBotName(t *testing.T) {
	t.Parallel()

	update := textUpdate(6, "/help@Test_Bot", MessageEntity{Type: "bot_command", Offset: 0, Length: 14})
	msg, err := convertInbound(update, "test_bot", "telegram")
	if err != nil {
		t.Fatalf("convertInbound() error: %v", err)
	}
	if msg.Command != "help" {
		t.Errorf("Command = %q, want %q", msg.Command, "help")
	}
}

func TestConvertInbound_UppercaseCommandNormalized(t *testing.T) {
	t.Parallel()

	update := textUpdate(7, "/START", MessageEntity{Type: "bot_command", Offset: 0, Length: 6})
	msg, err := convertInbound(update, "test_bot", "telegram")
	if err != nil {
		t.Fatalf("convertInbound() error: %v", err)
	}
	if msg.Command != "start" {
		t.Errorf("Command = %q, want %q", msg.Command, "start")
	}
}

func TestConvertInbound_MidTextCommandIsNotACommand(t *testing.T) {
	t.Parallel()

	// A bot_command entity not at offset 0 does not make the message a
	// command; the text goes to the AI as a regular prompt.
	update := textUpdate(8, "try /start later", MessageEntity{Type: "bot_command", Offset: 4, Length: 6})
	msg, err := convertInbound(update, "test_bot", "telegram")
	if err != nil {
		t.Fatalf("convertInbound() error: %v", err)
	}
	if msg.Command != "" {
		t.Errorf("Command = %q, want empty", msg.Command)
	}
}

func TestConvertInbound_NoMessage(t *testing.T) {
	t.Parallel()

	update := &Update{UpdateID: 9}
	if _, err := convertInbound(update, "test_bot", "telegram"); err == nil {
		t.Fatal("expected error for update without message")
	}
}

func TestConvertInbound_NoText(t *testing.T) {
	t.Parallel()

	// Photos, stickers and the like arrive without Text; the bot skips them.
	update := &Update{
		UpdateID: 10,
		Message: &Message{
			MessageID: 100,
			From:      &User{ID: 100, FirstName: "Alice"},
			Chat:      Chat{ID: 200, Type: "private"},
			Date:      1700000000,
		},
	}
	if _, err := convertInbound(update, "test_bot", "telegram"); err == nil {
		t.Fatal("expected error for update without text")
	}
}

func TestConvertInbound_ReplyTo(t *testing.T) {
	t.Parallel()

	update := textUpdate(11, "replying")
	update.Message.ReplyToMessage = &Message{MessageID: 77}

	msg, err := convertInbound(update, "test_bot", "telegram")
	if err != nil {
		t.Fatalf("convertInbound() error: %v", err)
	}
	if msg.ReplyToID != "77" {
		t.Errorf("ReplyToID = %q, want %q", msg.ReplyToID, "77")
	}
}

func TestConvertInbound_NilSender(t *testing.T) {
	t.Parallel()

	update := textUpdate(12, "anonymous")
	update.Message.From = nil

	msg, err := convertInbound(update, "test_bot", "telegram")
	if err != nil {
		t.Fatalf("convertInbound() error: %v", err)
	}
	if msg.Sender.ID != "" {
		t.Errorf("Sender.ID = %q, want empty", msg.Sender.ID)
	}
}

func TestMapChatType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tgType string
		want   message.ChatType
	}{
		{"private", message.ChatDM},
		{"group", message.ChatGroup},
		{"supergroup", message.ChatGroup},
		{"channel", message.ChatBroadcast},
		{"something_new", message.ChatGroup},
	}

	for _, tt := range tests {
		if got := mapChatType(tt.tgType); got != tt.want {
			t.Errorf("mapChatType(%q) = %q, want %q", tt.tgType, got, tt.want)
		}
	}
}

func TestExtractEntityText_UTF16Offsets(t *testing.T) {
	t.Parallel()

	// The party popper emoji occupies two UTF-16 code units, so byte or
	// rune offsets would slice the command wrong.
	text := "🎉🎉 /start"
	// Offset 5 = two emojis (4 units) + space; length 6 = "/start".
	if got := extractEntityText(text, 5, 6); got != "/start" {
		t.Errorf("extractEntityText() = %q, want %q", got, "/start")
	}
}

func TestExtractEntityText_OutOfRange(t *testing.T) {
	t.Parallel()

	if got := extractEntityText("short", 10, 5); got != "" {
		t.Errorf("extractEntityText() = %q, want empty for out-of-range offset", got)
	}
	if got := extractEntityText("short", 2, 100); got != "ort" {
		t.Errorf("extractEntityText() = %q, want clamped tail", got)
	}
}
