package message

import "testing"

func TestChat_Kind(t *testing.T) {
	tests := []struct {
		name    string
		chat    Chat
		wantGrp bool
		wantDM  bool
	}{
		{"group chat", Chat{ID: "1", Type: ChatGroup}, true, false},
		{"dm chat", Chat{ID: "2", Type: ChatDM}, false, true},
		{"broadcast chat", Chat{ID: "3", Type: ChatBroadcast}, false, false},
		{"empty type", Chat{ID: "4"}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.chat.IsGroup(); got != tt.wantGrp {
				t.Errorf("Chat.IsGroup() = %v, want %v", got, tt.wantGrp)
			}
			if got := tt.chat.IsDirectMessage(); got != tt.wantDM {
				t.Errorf("Chat.IsDirectMessage() = %v, want %v", got, tt.wantDM)
			}
		})
	}
}
