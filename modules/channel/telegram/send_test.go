package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gemgram/gemgram/pkg/message"
)

// sendTestServer records every sendMessage request body.
type sendTestServer struct {
	srv  *httptest.Server
	mu   sync.Mutex
	reqs []SendMessageRequest
	fail bool
}

func newSendTestServer(t *testing.T) *sendTestServer {
	t.Helper()
	s := &sendTestServer{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sendMessage") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req SendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode sendMessage body: %v", err)
		}
		s.mu.Lock()
		s.reqs = append(s.reqs, req)
		fail := s.fail
		s.mu.Unlock()

		if fail {
			writeJSON(t, w, APIResponse[Message]{OK: false, ErrorCode: 400, Description: "Bad Request"})
			return
		}
		writeJSON(t, w, APIResponse[Message]{OK: true, Result: Message{MessageID: 1}})
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *sendTestServer) requests() []SendMessageRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SendMessageRequest, len(s.reqs))
	copy(out, s.reqs)
	return out
}

func newSendTestModule(srv *sendTestServer, maxLen int) *Telegram {
	cfg := Config{MaxMessageLength: maxLen}
	return &Telegram{
		config: cfg,
		client: NewClient("TOKEN", srv.srv.URL),
		logger: discardLogger(),
	}
}

func TestSendSingleMessage(t *testing.T) {
	srv := newSendTestServer(t)
	tg := newSendTestModule(srv, 4096)

	out := message.NewText("telegram", message.Chat{ID: "200"}, "hi there")
	if err := tg.sendOutbound(context.Background(), out); err != nil {
		t.Fatalf("sendOutbound() error: %v", err)
	}

	reqs := srv.requests()
	if len(reqs) != 1 {
		t.Fatalf("sendMessage calls = %d, want 1", len(reqs))
	}
	if reqs[0].ChatID != 200 {
		t.Errorf("ChatID = %d, want 200", reqs[0].ChatID)
	}
	if reqs[0].Text != "hi there" {
		t.Errorf("Text = %q, want %q", reqs[0].Text, "hi there")
	}
	if reqs[0].ParseMode != "" {
		t.Errorf("ParseMode = %q, want empty (plain text)", reqs[0].ParseMode)
	}
}

func TestSendSplitsLongMessage(t *testing.T) {
	srv := newSendTestServer(t)
	tg := newSendTestModule(srv, 20)

	out := message.NewText("telegram", message.Chat{ID: "200"}, "first paragraph\nsecond paragraph")
	if err := tg.sendOutbound(context.Background(), out); err != nil {
		t.Fatalf("sendOutbound() error: %v", err)
	}

	reqs := srv.requests()
	if len(reqs) != 2 {
		t.Fatalf("sendMessage calls = %d, want 2", len(reqs))
	}
	if reqs[0].Text != "first paragraph" {
		t.Errorf("chunk 1 = %q, want %q", reqs[0].Text, "first paragraph")
	}
	if reqs[1].Text != "second paragraph" {
		t.Errorf("chunk 2 = %q, want %q", reqs[1].Text, "second paragraph")
	}
}

func TestSendMapsHintsAndReplyTarget(t *testing.T) {
	srv := newSendTestServer(t)
	tg := newSendTestModule(srv, 4096)

	out := message.Outbound{
		Channel:   "telegram",
		Chat:      message.Chat{ID: "200"},
		ReplyToID: "77",
		Text:      "formatted",
		Hints: &message.OutboundHints{
			ParseMode:           "MarkdownV2",
			DisablePreview:      true,
			DisableNotification: true,
		},
	}
	if err := tg.sendOutbound(context.Background(), out); err != nil {
		t.Fatalf("sendOutbound() error: %v", err)
	}

	reqs := srv.requests()
	if len(reqs) != 1 {
		t.Fatalf("sendMessage calls = %d, want 1", len(reqs))
	}
	req := reqs[0]
	if req.ReplyToMessageID != 77 {
		t.Errorf("ReplyToMessageID = %d, want 77", req.ReplyToMessageID)
	}
	if req.ParseMode != "MarkdownV2" {
		t.Errorf("ParseMode = %q, want %q", req.ParseMode, "MarkdownV2")
	}
	if !req.DisableWebPagePreview {
		t.Error("DisableWebPagePreview = false, want true")
	}
	if !req.DisableNotification {
		t.Error("DisableNotification = false, want true")
	}
}

func TestSendInvalidChatID(t *testing.T) {
	srv := newSendTestServer(t)
	tg := newSendTestModule(srv, 4096)

	out := message.NewText("telegram", message.Chat{ID: "not-a-number"}, "hi")
	if err := tg.sendOutbound(context.Background(), out); err == nil {
		t.Fatal("expected error for non-numeric chat ID")
	}
	if got := len(srv.requests()); got != 0 {
		t.Errorf("sendMessage calls = %d, want 0", got)
	}
}

func TestSendFailFast(t *testing.T) {
	srv := newSendTestServer(t)
	srv.fail = true
	tg := newSendTestModule(srv, 20)

	out := message.NewText("telegram", message.Chat{ID: "200"}, "first paragraph\nsecond paragraph")
	if err := tg.sendOutbound(context.Background(), out); err == nil {
		t.Fatal("expected error when sendMessage fails")
	}
	// The second chunk is never attempted after the first fails.
	if got := len(srv.requests()); got != 1 {
		t.Errorf("sendMessage calls = %d, want 1", got)
	}
}
