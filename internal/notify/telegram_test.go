package notify

import (
	"strings"
	"testing"

	"github.com/ralphcore/ralph/internal/config"
)

func TestTelegramChannelIsConfiguredRequiresTokenAndChatID(t *testing.T) {
	cases := []struct {
		cfg  config.TelegramNotifyConfig
		want bool
	}{
		{config.TelegramNotifyConfig{}, false},
		{config.TelegramNotifyConfig{BotToken: "abc"}, false},
		{config.TelegramNotifyConfig{ChatID: "123"}, false},
		{config.TelegramNotifyConfig{BotToken: "abc", ChatID: "123"}, true},
	}
	for _, tc := range cases {
		tg := NewTelegram(tc.cfg)
		if got := tg.IsConfigured(); got != tc.want {
			t.Fatalf("IsConfigured(%+v) = %v, want %v", tc.cfg, got, tc.want)
		}
	}
}

func TestTelegramChannelName(t *testing.T) {
	if NewTelegram(config.TelegramNotifyConfig{}).Name() != "telegram" {
		t.Fatalf("Name() should be telegram")
	}
}

func TestTelegramTextEscapesHTMLAndIncludesGuardrailKind(t *testing.T) {
	text := telegramText(Event{
		Title: "<script>alert(1)</script> & friends", Body: "see logs",
		URL:      "https://github.com/acme/widgets/issues/5",
		Metadata: map[string]any{"guardrailKind": "wall_time"},
	})
	if strings.Contains(text, "<script>") {
		t.Fatalf("expected the title to be HTML-escaped, got %q", text)
	}
	if !strings.Contains(text, "&lt;script&gt;") {
		t.Fatalf("expected an escaped <script> tag, got %q", text)
	}
	if !strings.Contains(text, "guardrail: wall_time") {
		t.Fatalf("expected the guardrail kind in the message, got %q", text)
	}
	if !strings.Contains(text, "https://github.com/acme/widgets/issues/5") {
		t.Fatalf("expected the deep link in the message, got %q", text)
	}
}

func TestTelegramTextTruncatesToMessageLimit(t *testing.T) {
	text := telegramText(Event{Title: "t", Body: strings.Repeat("x", 5000)})
	if len(text) > 4096 {
		t.Fatalf("len(text) = %d, want <= 4096", len(text))
	}
	if !strings.HasSuffix(text, "...") {
		t.Fatalf("expected truncated text to end with ..., got %q", text[len(text)-10:])
	}
}
