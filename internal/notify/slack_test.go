package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ralphcore/ralph/internal/config"
)

func TestSeverityColorMapsKnownAndUnknownSeverities(t *testing.T) {
	cases := map[string]string{
		"critical": "#FF0000",
		"high":     "#FF6600",
		"medium":   "#FFAA00",
		"low":      "#0099FF",
		"":         "#888888",
		"bogus":    "#888888",
	}
	for sev, want := range cases {
		if got := severityColor(sev); got != want {
			t.Fatalf("severityColor(%q) = %q, want %q", sev, got, want)
		}
	}
}

func TestSlackChannelIsConfiguredRequiresWebhookURL(t *testing.T) {
	s := NewSlack(config.SlackNotifyConfig{})
	if s.IsConfigured() {
		t.Fatalf("expected IsConfigured=false with no webhook URL")
	}
	s = NewSlack(config.SlackNotifyConfig{WebhookURL: "https://hooks.slack.example/T000/B000/xyz"})
	if !s.IsConfigured() {
		t.Fatalf("expected IsConfigured=true once a webhook URL is set")
	}
	if s.Name() != "slack" {
		t.Fatalf("Name() = %q, want slack", s.Name())
	}
}

func TestSlackChannelSendPostsAttachmentWithFooterAndColor(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decoding posted payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSlack(config.SlackNotifyConfig{WebhookURL: srv.URL})
	err := s.Send(context.Background(), Event{Title: "build failed", Body: "see logs", Severity: "high", URL: "https://example.invalid/run/1"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	attachments, ok := captured["attachments"].([]any)
	if !ok || len(attachments) != 1 {
		t.Fatalf("captured payload missing attachments: %+v", captured)
	}
	att := attachments[0].(map[string]any)
	if att["footer"] != "ralph" {
		t.Fatalf("footer = %v, want ralph", att["footer"])
	}
	if att["color"] != "#FF6600" {
		t.Fatalf("color = %v, want #FF6600 for high severity", att["color"])
	}
	if att["title_link"] != "https://example.invalid/run/1" {
		t.Fatalf("title_link = %v, want the event URL", att["title_link"])
	}
}

func TestSlackChannelSendIncludesGuardrailKindAsField(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decoding posted payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSlack(config.SlackNotifyConfig{WebhookURL: srv.URL})
	evt := Event{
		Type: "guardrail_kill", Title: "acme/widgets#5 killed by guardrail", Severity: "high",
		RepoKey: "acme/widgets", Metadata: map[string]any{"issueNumber": 5, "guardrailKind": "wall_time"},
	}
	if err := s.Send(context.Background(), evt); err != nil {
		t.Fatalf("Send: %v", err)
	}

	att := captured["attachments"].([]any)[0].(map[string]any)
	fields, ok := att["fields"].([]any)
	if !ok || len(fields) == 0 {
		t.Fatalf("expected guardrail/repo fields in the attachment: %+v", att)
	}
	var sawGuardrail, sawRepo bool
	for _, f := range fields {
		field := f.(map[string]any)
		if field["title"] == "Guardrail" && field["value"] == "wall_time" {
			sawGuardrail = true
		}
		if field["title"] == "Repo" && field["value"] == "acme/widgets" {
			sawRepo = true
		}
	}
	if !sawGuardrail {
		t.Fatalf("expected a Guardrail field with value wall_time, got %+v", fields)
	}
	if !sawRepo {
		t.Fatalf("expected a Repo field with value acme/widgets, got %+v", fields)
	}
}

func TestSlackChannelSendSurfacesNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewSlack(config.SlackNotifyConfig{WebhookURL: srv.URL})
	if err := s.Send(context.Background(), Event{Title: "x"}); err == nil {
		t.Fatalf("expected an error on a non-2xx webhook response")
	}
}
