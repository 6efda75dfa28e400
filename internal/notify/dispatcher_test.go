package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ralphcore/ralph/internal/config"
)

func TestNewDispatcherOnlyActivatesConfiguredChannels(t *testing.T) {
	d := NewDispatcher(config.NotifyConfig{})
	if d.IsAnyConfigured() {
		t.Fatalf("expected no channels configured from a zero-value NotifyConfig")
	}

	d = NewDispatcher(config.NotifyConfig{Webhook: config.WebhookNotifyConfig{URL: "https://example.invalid/hook"}})
	if !d.IsAnyConfigured() {
		t.Fatalf("expected the webhook channel to be active once URL is set")
	}
}

func TestDispatcherNotifySendsToConfiguredWebhook(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(config.NotifyConfig{Webhook: config.WebhookNotifyConfig{URL: srv.URL}})
	d.Notify(context.Background(), Event{Type: "guardrail_kill", Title: "killed"})

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("webhook received %d requests, want 1", got)
	}
}

func TestDispatcherFiltersByEventTypeWhenEventsConfigured(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(config.NotifyConfig{
		Webhook: config.WebhookNotifyConfig{URL: srv.URL},
		Events:  []string{"task_blocked"},
	})

	d.Notify(context.Background(), Event{Type: "pr_opened"})
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Fatalf("expected pr_opened to be filtered out, got %d calls", got)
	}

	d.Notify(context.Background(), Event{Type: "task_blocked"})
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected task_blocked to pass the filter, got %d calls", got)
	}
}

func TestDispatcherDefaultEventsWhenNoneConfigured(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(config.NotifyConfig{Webhook: config.WebhookNotifyConfig{URL: srv.URL}})

	// "pr_opened" isn't in the default event set.
	d.Notify(context.Background(), Event{Type: "pr_opened"})
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Fatalf("expected pr_opened to be excluded by defaults, got %d calls", got)
	}

	// "escalation" is in the default event set.
	d.Notify(context.Background(), Event{Type: "escalation"})
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected escalation to pass default filter, got %d calls", got)
	}
}

func TestDispatcherFiltersBySeverityThreshold(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(config.NotifyConfig{
		Webhook:     config.WebhookNotifyConfig{URL: srv.URL},
		Events:      []string{"task_blocked"},
		MinSeverity: "high",
	})

	d.Notify(context.Background(), Event{Type: "task_blocked", Severity: "low"})
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Fatalf("expected low severity below threshold to be filtered, got %d calls", got)
	}

	d.Notify(context.Background(), Event{Type: "task_blocked", Severity: "critical"})
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected critical severity above threshold to pass, got %d calls", got)
	}
}
