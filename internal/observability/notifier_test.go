package observability

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNotify_NoAlertsNoRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	if err := NewSlackNotifier(srv.URL).Notify(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("empty alert list must not hit the webhook")
	}
}

func TestNotify_PostsBlocks(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding payload: %v", err)
		}
	}))
	defer srv.Close()

	alerts := []Alert{
		{ID: "daily-failures", Condition: "too_many_failures_today", Severity: SeverityHigh,
			Message: "5 messages failed processing today", TriggeredAt: time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)},
		{ID: "stale-run", Condition: "inbox_run_stale", Severity: SeverityMedium,
			Message: "no successful inbox run for more than 24 hours", TriggeredAt: time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)},
	}
	if err := NewSlackNotifier(srv.URL).Notify(alerts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Header, first section, divider, second section.
	if len(got.Blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(got.Blocks))
	}
	if got.Blocks[0].Type != "header" || got.Blocks[0].Text.Text != "parabrain Alert Summary" {
		t.Errorf("header block = %+v", got.Blocks[0])
	}
	if got.Blocks[2].Type != "divider" {
		t.Errorf("expected divider between alerts, got %+v", got.Blocks[2])
	}
	first := got.Blocks[1].Text.Text
	if !strings.Contains(first, "*[HIGH]*") || !strings.Contains(first, "5 messages failed") {
		t.Errorf("section text = %q", first)
	}
	if !strings.Contains(first, "2025-06-15 10:00 UTC") {
		t.Errorf("section missing timestamp: %q", first)
	}
}

func TestNotify_WebhookFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewSlackNotifier(srv.URL).Notify([]Alert{{ID: "x", Severity: SeverityLow}})
	if err == nil {
		t.Fatal("expected error for non-200 webhook response")
	}
}
