package external

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/orcakit/core/internal/notifications"
)

func TestDiscordNotifierSendPostsEmbed(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	notifier := NewDiscordNotifier(DiscordConfig{WebhookURL: server.URL})
	if err := notifier.Send(testAlert()); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	embeds, ok := received["embeds"].([]interface{})
	if !ok || len(embeds) != 1 {
		t.Fatalf("expected a single embed in the payload, got %v", received["embeds"])
	}
}

func TestDiscordNotifierSendRequiresWebhookURL(t *testing.T) {
	notifier := NewDiscordNotifier(DiscordConfig{})
	if err := notifier.Send(testAlert()); err == nil {
		t.Fatal("expected error when webhook URL is unset")
	}
}

func TestDiscordNotifierShouldNotifyFiltersBySeverity(t *testing.T) {
	notifier := NewDiscordNotifier(DiscordConfig{MinSeverity: notifications.SeverityHigh})

	low := testAlert()
	low.Severity = notifications.SeverityLow
	if notifier.ShouldNotify(low) {
		t.Error("expected low-severity alert filtered out by a high-severity floor")
	}
}

func TestDiscordNotifierSendReportsBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	notifier := NewDiscordNotifier(DiscordConfig{WebhookURL: server.URL})
	if err := notifier.Send(testAlert()); err == nil {
		t.Fatal("expected error on non-200/204 response")
	}
}
