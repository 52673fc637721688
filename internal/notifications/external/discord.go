package external

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/orcakit/core/internal/notifications"
)

// DiscordConfig configures a Discord incoming-webhook channel.
type DiscordConfig struct {
	WebhookURL  string                 `json:"webhook_url"`
	Username    string                 `json:"username,omitempty"`
	AvatarURL   string                 `json:"avatar_url,omitempty"`
	Kinds       []notifications.Kind   `json:"kinds,omitempty"`
	MinSeverity notifications.Severity `json:"min_severity,omitempty"`
}

// DiscordNotifier sends alerts to Discord via an incoming webhook.
type DiscordNotifier struct {
	config DiscordConfig
	client *http.Client
}

// NewDiscordNotifier builds a Discord channel from config.
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		config: config,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscordNotifier) Name() string { return "discord" }

// ShouldNotify filters by minimum severity and an optional kind allow-list.
func (d *DiscordNotifier) ShouldNotify(alert notifications.Alert) bool {
	if d.config.MinSeverity > 0 && alert.Severity > d.config.MinSeverity {
		return false
	}
	if len(d.config.Kinds) > 0 {
		found := false
		for _, k := range d.config.Kinds {
			if alert.Kind == k {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Send posts alert to the configured Discord webhook.
func (d *DiscordNotifier) Send(alert notifications.Alert) error {
	if d.config.WebhookURL == "" {
		return fmt.Errorf("discord webhook URL not configured")
	}

	color := 0x00FF00
	switch alert.Severity {
	case notifications.SeverityCritical:
		color = 0xFF0000
	case notifications.SeverityHigh:
		color = 0xFFA500
	}

	fields := []map[string]interface{}{
		{"name": "Kind", "value": string(alert.Kind), "inline": true},
		{"name": "Source", "value": alert.Source, "inline": true},
		{"name": "Severity", "value": alert.Severity.String(), "inline": true},
	}
	if alert.MissionID != "" {
		fields = append(fields, map[string]interface{}{"name": "Mission", "value": alert.MissionID, "inline": true})
	}
	for k, v := range alert.Payload {
		fields = append(fields, map[string]interface{}{"name": k, "value": fmt.Sprintf("%v", v), "inline": false})
	}

	embed := map[string]interface{}{
		"title":       fmt.Sprintf("%s alert", alert.Kind),
		"description": alert.Message,
		"color":       color,
		"timestamp":   alert.CreatedAt.Format(time.RFC3339),
		"fields":      fields,
	}
	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{embed},
	}
	if d.config.Username != "" {
		payload["username"] = d.config.Username
	}
	if d.config.AvatarURL != "" {
		payload["avatar_url"] = d.config.AvatarURL
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	resp, err := d.client.Post(d.config.WebhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send discord notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("discord API returned status %d", resp.StatusCode)
	}
	return nil
}
