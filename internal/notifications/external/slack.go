// Package external provides Channel implementations that fan alerts
// out to operator-facing third-party services.
package external

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/orcakit/core/internal/notifications"
)

// SlackConfig configures a Slack incoming-webhook channel.
type SlackConfig struct {
	WebhookURL  string               `json:"webhook_url"`
	Channel     string               `json:"channel,omitempty"`
	Username    string               `json:"username,omitempty"`
	IconEmoji   string               `json:"icon_emoji,omitempty"`
	Kinds       []notifications.Kind `json:"kinds,omitempty"`
	MinSeverity notifications.Severity `json:"min_severity,omitempty"`
}

// SlackNotifier sends alerts to Slack via an incoming webhook.
type SlackNotifier struct {
	config SlackConfig
	client *http.Client
}

// NewSlackNotifier builds a Slack channel from config.
func NewSlackNotifier(config SlackConfig) *SlackNotifier {
	return &SlackNotifier{
		config: config,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SlackNotifier) Name() string { return "slack" }

// ShouldNotify filters by minimum severity (lower is more urgent) and an
// optional kind allow-list.
func (s *SlackNotifier) ShouldNotify(alert notifications.Alert) bool {
	if s.config.MinSeverity > 0 && alert.Severity > s.config.MinSeverity {
		return false
	}
	if len(s.config.Kinds) > 0 {
		found := false
		for _, k := range s.config.Kinds {
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

// Send posts alert to the configured Slack webhook.
func (s *SlackNotifier) Send(alert notifications.Alert) error {
	if s.config.WebhookURL == "" {
		return fmt.Errorf("slack webhook URL not configured")
	}

	color := "good"
	switch alert.Severity {
	case notifications.SeverityCritical:
		color = "danger"
	case notifications.SeverityHigh:
		color = "warning"
	}

	fields := []map[string]interface{}{
		{"title": "Kind", "value": string(alert.Kind), "short": true},
		{"title": "Source", "value": alert.Source, "short": true},
		{"title": "Severity", "value": alert.Severity.String(), "short": true},
	}
	if alert.MissionID != "" {
		fields = append(fields, map[string]interface{}{"title": "Mission", "value": alert.MissionID, "short": true})
	}
	for k, v := range alert.Payload {
		fields = append(fields, map[string]interface{}{"title": k, "value": fmt.Sprintf("%v", v), "short": false})
	}

	payload := map[string]interface{}{
		"text": alert.Message,
		"attachments": []map[string]interface{}{
			{
				"color":  color,
				"title":  fmt.Sprintf("%s alert", alert.Kind),
				"fields": fields,
				"ts":     alert.CreatedAt.Unix(),
			},
		},
	}
	if s.config.Channel != "" {
		payload["channel"] = s.config.Channel
	}
	if s.config.Username != "" {
		payload["username"] = s.config.Username
	}
	if s.config.IconEmoji != "" {
		payload["icon_emoji"] = s.config.IconEmoji
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	resp, err := s.client.Post(s.config.WebhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send slack notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack API returned status %d", resp.StatusCode)
	}
	return nil
}
