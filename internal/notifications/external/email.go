package external

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/orcakit/core/internal/notifications"
)

// EmailConfig configures an SMTP channel.
type EmailConfig struct {
	SMTPHost    string                 `json:"smtp_host"`
	SMTPPort    int                    `json:"smtp_port"`
	Username    string                 `json:"username"`
	Password    string                 `json:"password"`
	From        string                 `json:"from"`
	To          []string               `json:"to"`
	Kinds       []notifications.Kind   `json:"kinds,omitempty"`
	MinSeverity notifications.Severity `json:"min_severity,omitempty"`
}

// EmailNotifier sends alerts over SMTP.
type EmailNotifier struct {
	config EmailConfig
}

// NewEmailNotifier builds an email channel from config.
func NewEmailNotifier(config EmailConfig) *EmailNotifier {
	return &EmailNotifier{config: config}
}

func (e *EmailNotifier) Name() string { return "email" }

// ShouldNotify filters by minimum severity and an optional kind allow-list.
func (e *EmailNotifier) ShouldNotify(alert notifications.Alert) bool {
	if e.config.MinSeverity > 0 && alert.Severity > e.config.MinSeverity {
		return false
	}
	if len(e.config.Kinds) > 0 {
		found := false
		for _, k := range e.config.Kinds {
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

// Send emails alert to the configured recipients.
func (e *EmailNotifier) Send(alert notifications.Alert) error {
	if e.config.SMTPHost == "" {
		return fmt.Errorf("SMTP host not configured")
	}
	if e.config.From == "" {
		return fmt.Errorf("from address not configured")
	}
	if len(e.config.To) == 0 {
		return fmt.Errorf("no recipient addresses configured")
	}

	subject := e.buildSubject(alert)
	body := e.buildBody(alert)
	message := e.buildMessage(subject, body)

	addr := fmt.Sprintf("%s:%d", e.config.SMTPHost, e.config.SMTPPort)
	var auth smtp.Auth
	if e.config.Username != "" && e.config.Password != "" {
		auth = smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.SMTPHost)
	}

	if err := smtp.SendMail(addr, auth, e.config.From, e.config.To, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (e *EmailNotifier) buildSubject(alert notifications.Alert) string {
	prefix := ""
	switch alert.Severity {
	case notifications.SeverityCritical:
		prefix = "[CRITICAL] "
	case notifications.SeverityHigh:
		prefix = "[HIGH] "
	}
	return fmt.Sprintf("%sorcakit %s alert - %s", prefix, alert.Kind, alert.ID)
}

func (e *EmailNotifier) buildBody(alert notifications.Alert) string {
	var body strings.Builder

	body.WriteString("orcakit Alert Notification\n")
	body.WriteString("==========================\n\n")
	body.WriteString(fmt.Sprintf("Alert ID: %s\n", alert.ID))
	body.WriteString(fmt.Sprintf("Kind: %s\n", alert.Kind))
	body.WriteString(fmt.Sprintf("Source: %s\n", alert.Source))
	if alert.MissionID != "" {
		body.WriteString(fmt.Sprintf("Mission: %s\n", alert.MissionID))
	}
	body.WriteString(fmt.Sprintf("Severity: %s\n", alert.Severity))
	body.WriteString(fmt.Sprintf("Timestamp: %s\n", alert.CreatedAt.Format(time.RFC3339)))
	body.WriteString(fmt.Sprintf("\n%s\n", alert.Message))

	if len(alert.Payload) > 0 {
		body.WriteString("\nPayload:\n")
		body.WriteString("--------\n")
		for k, v := range alert.Payload {
			body.WriteString(fmt.Sprintf("%s: %v\n", k, v))
		}
	}

	body.WriteString("\n--\n")
	body.WriteString("This is an automated notification from orcakit\n")
	return body.String()
}

func (e *EmailNotifier) buildMessage(subject, body string) string {
	var message strings.Builder
	message.WriteString(fmt.Sprintf("From: %s\r\n", e.config.From))
	message.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(e.config.To, ", ")))
	message.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	message.WriteString("MIME-Version: 1.0\r\n")
	message.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	message.WriteString("\r\n")
	message.WriteString(body)
	return message.String()
}
