package notifications

import (
	"testing"
	"time"
)

func TestBannerNotifierShowAndClear(t *testing.T) {
	b := NewBannerNotifier()

	if state := b.State(); state.Visible {
		t.Fatal("new banner should start hidden")
	}

	alert := Alert{
		ID:        "a1",
		Kind:      KindBottleneck,
		Severity:  SeverityHigh,
		Message:   "queue backing up",
		CreatedAt: time.Now(),
	}
	b.Show(alert)

	state := b.State()
	if !state.Visible {
		t.Fatal("expected banner to be visible after Show")
	}
	if state.Message != alert.Message || state.Kind != alert.Kind || state.Severity != alert.Severity {
		t.Errorf("banner state does not match alert: %+v", state)
	}

	b.Clear()
	if state := b.State(); state.Visible {
		t.Fatal("expected banner hidden after Clear")
	}
}

func TestBannerNotifierShowReplacesPriorState(t *testing.T) {
	b := NewBannerNotifier()
	b.Show(Alert{Message: "first", Severity: SeverityLow, CreatedAt: time.Now()})
	b.Show(Alert{Message: "second", Severity: SeverityCritical, CreatedAt: time.Now()})

	state := b.State()
	if state.Message != "second" || state.Severity != SeverityCritical {
		t.Errorf("expected banner replaced with second alert, got %+v", state)
	}
}
