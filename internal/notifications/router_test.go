package notifications

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type mockChannel struct {
	name    string
	sent    int32
	filter  func(Alert) bool
	sendErr error
	mu      sync.Mutex
	alerts  []Alert
}

func newMockChannel(name string, filter func(Alert) bool, sendErr error) *mockChannel {
	if filter == nil {
		filter = func(Alert) bool { return true }
	}
	return &mockChannel{name: name, filter: filter, sendErr: sendErr}
}

func (m *mockChannel) Name() string { return m.name }

func (m *mockChannel) ShouldNotify(alert Alert) bool { return m.filter(alert) }

func (m *mockChannel) Send(alert Alert) error {
	atomic.AddInt32(&m.sent, 1)
	m.mu.Lock()
	m.alerts = append(m.alerts, alert)
	m.mu.Unlock()
	return m.sendErr
}

func (m *mockChannel) sentCount() int { return int(atomic.LoadInt32(&m.sent)) }

func testAlert(kind Kind, severity Severity) Alert {
	return Alert{
		ID:        "alert-1",
		Kind:      kind,
		Severity:  severity,
		Message:   "test alert",
		Source:    "oracle",
		CreatedAt: time.Now(),
	}
}

func TestRouterAddAndRemoveChannel(t *testing.T) {
	router := NewRouter(nil)
	ch1 := newMockChannel("ch1", nil, nil)
	router.AddChannel(ch1)

	if names := router.Channels(); len(names) != 1 || names[0] != "ch1" {
		t.Fatalf("expected [ch1], got %v", names)
	}

	router.RemoveChannel("ch1")
	if names := router.Channels(); len(names) != 0 {
		t.Fatalf("expected no channels after removal, got %v", names)
	}

	// removing a channel that isn't registered must not panic
	router.RemoveChannel("nonexistent")
}

func TestRouterRouteDispatchesToAllChannels(t *testing.T) {
	ch1 := newMockChannel("ch1", nil, nil)
	ch2 := newMockChannel("ch2", nil, nil)
	router := NewRouter([]Channel{ch1, ch2})

	router.RouteWithWait(testAlert(KindBottleneck, SeverityHigh))

	if ch1.sentCount() != 1 {
		t.Errorf("ch1: expected 1 send, got %d", ch1.sentCount())
	}
	if ch2.sentCount() != 1 {
		t.Errorf("ch2: expected 1 send, got %d", ch2.sentCount())
	}
}

func TestRouterFiltersByShouldNotify(t *testing.T) {
	criticalOnly := newMockChannel("critical-only", func(a Alert) bool {
		return a.Severity == SeverityCritical
	}, nil)
	all := newMockChannel("all", nil, nil)

	router := NewRouter([]Channel{criticalOnly, all})

	router.RouteWithWait(testAlert(KindEscalation, SeverityNormal))
	if criticalOnly.sentCount() != 0 {
		t.Errorf("critical-only should have been filtered out, got %d sends", criticalOnly.sentCount())
	}
	if all.sentCount() != 1 {
		t.Errorf("all: expected 1 send, got %d", all.sentCount())
	}

	router.RouteWithWait(testAlert(KindEscalation, SeverityCritical))
	if criticalOnly.sentCount() != 1 {
		t.Errorf("critical-only: expected 1 send after critical alert, got %d", criticalOnly.sentCount())
	}
	if all.sentCount() != 2 {
		t.Errorf("all: expected 2 sends, got %d", all.sentCount())
	}
}

func TestRouterRouteSurvivesChannelError(t *testing.T) {
	errCh := newMockChannel("err-ch", nil, errors.New("send failed"))
	okCh := newMockChannel("ok-ch", nil, nil)

	router := NewRouter([]Channel{errCh, okCh})
	router.RouteWithWait(testAlert(KindSpawnFault, SeverityLow))

	if errCh.sentCount() != 1 {
		t.Errorf("err-ch: expected 1 attempt, got %d", errCh.sentCount())
	}
	if okCh.sentCount() != 1 {
		t.Errorf("ok-ch: expected 1 send, got %d", okCh.sentCount())
	}
}

func TestRouterChannelsListsRegisteredNames(t *testing.T) {
	router := NewRouter([]Channel{
		newMockChannel("alpha", nil, nil),
		newMockChannel("beta", nil, nil),
	})

	names := router.Channels()
	if len(names) != 2 {
		t.Fatalf("expected 2 channels, got %d", len(names))
	}
}
