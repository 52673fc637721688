package notifications

import (
	"log"
	"sync"
)

// Manager is the single entry point the oracle loop calls when it
// raises a bottleneck or escalation: it flashes the terminal, updates
// the banner, and fans the alert out to every registered external channel.
type Manager struct {
	router   *Router
	terminal *TerminalNotifier
	banner   *BannerNotifier
	logger   *log.Logger

	mu      sync.RWMutex
	enabled bool
}

// Config switches the manager on: Notify does nothing unless
// EnableTerminal, EnableBanner or at least one external channel is set.
// The flags do not select channels one by one; an enabled manager always
// shows the banner and flashes the terminal whenever it is supported.
type Config struct {
	EnableTerminal bool
	EnableBanner   bool
	Logger         *log.Logger
}

// NewManager builds a manager over an initial set of external channels.
func NewManager(cfg Config, channels []Channel) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Manager{
		router:   NewRouter(channels),
		terminal: NewTerminalNotifier(),
		banner:   NewBannerNotifier(),
		logger:   cfg.Logger,
		enabled:  cfg.EnableTerminal || cfg.EnableBanner || len(channels) > 0,
	}
}

// Notify raises alert across every enabled channel: the local terminal
// and banner synchronously, external channels asynchronously via the router.
func (m *Manager) Notify(alert Alert) {
	m.mu.RLock()
	enabled := m.enabled
	m.mu.RUnlock()
	if !enabled {
		return
	}

	m.banner.Show(alert)

	if m.terminal.IsSupported() {
		if err := m.terminal.Flash(alert.Message); err != nil {
			m.logger.Printf("[NOTIFICATION] terminal flash failed: %v", err)
		}
	}

	m.router.Route(alert)
	m.logger.Printf("[NOTIFICATION] alert %s (%s/%s): %s", alert.ID, alert.Kind, alert.Severity, alert.Message)
}

// ClearAlert restores the terminal title and hides the banner.
func (m *Manager) ClearAlert() {
	if m.terminal.IsSupported() {
		if err := m.terminal.ClearAlert(); err != nil {
			m.logger.Printf("[NOTIFICATION] terminal clear failed: %v", err)
		}
	}
	m.banner.Clear()
}

// BannerState exposes the current banner for the submission API.
func (m *Manager) BannerState() BannerState {
	return m.banner.State()
}

// AddChannel registers an additional external channel.
func (m *Manager) AddChannel(ch Channel) {
	m.router.AddChannel(ch)
}

// IsEnabled reports whether notifications are currently active.
func (m *Manager) IsEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// SetEnabled toggles notification delivery.
func (m *Manager) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = enabled
}

// SetTerminalTitle records the title ClearAlert should restore, called
// once at process startup.
func (m *Manager) SetTerminalTitle(title string) {
	m.terminal.SetOriginalTitle(title)
}
