package notifications

import (
	"fmt"
	"os"
	"runtime"
	"sync"
)

// TerminalNotifier flashes the foreground terminal's title bar when an
// alert needs an operator's attention, restoring it once cleared.
type TerminalNotifier struct {
	originalTitle string
	mu            sync.Mutex
}

// NewTerminalNotifier creates a terminal notifier with a default title.
func NewTerminalNotifier() *TerminalNotifier {
	return &TerminalNotifier{originalTitle: "orcakit"}
}

// SetOriginalTitle stores the title ClearAlert should restore.
func (t *TerminalNotifier) SetOriginalTitle(title string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.originalTitle = title
}

// Flash changes the terminal title to surface message.
func (t *TerminalNotifier) Flash(message string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.setTerminalTitle(fmt.Sprintf("⚠ orcakit - %s", message))
}

// ClearAlert restores the terminal title to its prior value.
func (t *TerminalNotifier) ClearAlert() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.setTerminalTitle(t.originalTitle)
}

// setTerminalTitle writes the OSC 0 escape sequence terminals use to set
// their window title. Supported on windows, linux and darwin; any other
// GOOS returns an error.
func (t *TerminalNotifier) setTerminalTitle(title string) error {
	switch runtime.GOOS {
	case "windows", "linux", "darwin":
		fmt.Printf("\033]0;%s\007", title)
		return nil
	default:
		return fmt.Errorf("terminal title manipulation not supported on %s", runtime.GOOS)
	}
}

// IsSupported reports whether stdout is a terminal on a supported OS.
func (t *TerminalNotifier) IsSupported() bool {
	if !isTerminal() {
		return false
	}
	switch runtime.GOOS {
	case "windows", "linux", "darwin":
		return true
	default:
		return false
	}
}

func isTerminal() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
