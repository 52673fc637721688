package notifications

import (
	"runtime"
	"testing"
)

func TestNewTerminalNotifierDefaultTitle(t *testing.T) {
	terminal := NewTerminalNotifier()
	if terminal == nil {
		t.Fatal("NewTerminalNotifier returned nil")
	}
	if terminal.originalTitle != "orcakit" {
		t.Errorf("expected default title 'orcakit', got %q", terminal.originalTitle)
	}
}

func TestTerminalSetOriginalTitle(t *testing.T) {
	terminal := NewTerminalNotifier()
	terminal.SetOriginalTitle("Custom Title")
	if terminal.originalTitle != "Custom Title" {
		t.Errorf("expected 'Custom Title', got %q", terminal.originalTitle)
	}
}

func TestTerminalFlashDoesNotError(t *testing.T) {
	terminal := NewTerminalNotifier()
	if err := terminal.Flash("queue backing up"); err != nil {
		t.Errorf("Flash returned error: %v", err)
	}
}

func TestTerminalClearAlertRestoresTitle(t *testing.T) {
	terminal := NewTerminalNotifier()
	terminal.SetOriginalTitle("My Application")
	if err := terminal.Flash("alert"); err != nil {
		t.Fatalf("Flash returned error: %v", err)
	}
	if err := terminal.ClearAlert(); err != nil {
		t.Errorf("ClearAlert returned error: %v", err)
	}
}

func TestTerminalIsSupportedMatchesPlatform(t *testing.T) {
	terminal := NewTerminalNotifier()
	supported := terminal.IsSupported()

	switch runtime.GOOS {
	case "windows", "linux", "darwin":
		_ = supported // depends on whether stdout is a tty during the test run
	default:
		if supported {
			t.Error("expected terminal manipulation unsupported on this platform")
		}
	}
}

func TestTerminalConcurrentFlashAndClear(t *testing.T) {
	terminal := NewTerminalNotifier()
	done := make(chan bool)

	for i := 0; i < 10; i++ {
		go func(n int) {
			for j := 0; j < 50; j++ {
				if n%2 == 0 {
					terminal.Flash("alert")
				} else {
					terminal.ClearAlert()
				}
			}
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}
