package app

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
)

func stubClipboard(t *testing.T, system, osc func(string) error) {
	t.Helper()
	origWriteAll := clipboardWriteAll
	origWriteOSC52 := clipboardWriteOSC52
	t.Cleanup(func() {
		clipboardWriteAll = origWriteAll
		clipboardWriteOSC52 = origWriteOSC52
	})
	clipboardWriteAll = system
	clipboardWriteOSC52 = osc
}

func TestCopyTextToClipboardUsesSystemBackend(t *testing.T) {
	fallbackCalled := false
	stubClipboard(t, func(string) error { return nil }, func(string) error {
		fallbackCalled = true
		return nil
	})

	method, err := copyTextToClipboard("https://example.com")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if method != clipboardMethodSystem {
		t.Fatalf("expected system method, got %v", method)
	}
	if fallbackCalled {
		t.Fatalf("expected no OSC52 fallback call")
	}
}

func TestCopyTextToClipboardFallsBackToOSC52(t *testing.T) {
	var copied string
	stubClipboard(t, func(string) error { return errors.New("exit status 1") }, func(text string) error {
		copied = text
		return nil
	})

	method, err := copyTextToClipboard("https://example.com")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if method != clipboardMethodOSC52 || copied != "https://example.com" {
		t.Fatalf("expected OSC52 copy, got method %v text %q", method, copied)
	}
}

func TestCopyTextToClipboardHelpfulErrorWhenDisplayMissing(t *testing.T) {
	t.Setenv("DISPLAY", "")
	t.Setenv("WAYLAND_DISPLAY", "")
	stubClipboard(t,
		func(string) error { return errors.New("exit status 1") },
		func(string) error { return errors.New("open /dev/tty: no such device") },
	)

	_, err := copyTextToClipboard("hello")
	if err == nil {
		t.Fatalf("expected copy error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "no GUI clipboard available") || !strings.Contains(msg, "OSC52 fallback failed") {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestWriteOSC52ClipboardReportsTTYError(t *testing.T) {
	t.Setenv("TERM", "xterm-256color")
	t.Setenv("REPRIEVE_DISABLE_OSC52", "")
	origOpenTTY := openTTYForWrite
	t.Cleanup(func() { openTTYForWrite = origOpenTTY })
	openTTYForWrite = func() (io.WriteCloser, error) {
		return nil, os.ErrNotExist
	}

	err := writeOSC52Clipboard("hello")
	if err == nil || !strings.Contains(err.Error(), "open /dev/tty") {
		t.Fatalf("expected /dev/tty error, got %v", err)
	}
}

func TestWriteOSC52ClipboardHonorsDisableEnv(t *testing.T) {
	t.Setenv("TERM", "xterm-256color")
	t.Setenv("REPRIEVE_DISABLE_OSC52", "yes")
	opened := false
	origOpenTTY := openTTYForWrite
	t.Cleanup(func() { openTTYForWrite = origOpenTTY })
	openTTYForWrite = func() (io.WriteCloser, error) {
		opened = true
		return nil, os.ErrNotExist
	}

	if err := writeOSC52Clipboard("hello"); err == nil {
		t.Fatalf("expected OSC52 to be unavailable")
	}
	if opened {
		t.Fatalf("expected /dev/tty to stay closed")
	}
}

func TestWriteOSC52SequenceWrapsForTmux(t *testing.T) {
	t.Setenv("TMUX", "/tmp/tmux-1000/default,1,0")
	t.Setenv("TERM", "screen-256color")
	var buf bytes.Buffer
	if err := writeOSC52Sequence(&buf, "hi"); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "\x1b]52;c;aGk=") {
		t.Fatalf("expected plain OSC52 payload, got %q", out)
	}
	if !strings.Contains(out, "\x1bPtmux;") {
		t.Fatalf("expected tmux passthrough, got %q", out)
	}
}

func TestCopyWithStatusReportsOutcome(t *testing.T) {
	stubClipboard(t, func(string) error { return nil }, func(string) error { return nil })
	m := NewModel(Options{})
	if !m.copyWithStatus("https://example.com", "copied") || m.status != "copied" || m.statusLevel != statusInfo {
		t.Fatalf("unexpected status %q (%d)", m.status, m.statusLevel)
	}
	if m.copyWithStatus("  ", "copied") || m.statusLevel != statusWarning {
		t.Fatalf("expected warning for empty text, got %q", m.status)
	}

	stubClipboard(t, func(string) error { return errors.New("boom") }, func(string) error { return errors.New("no tty") })
	if m.copyWithStatus("https://example.com", "copied") || m.statusLevel != statusError {
		t.Fatalf("expected error status, got %q", m.status)
	}
}
