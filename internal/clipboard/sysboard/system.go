// Package sysboard writes to the system clipboard.
//
// On Linux an X11 selection lives only as long as the process that owns it,
// so external helpers (wl-copy, xclip, xsel) that keep serving the
// selection after rewind exits are tried first. Elsewhere, and when no
// helper is installed, golang.design/x/clipboard writes directly.
package sysboard

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"golang.design/x/clipboard"
)

// helper is an external command reading the clipboard text on stdin
type helper struct {
	name string
	args []string
	env  string // required environment variable, if any
}

var linuxHelpers = []helper{
	{name: "wl-copy", env: "WAYLAND_DISPLAY"},
	{name: "xclip", args: []string{"-selection", "clipboard"}, env: "DISPLAY"},
	{name: "xsel", args: []string{"--clipboard", "--input"}, env: "DISPLAY"},
}

// SystemClipboard implements clipboard.Clipboard for the running OS
type SystemClipboard struct {
	initOnce sync.Once
	initErr  error
}

// New creates a new SystemClipboard instance
func New() *SystemClipboard {
	return &SystemClipboard{}
}

// IsSupported returns true if clipboard writes can work on this system
func (s *SystemClipboard) IsSupported() bool {
	if runtime.GOOS == "linux" && len(availableHelpers()) > 0 {
		return true
	}
	return s.init() == nil
}

// Write replaces the clipboard contents with text
func (s *SystemClipboard) Write(text string) error {
	if runtime.GOOS == "linux" {
		var lastErr error
		for _, h := range availableHelpers() {
			if lastErr = writeWithCommand(text, h.name, h.args...); lastErr == nil {
				return nil
			}
		}
		if lastErr != nil && s.init() != nil {
			return fmt.Errorf("failed to write clipboard (tried wl-copy, xclip and xsel): %w", lastErr)
		}
	}

	if err := s.init(); err != nil {
		return fmt.Errorf("failed to initialize clipboard: %w", err)
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

func (s *SystemClipboard) init() error {
	s.initOnce.Do(func() {
		s.initErr = clipboard.Init()
	})
	return s.initErr
}

// availableHelpers lists the installed helpers whose display is set
func availableHelpers() []helper {
	var found []helper
	for _, h := range linuxHelpers {
		if h.env != "" && os.Getenv(h.env) == "" {
			continue
		}
		if _, err := exec.LookPath(h.name); err != nil {
			continue
		}
		found = append(found, h)
	}
	return found
}

// writeWithCommand executes a command with text as stdin
func writeWithCommand(text, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}
