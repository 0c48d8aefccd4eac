// Package clipboard copies a selected command to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported is returned when no clipboard backend is available.
var ErrUnsupported = errors.New("clipboard not supported on this system")

// Clipboard is a write-only clipboard.
type Clipboard interface {
	// Write replaces the clipboard contents with text.
	Write(text string) error

	// IsSupported reports whether Write can succeed here.
	IsSupported() bool
}

// Copy writes command to cb. A single trailing newline is dropped so the
// pasted text does not execute on its own.
func Copy(cb Clipboard, command string) error {
	if !cb.IsSupported() {
		return ErrUnsupported
	}
	if err := cb.Write(strings.TrimSuffix(command, "\n")); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	return nil
}
