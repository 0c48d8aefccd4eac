package store

import (
	"fmt"
	"strings"
)

// Mode is the filter dimension for a search.
type Mode int

const (
	ModeGlobal Mode = iota
	ModeSession
	ModeCwd
	ModeSaved
)

// Modes lists every mode in cycle order.
var Modes = []Mode{ModeGlobal, ModeSession, ModeCwd, ModeSaved}

// ParseMode converts a user supplied name to a Mode.
// Matching is case-insensitive; any other input is rejected.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "global":
		return ModeGlobal, nil
	case "session":
		return ModeSession, nil
	case "cwd":
		return ModeCwd, nil
	case "saved":
		return ModeSaved, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want global, session, cwd or saved)", name)
	}
}

// Next returns the following mode in the cycle
// global -> session -> cwd -> saved -> global.
func (m Mode) Next() Mode {
	switch m {
	case ModeGlobal:
		return ModeSession
	case ModeSession:
		return ModeCwd
	case ModeCwd:
		return ModeSaved
	default:
		return ModeGlobal
	}
}

// IsHistory reports whether the mode searches history events rather than
// saved commands.
func (m Mode) IsHistory() bool {
	return m == ModeGlobal || m == ModeSession || m == ModeCwd
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	return m >= ModeGlobal && m <= ModeSaved
}

func (m Mode) String() string {
	switch m {
	case ModeGlobal:
		return "global"
	case ModeSession:
		return "session"
	case ModeCwd:
		return "cwd"
	case ModeSaved:
		return "saved"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}
