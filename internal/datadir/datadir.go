// Package datadir resolves where rewind keeps its database.
package datadir

import (
	"errors"
	"path/filepath"
)

const (
	AppDir     = "rewind"
	DBFileName = "history.db"

	// EnvDB overrides the database path.
	EnvDB = "REWIND_DB"
)

// Dir is the per-user data directory
type Dir struct {
	root string
}

// New returns $XDG_DATA_HOME/rewind, or ~/.local/share/rewind when
// XDG_DATA_HOME is unset or not absolute. getenv and home are explicit so
// resolution does not depend on the process environment.
func New(getenv func(string) string, home string) (*Dir, error) {
	if xdg := getenv("XDG_DATA_HOME"); xdg != "" && filepath.IsAbs(xdg) {
		return &Dir{root: filepath.Join(xdg, AppDir)}, nil
	}
	if home == "" {
		return nil, errors.New("cannot resolve data directory: home directory unknown")
	}
	return &Dir{root: filepath.Join(home, ".local", "share", AppDir)}, nil
}

// NewWithRoot creates a Dir with a custom root (for testing)
func NewWithRoot(root string) *Dir {
	return &Dir{root: root}
}

// Root returns the root directory path
func (d *Dir) Root() string {
	return d.root
}

// DefaultDBPath is the database location when nothing overrides it
func (d *Dir) DefaultDBPath() string {
	return filepath.Join(d.root, DBFileName)
}

// DBPath picks the database path. The first non-empty of flag, env and
// configured wins; a relative configured path is taken under the data
// directory, while flag and env paths are used as given.
func (d *Dir) DBPath(flag, env, configured string) string {
	switch {
	case flag != "":
		return flag
	case env != "":
		return env
	case configured == "":
		return d.DefaultDBPath()
	case filepath.IsAbs(configured):
		return configured
	default:
		return filepath.Join(d.root, configured)
	}
}
