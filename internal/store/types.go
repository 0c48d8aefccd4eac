package store

// HistoryEvent is one executed shell command occurrence.
// Search results carry the newest StartTS and the longest Duration seen for
// the command within the filtered set; the remaining fields are those of the
// newest occurrence.
type HistoryEvent struct {
	// ID is an opaque, monotonically increasing identifier.
	ID uint

	// Command is the command text as typed, possibly spanning several lines.
	Command string

	// ExitCode is nil when the exit status was not recorded.
	ExitCode *int

	Cwd      string
	Hostname string

	// Session identifies the shell session the command ran in.
	Session string

	// StartTS is the start time in epoch seconds.
	StartTS int64

	// Duration is the run time in seconds, nil when unknown.
	Duration *int64
}

// NewHistoryEvent contains the data needed to record an event.
type NewHistoryEvent struct {
	Command  string
	ExitCode *int
	Cwd      string
	Hostname string
	Session  string

	// StartTS in epoch seconds. Must be set by the caller.
	StartTS int64

	// Duration in seconds, nil when unknown.
	Duration *int64
}

// SavedCommand is a user-curated command, unique by its text.
type SavedCommand struct {
	ID          uint
	Command     string
	Description string

	// CreatedAt is in epoch seconds and is refreshed on every save.
	CreatedAt int64

	// Tags is sorted by name.
	Tags []string
}

// SaveCommandInput contains the data needed to save a command.
type SaveCommandInput struct {
	Command     string
	Description string

	// Tags replaces the full tag set of the command.
	Tags []string

	// CreatedAt in epoch seconds. If zero, the current time is used.
	CreatedAt int64
}

// Query describes a search over the store.
// Session and Cwd are only consulted by the matching modes.
type Query struct {
	Mode    Mode
	Limit   int
	Session string
	Cwd     string
}
