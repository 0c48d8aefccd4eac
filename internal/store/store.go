// Package store defines the storage interfaces for rewind's persistence layer.
// It provides abstractions for raw shell history and for user-curated saved
// commands with their tags.
package store

// HistoryStore manages shell history events.
// Events are never updated once written. The pair (Command, StartTS) is
// unique across the store.
type HistoryStore interface {
	// Insert stores a single event. If an event with the same command and
	// start timestamp already exists nothing is written and inserted is false.
	Insert(event *NewHistoryEvent) (inserted bool, err error)

	// InsertMany stores events in a single transaction with the same
	// dedup rule as Insert. Either every insert is applied or none is.
	InsertMany(events []*NewHistoryEvent) (inserted, skipped int, err error)

	// Search runs one of the history modes (global, session, cwd).
	// Results are distinct by command, newest first, capped at query.Limit.
	Search(query *Query) ([]*HistoryEvent, error)

	// Match runs a full-text query against the search index and returns
	// distinct commands, newest first.
	Match(text string, limit int) ([]*HistoryEvent, error)

	// Count returns the total number of stored events.
	Count() (int, error)
}

// SavedStore manages saved commands and their tags.
type SavedStore interface {
	// Save upserts a command by its text and replaces its tag set.
	// Returns the id of the saved command.
	Save(input *SaveCommandInput) (uint, error)

	// Delete removes a saved command. Tag associations cascade.
	// found is false when no command has the given id.
	Delete(id uint) (found bool, err error)

	// List returns saved commands newest first. With a non-empty tag filter
	// only commands carrying at least one of the tags are returned.
	List(tags []string) ([]*SavedCommand, error)
}

// Store combines the history and saved command stores.
// Implementations provide access to both stores and manage
// their lifecycle as a single unit.
type Store interface {
	// History returns the store for raw shell history.
	History() HistoryStore

	// Saved returns the store for saved commands.
	Saved() SavedStore

	// Path returns the location of the backing file.
	Path() string

	// Close releases all resources.
	Close() error
}
