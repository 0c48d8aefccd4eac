package dbstore

import (
	"fmt"
	"net/url"
	"strings"
)

// schemaStatements creates every schema object. All of them use IF NOT
// EXISTS so applying the list on every open is safe.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		command TEXT NOT NULL,
		exit_code INTEGER,
		cwd TEXT,
		hostname TEXT,
		session TEXT,
		start_ts INTEGER NOT NULL,
		duration INTEGER
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_history_command_start ON history(command, start_ts)`,
	`CREATE INDEX IF NOT EXISTS idx_history_start ON history(start_ts DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_history_session ON history(session, start_ts DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_history_cwd ON history(cwd, start_ts DESC)`,

	`CREATE TABLE IF NOT EXISTS saved_commands (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		command TEXT NOT NULL UNIQUE,
		description TEXT,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_saved_commands_created ON saved_commands(created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS saved_command_tags (
		command_id INTEGER NOT NULL REFERENCES saved_commands(id) ON DELETE CASCADE,
		tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		PRIMARY KEY (command_id, tag_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_saved_command_tags_tag ON saved_command_tags(tag_id)`,

	// external content table: the index never stores command text itself
	`CREATE VIRTUAL TABLE IF NOT EXISTS history_fts
		USING fts5(command, content='history', content_rowid='id')`,
	`CREATE TRIGGER IF NOT EXISTS history_fts_insert AFTER INSERT ON history BEGIN
		INSERT INTO history_fts(rowid, command) VALUES (new.id, new.command);
	END`,
	`CREATE TRIGGER IF NOT EXISTS history_fts_delete AFTER DELETE ON history BEGIN
		INSERT INTO history_fts(history_fts, rowid, command) VALUES ('delete', old.id, old.command);
	END`,
	`CREATE TRIGGER IF NOT EXISTS history_fts_update AFTER UPDATE ON history BEGIN
		INSERT INTO history_fts(history_fts, rowid, command) VALUES ('delete', old.id, old.command);
		INSERT INTO history_fts(rowid, command) VALUES (new.id, new.command);
	END`,
}

// Pragmas applied to the store's read/write connection.
var readWritePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"cache_size(-64000)",
	"mmap_size(268435456)",
	"temp_store(MEMORY)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

// Pragmas applied to streaming read-only connections.
var readOnlyPragmas = []string{
	"query_only(1)",
	"busy_timeout(5000)",
	"cache_size(-16000)",
	"mmap_size(268435456)",
	"temp_store(MEMORY)",
}

// ReadWriteDSN returns the modernc.org/sqlite DSN for the store connection.
func ReadWriteDSN(path string) string {
	return buildDSN(path, nil, readWritePragmas)
}

// ReadOnlyDSN returns a DSN opening path read-only with query-only pragmas.
func ReadOnlyDSN(path string) string {
	return buildDSN(path, url.Values{"mode": {"ro"}}, readOnlyPragmas)
}

// uriPathEscaper escapes the characters SQLite's URI parser treats as
// delimiters or escapes within the path component.
var uriPathEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

// buildDSN formats a file: URI; modernc applies each _pragma on every
// new connection.
func buildDSN(path string, params url.Values, pragmas []string) string {
	if params == nil {
		params = url.Values{}
	}
	for _, p := range pragmas {
		params.Add("_pragma", p)
	}
	return fmt.Sprintf("file:%s?%s", uriPathEscaper.Replace(path), params.Encode())
}
