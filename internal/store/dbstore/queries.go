package dbstore

import (
	"fmt"
	"slices"
	"strings"

	"github.com/yiblet/rewind/internal/store"
)

// historyColumns is shared by every deduplicated history query. The
// per-run columns come from the newest occurrence of each command; start
// time and duration are maxima over the whole group.
const historyColumns = `id, command, exit_code,
	COALESCE(cwd, '') AS cwd, COALESCE(hostname, '') AS hostname,
	COALESCE(session, '') AS session, last_ts, max_duration`

// dedupHistory wraps the rows selected by where in a window query that
// keeps one row per command.
func dedupHistory(where string) string {
	return fmt.Sprintf(`SELECT %s FROM (
			SELECT id, command, exit_code, cwd, hostname, session,
				MAX(start_ts) OVER byCommand AS last_ts,
				MAX(duration) OVER byCommand AS max_duration,
				ROW_NUMBER() OVER (PARTITION BY command ORDER BY start_ts DESC, id DESC) AS rn
			FROM history %s
			WINDOW byCommand AS (PARTITION BY command)
		)
		WHERE rn = 1
		ORDER BY last_ts DESC, id DESC
		LIMIT ?`, historyColumns, where)
}

// HistoryQuery returns the SQL and arguments for a history mode.
// Rows are distinct by command, ordered by their newest start time.
func HistoryQuery(q *store.Query) (string, []any, error) {
	var where string
	var args []any

	switch q.Mode {
	case store.ModeGlobal:
	case store.ModeSession:
		where = "WHERE session = ?"
		args = append(args, q.Session)
	case store.ModeCwd:
		where = "WHERE cwd = ?"
		args = append(args, q.Cwd)
	default:
		return "", nil, fmt.Errorf("mode %v is not a history mode", q.Mode)
	}

	return dedupHistory(where), append(args, q.Limit), nil
}

// MatchQuery returns the SQL and arguments for a full-text match against
// history_fts, deduplicated like HistoryQuery.
func MatchQuery(expr string, limit int) (string, []any) {
	where := "WHERE id IN (SELECT rowid FROM history_fts WHERE history_fts MATCH ?)"
	return dedupHistory(where), []any{expr, limit}
}

// SavedQuery returns the SQL and arguments listing saved commands with
// their tag names folded into one comma separated column. Saved commands
// are unique by text so no command dedup is applied.
func SavedQuery(limit int) (string, []any) {
	return `SELECT s.id, s.command, COALESCE(s.description, '') AS description,
			s.created_at, COALESCE(GROUP_CONCAT(t.name, ','), '') AS tags
		FROM saved_commands s
		LEFT JOIN saved_command_tags st ON st.command_id = s.id
		LEFT JOIN tags t ON t.id = st.tag_id
		GROUP BY s.id
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT ?`, []any{limit}
}

// SplitTags parses the aggregated tag column of SavedQuery.
func SplitTags(joined string) []string {
	if joined == "" {
		return []string{}
	}
	tags := strings.Split(joined, ",")
	slices.Sort(tags)
	return tags
}

// FTSExpression turns free text into an FTS5 query: every whitespace
// separated term becomes a quoted phrase and all terms must match.
// Returns "" when text has no terms.
func FTSExpression(text string) string {
	terms := strings.Fields(text)
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, len(terms))
	for i, term := range terms {
		quoted[i] = `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " ")
}
