package dbstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/yiblet/rewind/internal/store"
)

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) (*SQLiteStore, func()) {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "dir", "test.db")

	st, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}

	cleanup := func() {
		st.Close()
	}

	return st, cleanup
}

func event(command string, startTS int64, session, cwd string) *store.NewHistoryEvent {
	return &store.NewHistoryEvent{
		Command:  command,
		Session:  session,
		Cwd:      cwd,
		Hostname: "host",
		StartTS:  startTS,
	}
}

func int64Ptr(v int64) *int64 { return &v }

func commands(events []*store.HistoryEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Command
	}
	return out
}

// TestNewSQLiteStore tests database initialization
func TestNewSQLiteStore(t *testing.T) {
	st, cleanup := setupTestDB(t)
	defer cleanup()

	var journal string
	if err := st.db.Raw("PRAGMA journal_mode").Scan(&journal).Error; err != nil {
		t.Fatalf("failed to read journal_mode: %v", err)
	}
	if !strings.EqualFold(journal, "wal") {
		t.Errorf("expected journal_mode=wal, got %s", journal)
	}

	var foreignKeys int
	if err := st.db.Raw("PRAGMA foreign_keys").Scan(&foreignKeys).Error; err != nil {
		t.Fatalf("failed to read foreign_keys: %v", err)
	}
	if foreignKeys != 1 {
		t.Errorf("expected foreign_keys=1, got %d", foreignKeys)
	}

	var names []string
	err := st.db.Raw(`SELECT name FROM sqlite_master WHERE type IN ('table', 'trigger') ORDER BY name`).
		Scan(&names).Error
	if err != nil {
		t.Fatalf("failed to list schema objects: %v", err)
	}
	for _, want := range []string{
		"history", "history_fts", "saved_commands", "tags", "saved_command_tags",
		"history_fts_insert", "history_fts_delete", "history_fts_update",
	} {
		found := false
		for _, name := range names {
			if name == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("schema object %s missing (have %v)", want, names)
		}
	}
}

func TestNewSQLiteStore_Idempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	first, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("first open failed: %v", err)
	}
	if _, err := first.History().Insert(event("echo hi", 100, "s", "/")); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	first.Close()

	second, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("second open failed: %v", err)
	}
	defer second.Close()

	count, err := second.History().Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("expected data to survive reopen, count=%d", count)
	}
	if second.Path() != dbPath {
		t.Errorf("Path() = %s, want %s", second.Path(), dbPath)
	}
}

func TestNewSQLiteStore_ReservedCharactersInPath(t *testing.T) {
	tests := []struct {
		name string
		dir  string
	}{
		{name: "space", dir: "a b"},
		{name: "hash", dir: "a#b"},
		{name: "percent", dir: "a%20b"},
		{name: "question mark", dir: "a?b"},
		{name: "mixed", dir: "x#1%2?3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbPath := filepath.Join(t.TempDir(), tt.dir, "history.db")

			st, err := NewSQLiteStore(dbPath)
			if err != nil {
				t.Fatalf("NewSQLiteStore(%q) error = %v", dbPath, err)
			}
			defer st.Close()

			if _, err := st.History().Insert(event("echo hi", 100, "s", "/")); err != nil {
				t.Fatalf("Insert() error = %v", err)
			}
			if _, err := os.Stat(dbPath); err != nil {
				t.Fatalf("database not created at %s: %v", dbPath, err)
			}

			reader, err := OpenReader(dbPath)
			if err != nil {
				t.Fatalf("OpenReader() error = %v", err)
			}
			defer reader.Close()

			var got []string
			err = reader.StreamHistory(context.Background(), &store.Query{Mode: store.ModeGlobal, Limit: 10},
				func(e *store.HistoryEvent) error {
					got = append(got, e.Command)
					return nil
				})
			if err != nil {
				t.Fatalf("StreamHistory() error = %v", err)
			}
			if !reflect.DeepEqual(got, []string{"echo hi"}) {
				t.Errorf("StreamHistory() = %v, want [echo hi]", got)
			}
		})
	}
}

func TestNewSQLiteStore_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStore("")
	if !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected invalid error, got %v", err)
	}
}

func TestHistoryStore_InsertDedup(t *testing.T) {
	st, cleanup := setupTestDB(t)
	defer cleanup()

	inserted, err := st.History().Insert(event("make test", 1000, "s1", "/src"))
	if err != nil || !inserted {
		t.Fatalf("first Insert() = %v, %v", inserted, err)
	}

	// same command and timestamp from another session is still a duplicate
	inserted, err = st.History().Insert(event("make test", 1000, "s2", "/tmp"))
	if err != nil {
		t.Fatalf("second Insert() error = %v", err)
	}
	if inserted {
		t.Error("expected duplicate (command, start_ts) to be ignored")
	}

	inserted, err = st.History().Insert(event("make test", 1001, "s1", "/src"))
	if err != nil || !inserted {
		t.Fatalf("Insert() with new timestamp = %v, %v", inserted, err)
	}

	count, _ := st.History().Count()
	if count != 2 {
		t.Errorf("expected 2 rows, got %d", count)
	}
}

func TestHistoryStore_InsertEmptyCommand(t *testing.T) {
	st, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := st.History().Insert(event("   ", 1, "s", "/"))
	if !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected invalid error, got %v", err)
	}
}

func TestHistoryStore_InsertMany(t *testing.T) {
	st, cleanup := setupTestDB(t)
	defer cleanup()

	events := []*store.NewHistoryEvent{
		event("a", 1, "s", "/"),
		event("b", 2, "s", "/"),
		event("a", 1, "s", "/"),
	}
	inserted, skipped, err := st.History().InsertMany(events)
	if err != nil {
		t.Fatalf("InsertMany() error = %v", err)
	}
	if inserted != 2 || skipped != 1 {
		t.Errorf("InsertMany() = %d inserted, %d skipped; want 2, 1", inserted, skipped)
	}
}

func TestHistoryStore_InsertManyRollsBack(t *testing.T) {
	st, cleanup := setupTestDB(t)
	defer cleanup()

	events := []*store.NewHistoryEvent{
		event("a", 1, "s", "/"),
		event("", 2, "s", "/"),
	}
	if _, _, err := st.History().InsertMany(events); err == nil {
		t.Fatal("expected InsertMany() to fail")
	}

	count, _ := st.History().Count()
	if count != 0 {
		t.Errorf("expected no partial writes, count=%d", count)
	}
}

func TestHistoryStore_Search(t *testing.T) {
	st, cleanup := setupTestDB(t)
	defer cleanup()

	seed := []*store.NewHistoryEvent{
		{Command: "ls", Session: "s1", Cwd: "/home", StartTS: 100, Duration: int64Ptr(1)},
		{Command: "git status", Session: "s1", Cwd: "/src", StartTS: 200, Duration: int64Ptr(2)},
		{Command: "ls", Session: "s2", Cwd: "/src", StartTS: 300, Duration: int64Ptr(0)},
		{Command: "make", Session: "s2", Cwd: "/src", StartTS: 250, Duration: int64Ptr(90)},
		{Command: "ls", Session: "s1", Cwd: "/home", StartTS: 150, Duration: int64Ptr(7)},
	}
	if _, _, err := st.History().InsertMany(seed); err != nil {
		t.Fatalf("InsertMany() error = %v", err)
	}

	tests := []struct {
		name  string
		query store.Query
		want  []string
	}{
		{
			name:  "global dedups and orders by newest",
			query: store.Query{Mode: store.ModeGlobal, Limit: 10},
			want:  []string{"ls", "make", "git status"},
		},
		{
			name:  "global honours limit",
			query: store.Query{Mode: store.ModeGlobal, Limit: 2},
			want:  []string{"ls", "make"},
		},
		{
			name:  "session filter",
			query: store.Query{Mode: store.ModeSession, Limit: 10, Session: "s1"},
			want:  []string{"git status", "ls"},
		},
		{
			name:  "cwd filter",
			query: store.Query{Mode: store.ModeCwd, Limit: 10, Cwd: "/src"},
			want:  []string{"ls", "make", "git status"},
		},
		{
			name:  "unknown session is empty",
			query: store.Query{Mode: store.ModeSession, Limit: 10, Session: "nope"},
			want:  []string{},
		},
		{
			name:  "zero limit is empty",
			query: store.Query{Mode: store.ModeGlobal, Limit: 0},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := st.History().Search(&tt.query)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if names := commands(got); !reflect.DeepEqual(names, tt.want) {
				t.Errorf("Search() = %v, want %v", names, tt.want)
			}
		})
	}
}

func TestHistoryStore_SearchAggregates(t *testing.T) {
	st, cleanup := setupTestDB(t)
	defer cleanup()

	seed := []*store.NewHistoryEvent{
		{Command: "ls", Session: "s1", StartTS: 100, Duration: int64Ptr(9)},
		{Command: "ls", Session: "s1", StartTS: 300, Duration: int64Ptr(1)},
		{Command: "ls", Session: "s1", StartTS: 200},
	}
	if _, _, err := st.History().InsertMany(seed); err != nil {
		t.Fatalf("InsertMany() error = %v", err)
	}

	got, err := st.History().Search(&store.Query{Mode: store.ModeGlobal, Limit: 5})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one distinct command, got %d", len(got))
	}
	if got[0].StartTS != 300 {
		t.Errorf("expected max start_ts 300, got %d", got[0].StartTS)
	}
	if got[0].Duration == nil || *got[0].Duration != 9 {
		t.Errorf("expected max duration 9, got %v", got[0].Duration)
	}
}

func TestHistoryStore_SearchTakesNewestRun(t *testing.T) {
	st, cleanup := setupTestDB(t)
	defer cleanup()

	failed, ok := 1, 0
	seed := []*store.NewHistoryEvent{
		{Command: "make", Cwd: "/old", Hostname: "h1", Session: "s1", StartTS: 100, ExitCode: &failed},
		{Command: "make", Cwd: "/new", Hostname: "h2", Session: "s2", StartTS: 300, ExitCode: &ok},
		// inserted last but older than the run above
		{Command: "make", Cwd: "/mid", Hostname: "h3", Session: "s3", StartTS: 200, ExitCode: &failed},
	}
	if _, _, err := st.History().InsertMany(seed); err != nil {
		t.Fatalf("InsertMany() error = %v", err)
	}

	search, err := st.History().Search(&store.Query{Mode: store.ModeGlobal, Limit: 5})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	match, err := st.History().Match("make", 5)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}

	for name, got := range map[string][]*store.HistoryEvent{"search": search, "match": match} {
		if len(got) != 1 {
			t.Fatalf("%s: expected one distinct command, got %d", name, len(got))
		}
		e := got[0]
		if e.Cwd != "/new" || e.Hostname != "h2" || e.Session != "s2" {
			t.Errorf("%s: expected columns of the newest run, got cwd=%q host=%q session=%q", name, e.Cwd, e.Hostname, e.Session)
		}
		if e.ExitCode == nil || *e.ExitCode != 0 {
			t.Errorf("%s: expected exit code 0 of the newest run, got %v", name, e.ExitCode)
		}
		if e.StartTS != 300 {
			t.Errorf("%s: expected start_ts 300, got %d", name, e.StartTS)
		}
	}

	// a filter picks the newest run within the filtered rows
	got, err := st.History().Search(&store.Query{Mode: store.ModeSession, Session: "s3", Limit: 5})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 1 || got[0].Cwd != "/mid" || got[0].StartTS != 200 {
		t.Errorf("unexpected session result %+v", got)
	}
}

func TestHistoryStore_SearchRejectsSavedMode(t *testing.T) {
	st, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := st.History().Search(&store.Query{Mode: store.ModeSaved, Limit: 5})
	if !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected invalid error, got %v", err)
	}
}

func TestHistoryStore_Match(t *testing.T) {
	st, cleanup := setupTestDB(t)
	defer cleanup()

	seed := []*store.NewHistoryEvent{
		event("docker compose up", 100, "s", "/"),
		event("docker ps", 200, "s", "/"),
		event("kubectl get pods", 300, "s", "/"),
		event("docker ps", 400, "s", "/"),
	}
	if _, _, err := st.History().InsertMany(seed); err != nil {
		t.Fatalf("InsertMany() error = %v", err)
	}

	got, err := st.History().Match("docker", 10)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if names := commands(got); !reflect.DeepEqual(names, []string{"docker ps", "docker compose up"}) {
		t.Errorf("Match() = %v", names)
	}

	got, err = st.History().Match(`get "pods`, 10)
	if err != nil {
		t.Fatalf("Match() with quote error = %v", err)
	}
	// quotes inside a term are escaped, not parsed as FTS syntax
	if names := commands(got); !reflect.DeepEqual(names, []string{"kubectl get pods"}) {
		t.Errorf("Match() with quote = %v", names)
	}

	got, err = st.History().Match("   ", 10)
	if err != nil || len(got) != 0 {
		t.Errorf("Match() on blank text = %v, %v", got, err)
	}
}

func TestHistoryStore_IndexFollowsDeletes(t *testing.T) {
	st, cleanup := setupTestDB(t)
	defer cleanup()

	if _, err := st.History().Insert(event("terraform plan", 1, "s", "/")); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := st.db.Exec("DELETE FROM history").Error; err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	got, err := st.History().Match("terraform", 10)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected index to drop deleted rows, got %v", commands(got))
	}
}

func TestSavedStore_SaveUpsert(t *testing.T) {
	st, cleanup := setupTestDB(t)
	defer cleanup()

	id1, err := st.Saved().Save(&store.SaveCommandInput{
		Command: "kubectl get pods", Description: "pods", Tags: []string{"k8s"}, CreatedAt: 100,
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	id2, err := st.Saved().Save(&store.SaveCommandInput{
		Command: "kubectl get pods", Description: "all pods", Tags: []string{"ops"}, CreatedAt: 200,
	})
	if err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	if id1 != id2 {
		t.Errorf("expected upsert to keep id %d, got %d", id1, id2)
	}

	list, err := st.Saved().List(nil)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 saved command, got %d", len(list))
	}
	got := list[0]
	if got.Description != "all pods" || got.CreatedAt != 200 {
		t.Errorf("expected updated description and timestamp, got %+v", got)
	}
	if !reflect.DeepEqual(got.Tags, []string{"ops"}) {
		t.Errorf("expected tags replaced with [ops], got %v", got.Tags)
	}
}

func TestSavedStore_SaveValidation(t *testing.T) {
	st, cleanup := setupTestDB(t)
	defer cleanup()

	tests := []struct {
		name  string
		input store.SaveCommandInput
	}{
		{name: "empty command", input: store.SaveCommandInput{Command: "  "}},
		{name: "comma in tag", input: store.SaveCommandInput{Command: "ls", Tags: []string{"a,b"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := st.Saved().Save(&tt.input)
			if !errors.Is(err, store.ErrInvalid) {
				t.Errorf("expected invalid error, got %v", err)
			}
		})
	}
}

func TestSavedStore_ListFilter(t *testing.T) {
	st, cleanup := setupTestDB(t)
	defer cleanup()

	seed := []store.SaveCommandInput{
		{Command: "docker ps", Tags: []string{"docker"}, CreatedAt: 100},
		{Command: "kubectl get pods", Tags: []string{"k8s", "ops"}, CreatedAt: 200},
		{Command: "htop", CreatedAt: 300},
		{Command: "docker compose logs", Tags: []string{"docker", "ops"}, CreatedAt: 400},
	}
	for i := range seed {
		if _, err := st.Saved().Save(&seed[i]); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	all, err := st.Saved().List(nil)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var names []string
	for _, c := range all {
		names = append(names, c.Command)
	}
	want := []string{"docker compose logs", "htop", "kubectl get pods", "docker ps"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("List(nil) = %v, want %v", names, want)
	}

	filtered, err := st.Saved().List([]string{"k8s", "docker", ""})
	if err != nil {
		t.Fatalf("List(filter) error = %v", err)
	}
	names = nil
	for _, c := range filtered {
		names = append(names, c.Command)
	}
	want = []string{"docker compose logs", "kubectl get pods", "docker ps"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("List(filter) = %v, want %v", names, want)
	}
	// full tag list, not just the matching tags
	if !reflect.DeepEqual(filtered[0].Tags, []string{"docker", "ops"}) {
		t.Errorf("expected full tag list, got %v", filtered[0].Tags)
	}

	none, err := st.Saved().List([]string{"nothing"})
	if err != nil || len(none) != 0 {
		t.Errorf("List(unknown tag) = %v, %v", none, err)
	}
}

func TestSavedStore_Delete(t *testing.T) {
	st, cleanup := setupTestDB(t)
	defer cleanup()

	id, err := st.Saved().Save(&store.SaveCommandInput{Command: "ls", Tags: []string{"fs"}})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	found, err := st.Saved().Delete(id)
	if err != nil || !found {
		t.Fatalf("Delete() = %v, %v", found, err)
	}

	var links int64
	if err := st.db.Model(&SavedCommandTagModel{}).Count(&links).Error; err != nil {
		t.Fatalf("count links: %v", err)
	}
	if links != 0 {
		t.Errorf("expected tag links to cascade, %d remain", links)
	}

	found, err = st.Saved().Delete(id)
	if err != nil || found {
		t.Errorf("second Delete() = %v, %v", found, err)
	}
	found, err = st.Saved().Delete(0)
	if err != nil || found {
		t.Errorf("Delete(0) = %v, %v", found, err)
	}
}

func TestNormalizeTags(t *testing.T) {
	got, err := NormalizeTags([]string{" ops", "k8s", "", "ops", "  "})
	if err != nil {
		t.Fatalf("NormalizeTags() error = %v", err)
	}
	if !reflect.DeepEqual(got, []string{"k8s", "ops"}) {
		t.Errorf("NormalizeTags() = %v", got)
	}
}

func TestFTSExpression(t *testing.T) {
	tests := map[string]string{
		"":               "",
		"docker":         `"docker"`,
		" git  log ":     `"git" "log"`,
		`say "hi"`:       `"say" """hi"""`,
		"rm -rf node_mo": `"rm" "-rf" "node_mo"`,
	}
	for input, want := range tests {
		if got := FTSExpression(input); got != want {
			t.Errorf("FTSExpression(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestDSN(t *testing.T) {
	ro := ReadOnlyDSN("/tmp/x.db")
	if !strings.HasPrefix(ro, "file:/tmp/x.db?") || !strings.Contains(ro, "mode=ro") {
		t.Errorf("unexpected read-only DSN %s", ro)
	}
	if strings.Contains(ReadWriteDSN("/tmp/x.db"), "mode=ro") {
		t.Error("read/write DSN must not be read-only")
	}

	escaped := ReadWriteDSN("/tmp/a#b/c%d?e.db")
	if !strings.HasPrefix(escaped, "file:/tmp/a%23b/c%25d%3fe.db?") {
		t.Errorf("reserved path characters not escaped: %s", escaped)
	}
}

func TestSplitTags(t *testing.T) {
	if got := SplitTags(""); len(got) != 0 {
		t.Errorf("SplitTags(\"\") = %v", got)
	}
	if got := SplitTags("ops,docker"); !reflect.DeepEqual(got, []string{"docker", "ops"}) {
		t.Errorf("SplitTags() = %v", got)
	}
}
