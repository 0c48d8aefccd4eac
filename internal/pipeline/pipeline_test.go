package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yiblet/rewind/internal/candidate"
	"github.com/yiblet/rewind/internal/store"
	"github.com/yiblet/rewind/internal/store/dbstore"
)

var testNow = time.Unix(1_700_000_000, 0)

func setupTestDB(t *testing.T) (string, *dbstore.SQLiteStore) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "history.db")
	st, err := dbstore.NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return path, st
}

func insert(t *testing.T, st store.Store, command, session, cwd string, ts int64) {
	t.Helper()

	_, err := st.History().Insert(&store.NewHistoryEvent{
		Command: command,
		Session: session,
		Cwd:     cwd,
		StartTS: ts,
	})
	require.NoError(t, err)
}

func collect(t *testing.T, h *Handle) []candidate.Candidate {
	t.Helper()

	var out []candidate.Candidate
	timeout := time.After(5 * time.Second)
	for {
		select {
		case c, ok := <-h.Items():
			if !ok {
				return out
			}
			out = append(out, c)
		case <-timeout:
			t.Fatal("timed out waiting for stream to finish")
		}
	}
}

func payloads(cands []candidate.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Payload()
	}
	return out
}

func waitDone(t *testing.T, h *Handle) {
	t.Helper()

	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not exit")
	}
}

func TestStart_HistoryModes(t *testing.T) {
	path, st := setupTestDB(t)
	insert(t, st, "ls", "s1", "/home", 100)
	insert(t, st, "git status", "s1", "/src", 200)
	insert(t, st, "make", "s2", "/src", 300)
	insert(t, st, "ls", "s2", "/home", 400)

	tests := []struct {
		name  string
		query store.Query
		want  []string
	}{
		{
			name:  "global",
			query: store.Query{Mode: store.ModeGlobal, Limit: 10},
			want:  []string{"ls", "make", "git status"},
		},
		{
			name:  "session",
			query: store.Query{Mode: store.ModeSession, Session: "s1", Limit: 10},
			want:  []string{"git status", "ls"},
		},
		{
			name:  "cwd",
			query: store.Query{Mode: store.ModeCwd, Cwd: "/src", Limit: 10},
			want:  []string{"make", "git status"},
		},
		{
			name:  "limit",
			query: store.Query{Mode: store.ModeGlobal, Limit: 1},
			want:  []string{"ls"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Start(context.Background(), path, tt.query, WithNow(func() time.Time { return testNow }))
			defer h.Close()

			got := collect(t, h)
			waitDone(t, h)
			require.NoError(t, h.Err())
			assert.Equal(t, tt.want, payloads(got))
			assert.True(t, h.HasRows())

			for _, c := range got {
				_, ok := c.(*candidate.HistoryCandidate)
				assert.True(t, ok)
			}
		})
	}
}

func TestStart_SavedMode(t *testing.T) {
	path, st := setupTestDB(t)
	_, err := st.Saved().Save(&store.SaveCommandInput{
		Command: "kubectl get pods", Tags: []string{"k8s"}, CreatedAt: 100,
	})
	require.NoError(t, err)
	_, err = st.Saved().Save(&store.SaveCommandInput{
		Command: "docker ps", Description: "containers", Tags: []string{"ops", "docker"}, CreatedAt: 200,
	})
	require.NoError(t, err)

	h := Start(context.Background(), path, store.Query{Mode: store.ModeSaved, Limit: 10})
	defer h.Close()

	got := collect(t, h)
	require.NoError(t, h.Err())
	require.Len(t, got, 2)

	first, ok := got[0].(*candidate.SavedCandidate)
	require.True(t, ok)
	assert.Equal(t, "docker ps", first.Payload())
	assert.Equal(t, []string{"docker", "ops"}, first.Command.Tags)
	assert.Equal(t, "containers", first.Command.Description)
	assert.Equal(t, "kubectl get pods", got[1].Payload())
}

func TestStart_EmptyResult(t *testing.T) {
	path, _ := setupTestDB(t)

	h := Start(context.Background(), path, store.Query{Mode: store.ModeGlobal, Limit: 10})
	defer h.Close()

	assert.False(t, h.HasRows())
	assert.Empty(t, collect(t, h))
	assert.NoError(t, h.Err())
}

func TestStart_ZeroLimit(t *testing.T) {
	path, st := setupTestDB(t)
	insert(t, st, "ls", "s1", "/", 1)

	h := Start(context.Background(), path, store.Query{Mode: store.ModeGlobal, Limit: 0})
	defer h.Close()

	assert.Empty(t, collect(t, h))
	assert.False(t, h.HasRows())
}

func TestStart_MissingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")

	h := Start(context.Background(), path, store.Query{Mode: store.ModeGlobal, Limit: 10})
	defer h.Close()

	assert.Empty(t, collect(t, h))
	waitDone(t, h)
	require.Error(t, h.Err())
	assert.ErrorIs(t, h.Err(), store.ErrNotFound)
}

func TestStart_ReservedCharactersInPath(t *testing.T) {
	for _, dir := range []string{"a#b", "a%20b", "a?b"} {
		t.Run(dir, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), dir, "history.db")
			st, err := dbstore.NewSQLiteStore(path)
			require.NoError(t, err)
			t.Cleanup(func() { st.Close() })
			insert(t, st, "make test", "s1", "/src", 100)

			h := Start(context.Background(), path, store.Query{Mode: store.ModeGlobal, Limit: 10})
			defer h.Close()

			assert.True(t, h.HasRows())
			assert.Equal(t, []string{"make test"}, payloads(collect(t, h)))
			waitDone(t, h)
			assert.NoError(t, h.Err())
		})
	}
}

func TestStart_InvalidMode(t *testing.T) {
	path, _ := setupTestDB(t)

	h := Start(context.Background(), path, store.Query{Mode: store.Mode(99), Limit: 10})
	defer h.Close()

	assert.Empty(t, collect(t, h))
	assert.ErrorIs(t, h.Err(), store.ErrInvalid)
}

func TestHandle_CloseUnblocksWorker(t *testing.T) {
	path, st := setupTestDB(t)
	for i := 0; i < 10; i++ {
		insert(t, st, fmt.Sprintf("cmd-%d", i), "s", "/", int64(i+1))
	}

	h := Start(context.Background(), path, store.Query{Mode: store.ModeGlobal, Limit: 10}, WithCapacity(2))
	require.True(t, h.HasRows())

	// nobody drains; the worker is parked on a full channel
	h.Close()
	h.Close()
	waitDone(t, h)
	assert.NoError(t, h.Err(), "closing is not a failure")

	var n int
	for range h.Items() {
		n++
	}
	assert.LessOrEqual(t, n, 3)
}

func TestHandle_ContextCancel(t *testing.T) {
	path, st := setupTestDB(t)
	for i := 0; i < 10; i++ {
		insert(t, st, fmt.Sprintf("cmd-%d", i), "s", "/", int64(i+1))
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := Start(ctx, path, store.Query{Mode: store.ModeGlobal, Limit: 10}, WithCapacity(1))
	defer h.Close()

	require.True(t, h.HasRows())
	cancel()
	waitDone(t, h)
	assert.NoError(t, h.Err())
}

func TestHandle_ReadPartially(t *testing.T) {
	path, st := setupTestDB(t)
	for i := 0; i < 50; i++ {
		insert(t, st, fmt.Sprintf("cmd-%02d", i), "s", "/", int64(i+1))
	}

	h := Start(context.Background(), path, store.Query{Mode: store.ModeGlobal, Limit: 50}, WithCapacity(4))

	first := <-h.Items()
	assert.Equal(t, "cmd-49", first.Payload())

	h.Close()
	waitDone(t, h)
}
