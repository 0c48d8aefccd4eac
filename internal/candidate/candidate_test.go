package candidate

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yiblet/rewind/internal/store"
)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func TestHistoryCandidate(t *testing.T) {
	now := time.Unix(10_000, 0)
	c := NewHistoryCandidate(&store.HistoryEvent{
		Command:  "make \\\n  test",
		ExitCode: intPtr(2),
		Cwd:      "/src",
		Hostname: "box",
		Session:  "s1",
		StartTS:  10_000 - 120,
		Duration: int64Ptr(75),
	}, now)

	assert.Equal(t, "make \\ test", c.Label())
	assert.Equal(t, "make \\\n  test", c.Payload())

	preview := c.Preview()
	assert.True(t, strings.HasPrefix(preview, "make \\\n  test\n\n"))
	assert.Contains(t, preview, "when: 2m ago")
	assert.Contains(t, preview, "duration: 1m")
	assert.Contains(t, preview, "exit: 2")
	assert.Contains(t, preview, "cwd: /src")
	assert.Contains(t, preview, "host: box")
	assert.Contains(t, preview, "session: s1")
	assert.False(t, strings.HasSuffix(preview, "\n"))
}

func TestHistoryCandidate_UnknownFields(t *testing.T) {
	c := NewHistoryCandidate(&store.HistoryEvent{Command: "ls"}, time.Now())

	preview := c.Preview()
	assert.Contains(t, preview, "when: unknown")
	assert.Contains(t, preview, "duration: 0s")
	assert.Contains(t, preview, "exit: -")
	assert.NotContains(t, preview, "cwd:")
}

func TestSavedCandidateLabel(t *testing.T) {
	tests := []struct {
		name    string
		command store.SavedCommand
		want    string
	}{
		{
			name:    "plain",
			command: store.SavedCommand{Command: "htop"},
			want:    "htop",
		},
		{
			name:    "tags",
			command: store.SavedCommand{Command: "docker ps", Tags: []string{"docker", "ops"}},
			want:    "[docker,ops] docker ps",
		},
		{
			name:    "description",
			command: store.SavedCommand{Command: "htop", Description: "processes"},
			want:    "htop - processes",
		},
		{
			name:    "tags and description",
			command: store.SavedCommand{Command: "kubectl get pods", Description: "pods", Tags: []string{"k8s"}},
			want:    "[k8s] kubectl get pods - pods",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewSavedCandidate(&tt.command, time.Now())
			assert.Equal(t, tt.want, c.Label())
			assert.Equal(t, tt.command.Command, c.Payload())
		})
	}
}

func TestSavedCandidatePreview(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	c := NewSavedCandidate(&store.SavedCommand{
		ID:          7,
		Command:     "kubectl get pods",
		Description: "pods",
		Tags:        []string{"k8s", "ops"},
		CreatedAt:   now.Unix() - 3*86400,
	}, now)

	preview := c.Preview()
	assert.Contains(t, preview, "description: pods")
	assert.Contains(t, preview, "tags: k8s, ops")
	assert.Contains(t, preview, "saved: 3d ago")
	assert.Contains(t, preview, "id: 7")
}

func TestCandidateSet(t *testing.T) {
	var items []Candidate
	items = append(items, NewHistoryCandidate(&store.HistoryEvent{Command: "a"}, time.Now()))
	items = append(items, NewSavedCandidate(&store.SavedCommand{Command: "b"}, time.Now()))
	assert.Equal(t, "a", items[0].Payload())
	assert.Equal(t, "b", items[1].Payload())
}
