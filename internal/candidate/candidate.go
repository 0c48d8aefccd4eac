// Package candidate turns stored records into the items an interactive
// selector displays: a one-line label, a multi-line preview and the raw
// command text returned when the item is chosen.
package candidate

import (
	"strconv"
	"strings"
	"time"

	"github.com/yiblet/rewind/internal/store"
)

// Candidate is the capability shared by every selectable item.
// The set of implementations is closed: HistoryCandidate and SavedCandidate.
type Candidate interface {
	// Label is a single display line.
	Label() string

	// Preview is a multi-line description of the item.
	Preview() string

	// Payload is the raw command text.
	Payload() string

	isCandidate()
}

// HistoryCandidate wraps a history search result.
type HistoryCandidate struct {
	Event *store.HistoryEvent

	// Now is the reference time for age rendering.
	Now time.Time
}

// NewHistoryCandidate creates a candidate for event, rendering ages
// relative to now.
func NewHistoryCandidate(event *store.HistoryEvent, now time.Time) *HistoryCandidate {
	return &HistoryCandidate{Event: event, Now: now}
}

func (c *HistoryCandidate) isCandidate() {}

// Label returns the command collapsed onto one line.
func (c *HistoryCandidate) Label() string {
	return SanitizeLabel(c.Event.Command)
}

// Payload returns the command text.
func (c *HistoryCandidate) Payload() string {
	return c.Event.Command
}

// Preview returns the command followed by its metadata.
func (c *HistoryCandidate) Preview() string {
	e := c.Event

	var duration int64
	if e.Duration != nil {
		duration = *e.Duration
	}
	exit := "-"
	if e.ExitCode != nil {
		exit = strconv.Itoa(*e.ExitCode)
	}

	var b strings.Builder
	b.WriteString(e.Command)
	b.WriteString("\n\n")
	writeField(&b, "when", FormatAge(e.StartTS, c.Now))
	writeField(&b, "duration", FormatDuration(duration))
	writeField(&b, "exit", exit)
	writeField(&b, "cwd", e.Cwd)
	writeField(&b, "host", e.Hostname)
	writeField(&b, "session", e.Session)
	return strings.TrimRight(b.String(), "\n")
}

// SavedCandidate wraps a saved command.
type SavedCandidate struct {
	Command *store.SavedCommand

	// Now is the reference time for age rendering.
	Now time.Time
}

// NewSavedCandidate creates a candidate for a saved command.
func NewSavedCandidate(command *store.SavedCommand, now time.Time) *SavedCandidate {
	return &SavedCandidate{Command: command, Now: now}
}

func (c *SavedCandidate) isCandidate() {}

// Label returns "[tag1,tag2] command - description", omitting the tag
// prefix and description suffix when they are empty.
func (c *SavedCandidate) Label() string {
	var b strings.Builder
	if len(c.Command.Tags) > 0 {
		b.WriteString("[")
		b.WriteString(strings.Join(c.Command.Tags, ","))
		b.WriteString("] ")
	}
	b.WriteString(SanitizeLabel(c.Command.Command))
	if c.Command.Description != "" {
		b.WriteString(" - ")
		b.WriteString(SanitizeLabel(c.Command.Description))
	}
	return b.String()
}

// Payload returns the saved command text.
func (c *SavedCandidate) Payload() string {
	return c.Command.Command
}

// Preview returns the command followed by description, tags and age.
func (c *SavedCandidate) Preview() string {
	s := c.Command

	var b strings.Builder
	b.WriteString(s.Command)
	b.WriteString("\n\n")
	writeField(&b, "description", s.Description)
	writeField(&b, "tags", strings.Join(s.Tags, ", "))
	writeField(&b, "saved", FormatAge(s.CreatedAt, c.Now))
	writeField(&b, "id", strconv.FormatUint(uint64(s.ID), 10))
	return strings.TrimRight(b.String(), "\n")
}

// writeField appends "name: value" when value is not empty.
func writeField(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	b.WriteString(name)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\n")
}
