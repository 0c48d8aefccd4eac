package dbstore

import (
	"github.com/yiblet/rewind/internal/store"
)

// HistoryEventModel represents a history event in the database.
type HistoryEventModel struct {
	ID       uint   `gorm:"column:id;primaryKey;autoIncrement"`
	Command  string `gorm:"column:command;not null"`
	ExitCode *int   `gorm:"column:exit_code"`
	Cwd      string `gorm:"column:cwd"`
	Hostname string `gorm:"column:hostname"`
	Session  string `gorm:"column:session"`
	StartTS  int64  `gorm:"column:start_ts;not null"` // epoch seconds
	Duration *int64 `gorm:"column:duration"`          // seconds
}

// TableName returns the table name for HistoryEventModel
func (HistoryEventModel) TableName() string {
	return "history"
}

// historyRow is one row of a deduplicated history query.
// Column order matches historyColumns.
type historyRow struct {
	ID       uint   `gorm:"column:id"`
	Command  string `gorm:"column:command"`
	ExitCode *int   `gorm:"column:exit_code"`
	Cwd      string `gorm:"column:cwd"`
	Hostname string `gorm:"column:hostname"`
	Session  string `gorm:"column:session"`
	LastTS   int64  `gorm:"column:last_ts"`
	Duration *int64 `gorm:"column:max_duration"`
}

// ToHistoryEvent converts the row to a store.HistoryEvent
func (r *historyRow) ToHistoryEvent() *store.HistoryEvent {
	return &store.HistoryEvent{
		ID:       r.ID,
		Command:  r.Command,
		ExitCode: r.ExitCode,
		Cwd:      r.Cwd,
		Hostname: r.Hostname,
		Session:  r.Session,
		StartTS:  r.LastTS,
		Duration: r.Duration,
	}
}

// SavedCommandModel represents a saved command in the database
type SavedCommandModel struct {
	ID          uint    `gorm:"column:id;primaryKey;autoIncrement"`
	Command     string  `gorm:"column:command;not null;uniqueIndex"`
	Description *string `gorm:"column:description"`
	CreatedAt   int64   `gorm:"column:created_at;not null;autoCreateTime:false"` // epoch seconds
}

// TableName returns the table name for SavedCommandModel
func (SavedCommandModel) TableName() string {
	return "saved_commands"
}

// ToSavedCommand converts the model to a store.SavedCommand
func (m *SavedCommandModel) ToSavedCommand(tags []string) *store.SavedCommand {
	var description string
	if m.Description != nil {
		description = *m.Description
	}
	if tags == nil {
		tags = []string{}
	}
	return &store.SavedCommand{
		ID:          m.ID,
		Command:     m.Command,
		Description: description,
		CreatedAt:   m.CreatedAt,
		Tags:        tags,
	}
}

// TagModel represents a tag, unique by name
type TagModel struct {
	ID   uint   `gorm:"column:id;primaryKey;autoIncrement"`
	Name string `gorm:"column:name;not null;uniqueIndex"`
}

// TableName returns the table name for TagModel
func (TagModel) TableName() string {
	return "tags"
}

// SavedCommandTagModel associates a saved command with a tag.
// Rows cascade away when either side is deleted.
type SavedCommandTagModel struct {
	CommandID uint `gorm:"column:command_id;primaryKey"`
	TagID     uint `gorm:"column:tag_id;primaryKey"`
}

// TableName returns the table name for SavedCommandTagModel
func (SavedCommandTagModel) TableName() string {
	return "saved_command_tags"
}

// savedRow is one row of SavedQuery, tags folded into one column.
type savedRow struct {
	ID          uint   `gorm:"column:id"`
	Command     string `gorm:"column:command"`
	Description string `gorm:"column:description"`
	CreatedAt   int64  `gorm:"column:created_at"`
	Tags        string `gorm:"column:tags"`
}

// ToSavedCommand converts the row to a store.SavedCommand
func (r *savedRow) ToSavedCommand() *store.SavedCommand {
	return &store.SavedCommand{
		ID:          r.ID,
		Command:     r.Command,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		Tags:        SplitTags(r.Tags),
	}
}
