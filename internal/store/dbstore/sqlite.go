package dbstore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/yiblet/rewind/internal/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// SQLiteStore is a SQLite-backed implementation of store.Store
type SQLiteStore struct {
	db     *gorm.DB
	dbPath string
}

// NewSQLiteStore opens the store at dbPath, creating the file and its parent
// directories when absent. It applies the connection pragmas and ensures
// every schema object exists, so it is safe to call on every start.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	const op = "open"

	if dbPath == "" {
		return nil, store.NewError(op, store.KindInvalid, errors.New("empty database path"))
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, store.NewError(op, store.KindIO, fmt.Errorf("failed to create database directory: %w", err))
	}

	sqlDB, err := sql.Open(DriverName, ReadWriteDSN(dbPath))
	if err != nil {
		return nil, store.NewError(op, store.KindIO, fmt.Errorf("failed to open database: %w", err))
	}

	// one writer connection, owned by the opening goroutine
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	db, err := gorm.Open(sqlite.New(sqlite.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		sqlDB.Close()
		return nil, store.NewError(op, store.KindIO, fmt.Errorf("failed to open database: %w", err))
	}

	for _, stmt := range schemaStatements {
		if err := db.Exec(stmt).Error; err != nil {
			sqlDB.Close()
			return nil, store.NewError(op, classify(err), fmt.Errorf("failed to apply schema: %w", err))
		}
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// History returns the history store
func (s *SQLiteStore) History() store.HistoryStore {
	return &sqliteHistoryStore{db: s.db}
}

// Saved returns the saved command store
func (s *SQLiteStore) Saved() store.SavedStore {
	return &sqliteSavedStore{db: s.db}
}

// Path returns the database file location
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// sqliteHistoryStore implements store.HistoryStore
type sqliteHistoryStore struct {
	db *gorm.DB
}

// Insert stores one event, ignoring it when (command, start_ts) exists
func (s *sqliteHistoryStore) Insert(event *store.NewHistoryEvent) (bool, error) {
	inserted, err := insertEvent(s.db, event)
	if err != nil {
		return false, store.NewError("insert", classify(err), err)
	}
	return inserted, nil
}

// InsertMany stores events in one transaction
func (s *sqliteHistoryStore) InsertMany(events []*store.NewHistoryEvent) (int, int, error) {
	var inserted, skipped int

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, event := range events {
			ok, err := insertEvent(tx, event)
			if err != nil {
				return err
			}
			if ok {
				inserted++
			} else {
				skipped++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, store.NewError("insert", classify(err), err)
	}

	return inserted, skipped, nil
}

func insertEvent(db *gorm.DB, event *store.NewHistoryEvent) (bool, error) {
	if strings.TrimSpace(event.Command) == "" {
		return false, errInvalid("empty command")
	}

	model := &HistoryEventModel{
		Command:  event.Command,
		ExitCode: event.ExitCode,
		Cwd:      event.Cwd,
		Hostname: event.Hostname,
		Session:  event.Session,
		StartTS:  event.StartTS,
		Duration: event.Duration,
	}

	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "command"}, {Name: "start_ts"}},
		DoNothing: true,
	}).Create(model)
	if result.Error != nil {
		return false, fmt.Errorf("failed to insert history event: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// Search runs a global, session or cwd query
func (s *sqliteHistoryStore) Search(query *store.Query) ([]*store.HistoryEvent, error) {
	const op = "search"

	if !query.Mode.IsHistory() {
		return nil, store.NewError(op, store.KindInvalid, fmt.Errorf("mode %v is not a history mode", query.Mode))
	}
	if query.Limit <= 0 {
		return []*store.HistoryEvent{}, nil
	}

	sqlText, args, err := HistoryQuery(query)
	if err != nil {
		return nil, store.NewError(op, store.KindInvalid, err)
	}

	return s.scanHistory(op, sqlText, args)
}

// Match runs a full-text query against the search index
func (s *sqliteHistoryStore) Match(text string, limit int) ([]*store.HistoryEvent, error) {
	expr := FTSExpression(text)
	if expr == "" || limit <= 0 {
		return []*store.HistoryEvent{}, nil
	}

	sqlText, args := MatchQuery(expr, limit)
	return s.scanHistory("match", sqlText, args)
}

func (s *sqliteHistoryStore) scanHistory(op, sqlText string, args []any) ([]*store.HistoryEvent, error) {
	var rows []*historyRow
	if err := s.db.Raw(sqlText, args...).Scan(&rows).Error; err != nil {
		return nil, store.NewError(op, classify(err), fmt.Errorf("failed to query history: %w", err))
	}

	events := make([]*store.HistoryEvent, len(rows))
	for i, row := range rows {
		events[i] = row.ToHistoryEvent()
	}
	return events, nil
}

// Count returns the total number of events
func (s *sqliteHistoryStore) Count() (int, error) {
	var count int64
	if err := s.db.Model(&HistoryEventModel{}).Count(&count).Error; err != nil {
		return 0, store.NewError("count", classify(err), fmt.Errorf("failed to count events: %w", err))
	}
	return int(count), nil
}

// sqliteSavedStore implements store.SavedStore
type sqliteSavedStore struct {
	db *gorm.DB
}

// Save upserts the command and replaces its tag set (clear then insert)
func (s *sqliteSavedStore) Save(input *store.SaveCommandInput) (uint, error) {
	const op = "save"

	command := strings.TrimSpace(input.Command)
	if command == "" {
		return 0, store.NewError(op, store.KindInvalid, errors.New("empty command"))
	}
	tags, err := NormalizeTags(input.Tags)
	if err != nil {
		return 0, store.NewError(op, store.KindInvalid, err)
	}

	createdAt := input.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().Unix()
	}

	var description *string
	if d := strings.TrimSpace(input.Description); d != "" {
		description = &d
	}

	var id uint
	err = s.db.Transaction(func(tx *gorm.DB) error {
		model := &SavedCommandModel{
			Command:     command,
			Description: description,
			CreatedAt:   createdAt,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "command"}},
			DoUpdates: clause.AssignmentColumns([]string{"description", "created_at"}),
		}).Create(model).Error; err != nil {
			return fmt.Errorf("failed to upsert saved command: %w", err)
		}

		// the upsert may have hit an existing row, look the id up by text
		var saved SavedCommandModel
		if err := tx.Where("command = ?", command).First(&saved).Error; err != nil {
			return fmt.Errorf("failed to load saved command: %w", err)
		}
		id = saved.ID

		if err := tx.Where("command_id = ?", id).Delete(&SavedCommandTagModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear tags: %w", err)
		}

		for _, name := range tags {
			tag := &TagModel{Name: name}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoNothing: true,
			}).Create(tag).Error; err != nil {
				return fmt.Errorf("failed to create tag %q: %w", name, err)
			}
			if err := tx.Where("name = ?", name).First(tag).Error; err != nil {
				return fmt.Errorf("failed to load tag %q: %w", name, err)
			}
			link := &SavedCommandTagModel{CommandID: id, TagID: tag.ID}
			if err := tx.Create(link).Error; err != nil {
				return fmt.Errorf("failed to attach tag %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, store.NewError(op, classify(err), err)
	}

	return id, nil
}

// Delete removes a saved command by id (CASCADE removes tag links)
func (s *sqliteSavedStore) Delete(id uint) (bool, error) {
	if id == 0 {
		return false, nil
	}

	result := s.db.Delete(&SavedCommandModel{}, id)
	if result.Error != nil {
		return false, store.NewError("delete", classify(result.Error), fmt.Errorf("failed to delete saved command: %w", result.Error))
	}
	return result.RowsAffected > 0, nil
}

// List returns saved commands newest first, optionally filtered by tags (OR)
func (s *sqliteSavedStore) List(tags []string) ([]*store.SavedCommand, error) {
	const op = "list"

	filter, err := NormalizeTags(tags)
	if err != nil {
		return nil, store.NewError(op, store.KindInvalid, err)
	}

	query := s.db.Model(&SavedCommandModel{}).Order("created_at DESC").Order("id DESC")
	if len(filter) > 0 {
		tagged := s.db.Table("saved_command_tags").
			Select("saved_command_tags.command_id").
			Joins("JOIN tags ON tags.id = saved_command_tags.tag_id").
			Where("tags.name IN ?", filter)
		query = query.Where("id IN (?)", tagged)
	}

	var models []*SavedCommandModel
	if err := query.Find(&models).Error; err != nil {
		return nil, store.NewError(op, classify(err), fmt.Errorf("failed to list saved commands: %w", err))
	}

	// one tag lookup per command keeps the many-to-many join from
	// duplicating command rows
	commands := make([]*store.SavedCommand, len(models))
	for i, model := range models {
		names, err := s.tagsFor(model.ID)
		if err != nil {
			return nil, store.NewError(op, classify(err), err)
		}
		commands[i] = model.ToSavedCommand(names)
	}

	return commands, nil
}

func (s *sqliteSavedStore) tagsFor(commandID uint) ([]string, error) {
	var names []string
	err := s.db.Table("tags").
		Joins("JOIN saved_command_tags ON saved_command_tags.tag_id = tags.id").
		Where("saved_command_tags.command_id = ?", commandID).
		Order("tags.name").
		Pluck("tags.name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load tags for %d: %w", commandID, err)
	}
	return names, nil
}

// NormalizeTags trims, drops empty names and removes duplicates.
// Names containing a comma are rejected.
func NormalizeTags(tags []string) ([]string, error) {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		if strings.Contains(tag, ",") {
			return nil, fmt.Errorf("tag %q must not contain a comma", tag)
		}
		seen[tag] = true
		out = append(out, tag)
	}
	slices.Sort(out)
	return out, nil
}

type invalidError string

func (e invalidError) Error() string { return string(e) }

func errInvalid(msg string) error { return invalidError(msg) }

// classify maps driver errors onto store error kinds
func classify(err error) store.Kind {
	var invalid invalidError
	if errors.As(err, &invalid) {
		return store.KindInvalid
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.KindNotFound
	}

	var sqliteErr *moderncsqlite.Error
	if errors.As(err, &sqliteErr) {
		// extended result codes keep the primary code in the low byte
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_CONSTRAINT:
			return store.KindConstraint
		case sqlite3.SQLITE_IOERR, sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_FULL,
			sqlite3.SQLITE_READONLY, sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED,
			sqlite3.SQLITE_CORRUPT, sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_PERM:
			return store.KindIO
		}
	}
	return store.KindQuery
}
