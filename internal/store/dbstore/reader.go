package dbstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/yiblet/rewind/internal/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Reader is a read-only connection used to stream query results row by
// row. It never creates the database and never writes to it.
type Reader struct {
	db *gorm.DB
}

// OpenReader opens the existing database at dbPath read-only.
func OpenReader(dbPath string) (*Reader, error) {
	const op = "open"

	if dbPath == "" {
		return nil, store.NewError(op, store.KindInvalid, errors.New("empty database path"))
	}
	if _, err := os.Stat(dbPath); err != nil {
		kind := store.KindIO
		if errors.Is(err, fs.ErrNotExist) {
			kind = store.KindNotFound
		}
		return nil, store.NewError(op, kind, fmt.Errorf("failed to stat database: %w", err))
	}

	sqlDB, err := sql.Open(DriverName, ReadOnlyDSN(dbPath))
	if err != nil {
		return nil, store.NewError(op, store.KindIO, fmt.Errorf("failed to open database: %w", err))
	}
	sqlDB.SetMaxOpenConns(1)

	db, err := gorm.Open(sqlite.New(sqlite.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		sqlDB.Close()
		return nil, store.NewError(op, classify(err), fmt.Errorf("failed to open database: %w", err))
	}

	return &Reader{db: db}, nil
}

// StreamHistory runs a history mode query and calls fn for each row in
// result order. Returning an error from fn stops the stream and returns
// that error unchanged.
func (r *Reader) StreamHistory(ctx context.Context, q *store.Query, fn func(*store.HistoryEvent) error) error {
	const op = "search"

	sqlText, args, err := HistoryQuery(q)
	if err != nil {
		return store.NewError(op, store.KindInvalid, err)
	}
	if q.Limit <= 0 {
		return nil
	}

	return r.stream(ctx, op, sqlText, args, func(rows *sql.Rows) error {
		var row historyRow
		if err := r.db.ScanRows(rows, &row); err != nil {
			return store.NewError(op, classify(err), fmt.Errorf("failed to scan history row: %w", err))
		}
		return fn(row.ToHistoryEvent())
	})
}

// StreamSaved lists saved commands newest first and calls fn for each.
func (r *Reader) StreamSaved(ctx context.Context, limit int, fn func(*store.SavedCommand) error) error {
	const op = "list"

	if limit <= 0 {
		return nil
	}

	sqlText, args := SavedQuery(limit)
	return r.stream(ctx, op, sqlText, args, func(rows *sql.Rows) error {
		var row savedRow
		if err := r.db.ScanRows(rows, &row); err != nil {
			return store.NewError(op, classify(err), fmt.Errorf("failed to scan saved row: %w", err))
		}
		return fn(row.ToSavedCommand())
	})
}

func (r *Reader) stream(ctx context.Context, op, sqlText string, args []any, each func(*sql.Rows) error) error {
	rows, err := r.db.WithContext(ctx).Raw(sqlText, args...).Rows()
	if err != nil {
		return store.NewError(op, classify(err), fmt.Errorf("failed to run query: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		if err := each(rows); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return store.NewError(op, classify(err), fmt.Errorf("failed to read rows: %w", err))
	}
	return nil
}

// Close releases the connection.
func (r *Reader) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
