package importer

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/yiblet/rewind/internal/store"
)

// SessionPrefix starts every synthetic import session id so imported
// history is distinguishable from live shell sessions.
const SessionPrefix = "import-"

// Result holds the aggregate counts of an import.
type Result struct {
	Imported int
	Skipped  int
}

// ImportError is returned when the history file cannot be opened or the
// store rejects the batch. Individual bad lines never produce it.
type ImportError struct {
	Path string
	Err  error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import %s: %v", e.Path, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// Options carries the ambient values stamped on every imported event.
type Options struct {
	// Hostname recorded on every event.
	Hostname string

	// SessionID overrides the generated "import-<uuid>" session.
	SessionID string

	// Now supplies the timestamp for lines without one. Defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// NewSessionID returns a fresh synthetic import session id.
func NewSessionID() string {
	return SessionPrefix + uuid.NewString()
}

// DefaultPath returns the history file to import when none is given:
// histfile when set, otherwise ~/.zsh_history under home.
func DefaultPath(histfile, home string) string {
	if histfile != "" {
		return histfile
	}
	return filepath.Join(home, ".zsh_history")
}

// Importer loads history files into a history store.
type Importer struct {
	history store.HistoryStore
	opts    Options
}

// New creates an importer writing into history.
func New(history store.HistoryStore, opts Options) *Importer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.SessionID == "" {
		opts.SessionID = NewSessionID()
	}
	return &Importer{history: history, opts: opts}
}

// SessionID returns the session stamped on imported events.
func (im *Importer) SessionID() string {
	return im.opts.SessionID
}

// ImportFile opens path and imports it. Failing to open the file aborts
// the import with an *ImportError.
func (im *Importer) ImportFile(path string) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return Result{}, &ImportError{Path: path, Err: err}
	}
	defer file.Close()

	result, err := im.Import(file)
	if err != nil {
		return result, &ImportError{Path: path, Err: err}
	}
	return result, nil
}

// Import parses r and inserts every recovered command in one batch.
// Lines that cannot be decoded, blank commands and commands already stored
// with the same timestamp are counted as skipped.
func (im *Importer) Import(r io.Reader) (Result, error) {
	var (
		parser  Parser
		result  Result
		reader  = bufio.NewReader(r)
		log     = im.opts.Logger
		lineNum int
	)

	for {
		raw, err := reader.ReadBytes('\n')
		if len(raw) > 0 {
			lineNum++
			line, ok := decodeLine(raw)
			if ok {
				parser.Feed(line)
			} else {
				result.Skipped++
				log.Debug("skipping undecodable history line", "line", lineNum)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// keep what was read so far
			result.Skipped++
			log.Warn("history read stopped early", "line", lineNum, "error", err)
			break
		}
	}

	now := im.opts.Now().Unix()
	var events []*store.NewHistoryEvent
	for _, entry := range parser.Finish() {
		if entry.Command == "" {
			result.Skipped++
			log.Debug("skipping empty history command", "line", entry.Line)
			continue
		}
		ts := now
		if entry.HasTimestamp {
			ts = entry.StartTS
		}
		events = append(events, &store.NewHistoryEvent{
			Command:  entry.Command,
			ExitCode: new(int),
			Hostname: im.opts.Hostname,
			Session:  im.opts.SessionID,
			StartTS:  ts,
		})
	}

	if len(events) == 0 {
		return result, nil
	}

	inserted, duplicates, err := im.history.InsertMany(events)
	if err != nil {
		return result, fmt.Errorf("failed to store imported history: %w", err)
	}
	result.Imported = inserted
	result.Skipped += duplicates

	log.Info("history imported",
		"session", im.opts.SessionID,
		"imported", result.Imported,
		"skipped", result.Skipped)

	return result, nil
}

// decodeLine strips the line terminator and returns valid UTF-8 text.
// Invalid input gets one retry after undoing zsh metafication.
func decodeLine(raw []byte) (string, bool) {
	raw = bytes.TrimSuffix(raw, []byte("\n"))
	raw = bytes.TrimSuffix(raw, []byte("\r"))
	if utf8.Valid(raw) {
		return string(raw), true
	}
	raw = unmetafy(raw)
	if !utf8.Valid(raw) {
		return "", false
	}
	return string(raw), true
}
