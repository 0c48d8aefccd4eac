// Package pipeline streams query results to an interactive consumer.
//
// Start launches a worker goroutine that runs one query on its own
// read-only connection and sends candidates into a bounded channel in
// result order. The consumer may stop reading at any time; Close releases
// the worker even when it is blocked on a full channel.
package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yiblet/rewind/internal/candidate"
	"github.com/yiblet/rewind/internal/store"
	"github.com/yiblet/rewind/internal/store/dbstore"
)

// DefaultCapacity is the channel buffer used when none is configured.
const DefaultCapacity = 256

type options struct {
	capacity int
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures Start.
type Option func(*options)

// WithCapacity sets the channel buffer size. Values below 1 are ignored.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// WithLogger sets the logger the worker reports failures to.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithNow sets the clock used for relative ages in previews.
func WithNow(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Handle is the consumer side of a running query.
type Handle struct {
	items    chan candidate.Candidate
	cancel   context.CancelFunc
	finished chan struct{}
	first    chan struct{}

	hasRows   atomic.Bool
	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

// Start runs query against the database at dbPath in a new goroutine.
// Failures are never returned here: the channel closes early and Err
// reports what went wrong.
func Start(ctx context.Context, dbPath string, query store.Query, opts ...Option) *Handle {
	o := options{
		capacity: DefaultCapacity,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		items:    make(chan candidate.Candidate, o.capacity),
		cancel:   cancel,
		finished: make(chan struct{}),
		first:    make(chan struct{}),
	}

	go h.run(ctx, dbPath, query, o)
	return h
}

// Items returns the stream of candidates. It is closed when the query is
// exhausted, fails, or the handle is closed.
func (h *Handle) Items() <-chan candidate.Candidate {
	return h.items
}

// Close stops the worker. It is safe to call more than once and from any
// goroutine. Items already buffered are not drained.
func (h *Handle) Close() {
	h.closeOnce.Do(h.cancel)
}

// Done is closed once the worker has exited and released its connection.
func (h *Handle) Done() <-chan struct{} {
	return h.finished
}

// HasRows blocks until the worker produced its first row or finished,
// and reports whether any row was produced.
func (h *Handle) HasRows() bool {
	select {
	case <-h.first:
	case <-h.finished:
	}
	return h.hasRows.Load()
}

// Err returns the failure that ended the query early, if any. It is
// only meaningful after Done is closed. Cancellation is not an error.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

func (h *Handle) setErr(err error) {
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
}

func (h *Handle) run(ctx context.Context, dbPath string, query store.Query, o options) {
	defer close(h.finished)
	defer close(h.items)
	defer h.cancel()

	log := o.logger.With("mode", query.Mode.String())

	err := h.stream(ctx, dbPath, &query, o.now())
	if err != nil && !errors.Is(err, context.Canceled) {
		h.setErr(err)
		log.Warn("query failed", "error", err)
		return
	}
	log.Debug("query finished", "rows", h.hasRows.Load())
}

func (h *Handle) stream(ctx context.Context, dbPath string, query *store.Query, now time.Time) error {
	reader, err := dbstore.OpenReader(dbPath)
	if err != nil {
		return err
	}
	defer reader.Close()

	if query.Mode == store.ModeSaved {
		return reader.StreamSaved(ctx, query.Limit, func(c *store.SavedCommand) error {
			return h.send(ctx, candidate.NewSavedCandidate(c, now))
		})
	}
	if !query.Mode.IsHistory() {
		return store.NewError("search", store.KindInvalid, errors.New("unknown mode"))
	}
	return reader.StreamHistory(ctx, query, func(e *store.HistoryEvent) error {
		return h.send(ctx, candidate.NewHistoryCandidate(e, now))
	})
}

// send delivers c unless the handle is closed first.
func (h *Handle) send(ctx context.Context, c candidate.Candidate) error {
	if !h.hasRows.Load() {
		h.hasRows.Store(true)
		close(h.first)
	}
	select {
	case h.items <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
