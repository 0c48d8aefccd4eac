package store

import (
	"errors"
	"fmt"
)

// Kind classifies a StoreError.
type Kind int

const (
	KindIO Kind = iota
	KindNotFound
	KindConstraint
	KindInvalid
	KindQuery
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindNotFound:
		return "not found"
	case KindConstraint:
		return "constraint violation"
	case KindInvalid:
		return "invalid input"
	case KindQuery:
		return "query failed"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is checks against a StoreError's kind.
var (
	ErrIO         = errors.New("io")
	ErrNotFound   = errors.New("not found")
	ErrConstraint = errors.New("constraint violation")
	ErrInvalid    = errors.New("invalid input")
	ErrQuery      = errors.New("query failed")
)

// StoreError is returned by every store operation that fails.
type StoreError struct {
	Op   string
	Kind Kind
	Err  error
}

// NewError wraps err as a StoreError.
func NewError(op string, kind Kind, err error) *StoreError {
	return &StoreError{Op: op, Kind: kind, Err: err}
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels so callers can write
// errors.Is(err, store.ErrNotFound).
func (e *StoreError) Is(target error) bool {
	switch target {
	case ErrIO:
		return e.Kind == KindIO
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrConstraint:
		return e.Kind == KindConstraint
	case ErrInvalid:
		return e.Kind == KindInvalid
	case ErrQuery:
		return e.Kind == KindQuery
	}
	return false
}
