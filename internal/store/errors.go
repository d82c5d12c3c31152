package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ErrorKind classifies a store failure so callers can decide between
// fail-fast, retry, and uid regeneration without inspecting driver errors.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation" // malformed input, terminal
	KindNotFound   ErrorKind = "not_found"  // entity absent, terminal
	KindConflict   ErrorKind = "conflict"   // unique constraint, retry with new uid
	KindTransient  ErrorKind = "transient"  // throttling/timeout, retry with backoff
	KindUnknown    ErrorKind = "unknown"    // unexpected, terminal
)

// StoreError wraps a backing-store failure with its classification and the
// operation that produced it.
type StoreError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("store: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("store: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func newError(kind ErrorKind, op string, err error) *StoreError {
	return &StoreError{Kind: kind, Op: op, Err: err}
}

// KindOf returns the classification of err, or KindUnknown for errors that
// did not come from this package.
func KindOf(err error) ErrorKind {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

func IsNotFound(err error) bool  { return KindOf(err) == KindNotFound }
func IsConflict(err error) bool  { return KindOf(err) == KindConflict }
func IsTransient(err error) bool { return KindOf(err) == KindTransient }

// transientMarkers are substrings of driver errors that indicate a
// retryable condition rather than a data problem.
var transientMarkers = []string{
	"database is locked",
	"database table is locked",
	"too many connections",
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"deadlock",
	"try again",
	"throttl",
	"busy",
}

// classify translates a gorm/driver error into a StoreError. A nil error
// passes through unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return newError(KindNotFound, op, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return newError(KindConflict, op, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return newError(KindTransient, op, err)
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate") {
		return newError(KindConflict, op, err)
	}
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return newError(KindTransient, op, err)
		}
	}

	return newError(KindUnknown, op, err)
}

// validationError builds a terminal validation error for malformed input
// detected before the store is touched.
func validationError(op, msg string) error {
	return newError(KindValidation, op, errors.New(msg))
}
