package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidFormat = errors.New("invalid format")
	ErrNotFound      = errors.New("transaction not found")
	ErrEmptyLedger   = errors.New("ledger has no transactions")
)

// Input fields reported by InvalidInputError.
const (
	FieldDate   = "date"
	FieldAmount = "amount"
	FieldTime   = "time"
	FieldRange  = "range"
	FieldID     = "id"
)

// InvalidInputError reports a field value that failed validation.
// It is always recoverable: the caller should ask for the field again.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Record log operations reported by PersistenceError.
const (
	OpAppend  = "append"
	OpReadAll = "read_all"
	OpUpdate  = "update"
	OpDelete  = "delete"
)

// PersistenceError reports a record log failure. When returned by a ledger
// mutation the in-memory change has already been applied.
type PersistenceError struct {
	Op  string
	ID  int64
	Err error
}

func (e *PersistenceError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("record log %s (id %d): %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("record log %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// AsPersistence wraps err in a PersistenceError unless it already is one.
// ErrNotFound is passed through unchanged so callers can tell it apart.
func AsPersistence(op string, id int64, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) || errors.Is(err, ErrNotFound) {
		return err
	}
	return &PersistenceError{Op: op, ID: id, Err: err}
}
