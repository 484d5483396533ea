// Package recordlog defines the durable record log the ledger engine
// synchronizes with, and decorators that bound and observe its calls.
package recordlog

import (
	"context"

	"ledger/internal/core"
)

// RecordLog is a durable, ordered store of transactions keyed by ID.
//
// ReadAll returns records in log order. Update and Delete return
// core.ErrNotFound when no record carries the given ID; every other failure
// is reported as a *core.PersistenceError.
type RecordLog interface {
	Append(ctx context.Context, t core.Transaction) error
	ReadAll(ctx context.Context) ([]core.Transaction, error)
	Update(ctx context.Context, oldID int64, t core.Transaction) error
	Delete(ctx context.Context, id int64) error
}

// Closer is implemented by logs holding resources.
type Closer interface {
	Close() error
}

// ChangeKind names a record log mutation.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// ChangePublisher receives committed record log changes.
type ChangePublisher interface {
	PublishChange(ctx context.Context, kind ChangeKind, t core.Transaction) error
}
