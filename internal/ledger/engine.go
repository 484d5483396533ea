// Package ledger holds the working set of transactions and keeps it in step
// with a record log. The in-memory set is authoritative: a log failure never
// rolls back a mutation, it is recorded as a divergence that Resync replays.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/recordlog"
)

// ErrRecordMissing reports that the record log had no record for a
// transaction that was present in memory.
var ErrRecordMissing = errors.New("record missing from record log")

// Divergence is a mutation applied in memory that the record log did not
// accept. Transaction is the value to write for appends and updates.
type Divergence struct {
	Op          string
	ID          int64
	Transaction core.Transaction
	Err         error
	At          time.Time
}

type Ledger struct {
	mu      sync.RWMutex
	items   []core.Transaction
	pending []Divergence

	log    recordlog.RecordLog
	seq    *core.Sequence
	logger *applog.Logger
}

type Option func(*Ledger)

func WithLogger(logger *applog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithSequence makes the ledger draw identities from seq.
func WithSequence(seq *core.Sequence) Option {
	return func(l *Ledger) {
		if seq != nil {
			l.seq = seq
		}
	}
}

// Open builds a ledger over log and hydrates it from the log's records.
func Open(ctx context.Context, log recordlog.RecordLog, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		log:    log,
		seq:    core.NewSequence(0),
		logger: applog.Discard(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.WithComponent(applog.ComponentLedger)

	records, err := log.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("hydrate ledger: %w", core.AsPersistence(core.OpReadAll, 0, err))
	}
	seen := make(map[int64]struct{}, len(records))
	for _, t := range records {
		if t.ID <= 0 {
			return nil, fmt.Errorf("hydrate ledger: %w: record without identity: %v", core.ErrInvalidFormat, t)
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("hydrate ledger: %w: duplicate id %d", core.ErrInvalidFormat, t.ID)
		}
		seen[t.ID] = struct{}{}
		l.seq.Observe(t.ID)
	}
	l.items = records

	l.logger.InfoContext(ctx, "Ledger hydrated",
		applog.FieldOperation, applog.OpHydrate,
		applog.FieldCount, len(records))
	return l, nil
}

// Add stores t and appends it to the record log. A zero ID is replaced by
// the next identity of the ledger's sequence. The stored transaction is
// returned even when the log write fails with a *core.PersistenceError.
func (l *Ledger) Add(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if t.ID == 0 {
		t.ID = l.seq.Next()
	} else {
		if l.indexOf(t.ID) >= 0 {
			return core.Transaction{}, &core.InvalidInputError{Field: core.FieldID, Reason: fmt.Sprintf("id %d already exists", t.ID)}
		}
		l.seq.Observe(t.ID)
	}
	l.items = append(l.items, t)

	l.logger.DebugContext(ctx, "Transaction added", l.txFields(applog.OpCreate, t)...)

	if err := core.AsPersistence(core.OpAppend, t.ID, l.log.Append(ctx, t)); err != nil {
		l.diverge(ctx, core.OpAppend, t.ID, t, err)
		return t, err
	}
	return t, nil
}

// Remove deletes the transaction with the given id. Removing an id that is
// not in the ledger is a no-op reporting false; the log is not consulted.
func (l *Ledger) Remove(ctx context.Context, id int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(id)
	if i < 0 {
		return false, nil
	}
	removed := l.items[i]
	l.items = slices.Delete(l.items, i, i+1)

	l.logger.DebugContext(ctx, "Transaction removed", l.txFields(applog.OpDelete, removed)...)

	unsaved := l.dropPending(id)

	err := l.log.Delete(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, core.ErrNotFound) && unsaved:
		return true, nil
	case errors.Is(err, core.ErrNotFound):
		l.logger.WarnContext(ctx, "Record log had no record for removed transaction",
			applog.FieldOperation, applog.OpDelete,
			applog.FieldTxID, id)
		return true, fmt.Errorf("remove %d: %w", id, ErrRecordMissing)
	default:
		err = core.AsPersistence(core.OpDelete, id, err)
		l.diverge(ctx, core.OpDelete, id, removed, err)
		return true, err
	}
}

// Update replaces the transaction oldID with next, keeping oldID and the
// position in the working set. It returns core.ErrNotFound, leaving the
// ledger unchanged, when oldID is absent.
func (l *Ledger) Update(ctx context.Context, oldID int64, next core.Transaction) (core.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.update(ctx, oldID, next)
}

// SetCategory tags the transaction id with category. An empty category
// clears the tag.
func (l *Ledger) SetCategory(ctx context.Context, id int64, category string) (core.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(id)
	if i < 0 {
		return core.Transaction{}, fmt.Errorf("set category of %d: %w", id, core.ErrNotFound)
	}
	return l.update(ctx, id, l.items[i].WithCategory(category))
}

func (l *Ledger) update(ctx context.Context, oldID int64, next core.Transaction) (core.Transaction, error) {
	i := l.indexOf(oldID)
	if i < 0 {
		return core.Transaction{}, fmt.Errorf("update %d: %w", oldID, core.ErrNotFound)
	}
	next = next.WithID(oldID)
	l.items[i] = next

	l.logger.DebugContext(ctx, "Transaction updated", l.txFields(applog.OpUpdate, next)...)

	err := l.log.Update(ctx, oldID, next)
	if p := l.pendingAppend(oldID); p >= 0 {
		switch {
		case err == nil:
			// the append did land after all
			l.dropPending(oldID)
			return next, nil
		case errors.Is(err, core.ErrNotFound):
			l.pending[p].Transaction = next
			return next, nil
		}
	}
	if errors.Is(err, core.ErrNotFound) {
		err = &core.PersistenceError{Op: core.OpUpdate, ID: oldID, Err: ErrRecordMissing}
	}
	if err != nil {
		err = core.AsPersistence(core.OpUpdate, oldID, err)
		l.diverge(ctx, core.OpUpdate, oldID, next, err)
		return next, err
	}
	return next, nil
}

// Dirty reports whether some in-memory mutation has not reached the log.
func (l *Ledger) Dirty() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.pending) > 0
}

// Divergences returns the pending log operations, oldest first.
func (l *Ledger) Divergences() []Divergence {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.pending)
}

// Resync replays pending log operations in order. It stops at the first
// operation the log still rejects and returns how many were applied. Appends
// and updates overwrite the record when the log has it and append it
// otherwise; a delete of a record the log lacks counts as done.
func (l *Ledger) Resync(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	applied := 0
	for len(l.pending) > 0 {
		d := l.pending[0]
		if err := l.replay(ctx, d); err != nil {
			l.pending[0].Err = err
			l.logger.WarnContext(ctx, "Record log resync stopped",
				applog.FieldOperation, applog.OpResync,
				applog.FieldTxID, d.ID,
				applog.FieldPending, len(l.pending),
				applog.FieldError, err.Error())
			return applied, err
		}
		l.pending = l.pending[1:]
		applied++
	}
	l.pending = nil

	if applied > 0 {
		l.logger.InfoContext(ctx, "Record log resynced",
			applog.FieldOperation, applog.OpResync,
			applog.FieldCount, applied)
	}
	return applied, nil
}

func (l *Ledger) replay(ctx context.Context, d Divergence) error {
	var err error
	switch d.Op {
	case core.OpAppend, core.OpUpdate:
		// a failed append may have landed anyway
		err = l.log.Update(ctx, d.ID, d.Transaction)
		if errors.Is(err, core.ErrNotFound) {
			err = l.log.Append(ctx, d.Transaction)
		}
	case core.OpDelete:
		err = l.log.Delete(ctx, d.ID)
		if errors.Is(err, core.ErrNotFound) {
			err = nil
		}
	default:
		return fmt.Errorf("unknown pending operation %q", d.Op)
	}
	return core.AsPersistence(d.Op, d.ID, err)
}

func (l *Ledger) diverge(ctx context.Context, op string, id int64, t core.Transaction, err error) {
	l.pending = append(l.pending, Divergence{Op: op, ID: id, Transaction: t, Err: err, At: time.Now().UTC()})
	fields := applog.NewFields().
		WithOperation(op).
		WithErrorType(applog.ErrorTypePersistence).
		WithError(err).
		WithTransaction(id, t.Date.String(), t.Time.String(), t.Amount.String(), t.Vendor)
	fields[applog.FieldPending] = len(l.pending)
	l.logger.WarnContext(ctx, "Record log write failed, ledger diverged", fields.ToSlice()...)
}

// pendingAppend returns the index of a pending append of id, or -1.
func (l *Ledger) pendingAppend(id int64) int {
	return slices.IndexFunc(l.pending, func(d Divergence) bool { return d.Op == core.OpAppend && d.ID == id })
}

// dropPending forgets every pending operation on id. It reports whether one
// of them was an append, that is whether the log may never have seen id.
func (l *Ledger) dropPending(id int64) bool {
	unsaved := l.pendingAppend(id) >= 0
	l.pending = slices.DeleteFunc(l.pending, func(d Divergence) bool { return d.ID == id })
	return unsaved
}

func (l *Ledger) indexOf(id int64) int {
	return slices.IndexFunc(l.items, func(t core.Transaction) bool { return t.ID == id })
}

func (l *Ledger) txFields(op string, t core.Transaction) []any {
	return applog.NewFields().
		WithOperation(op).
		WithTransaction(t.ID, t.Date.String(), t.Time.String(), t.Amount.String(), t.Vendor).
		ToSlice()
}
