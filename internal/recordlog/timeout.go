package recordlog

import (
	"context"
	"fmt"
	"time"

	"ledger/internal/core"
)

// timeoutLog bounds every call to the wrapped log.
type timeoutLog struct {
	next    RecordLog
	timeout time.Duration
}

// WithTimeout returns a log whose calls fail with a *core.PersistenceError
// wrapping context.DeadlineExceeded when next does not answer within d.
// The wrapped call keeps running in its goroutine until it returns; its
// result is discarded.
func WithTimeout(next RecordLog, d time.Duration) RecordLog {
	if d <= 0 {
		return next
	}
	return &timeoutLog{next: next, timeout: d}
}

func (l *timeoutLog) Append(ctx context.Context, t core.Transaction) error {
	return l.run(ctx, core.OpAppend, t.ID, func(ctx context.Context) error {
		return l.next.Append(ctx, t)
	})
}

func (l *timeoutLog) ReadAll(ctx context.Context) ([]core.Transaction, error) {
	var out []core.Transaction
	err := l.run(ctx, core.OpReadAll, 0, func(ctx context.Context) error {
		var err error
		out, err = l.next.ReadAll(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (l *timeoutLog) Update(ctx context.Context, oldID int64, t core.Transaction) error {
	return l.run(ctx, core.OpUpdate, oldID, func(ctx context.Context) error {
		return l.next.Update(ctx, oldID, t)
	})
}

func (l *timeoutLog) Delete(ctx context.Context, id int64) error {
	return l.run(ctx, core.OpDelete, id, func(ctx context.Context) error {
		return l.next.Delete(ctx, id)
	})
}

func (l *timeoutLog) Close() error {
	if c, ok := l.next.(Closer); ok {
		return c.Close()
	}
	return nil
}

func (l *timeoutLog) run(ctx context.Context, op string, id int64, call func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- call(ctx) }()

	select {
	case err := <-done:
		return core.AsPersistence(op, id, err)
	case <-ctx.Done():
		return &core.PersistenceError{Op: op, ID: id, Err: fmt.Errorf("no answer after %v: %w", l.timeout, ctx.Err())}
	}
}
