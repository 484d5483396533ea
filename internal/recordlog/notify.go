package recordlog

import (
	"context"

	"ledger/internal/core"
	applog "ledger/internal/log"
)

// notifyingLog publishes a change after each successful write.
type notifyingLog struct {
	next      RecordLog
	publisher ChangePublisher
	logger    *applog.Logger
}

// Notifying returns a log that publishes committed changes to publisher.
// The write is the source of truth: a failed publish is logged and never
// fails the write. A nil publisher returns next unchanged.
func Notifying(next RecordLog, publisher ChangePublisher, logger *applog.Logger) RecordLog {
	if publisher == nil {
		return next
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &notifyingLog{next: next, publisher: publisher, logger: logger.WithComponent(applog.ComponentLog)}
}

func (l *notifyingLog) Append(ctx context.Context, t core.Transaction) error {
	if err := l.next.Append(ctx, t); err != nil {
		return err
	}
	l.publish(ctx, ChangeCreated, t)
	return nil
}

func (l *notifyingLog) ReadAll(ctx context.Context) ([]core.Transaction, error) {
	return l.next.ReadAll(ctx)
}

func (l *notifyingLog) Update(ctx context.Context, oldID int64, t core.Transaction) error {
	if err := l.next.Update(ctx, oldID, t); err != nil {
		return err
	}
	l.publish(ctx, ChangeUpdated, t)
	return nil
}

func (l *notifyingLog) Delete(ctx context.Context, id int64) error {
	if err := l.next.Delete(ctx, id); err != nil {
		return err
	}
	l.publish(ctx, ChangeDeleted, core.Transaction{ID: id})
	return nil
}

func (l *notifyingLog) Close() error {
	if c, ok := l.next.(Closer); ok {
		return c.Close()
	}
	return nil
}

func (l *notifyingLog) publish(ctx context.Context, kind ChangeKind, t core.Transaction) {
	if err := l.publisher.PublishChange(ctx, kind, t); err != nil {
		fields := applog.NewFields().
			WithOperation(applog.OpPublish).
			WithErrorType(applog.ErrorTypeNetwork).
			WithError(err)
		fields[applog.FieldTxID] = t.ID
		l.logger.WarnContext(ctx, "Failed to publish record log change", fields.ToSlice()...)
	}
}
