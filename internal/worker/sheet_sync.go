// Package worker keeps the ledger spreadsheet in step with the record log by
// following change events.
package worker

import (
	"context"
	"fmt"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/ledger"
	applog "ledger/internal/log"
	"ledger/internal/recordlog"
	"ledger/internal/sheets"
)

const (
	seenMessages = 1024
	seenTTL      = time.Hour
)

// SheetSync re-exports the whole ledger to the sheet after each change.
// Export replaces the sheet, so replaying a change is harmless; message IDs
// already handled are skipped all the same.
type SheetSync struct {
	log    recordlog.RecordLog
	sheet  sheets.Exporter
	logger *applog.Logger
	seen   *cache.LRU[struct{}]
}

func NewSheetSync(log recordlog.RecordLog, sheet sheets.Exporter, logger *applog.Logger) *SheetSync {
	if logger == nil {
		logger = applog.Discard()
	}
	return &SheetSync{
		log:    log,
		sheet:  sheet,
		logger: logger.WithComponent(applog.ComponentSheets),
		seen:   cache.NewLRU[struct{}](seenMessages, seenTTL),
	}
}

// HandleChange exports the ledger after a change event. An error leaves the
// message unacknowledged so the broker delivers it again.
func (w *SheetSync) HandleChange(ctx context.Context, msg *amqp.TransactionChangeMessage) error {
	if _, dup := w.seen.Get(msg.MessageID); dup {
		w.logger.DebugContext(ctx, "Skipping change already synced", "message_id", msg.MessageID)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing change message",
		"kind", msg.Kind,
		applog.FieldTxID, msg.ID,
		"message_id", msg.MessageID)

	if _, err := w.Export(ctx); err != nil {
		return fmt.Errorf("sync change %s: %w", msg.MessageID, err)
	}
	w.seen.Set(msg.MessageID, struct{}{})
	return nil
}

// StartupSync exports once before following events, covering changes made
// while no worker was running.
func (w *SheetSync) StartupSync(ctx context.Context) error {
	ref, err := w.Export(ctx)
	if err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}
	w.logger.InfoContext(ctx, "Startup sync completed", "range", ref)
	return nil
}

// Export writes every record of the log, in chronological order, with the
// balance footer.
func (w *SheetSync) Export(ctx context.Context) (string, error) {
	records, err := w.log.ReadAll(ctx)
	if err != nil {
		return "", fmt.Errorf("read record log: %w", err)
	}
	txs := core.SortChronological(records)
	balance := ledger.Summarize(txs).Balance

	ref, err := w.sheet.Export(ctx, txs, balance)
	if err != nil {
		fields := applog.NewFields().
			WithOperation(applog.OpExport).
			WithErrorType(applog.ErrorTypeNetwork).
			WithError(err)
		fields[applog.FieldCount] = len(txs)
		w.logger.ErrorContext(ctx, "Failed to export ledger", fields.ToSlice()...)
		return "", err
	}
	w.logger.DebugContext(ctx, "Ledger exported",
		applog.FieldCount, len(txs),
		"balance", balance.String(),
		"range", ref)
	return ref, nil
}
