package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/ledger"
	applog "ledger/internal/log"
	"ledger/internal/recordlog"
	"ledger/internal/worker"
)

// --- Export Command ---

type exportCmd struct {
	app    *App
	period string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write the ledger to the Google Sheets spreadsheet" }
func (*exportCmd) Usage() string {
	return `export [-p <period>]

  Replaces the content of the ledger sheet with the transactions in
  chronological order followed by their balance. Without -p the whole
  ledger is exported.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.period, "p", "", "Only export a reporting period (mtd, pm, ytd, py)")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var period *core.Period
	if c.period != "" {
		p, err := core.ParsePeriod(c.period)
		if err != nil {
			c.app.errorf("Error: %v", err)
			return subcommands.ExitUsageError
		}
		period = &p
	}

	return c.app.withLedger(ctx, func(l *ledger.Ledger) subcommands.ExitStatus {
		var txs []core.Transaction
		if period != nil {
			txs = l.Report(*period, c.app.today()).Transactions
		} else {
			txs = l.SortedChronologically()
		}

		sheet, err := c.app.Sheet(ctx)
		if err != nil {
			c.app.errorf("Error: %v", err)
			return subcommands.ExitFailure
		}
		balance := ledger.Summarize(txs).Balance
		ref, err := sheet.Export(ctx, txs, balance)
		if err != nil {
			c.app.errorf("Error: export failed: %v", err)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(c.app.Out, "Exported %d transactions to %s, balance %s\n", len(txs), ref, balance.Format())
		return subcommands.ExitSuccess
	})
}

// --- Watch Command ---

type watchCmd struct {
	app *App
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "print ledger changes published by other processes" }
func (*watchCmd) Usage() string {
	return `watch

  Follows the change events published on the AMQP exchange and prints one
  line per change until interrupted.
`
}

func (*watchCmd) SetFlags(*flag.FlagSet) {}

func (c *watchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := ShutdownContext(ctx)
	defer stop()

	err := c.app.Watch(ctx, func(msg *amqp.TransactionChangeMessage) error {
		fmt.Fprintln(c.app.Out, describeChange(msg))
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		c.app.errorf("Error: %v", err)
		return subcommands.ExitFailure
	}
	c.app.Logger.Info("Stopped watching changes", applog.FieldOperation, applog.OpShutdown)
	return subcommands.ExitSuccess
}

func describeChange(msg *amqp.TransactionChangeMessage) string {
	stamp := msg.Timestamp.Format("2006-01-02 15:04:05")
	if msg.Kind == recordlog.ChangeDeleted {
		return fmt.Sprintf("%s %-7s #%d", stamp, msg.Kind, msg.ID)
	}
	t, err := msg.Transaction()
	if err != nil {
		return fmt.Sprintf("%s %-7s #%d (unreadable: %v)", stamp, msg.Kind, msg.ID, err)
	}
	return fmt.Sprintf("%s %-7s %s", stamp, msg.Kind, t)
}

// --- Sync Command ---

type syncCmd struct {
	app *App
}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "keep the Google Sheets ledger up to date" }
func (*syncCmd) Usage() string {
	return `sync

  Exports the ledger to the sheet, then re-exports it after every change
  event published on the AMQP exchange until interrupted.
`
}

func (*syncCmd) SetFlags(*flag.FlagSet) {}

func (c *syncCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := ShutdownContext(ctx)
	defer stop()

	s, err := c.app.Open(ctx)
	if err != nil {
		c.app.errorf("Error opening ledger: %v", err)
		return subcommands.ExitFailure
	}
	defer s.Close()

	sheet, err := c.app.Sheet(ctx)
	if err != nil {
		c.app.errorf("Error: %v", err)
		return subcommands.ExitFailure
	}

	w := worker.NewSheetSync(s.Log, sheet, c.app.Logger)
	if err := w.StartupSync(ctx); err != nil {
		c.app.errorf("Error: %v", err)
		return subcommands.ExitFailure
	}
	err = c.app.Watch(ctx, func(msg *amqp.TransactionChangeMessage) error {
		return w.HandleChange(ctx, msg)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		c.app.errorf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
