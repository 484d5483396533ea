package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/subcommands"

	"ledger/internal/amqp"
	"ledger/internal/config"
	"ledger/internal/core"
	"ledger/internal/ledger"
	applog "ledger/internal/log"
	"ledger/internal/sheets"
)

// App carries the collaborators shared by the subcommands.
type App struct {
	Out    io.Writer
	Err    io.Writer
	Logger *applog.Logger
	Now    func() time.Time

	Open  func(ctx context.Context) (*Session, error)
	Sheet func(ctx context.Context) (sheets.Sheet, error)
	Watch func(ctx context.Context, handler func(*amqp.TransactionChangeMessage) error) error
}

// NewApp builds an App backed by cfg.
func NewApp(cfg *config.Config, logger *applog.Logger) *App {
	return &App{
		Out:    os.Stdout,
		Err:    os.Stderr,
		Logger: logger,
		Now:    time.Now,
		Open: func(ctx context.Context) (*Session, error) {
			return OpenLedger(ctx, cfg, logger)
		},
		Sheet: func(ctx context.Context) (sheets.Sheet, error) {
			return OpenSheet(ctx, cfg, logger)
		},
		Watch: func(ctx context.Context, handler func(*amqp.TransactionChangeMessage) error) error {
			return WatchChanges(ctx, cfg, logger, handler)
		},
	}
}

// Register adds every ledger subcommand to c.
func Register(c *subcommands.Commander, app *App) {
	c.Register(&entryCmd{app: app, name: "deposit", sign: 1}, "transactions")
	c.Register(&entryCmd{app: app, name: "payment", sign: -1}, "transactions")
	c.Register(&updateCmd{app: app}, "transactions")
	c.Register(&deleteCmd{app: app}, "transactions")
	c.Register(&categorizeCmd{app: app}, "transactions")
	c.Register(&importCmd{app: app}, "transactions")

	c.Register(&listCmd{app: app}, "reports")
	c.Register(&reportCmd{app: app}, "reports")
	c.Register(&statsCmd{app: app}, "reports")

	c.Register(&exportCmd{app: app}, "sync")
	c.Register(&watchCmd{app: app}, "sync")
	c.Register(&syncCmd{app: app}, "sync")
}

func (a *App) today() core.Date { return core.DateOf(a.Now()) }

func (a *App) errorf(format string, args ...any) {
	fmt.Fprintf(a.Err, format+"\n", args...)
}

// withLedger opens the ledger, runs fn and closes the ledger again.
func (a *App) withLedger(ctx context.Context, fn func(*ledger.Ledger) subcommands.ExitStatus) subcommands.ExitStatus {
	s, err := a.Open(ctx)
	if err != nil {
		a.errorf("Error opening ledger: %v", err)
		return subcommands.ExitFailure
	}
	defer func() {
		if err := s.Close(); err != nil {
			a.Logger.Warn("Failed to close record log", applog.FieldError, err)
		}
	}()
	return fn(s.Ledger)
}

// settle turns the outcome of a mutation into an exit status. A change the
// record log refused is replayed once before giving up.
func (a *App) settle(ctx context.Context, l *ledger.Ledger, err error) subcommands.ExitStatus {
	if err == nil {
		return subcommands.ExitSuccess
	}
	var ie *core.InvalidInputError
	switch {
	case errors.As(err, &ie):
		a.errorf("Error: %v", err)
		return subcommands.ExitUsageError
	case errors.Is(err, core.ErrNotFound):
		a.errorf("Error: %v", err)
		return subcommands.ExitFailure
	case errors.Is(err, ledger.ErrRecordMissing) && !l.Dirty():
		a.errorf("Warning: %v", err)
		return subcommands.ExitSuccess
	}

	var pe *core.PersistenceError
	if !errors.As(err, &pe) {
		a.errorf("Error: %v", err)
		return subcommands.ExitFailure
	}
	n, rerr := l.Resync(ctx)
	if rerr != nil {
		a.errorf("Error: change not saved: %v", rerr)
		return subcommands.ExitFailure
	}
	a.Logger.InfoContext(ctx, "Change saved after retry", applog.FieldOperation, applog.OpResync, applog.FieldCount, n)
	return subcommands.ExitSuccess
}
