package cli

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
	"golang.org/x/sync/errgroup"

	"ledger/internal/core"
	"ledger/internal/ledger"
	applog "ledger/internal/log"
)

// --- Deposit and Payment Commands ---

// entryCmd records a deposit (sign 1) or a payment (sign -1). The amount is
// given unsigned; the command applies the sign.
type entryCmd struct {
	app         *App
	name        string
	sign        int
	amount      string
	date        string
	clock       string
	description string
	vendor      string
	category    string
}

func (c *entryCmd) Name() string { return c.name }
func (c *entryCmd) Synopsis() string {
	if c.sign < 0 {
		return "record money leaving the account"
	}
	return "record money entering the account"
}
func (c *entryCmd) Usage() string {
	return fmt.Sprintf(`%s -a <amount> [-d <date>] [-t <time>] [-m <description>] [-v <vendor>] [-c <category>]

  Records a %s. The amount is an unsigned decimal such as 42.50.
  Date and time default to now.
`, c.name, c.name)
}

func (c *entryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.amount, "a", "", "Amount, unsigned decimal (e.g. 42.50)")
	f.StringVar(&c.date, "d", "", "Transaction date (YYYY-MM-DD), defaults to today")
	f.StringVar(&c.clock, "t", "", "Transaction time (HH:MM:SS), defaults to now")
	f.StringVar(&c.description, "m", "", "Description")
	f.StringVar(&c.vendor, "v", "", "Vendor or payer")
	f.StringVar(&c.category, "c", "", "Optional category")
}

func (c *entryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount := strings.TrimSpace(c.amount)
	m, err := core.ParseMoney(amount)
	if err != nil || !m.IsPositive() || strings.HasPrefix(amount, "-") {
		c.app.errorf("Error: amount must be a positive decimal without sign, got %q", c.amount)
		return subcommands.ExitUsageError
	}
	if c.sign < 0 {
		amount = "-" + amount
	}

	now := c.app.Now()
	date, clock := c.date, c.clock
	if date == "" {
		date = core.DateOf(now).String()
	}
	if clock == "" {
		clock = now.Format(core.TimeFormat)
	}
	t, err := core.NewTransaction(amount, date, clock, c.description, c.vendor)
	if err != nil {
		c.app.errorf("Error: %v", err)
		return subcommands.ExitUsageError
	}
	t = t.WithCategory(c.category)

	return c.app.withLedger(ctx, func(l *ledger.Ledger) subcommands.ExitStatus {
		added, err := l.Add(ctx, t)
		status := c.app.settle(ctx, l, err)
		if status == subcommands.ExitSuccess {
			fmt.Fprintf(c.app.Out, "Added %s, balance %s\n", added, l.Balance().Format())
		}
		return status
	})
}

// --- Update Command ---

type updateCmd struct {
	app         *App
	id          int64
	amount      string
	date        string
	clock       string
	description string
	vendor      string
	category    string
}

func (*updateCmd) Name() string     { return "update" }
func (*updateCmd) Synopsis() string { return "change fields of a recorded transaction" }
func (*updateCmd) Usage() string {
	return `update -id <id> [-a <signed amount>] [-d <date>] [-t <time>] [-m <description>] [-v <vendor>] [-c <category>]

  Replaces the given fields of a transaction. Fields not given keep their
  value. The transaction keeps its id and position.
`
}

func (c *updateCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "Transaction id")
	f.StringVar(&c.amount, "a", "", "Signed decimal amount (e.g. -42.50)")
	f.StringVar(&c.date, "d", "", "Transaction date (YYYY-MM-DD)")
	f.StringVar(&c.clock, "t", "", "Transaction time (HH:MM:SS)")
	f.StringVar(&c.description, "m", "", "Description")
	f.StringVar(&c.vendor, "v", "", "Vendor or payer")
	f.StringVar(&c.category, "c", "", "Category")
}

func (c *updateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id <= 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	set := map[string]bool{}
	f.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	return c.app.withLedger(ctx, func(l *ledger.Ledger) subcommands.ExitStatus {
		current, err := l.Get(c.id)
		if err != nil {
			c.app.errorf("Error: %v", err)
			return subcommands.ExitFailure
		}
		// same order as core.Fields
		overrides := []struct{ flag, value string }{
			{"a", c.amount}, {"d", c.date}, {"t", c.clock}, {"m", c.description}, {"v", c.vendor},
		}
		fields := core.Fields(current)
		for i, o := range overrides {
			if set[o.flag] {
				fields[i] = o.value
			}
		}
		next, err := core.NewTransaction(fields[0], fields[1], fields[2], fields[3], fields[4])
		if err != nil {
			c.app.errorf("Error: %v", err)
			return subcommands.ExitUsageError
		}
		next = next.WithCategory(current.Category)
		if set["c"] {
			next = next.WithCategory(c.category)
		}

		updated, err := l.Update(ctx, c.id, next)
		status := c.app.settle(ctx, l, err)
		if status == subcommands.ExitSuccess {
			fmt.Fprintf(c.app.Out, "Updated %s\n", updated)
		}
		return status
	})
}

// --- Delete Command ---

type deleteCmd struct {
	app *App
	id  int64
}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "remove a transaction" }
func (*deleteCmd) Usage() string {
	return `delete -id <id>

  Removes the transaction with the given id.
`
}

func (c *deleteCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "Transaction id")
}

func (c *deleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id <= 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	return c.app.withLedger(ctx, func(l *ledger.Ledger) subcommands.ExitStatus {
		removed, err := l.Remove(ctx, c.id)
		if err == nil && !removed {
			c.app.errorf("Error: transaction #%d not found", c.id)
			return subcommands.ExitFailure
		}
		status := c.app.settle(ctx, l, err)
		if status == subcommands.ExitSuccess {
			fmt.Fprintf(c.app.Out, "Deleted #%d, balance %s\n", c.id, l.Balance().Format())
		}
		return status
	})
}

// --- Categorize Command ---

type categorizeCmd struct {
	app      *App
	id       int64
	category string
}

func (*categorizeCmd) Name() string     { return "categorize" }
func (*categorizeCmd) Synopsis() string { return "tag a transaction with a category" }
func (*categorizeCmd) Usage() string {
	return `categorize -id <id> -c <category>

  Sets the category of a transaction. An empty category clears it.
`
}

func (c *categorizeCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "Transaction id")
	f.StringVar(&c.category, "c", "", "Category, empty to clear")
}

func (c *categorizeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id <= 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	return c.app.withLedger(ctx, func(l *ledger.Ledger) subcommands.ExitStatus {
		t, err := l.SetCategory(ctx, c.id, c.category)
		status := c.app.settle(ctx, l, err)
		if status == subcommands.ExitSuccess {
			fmt.Fprintf(c.app.Out, "Categorized #%d as %q\n", t.ID, t.Category)
		}
		return status
	})
}

// --- Import Command ---

type importCmd struct {
	app       *App
	fromSheet bool
}

func (*importCmd) Name() string { return "import" }
func (*importCmd) Synopsis() string {
	return "add transactions from interchange files or the ledger sheet"
}
func (*importCmd) Usage() string {
	return `import <file>... | import -sheet

  Adds every "amount,date,time,description,vendor" line of the given files,
  or every row of the exported ledger sheet. Blank lines and lines starting
  with '#' are skipped. Transactions already in the ledger with the same
  fields are not added twice. Nothing is added when any line is malformed.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.fromSheet, "sheet", false, "Import from the Google Sheets ledger instead of files")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.fromSheet == (f.NArg() > 0) {
		f.Usage()
		return subcommands.ExitUsageError
	}

	var (
		incoming []core.Transaction
		err      error
	)
	if c.fromSheet {
		incoming, err = c.readSheet(ctx)
	} else {
		incoming, err = readInterchangeFiles(f.Args())
	}
	if err != nil {
		c.app.errorf("Error: %v", err)
		return subcommands.ExitFailure
	}

	return c.app.withLedger(ctx, func(l *ledger.Ledger) subcommands.ExitStatus {
		added, skipped := 0, 0
		var firstErr error
		for _, t := range incoming {
			if existing, ok := l.FindByDateTime(t.Date, t.Time); ok && existing.SameFields(t) {
				skipped++
				continue
			}
			// identities come from this ledger
			if _, err := l.Add(ctx, t.WithID(0)); err != nil && firstErr == nil {
				firstErr = err
			}
			added++
		}
		status := c.app.settle(ctx, l, firstErr)
		if status == subcommands.ExitSuccess {
			applog.FromContext(ctx).InfoContext(ctx, "Imported transactions",
				applog.FieldOperation, applog.OpImport,
				applog.FieldCount, added,
				"skipped", skipped)
			fmt.Fprintf(c.app.Out, "Imported %d transactions, skipped %d duplicates, balance %s\n",
				added, skipped, l.Balance().Format())
		}
		return status
	})
}

func (c *importCmd) readSheet(ctx context.Context) ([]core.Transaction, error) {
	sheet, err := c.app.Sheet(ctx)
	if err != nil {
		return nil, err
	}
	return sheet.ListTransactions(ctx)
}

// maxParallelReads bounds the files parsed at once.
const maxParallelReads = 4

// readInterchangeFiles parses every file before anything is added. Files are
// read concurrently; the result keeps argument order.
func readInterchangeFiles(paths []string) ([]core.Transaction, error) {
	parsed := make([][]core.Transaction, len(paths))
	var g errgroup.Group
	g.SetLimit(maxParallelReads)
	for i, path := range paths {
		g.Go(func() error {
			txs, err := readInterchangeFile(path)
			if err != nil {
				return err
			}
			parsed[i] = txs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []core.Transaction
	for _, txs := range parsed {
		out = append(out, txs...)
	}
	return out, nil
}

func readInterchangeFile(path string) ([]core.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []core.Transaction
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		t, err := core.ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, lineNo, err)
		}
		out = append(out, t)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}
