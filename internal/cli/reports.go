package cli

import (
	"context"
	"flag"
	"fmt"
	"slices"

	"github.com/google/subcommands"

	"ledger/internal/core"
	"ledger/internal/ledger"
	applog "ledger/internal/log"
)

// --- List Command ---

type listCmd struct {
	app       *App
	period    string
	from      string
	to        string
	vendor    string
	category  string
	minAmount string
	maxAmount string
	sortBy    string
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list transactions with optional filters" }
func (*listCmd) Usage() string {
	return `list [-p <period> | -from <date> -to <date>] [-vendor <name>] [-category <tag>] [-min <amount>] [-max <amount>] [-sort id|date|amount]

  Lists transactions matching every given filter. Date bounds and amount
  bounds are inclusive. The footer shows the balance of the listed rows.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.period, "p", "", "Reporting period (mtd, pm, ytd, py)")
	f.StringVar(&c.from, "from", "", "First day (YYYY-MM-DD), requires -to")
	f.StringVar(&c.to, "to", "", "Last day (YYYY-MM-DD), requires -from")
	f.StringVar(&c.vendor, "vendor", "", "Vendor, case-insensitive")
	f.StringVar(&c.category, "category", "", "Category, case-insensitive")
	f.StringVar(&c.minAmount, "min", "", "Lowest signed amount")
	f.StringVar(&c.maxAmount, "max", "", "Highest signed amount")
	f.StringVar(&c.sortBy, "sort", "id", "Order of the rows: id (entry order), date or amount")
}

func (c *listCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.period != "" && (c.from != "" || c.to != "") {
		c.app.errorf("Error: -p cannot be combined with -from/-to")
		return subcommands.ExitUsageError
	}
	if (c.from == "") != (c.to == "") {
		c.app.errorf("Error: -from and -to must be given together")
		return subcommands.ExitUsageError
	}
	if !slices.Contains([]string{"id", "date", "amount"}, c.sortBy) {
		c.app.errorf("Error: unknown sort order %q", c.sortBy)
		return subcommands.ExitUsageError
	}

	return c.app.withLedger(ctx, func(l *ledger.Ledger) subcommands.ExitStatus {
		rows, err := c.query(l)
		if err != nil {
			c.app.errorf("Error: %v", err)
			return subcommands.ExitUsageError
		}
		switch c.sortBy {
		case "date":
			rows = core.SortChronological(rows)
		case "amount":
			slices.SortStableFunc(rows, func(a, b core.Transaction) int { return a.Amount.Cmp(b.Amount) })
		}
		renderTransactions(c.app.Out, rows)
		return subcommands.ExitSuccess
	})
}

// query narrows the working set by each filter in turn, keeping working-set
// order.
func (c *listCmd) query(l *ledger.Ledger) ([]core.Transaction, error) {
	rows := l.All()

	if c.period != "" {
		p, err := core.ParsePeriod(c.period)
		if err != nil {
			return nil, err
		}
		rows = intersect(rows, l.ByPeriod(p, c.app.today()))
	}
	if c.from != "" {
		within, err := l.ByDateRangeText(c.from, c.to)
		if err != nil {
			return nil, err
		}
		rows = intersect(rows, within)
	}
	if c.vendor != "" {
		rows = intersect(rows, l.ByVendor(c.vendor))
	}
	if c.category != "" {
		rows = intersect(rows, l.ByCategory(c.category))
	}
	if c.minAmount != "" || c.maxAmount != "" {
		lo, hi, err := amountBounds(c.minAmount, c.maxAmount, l)
		if err != nil {
			return nil, err
		}
		within, err := l.ByAmountRange(lo, hi)
		if err != nil {
			return nil, err
		}
		rows = intersect(rows, within)
	}
	return rows, nil
}

// amountBounds fills an open bound with the ledger's extreme amount.
func amountBounds(loText, hiText string, l *ledger.Ledger) (core.Money, core.Money, error) {
	parse := func(s string, fallback func() (core.Transaction, bool)) (core.Money, error) {
		if s != "" {
			m, err := core.ParseMoney(s)
			if err != nil {
				return core.Money{}, &core.InvalidInputError{Field: core.FieldAmount, Reason: fmt.Sprintf("%q is not a signed decimal amount", s)}
			}
			return m, nil
		}
		t, _ := fallback()
		return t.Amount, nil
	}
	lo, err := parse(loText, l.Lowest)
	if err != nil {
		return lo, lo, err
	}
	hi, err := parse(hiText, l.Highest)
	return lo, hi, err
}

func intersect(rows, keep []core.Transaction) []core.Transaction {
	ids := make(map[int64]struct{}, len(keep))
	for _, t := range keep {
		ids[t.ID] = struct{}{}
	}
	return slices.DeleteFunc(rows, func(t core.Transaction) bool {
		_, ok := ids[t.ID]
		return !ok
	})
}

// --- Report Command ---

type reportCmd struct {
	app    *App
	period string
	today  string
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "summarize a reporting period" }
func (*reportCmd) Usage() string {
	return `report [-p <period>] [-today <date>]

  Shows the transactions of a period in chronological order, the deposit
  and payment totals and the amounts per category. Periods are
  month-to-date (mtd), previous-month (pm), year-to-date (ytd) and
  previous-year (py), relative to today.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.period, "p", "mtd", "Reporting period (mtd, pm, ytd, py)")
	f.StringVar(&c.today, "today", "", "Reference day (YYYY-MM-DD), defaults to today")
}

func (c *reportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	p, err := core.ParsePeriod(c.period)
	if err != nil {
		c.app.errorf("Error: %v", err)
		return subcommands.ExitUsageError
	}
	today := c.app.today()
	if c.today != "" {
		if today, err = core.ParseDate(c.today); err != nil {
			c.app.errorf("Error: %v", err)
			return subcommands.ExitUsageError
		}
	}

	return c.app.withLedger(ctx, func(l *ledger.Ledger) subcommands.ExitStatus {
		r := l.Report(p, today)
		applog.FromContext(ctx).DebugContext(ctx, "Built period report", applog.NewFields().
			WithOperation(applog.OpReport).
			WithRange(r.Range.From.String(), r.Range.To.String()).
			ToSlice()...)
		fmt.Fprintf(c.app.Out, "%s (%s)\n", r.Period, r.Range)
		renderTransactions(c.app.Out, r.Transactions)
		renderSummary(c.app.Out, r.Summary)
		if len(r.ByCategory) > 0 {
			renderCategories(c.app.Out, r.ByCategory)
		}
		return subcommands.ExitSuccess
	})
}

// --- Stats Command ---

type statsCmd struct {
	app *App
}

func (*statsCmd) Name() string     { return "stats" }
func (*statsCmd) Synopsis() string { return "show ledger totals and extremes" }
func (*statsCmd) Usage() string {
	return `stats

  Shows the balance, the deposit and payment totals, the largest and
  smallest amounts and the average amount.
`
}

func (*statsCmd) SetFlags(*flag.FlagSet) {}

func (c *statsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.withLedger(ctx, func(l *ledger.Ledger) subcommands.ExitStatus {
		avg, err := l.Average()
		if err != nil {
			fmt.Fprintln(c.app.Out, "The ledger is empty.")
			return subcommands.ExitSuccess
		}
		renderSummary(c.app.Out, l.Summary())

		hi, _ := l.Highest()
		lo, _ := l.Lowest()
		table := newTable(c.app.Out, []string{"", "Amount", "Transaction"})
		table.Append([]string{"Highest", hi.Amount.Format(), hi.String()})
		table.Append([]string{"Lowest", lo.Amount.Format(), lo.String()})
		table.Append([]string{"Average", avg.Format(), ""})
		table.Render()
		return subcommands.ExitSuccess
	})
}
