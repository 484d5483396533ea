package ledger

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"ledger/internal/core"
)

// Every query copies the matching transactions under the read lock. Returned
// slices are in working-set order and never alias ledger state.

func (l *Ledger) filter(keep func(core.Transaction) bool) []core.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]core.Transaction, 0)
	for _, t := range l.items {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// All returns every transaction in working-set order.
func (l *Ledger) All() []core.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]core.Transaction, len(l.items))
	copy(out, l.items)
	return out
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Get returns the transaction with the given id or core.ErrNotFound.
func (l *Ledger) Get(id int64) (core.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i := l.indexOf(id); i >= 0 {
		return l.items[i], nil
	}
	return core.Transaction{}, fmt.Errorf("get %d: %w", id, core.ErrNotFound)
}

// Balance is the exact signed sum of all amounts.
func (l *Ledger) Balance() core.Money {
	l.mu.RLock()
	defer l.mu.RUnlock()
	total := core.Zero
	for _, t := range l.items {
		total = total.Add(t.Amount)
	}
	return total
}

// Deposits returns the transactions with a strictly positive amount.
func (l *Ledger) Deposits() []core.Transaction {
	return l.filter(core.Transaction.IsDeposit)
}

// Payments returns the transactions with a strictly negative amount.
func (l *Ledger) Payments() []core.Transaction {
	return l.filter(core.Transaction.IsPayment)
}

// ByVendor matches vendor names exactly, ignoring case.
func (l *Ledger) ByVendor(name string) []core.Transaction {
	return l.filter(func(t core.Transaction) bool { return strings.EqualFold(t.Vendor, name) })
}

// ByCategory matches category tags exactly, ignoring case. An empty tag
// selects uncategorized transactions.
func (l *Ledger) ByCategory(tag string) []core.Transaction {
	tag = strings.TrimSpace(tag)
	return l.filter(func(t core.Transaction) bool { return strings.EqualFold(t.Category, tag) })
}

// ByDateRange returns the transactions dated within [start, end].
func (l *Ledger) ByDateRange(start, end core.Date) ([]core.Transaction, error) {
	r, err := core.NewDateRange(start, end)
	if err != nil {
		return nil, err
	}
	return l.filter(func(t core.Transaction) bool { return r.Contains(t.Date) }), nil
}

// ByDateRangeText is ByDateRange for YYYY-MM-DD input.
func (l *Ledger) ByDateRangeText(start, end string) ([]core.Transaction, error) {
	from, err := core.ParseDate(start)
	if err != nil {
		return nil, err
	}
	to, err := core.ParseDate(end)
	if err != nil {
		return nil, err
	}
	return l.ByDateRange(from, to)
}

// OnDate returns the transactions of a single day.
func (l *Ledger) OnDate(d core.Date) []core.Transaction {
	out, _ := l.ByDateRange(d, d)
	return out
}

// ByAmount returns the transactions whose amount equals m numerically.
func (l *Ledger) ByAmount(m core.Money) []core.Transaction {
	return l.filter(func(t core.Transaction) bool { return t.Amount.Equal(m) })
}

// ByAmountRange returns the transactions with lo <= amount <= hi.
func (l *Ledger) ByAmountRange(lo, hi core.Money) ([]core.Transaction, error) {
	if lo.GreaterThan(hi) {
		return nil, &core.InvalidInputError{
			Field:  core.FieldRange,
			Reason: fmt.Sprintf("minimum %s is above maximum %s", lo, hi),
		}
	}
	return l.filter(func(t core.Transaction) bool {
		return t.Amount.GreaterThanOrEqual(lo) && t.Amount.LessThanOrEqual(hi)
	}), nil
}

// FindByDateTime returns the transaction recorded at date d and time c. When
// several match, the one with the lowest id wins.
func (l *Ledger) FindByDateTime(d core.Date, c core.Clock) (core.Transaction, bool) {
	matches := l.filter(func(t core.Transaction) bool { return t.Date.Equal(d) && t.Time.Equal(c) })
	if len(matches) == 0 {
		return core.Transaction{}, false
	}
	return slices.MinFunc(matches, func(a, b core.Transaction) int { return cmp.Compare(a.ID, b.ID) }), true
}

// MonthToDate covers the first of today's month through today.
func (l *Ledger) MonthToDate(today core.Date) []core.Transaction {
	return l.ByPeriod(core.MonthToDate, today)
}

// PreviousMonth covers the whole calendar month before today's.
func (l *Ledger) PreviousMonth(today core.Date) []core.Transaction {
	return l.ByPeriod(core.PreviousMonth, today)
}

// YearToDate covers January 1st of today's year through today.
func (l *Ledger) YearToDate(today core.Date) []core.Transaction {
	return l.ByPeriod(core.YearToDate, today)
}

// PreviousYear covers the whole calendar year before today's.
func (l *Ledger) PreviousYear(today core.Date) []core.Transaction {
	return l.ByPeriod(core.PreviousYear, today)
}

func (l *Ledger) ByPeriod(p core.Period, today core.Date) []core.Transaction {
	r := p.Range(today)
	out, _ := l.ByDateRange(r.From, r.To) // period ranges are never inverted
	return out
}
