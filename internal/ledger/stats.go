package ledger

import (
	"slices"

	"ledger/internal/core"
)

// Highest returns the transaction with the largest amount. Ties go to the
// first one in working-set order.
func (l *Ledger) Highest() (core.Transaction, bool) {
	return l.extreme(func(candidate, best core.Money) bool { return candidate.GreaterThan(best) })
}

// Lowest returns the transaction with the smallest amount. Ties go to the
// first one in working-set order.
func (l *Ledger) Lowest() (core.Transaction, bool) {
	return l.extreme(func(candidate, best core.Money) bool { return candidate.LessThan(best) })
}

func (l *Ledger) extreme(better func(candidate, best core.Money) bool) (core.Transaction, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.items) == 0 {
		return core.Transaction{}, false
	}
	best := l.items[0]
	for _, t := range l.items[1:] {
		if better(t.Amount, best.Amount) {
			best = t
		}
	}
	return best, true
}

// Average is the mean amount rounded half-up to cents.
func (l *Ledger) Average() (core.Money, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.items) == 0 {
		return core.Zero, core.ErrEmptyLedger
	}
	total := core.Zero
	for _, t := range l.items {
		total = total.Add(t.Amount)
	}
	return core.Average(total, len(l.items)), nil
}

// SortedByAmount returns all transactions ordered by ascending amount.
// Equal amounts keep their working-set order.
func (l *Ledger) SortedByAmount() []core.Transaction {
	out := l.All()
	slices.SortStableFunc(out, func(a, b core.Transaction) int { return a.Amount.Cmp(b.Amount) })
	return out
}

// SortedChronologically returns all transactions ordered by date then time.
func (l *Ledger) SortedChronologically() []core.Transaction {
	return core.SortChronological(l.All())
}
