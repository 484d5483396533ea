package ledger

import (
	"cmp"
	"slices"
	"strings"

	"ledger/internal/core"
)

// Summary aggregates a set of transactions.
type Summary struct {
	Count        int
	DepositCount int
	PaymentCount int
	Deposits     core.Money // sum of positive amounts
	Payments     core.Money // sum of negative amounts, so never positive
	Balance      core.Money
}

// CategoryAmount is the net amount of one category tag.
type CategoryAmount struct {
	Name   string
	Count  int
	Amount core.Money
}

// PeriodReport is a chronological listing of one reporting period.
type PeriodReport struct {
	Period       core.Period
	Range        core.DateRange
	Transactions []core.Transaction
	Summary      Summary
	ByCategory   []CategoryAmount
}

// Summarize aggregates txs.
func Summarize(txs []core.Transaction) Summary {
	s := Summary{Count: len(txs), Deposits: core.Zero, Payments: core.Zero, Balance: core.Zero}
	for _, t := range txs {
		switch {
		case t.IsDeposit():
			s.DepositCount++
			s.Deposits = s.Deposits.Add(t.Amount)
		case t.IsPayment():
			s.PaymentCount++
			s.Payments = s.Payments.Add(t.Amount)
		}
		s.Balance = s.Balance.Add(t.Amount)
	}
	return s
}

// Summary aggregates the whole ledger.
func (l *Ledger) Summary() Summary {
	return Summarize(l.All())
}

// Report builds the chronological report of period p as seen on today.
func (l *Ledger) Report(p core.Period, today core.Date) PeriodReport {
	txs := core.SortChronological(l.ByPeriod(p, today))
	return PeriodReport{
		Period:       p,
		Range:        p.Range(today),
		Transactions: txs,
		Summary:      Summarize(txs),
		ByCategory:   ByCategoryTotals(txs),
	}
}

// ByCategoryTotals groups txs by category tag, case-insensitively, sorted
// by name. Uncategorized transactions are grouped under the empty name and
// listed last.
func ByCategoryTotals(txs []core.Transaction) []CategoryAmount {
	index := make(map[string]int)
	var out []CategoryAmount
	for _, t := range txs {
		key := strings.ToLower(t.Category)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, CategoryAmount{Name: t.Category, Amount: core.Zero})
		}
		out[i].Count++
		out[i].Amount = out[i].Amount.Add(t.Amount)
	}
	slices.SortFunc(out, func(a, b CategoryAmount) int {
		if (a.Name == "") != (b.Name == "") {
			if a.Name == "" {
				return 1
			}
			return -1
		}
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out
}
