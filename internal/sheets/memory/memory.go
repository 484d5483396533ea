// Package memory is an in-process stand-in for a ledger spreadsheet.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"ledger/internal/core"
	ports "ledger/internal/sheets"
)

var (
	_ ports.Exporter          = (*Sheet)(nil)
	_ ports.TransactionLister = (*Sheet)(nil)
	_ ports.Sheet             = (*Sheet)(nil)
)

type Sheet struct {
	mu      sync.Mutex
	items   []core.Transaction
	balance core.Money
	exports int
}

func New() *Sheet {
	return &Sheet{}
}

// Export replaces the sheet content and returns a synthetic range reference.
func (s *Sheet) Export(ctx context.Context, txs []core.Transaction, balance core.Money) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = slices.Clone(txs)
	s.balance = balance
	s.exports++
	// header, rows, footer
	return fmt.Sprintf("mem!A1:G%d", len(txs)+2), nil
}

func (s *Sheet) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items), nil
}

// Balance returns the footer of the last export.
func (s *Sheet) Balance() core.Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// Exports counts completed exports.
func (s *Sheet) Exports() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exports
}
