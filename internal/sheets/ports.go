package sheets

import (
	"context"

	"ledger/internal/core"
)

// Ports for spreadsheet adapters.
type (
	// Exporter replaces the content of a ledger sheet with txs followed by a
	// balance footer. It returns a reference to the written range.
	Exporter interface {
		Export(ctx context.Context, txs []core.Transaction, balance core.Money) (ref string, err error)
	}

	// TransactionLister reads back the transactions of a ledger sheet.
	TransactionLister interface {
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
	}

	// Sheet is a ledger spreadsheet that can be written and read back.
	Sheet interface {
		Exporter
		TransactionLister
	}
)
