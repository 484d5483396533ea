// Package storage is a record log backed by an embedded SQLite database.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/recordlog"

	_ "modernc.org/sqlite"
)

var _ recordlog.RecordLog = (*SQLiteRepository)(nil)

const (
	insertTransaction = `INSERT INTO transactions (id, amount, tx_date, tx_time, description, vendor, category)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	selectTransactions = `SELECT id, amount, tx_date, tx_time, description, vendor, category
FROM transactions ORDER BY seq`

	updateTransaction = `UPDATE transactions
SET id = ?, amount = ?, tx_date = ?, tx_time = ?, description = ?, vendor = ?, category = ?,
    updated_at = CURRENT_TIMESTAMP
WHERE id = ?`

	deleteTransaction = `DELETE FROM transactions WHERE id = ?`
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *applog.Logger
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// migrates it to the current schema.
func NewSQLiteRepository(dbPath string, logger *applog.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := migrateSchema(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentStorage)
	logger.Debug("Opened SQLite record log", "path", dbPath, "schema_version", version)
	return &SQLiteRepository{db: db, logger: logger}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Append(ctx context.Context, t core.Transaction) error {
	_, err := r.db.ExecContext(ctx, insertTransaction, row(t)...)
	if err != nil {
		return fmt.Errorf("insert transaction %d: %w", t.ID, err)
	}

	r.logger.DebugContext(ctx, "Transaction saved to SQLite",
		applog.FieldTxID, t.ID,
		applog.FieldAmount, t.Amount.String(),
		applog.FieldTxDate, t.Date.String())
	return nil
}

func (r *SQLiteRepository) ReadAll(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, selectTransactions)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			id                                            int64
			amount, date, clock, description, vendor, cat string
		)
		if err := rows.Scan(&id, &amount, &date, &clock, &description, &vendor, &cat); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t, err := core.NewTransaction(amount, date, clock, description, vendor)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", core.ErrInvalidFormat, id, err)
		}
		out = append(out, t.WithID(id).WithCategory(cat))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// Update replaces the row carrying oldID in place, so its log position is kept.
func (r *SQLiteRepository) Update(ctx context.Context, oldID int64, t core.Transaction) error {
	res, err := r.db.ExecContext(ctx, updateTransaction, append(row(t), oldID)...)
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", oldID, err)
	}
	return expectOne(res, oldID)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return expectOne(res, id)
}

// Count returns the number of stored rows.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func row(t core.Transaction) []any {
	return []any{t.ID, t.Amount.String(), t.Date.String(), t.Time.String(), t.Description, t.Vendor, t.Category}
}

func expectOne(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %d: %w", id, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
