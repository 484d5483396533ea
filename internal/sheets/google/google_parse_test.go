package google

import (
	"errors"
	"testing"

	"ledger/internal/core"
)

func TestToRows(t *testing.T) {
	a, _ := core.NewTransaction("1000.005", "2024-03-01", "09:00:00", "Salary", "ACME")
	b, _ := core.NewTransaction("-42.50", "2024-03-02", "12:30:00", "Lunch, team", "Deli")
	txs := []core.Transaction{a.WithID(1), b.WithID(2).WithCategory("food")}

	rows := toRows(txs, core.MustParseMoney("957.505"))
	if len(rows) != 4 {
		t.Fatalf("expected header, 2 rows and footer, got %d rows", len(rows))
	}
	if rows[0][0] != "ID" || rows[0][6] != "Category" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[1][3] != "1000.005" || rows[2][4] != "Lunch, team" || rows[2][6] != "food" {
		t.Fatalf("unexpected rows: %v %v", rows[1], rows[2])
	}
	if rows[3][0] != footerLabel || rows[3][3] != "957.505" {
		t.Fatalf("unexpected footer: %v", rows[3])
	}
}

func TestParseRowsRoundTrip(t *testing.T) {
	a, _ := core.NewTransaction("-0.10", "2024-02-29", "23:59:59", "Fee", "Bank")
	txs := []core.Transaction{a.WithID(9).WithCategory("fees")}

	got, err := parseRows(toRows(txs, a.Amount))
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if len(got) != 1 || got[0].ID != 9 || !got[0].SameFields(txs[0]) {
		t.Fatalf("round trip mismatch: %v", got)
	}
}

func TestParseRows(t *testing.T) {
	t.Run("empty sheet", func(t *testing.T) {
		got, err := parseRows(nil)
		if err != nil || len(got) != 0 {
			t.Fatalf("got %v, %v", got, err)
		}
	})

	t.Run("columns in any order and blank rows", func(t *testing.T) {
		values := [][]any{
			{"Vendor", "Amount", "Date", "Time", "ID", "Description", "Category"},
			{"Deli", "-3.5", "2024-01-02", "12:00:00", "4", "Lunch"},
			{},
			{"", "", "", "", "", ""},
			{"ACME", "100", "2024-01-01", "08:00:00", "2", "Pay", "income"},
			{"", "96.5", "", "", "balance"},
			{"ignored", "x", "x", "x", "99", "after footer"},
		}
		got, err := parseRows(values)
		if err != nil {
			t.Fatalf("parse err: %v", err)
		}
		if len(got) != 2 || got[0].ID != 4 || got[0].Category != "" || got[1].Category != "income" {
			t.Fatalf("unexpected transactions: %+v", got)
		}
	})

	t.Run("missing header", func(t *testing.T) {
		_, err := parseRows([][]any{{"ID", "Date", "Amount"}})
		if !errors.Is(err, core.ErrInvalidFormat) {
			t.Fatalf("expected ErrInvalidFormat, got %v", err)
		}
	})

	t.Run("invalid amount", func(t *testing.T) {
		values := [][]any{
			{"ID", "Date", "Time", "Amount", "Description", "Vendor", "Category"},
			{"1", "2024-01-01", "08:00:00", "1,000.00", "", "", ""},
		}
		if _, err := parseRows(values); !errors.Is(err, core.ErrInvalidFormat) {
			t.Fatalf("expected ErrInvalidFormat, got %v", err)
		}
	})
}
