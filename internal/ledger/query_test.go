package ledger

import (
	"context"
	"errors"
	"testing"

	"ledger/internal/core"
	"ledger/internal/recordlog/memory"
)

func seeded(t *testing.T, rows ...[5]string) *Ledger {
	t.Helper()
	l := openLedger(t, memory.New())
	for _, r := range rows {
		if _, err := l.Add(context.Background(), tx(t, r[0], r[1], r[2], r[3], r[4])); err != nil {
			t.Fatal(err)
		}
	}
	return l
}

func ids(txs []core.Transaction) []int64 {
	out := make([]int64, len(txs))
	for i, t := range txs {
		out[i] = t.ID
	}
	return out
}

func sameIDs(got []core.Transaction, want ...int64) bool {
	g := ids(got)
	if len(g) != len(want) {
		return false
	}
	for i := range g {
		if g[i] != want[i] {
			return false
		}
	}
	return true
}

func TestBalanceIsDepositsPlusPayments(t *testing.T) {
	l := seeded(t,
		[5]string{"1000.00", "2024-03-01", "09:00:00", "Salary", "ACME"},
		[5]string{"-42.125", "2024-03-02", "12:00:00", "Lunch", "Deli"},
		[5]string{"0", "2024-03-03", "12:00:00", "Zero", "Nobody"},
		[5]string{"-0.005", "2024-03-04", "12:00:00", "Fee", "Bank"},
		[5]string{"0.1", "2024-03-05", "12:00:00", "Refund", "Deli"},
	)
	sum := func(txs []core.Transaction) core.Money {
		total := core.Zero
		for _, t := range txs {
			total = total.Add(t.Amount)
		}
		return total
	}

	deposits, payments := l.Deposits(), l.Payments()
	if !sameIDs(deposits, 1, 5) || !sameIDs(payments, 2, 4) {
		t.Fatalf("deposits %v payments %v", ids(deposits), ids(payments))
	}
	if got, want := l.Balance(), sum(deposits).Add(sum(payments)); !got.Equal(want) {
		t.Fatalf("balance %s != deposits+payments %s", got, want)
	}
	if got := l.Balance().String(); got != "957.970" {
		t.Fatalf("balance = %s, want 957.970", got)
	}
}

func TestQueriesReturnSnapshots(t *testing.T) {
	l := seeded(t, [5]string{"1", "2024-01-01", "09:00:00", "", "v"})
	snap := l.All()
	snap[0].Vendor = "mutated"
	l.Add(context.Background(), tx(t, "2", "2024-01-02", "09:00:00", "", "v"))

	if len(snap) != 1 {
		t.Fatalf("snapshot grew with later mutation")
	}
	if got, _ := l.Get(1); got.Vendor != "v" {
		t.Fatalf("caller mutation leaked into the ledger")
	}
	if empty := seeded(t).ByVendor("x"); empty == nil || len(empty) != 0 {
		t.Fatalf("empty query should return an empty, non-nil slice")
	}
}

func TestByVendorIgnoresCase(t *testing.T) {
	l := seeded(t,
		[5]string{"1", "2024-01-01", "09:00:00", "", "Starbucks"},
		[5]string{"2", "2024-01-01", "10:00:00", "", "STARBUCKS"},
		[5]string{"3", "2024-01-01", "11:00:00", "", "Starbucks Reserve"},
		[5]string{"4", "2024-01-01", "12:00:00", "", "Straße"},
	)
	if got := l.ByVendor("starbucks"); !sameIDs(got, 1, 2) {
		t.Fatalf("ByVendor = %v", ids(got))
	}
	if got := l.ByVendor("STRASSE"); len(got) != 0 {
		t.Fatalf("EqualFold does not expand ß, got %v", ids(got))
	}
	if got := l.ByVendor("straße"); !sameIDs(got, 4) {
		t.Fatalf("ByVendor unicode = %v", ids(got))
	}
}

func TestByDateRangeIsInclusive(t *testing.T) {
	l := seeded(t,
		[5]string{"1", "2024-03-14", "23:59:59", "", ""},
		[5]string{"2", "2024-03-15", "00:00:00", "", ""},
		[5]string{"3", "2024-03-15", "23:59:59", "", ""},
		[5]string{"4", "2024-03-16", "00:00:00", "", ""},
	)
	day := core.MustParseDate("2024-03-15")

	got, err := l.ByDateRange(day, day)
	if err != nil || !sameIDs(got, 2, 3) {
		t.Fatalf("single day range = %v, %v", ids(got), err)
	}

	for _, tc := range []struct{ from, to string }{
		{"2024-03-14", "2024-03-16"},
		{"2024-03-15", "2024-03-16"},
		{"2024-01-01", "2024-03-14"},
	} {
		from, to := core.MustParseDate(tc.from), core.MustParseDate(tc.to)
		typed, err := l.ByDateRange(from, to)
		if err != nil {
			t.Fatal(err)
		}
		text, err := l.ByDateRangeText(tc.from, tc.to)
		if err != nil {
			t.Fatal(err)
		}
		if !sameIDs(text, ids(typed)...) {
			t.Fatalf("typed and text ranges disagree: %v vs %v", ids(typed), ids(text))
		}
		for _, x := range l.All() {
			in := !x.Date.Before(from) && !x.Date.After(to)
			found := false
			for _, y := range typed {
				found = found || y.ID == x.ID
			}
			if in != found {
				t.Fatalf("%s..%s: membership of %v is %v, want %v", tc.from, tc.to, x, found, in)
			}
		}
	}
}

func TestByDateRangeRejectsInvertedRange(t *testing.T) {
	l := seeded(t)
	_, err := l.ByDateRangeText("2024-03-16", "2024-03-15")
	var ie *core.InvalidInputError
	if !errors.As(err, &ie) || ie.Field != core.FieldRange {
		t.Fatalf("expected range error, got %v", err)
	}
	if _, err := l.ByDateRangeText("2024-02-30", "2024-03-15"); !core.IsInvalidInput(err) {
		t.Fatalf("expected date error, got %v", err)
	}
}

func TestByAmountRange(t *testing.T) {
	l := seeded(t,
		[5]string{"-10", "2024-01-01", "09:00:00", "", ""},
		[5]string{"-5.00", "2024-01-01", "09:00:00", "", ""},
		[5]string{"5", "2024-01-01", "09:00:00", "", ""},
		[5]string{"5.01", "2024-01-01", "09:00:00", "", ""},
	)
	got, err := l.ByAmountRange(core.MustParseMoney("-5"), core.MustParseMoney("5.00"))
	if err != nil || !sameIDs(got, 2, 3) {
		t.Fatalf("ByAmountRange = %v, %v", ids(got), err)
	}
	if _, err := l.ByAmountRange(core.MustParseMoney("1"), core.MustParseMoney("0.99")); !core.IsInvalidInput(err) {
		t.Fatalf("expected invalid range, got %v", err)
	}
	if got := l.ByAmount(core.MustParseMoney("-5")); !sameIDs(got, 2) {
		t.Fatalf("ByAmount = %v", ids(got))
	}
}

func TestPeriodQueries(t *testing.T) {
	l := seeded(t,
		[5]string{"1", "2022-12-31", "12:00:00", "", ""}, // 1
		[5]string{"1", "2023-01-01", "00:00:00", "", ""}, // 2
		[5]string{"1", "2023-12-01", "00:00:00", "", ""}, // 3
		[5]string{"1", "2023-12-31", "23:59:59", "", ""}, // 4
		[5]string{"1", "2024-01-01", "00:00:00", "", ""}, // 5
		[5]string{"1", "2024-01-20", "12:00:00", "", ""}, // 6
		[5]string{"1", "2024-02-29", "12:00:00", "", ""}, // 7
		[5]string{"1", "2024-03-01", "00:00:00", "", ""}, // 8
		[5]string{"1", "2024-03-15", "23:59:59", "", ""}, // 9
		[5]string{"1", "2024-03-16", "00:00:00", "", ""}, // 10
	)
	march15 := core.MustParseDate("2024-03-15")
	jan20 := core.MustParseDate("2024-01-20")

	testCases := []struct {
		name string
		got  []core.Transaction
		want []int64
	}{
		{"month to date", l.MonthToDate(march15), []int64{8, 9}},
		{"previous month with rollback", l.PreviousMonth(jan20), []int64{3, 4}},
		{"previous month leap february", l.PreviousMonth(march15), []int64{7}},
		{"year to date", l.YearToDate(march15), []int64{5, 6, 7, 8, 9}},
		{"previous year", l.PreviousYear(march15), []int64{2, 3, 4}},
		{"by period", l.ByPeriod(core.PreviousYear, jan20), []int64{2, 3, 4}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if !sameIDs(tc.got, tc.want...) {
				t.Errorf("got %v, want %v", ids(tc.got), tc.want)
			}
		})
	}
}

func TestFindByDateTimePrefersLowestID(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t, memory.New())
	l.Add(ctx, tx(t, "1", "2024-01-01", "09:00:00", "", "").WithID(7))
	l.Add(ctx, tx(t, "2", "2024-01-01", "09:00:00", "", "").WithID(3))
	l.Add(ctx, tx(t, "3", "2024-01-01", "10:00:00", "", "").WithID(1))

	got, ok := l.FindByDateTime(core.MustParseDate("2024-01-01"), core.MustParseClock("09:00:00"))
	if !ok || got.ID != 3 {
		t.Fatalf("FindByDateTime = %v, %v; want id 3", got, ok)
	}
	if _, ok := l.FindByDateTime(core.MustParseDate("2024-01-02"), core.MustParseClock("09:00:00")); ok {
		t.Fatalf("expected no match")
	}
	if got := l.OnDate(core.MustParseDate("2024-01-01")); len(got) != 3 {
		t.Fatalf("OnDate = %v", ids(got))
	}
}

func TestByCategory(t *testing.T) {
	ctx := context.Background()
	l := seeded(t,
		[5]string{"-1", "2024-01-01", "09:00:00", "", ""},
		[5]string{"-2", "2024-01-01", "09:00:00", "", ""},
		[5]string{"-3", "2024-01-01", "09:00:00", "", ""},
	)
	l.SetCategory(ctx, 1, "Food")
	l.SetCategory(ctx, 3, "food")
	if got := l.ByCategory("FOOD"); !sameIDs(got, 1, 3) {
		t.Fatalf("ByCategory = %v", ids(got))
	}
	if got := l.ByCategory(""); !sameIDs(got, 2) {
		t.Fatalf("uncategorized = %v", ids(got))
	}
}
