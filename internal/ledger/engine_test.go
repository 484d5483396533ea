package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"ledger/internal/core"
	"ledger/internal/recordlog"
	"ledger/internal/recordlog/csvfile"
	"ledger/internal/recordlog/memory"
)

var errDiskFull = errors.New("disk full")

// flakyLog fails the selected operations until healed.
type flakyLog struct {
	recordlog.RecordLog
	failAppend, failUpdate, failDelete bool
	calls                              int
}

func (f *flakyLog) Append(ctx context.Context, t core.Transaction) error {
	f.calls++
	if f.failAppend {
		return errDiskFull
	}
	return f.RecordLog.Append(ctx, t)
}

func (f *flakyLog) Update(ctx context.Context, oldID int64, t core.Transaction) error {
	f.calls++
	if f.failUpdate {
		return errDiskFull
	}
	return f.RecordLog.Update(ctx, oldID, t)
}

func (f *flakyLog) Delete(ctx context.Context, id int64) error {
	f.calls++
	if f.failDelete {
		return errDiskFull
	}
	return f.RecordLog.Delete(ctx, id)
}

func (f *flakyLog) heal() { f.failAppend, f.failUpdate, f.failDelete = false, false, false }

func tx(t *testing.T, amount, date, clock, desc, vendor string) core.Transaction {
	t.Helper()
	out, err := core.NewTransaction(amount, date, clock, desc, vendor)
	if err != nil {
		t.Fatalf("NewTransaction(%s, %s, %s): %v", amount, date, clock, err)
	}
	return out
}

func openLedger(t *testing.T, log recordlog.RecordLog) *Ledger {
	t.Helper()
	l, err := Open(context.Background(), log)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	return l
}

func TestOpenHydratesFromLog(t *testing.T) {
	store := memory.New(
		tx(t, "10", "2024-01-01", "09:00:00", "a", "x").WithID(3),
		tx(t, "-4", "2024-01-02", "09:00:00", "b", "y").WithID(8),
	)
	l := openLedger(t, store)
	if l.Len() != 2 {
		t.Fatalf("Len = %d, want 2", l.Len())
	}

	added, err := l.Add(context.Background(), tx(t, "1", "2024-01-03", "09:00:00", "c", "z"))
	if err != nil {
		t.Fatal(err)
	}
	if added.ID != 9 {
		t.Fatalf("new id = %d, want 9 (after the highest hydrated id)", added.ID)
	}
}

func TestOpenRejectsBadLogs(t *testing.T) {
	dup := memory.New(
		tx(t, "1", "2024-01-01", "09:00:00", "", "").WithID(1),
		tx(t, "2", "2024-01-01", "09:00:00", "", "").WithID(1),
	)
	if _, err := Open(context.Background(), dup); !errors.Is(err, core.ErrInvalidFormat) {
		t.Fatalf("duplicate ids: got %v, want ErrInvalidFormat", err)
	}

	noID := memory.New(tx(t, "1", "2024-01-01", "09:00:00", "", ""))
	if _, err := Open(context.Background(), noID); !errors.Is(err, core.ErrInvalidFormat) {
		t.Fatalf("missing id: got %v, want ErrInvalidFormat", err)
	}
}

func TestIndependentLedgersHaveIndependentIdentities(t *testing.T) {
	ctx := context.Background()
	a := openLedger(t, memory.New())
	b := openLedger(t, memory.New())
	ta, _ := a.Add(ctx, tx(t, "1", "2024-01-01", "09:00:00", "", ""))
	a.Add(ctx, tx(t, "1", "2024-01-01", "09:00:00", "", ""))
	tb, _ := b.Add(ctx, tx(t, "1", "2024-01-01", "09:00:00", "", ""))
	if ta.ID != 1 || tb.ID != 1 {
		t.Fatalf("each ledger should start at 1, got %d and %d", ta.ID, tb.ID)
	}
}

func TestAddRejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t, memory.New())
	first, _ := l.Add(ctx, tx(t, "1", "2024-01-01", "09:00:00", "", ""))
	_, err := l.Add(ctx, tx(t, "2", "2024-01-01", "09:00:00", "", "").WithID(first.ID))
	if !core.IsInvalidInput(err) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if l.Len() != 1 {
		t.Fatalf("ledger changed on rejected add")
	}
}

func TestRoundTripThroughLog(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	l := openLedger(t, store)
	orig := tx(t, "42.50", "2024-03-15", "09:30:00", "Coffee", "Starbucks")
	if _, err := l.Add(ctx, orig); err != nil {
		t.Fatal(err)
	}

	reopened := openLedger(t, store)
	all := reopened.All()
	if len(all) != 1 || !all[0].SameFields(orig) || all[0].Amount.String() != "42.50" {
		t.Fatalf("round trip mismatch: %v", all)
	}
}

func TestAddKeepsInMemoryChangeWhenLogFails(t *testing.T) {
	ctx := context.Background()
	log := &flakyLog{RecordLog: memory.New(), failAppend: true}
	l := openLedger(t, log)

	stored, err := l.Add(ctx, tx(t, "5", "2024-01-01", "09:00:00", "", ""))
	var pe *core.PersistenceError
	if !errors.As(err, &pe) || pe.Op != core.OpAppend || !errors.Is(err, errDiskFull) {
		t.Fatalf("expected append PersistenceError, got %v", err)
	}
	if stored.ID == 0 || l.Len() != 1 {
		t.Fatalf("in-memory add must stand, len=%d id=%d", l.Len(), stored.ID)
	}
	if !l.Dirty() || len(l.Divergences()) != 1 {
		t.Fatalf("divergence must be observable")
	}

	log.heal()
	n, err := l.Resync(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Resync = %d, %v", n, err)
	}
	if l.Dirty() {
		t.Fatalf("ledger should be clean after resync")
	}
	persisted, _ := log.ReadAll(ctx)
	if len(persisted) != 1 || persisted[0].ID != stored.ID {
		t.Fatalf("resync did not append: %v", persisted)
	}
}

// lateLog finishes appends after the caller stopped waiting.
type lateLog struct {
	recordlog.RecordLog
	delay  time.Duration
	landed chan struct{}
}

func (l *lateLog) Append(ctx context.Context, t core.Transaction) error {
	time.Sleep(l.delay)
	err := l.RecordLog.Append(context.WithoutCancel(ctx), t)
	l.landed <- struct{}{}
	return err
}

func TestResyncAfterTimedOutAppendThatLanded(t *testing.T) {
	tests := []struct {
		name string
		open func(t *testing.T) recordlog.RecordLog
	}{
		{"memory", func(t *testing.T) recordlog.RecordLog { return memory.New() }},
		{"csv file", func(t *testing.T) recordlog.RecordLog {
			log, err := csvfile.Open(filepath.Join(t.TempDir(), "ledger.csv"))
			if err != nil {
				t.Fatal(err)
			}
			return log
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			inner := tt.open(t)
			late := &lateLog{RecordLog: inner, delay: 50 * time.Millisecond, landed: make(chan struct{}, 1)}
			l := openLedger(t, recordlog.WithTimeout(late, 10*time.Millisecond))

			added, err := l.Add(ctx, tx(t, "-42.50", "2024-03-15", "09:30:00", "Coffee", "Starbucks"))
			var pe *core.PersistenceError
			if !errors.As(err, &pe) || !l.Dirty() {
				t.Fatalf("expected a timed-out append, got err=%v dirty=%v", err, l.Dirty())
			}
			<-late.landed

			n, err := l.Resync(ctx)
			if err != nil || n != 1 {
				t.Fatalf("Resync = %d, %v", n, err)
			}
			if l.Dirty() {
				t.Fatalf("ledger should be clean after resync")
			}

			persisted, err := inner.ReadAll(ctx)
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if len(persisted) != 1 || !persisted[0].SameFields(added) || persisted[0].ID != added.ID {
				t.Fatalf("log should hold the transaction once, got %v", persisted)
			}
			reopened := openLedger(t, inner)
			if reopened.Len() != 1 {
				t.Fatalf("reopened Len() = %d, want 1", reopened.Len())
			}
		})
	}
}

func TestResyncStopsAtFirstFailureAndKeepsOrder(t *testing.T) {
	ctx := context.Background()
	log := &flakyLog{RecordLog: memory.New()}
	l := openLedger(t, log)
	a, _ := l.Add(ctx, tx(t, "1", "2024-01-01", "09:00:00", "", ""))

	log.failUpdate, log.failDelete = true, true
	l.Update(ctx, a.ID, tx(t, "2", "2024-01-01", "09:00:00", "", ""))
	b, _ := l.Add(ctx, tx(t, "3", "2024-01-02", "09:00:00", "", ""))
	l.Remove(ctx, a.ID)

	// removing a supersedes its pending update
	d := l.Divergences()
	if len(d) != 1 || d[0].Op != core.OpDelete || d[0].ID != a.ID {
		t.Fatalf("pending = %+v, want a single delete of %d", d, a.ID)
	}

	n, err := l.Resync(ctx)
	if err == nil || n != 0 {
		t.Fatalf("resync against a failing log = %d, %v", n, err)
	}

	log.heal()
	if _, err := l.Resync(ctx); err != nil {
		t.Fatalf("resync after heal: %v", err)
	}
	persisted, _ := log.ReadAll(ctx)
	if len(persisted) != 1 || persisted[0].ID != b.ID {
		t.Fatalf("log should hold only b, got %v", persisted)
	}
}

func TestUpdateReplacesInPlace(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	l := openLedger(t, store)
	a, _ := l.Add(ctx, tx(t, "10", "2024-01-01", "09:00:00", "old", "v"))
	b, _ := l.Add(ctx, tx(t, "20", "2024-01-02", "09:00:00", "keep", "v"))
	before := l.Len()

	next := tx(t, "-15", "2024-01-05", "10:00:00", "new", "w")
	got, err := l.Update(ctx, a.ID, next)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != a.ID {
		t.Fatalf("update must keep identity: %d != %d", got.ID, a.ID)
	}

	all := l.All()
	if len(all) != before {
		t.Fatalf("size changed: %d -> %d", before, len(all))
	}
	if !all[0].SameFields(next) || all[1].ID != b.ID {
		t.Fatalf("update not in place: %v", all)
	}
	for _, x := range all {
		if x.SameFields(a) {
			t.Fatalf("old transaction still present")
		}
	}

	persisted, _ := store.ReadAll(ctx)
	if !persisted[0].SameFields(next) {
		t.Fatalf("log not updated: %v", persisted)
	}
}

func TestUpdateMissingLeavesLedgerUnchanged(t *testing.T) {
	ctx := context.Background()
	log := &flakyLog{RecordLog: memory.New()}
	l := openLedger(t, log)
	l.Add(ctx, tx(t, "10", "2024-01-01", "09:00:00", "", ""))
	calls := log.calls

	_, err := l.Update(ctx, 42, tx(t, "1", "2024-01-01", "09:00:00", "", ""))
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if log.calls != calls {
		t.Fatalf("log must not be touched")
	}
	if l.Balance().String() != "10" {
		t.Fatalf("ledger changed: balance %s", l.Balance())
	}
}

func TestUpdateOfRecordMissingFromLog(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	l := openLedger(t, store)
	a, _ := l.Add(ctx, tx(t, "10", "2024-01-01", "09:00:00", "", ""))
	store.Delete(ctx, a.ID) // the log loses the record behind the ledger's back

	_, err := l.Update(ctx, a.ID, tx(t, "11", "2024-01-01", "09:00:00", "", ""))
	if !errors.Is(err, ErrRecordMissing) {
		t.Fatalf("expected ErrRecordMissing, got %v", err)
	}
	if !l.Dirty() {
		t.Fatalf("missing record should be pending")
	}
	if _, err := l.Resync(ctx); err != nil {
		t.Fatal(err)
	}
	persisted, _ := store.ReadAll(ctx)
	if len(persisted) != 1 || persisted[0].Amount.String() != "11" {
		t.Fatalf("resync should append the updated record: %v", persisted)
	}
}

func TestUpdateFoldsIntoUnsavedAppend(t *testing.T) {
	ctx := context.Background()
	log := &flakyLog{RecordLog: memory.New(), failAppend: true}
	l := openLedger(t, log)
	a, _ := l.Add(ctx, tx(t, "10", "2024-01-01", "09:00:00", "", ""))
	log.heal()

	if _, err := l.Update(ctx, a.ID, tx(t, "12", "2024-01-01", "09:00:00", "", "")); err != nil {
		t.Fatalf("update of unsaved record: %v", err)
	}
	d := l.Divergences()
	if len(d) != 1 || d[0].Op != core.OpAppend || d[0].Transaction.Amount.String() != "12" {
		t.Fatalf("pending append should carry the update: %+v", d)
	}
	l.Resync(ctx)
	persisted, _ := log.ReadAll(ctx)
	if len(persisted) != 1 || persisted[0].Amount.String() != "12" {
		t.Fatalf("unexpected log: %v", persisted)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	log := &flakyLog{RecordLog: memory.New()}
	l := openLedger(t, log)
	a, _ := l.Add(ctx, tx(t, "10", "2024-01-01", "09:00:00", "", ""))
	l.Add(ctx, tx(t, "-3", "2024-01-01", "10:00:00", "", ""))

	t.Run("absent id is a no-op", func(t *testing.T) {
		calls, size, balance := log.calls, l.Len(), l.Balance()
		removed, err := l.Remove(ctx, 999)
		if removed || err != nil {
			t.Fatalf("Remove(999) = %v, %v", removed, err)
		}
		if log.calls != calls || l.Len() != size || !l.Balance().Equal(balance) {
			t.Fatalf("no-op remove changed state")
		}
	})

	t.Run("present id", func(t *testing.T) {
		removed, err := l.Remove(ctx, a.ID)
		if !removed || err != nil {
			t.Fatalf("Remove = %v, %v", removed, err)
		}
		if _, err := l.Get(a.ID); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("removed transaction still present")
		}
		persisted, _ := log.ReadAll(ctx)
		if len(persisted) != 1 {
			t.Fatalf("log delete not applied: %v", persisted)
		}
	})
}

func TestRemoveReportsRecordMissingFromLog(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	l := openLedger(t, store)
	a, _ := l.Add(ctx, tx(t, "10", "2024-01-01", "09:00:00", "", ""))
	store.Delete(ctx, a.ID)

	removed, err := l.Remove(ctx, a.ID)
	if !removed || !errors.Is(err, ErrRecordMissing) {
		t.Fatalf("Remove = %v, %v; want true, ErrRecordMissing", removed, err)
	}
	if errors.Is(err, core.ErrNotFound) {
		t.Fatalf("record missing must be distinct from not found")
	}
	if l.Dirty() {
		t.Fatalf("memory and log agree, nothing is pending")
	}
}

func TestRemoveLogFailureDiverges(t *testing.T) {
	ctx := context.Background()
	log := &flakyLog{RecordLog: memory.New()}
	l := openLedger(t, log)
	a, _ := l.Add(ctx, tx(t, "10", "2024-01-01", "09:00:00", "", ""))

	log.failDelete = true
	removed, err := l.Remove(ctx, a.ID)
	var pe *core.PersistenceError
	if !removed || !errors.As(err, &pe) || pe.Op != core.OpDelete {
		t.Fatalf("Remove = %v, %v", removed, err)
	}
	if l.Len() != 0 || !l.Dirty() {
		t.Fatalf("in-memory remove must stand and be pending")
	}
}

func TestRemoveOfUnsavedAppend(t *testing.T) {
	ctx := context.Background()
	log := &flakyLog{RecordLog: memory.New(), failAppend: true}
	l := openLedger(t, log)
	a, _ := l.Add(ctx, tx(t, "10", "2024-01-01", "09:00:00", "", ""))
	log.heal()

	removed, err := l.Remove(ctx, a.ID)
	if !removed || err != nil {
		t.Fatalf("Remove = %v, %v", removed, err)
	}
	if l.Dirty() {
		t.Fatalf("the unsaved append should be forgotten: %+v", l.Divergences())
	}
}

func TestSetCategory(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	l := openLedger(t, store)
	a, _ := l.Add(ctx, tx(t, "-10", "2024-01-01", "09:00:00", "Lunch", "Deli"))

	got, err := l.SetCategory(ctx, a.ID, "  food ")
	if err != nil {
		t.Fatal(err)
	}
	if got.Category != "food" || got.ID != a.ID || !got.Amount.Equal(a.Amount) {
		t.Fatalf("unexpected result: %+v", got)
	}
	persisted, _ := store.ReadAll(ctx)
	if persisted[0].Category != "food" {
		t.Fatalf("category not persisted")
	}
	if _, err := l.SetCategory(ctx, 77, "x"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
