// Package memory is an in-process record log. Nothing survives the process;
// it backs tests and the "memory" backend.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"ledger/internal/core"
	"ledger/internal/recordlog"
)

var _ recordlog.RecordLog = (*Store)(nil)

type Store struct {
	mu    sync.Mutex
	items []core.Transaction
}

func New(seed ...core.Transaction) *Store {
	return &Store{items: slices.Clone(seed)}
}

// NewFromFile seeds the store from an interchange file with one
// "amount,date,time,description,vendor" line per transaction. Blank lines and
// lines starting with '#' are skipped. Records get IDs 1..n in file order.
// A missing file yields an empty store.
func NewFromFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	var items []core.Transaction
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		t, err := core.ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("seed file %s line %d: %w", path, lineNo, err)
		}
		items = append(items, t.WithID(int64(len(items)+1)))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return New(items...), nil
}

// Append stores the transaction at the end of the log.
func (s *Store) Append(ctx context.Context, t core.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(t.ID) >= 0 {
		return fmt.Errorf("duplicate transaction id %d", t.ID)
	}
	s.items = append(s.items, t)
	return nil
}

// ReadAll returns a copy of every record in log order.
func (s *Store) ReadAll(ctx context.Context) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items), nil
}

// Update replaces the record in place, keeping its log position.
func (s *Store) Update(ctx context.Context, oldID int64, t core.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(oldID)
	if i < 0 {
		return core.ErrNotFound
	}
	s.items[i] = t
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.ErrNotFound
	}
	s.items = slices.Delete(s.items, i, i+1)
	return nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) indexOf(id int64) int {
	return slices.IndexFunc(s.items, func(t core.Transaction) bool { return t.ID == id })
}
