// Package csvfile is a record log kept in a single CSV file, one record per
// line: id,amount,date,time,description,vendor,category.
//
// Appends go to the end of the file and are fsynced. Updates and deletes
// rewrite the whole file into a temporary sibling and rename it over the
// original, so a crash leaves either the old or the new file.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"ledger/internal/core"
	"ledger/internal/recordlog"
)

const recordFields = 7

var _ recordlog.RecordLog = (*Log)(nil)

type Log struct {
	mu   sync.Mutex
	path string
}

// Open returns a log stored at path, creating its directory if needed.
// The file itself is created on first append.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}
	return &Log{path: path}, nil
}

// Path returns the file backing the log.
func (l *Log) Path() string { return l.path }

func (l *Log) Append(ctx context.Context, t core.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger file: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(encode(t)); err != nil {
		f.Close()
		return fmt.Errorf("write record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush record: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync ledger file: %w", err)
	}
	return f.Close()
}

func (l *Log) ReadAll(ctx context.Context) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readAll()
}

func (l *Log) Update(ctx context.Context, oldID int64, t core.Transaction) error {
	return l.rewrite(ctx, func(items []core.Transaction) ([]core.Transaction, error) {
		i := indexOf(items, oldID)
		if i < 0 {
			return nil, core.ErrNotFound
		}
		items[i] = t
		return items, nil
	})
}

func (l *Log) Delete(ctx context.Context, id int64) error {
	return l.rewrite(ctx, func(items []core.Transaction) ([]core.Transaction, error) {
		i := indexOf(items, id)
		if i < 0 {
			return nil, core.ErrNotFound
		}
		return slices.Delete(items, i, i+1), nil
	})
}

func (l *Log) readAll() ([]core.Transaction, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = recordFields
	var out []core.Transaction
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", core.ErrInvalidFormat, l.path, err)
		}
		t, err := decode(rec)
		if err != nil {
			line, _ := r.FieldPos(0)
			return nil, fmt.Errorf("%s line %d: %w", l.path, line, err)
		}
		out = append(out, t)
	}
}

func (l *Log) rewrite(ctx context.Context, edit func([]core.Transaction) ([]core.Transaction, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	items, err := l.readAll()
	if err != nil {
		return err
	}
	items, err = edit(items)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	w := csv.NewWriter(tmp)
	for _, t := range items {
		if err := w.Write(encode(t)); err != nil {
			tmp.Close()
			return fmt.Errorf("write record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush records: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("replace ledger file: %w", err)
	}
	return nil
}

func encode(t core.Transaction) []string {
	return append([]string{strconv.FormatInt(t.ID, 10)}, append(core.Fields(t), t.Category)...)
}

func decode(rec []string) (core.Transaction, error) {
	id, err := strconv.ParseInt(rec[0], 10, 64)
	if err != nil || id <= 0 {
		return core.Transaction{}, fmt.Errorf("%w: bad id %q", core.ErrInvalidFormat, rec[0])
	}
	t, err := core.NewTransaction(rec[1], rec[2], rec[3], rec[4], rec[5])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %w", core.ErrInvalidFormat, err)
	}
	return t.WithID(id).WithCategory(rec[6]), nil
}

func indexOf(items []core.Transaction, id int64) int {
	return slices.IndexFunc(items, func(t core.Transaction) bool { return t.ID == id })
}
