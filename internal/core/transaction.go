package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	// DateFormat is the ISO-8601 calendar date layout.
	DateFormat = "2006-01-02"
	// TimeFormat is the ISO-8601 time of day layout. Seconds are required.
	TimeFormat = "15:04:05"
)

type (
	// Date is a calendar day at midnight UTC.
	Date struct {
		time.Time
	}

	// Clock is a time of day with second precision.
	Clock struct {
		time.Time
	}

	// Transaction is a single ledger entry. It is a value: changes are made
	// by building a new Transaction and replacing the old one by ID.
	Transaction struct {
		ID          int64
		Amount      Money
		Date        Date
		Time        Clock
		Description string
		Vendor      string
		Category    string // empty means uncategorized
	}
)

// NewDate creates a new Date from year, month, day. Out of range values are
// normalized the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Date())
}

// ParseDate parses a strict YYYY-MM-DD date and rejects days that do not exist.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return Date{}, invalid(FieldDate, "%q is not a YYYY-MM-DD calendar date", s)
	}
	return Date{Time: t}, nil
}

// MustParseDate is like ParseDate but panics on error.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err.Error())
	}
	return d
}

func (d Date) String() string { return d.Format(DateFormat) }

// Before reports whether d is strictly before x.
func (d Date) Before(x Date) bool { return d.Time.Before(x.Time) }

// After reports whether d is strictly after x.
func (d Date) After(x Date) bool { return d.Time.After(x.Time) }

// Equal reports whether d and x are the same day.
func (d Date) Equal(x Date) bool { return d.Time.Equal(x.Time) }

// AddDays returns the date n days later (earlier when n is negative).
func (d Date) AddDays(n int) Date { return NewDate(d.Year(), d.Month(), d.Day()+n) }

// NewClock creates a time of day.
func NewClock(hour, min, sec int) Clock {
	return Clock{Time: time.Date(0, time.January, 1, hour, min, sec, 0, time.UTC)}
}

// ParseClock parses a strict 24-hour HH:MM:SS time of day.
func ParseClock(s string) (Clock, error) {
	// time.Parse accepts a single digit hour for "15"; ISO wants two.
	t, err := time.Parse(TimeFormat, s)
	if err != nil || len(s) != len(TimeFormat) {
		return Clock{}, invalid(FieldTime, "%q is not a HH:MM:SS time of day", s)
	}
	return Clock{Time: t}, nil
}

// MustParseClock is like ParseClock but panics on error.
func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err.Error())
	}
	return c
}

func (c Clock) String() string { return c.Format(TimeFormat) }

func (c Clock) Before(x Clock) bool { return c.Time.Before(x.Time) }
func (c Clock) Equal(x Clock) bool  { return c.Time.Equal(x.Time) }

// ValidateDate reports whether s is an ISO date naming a real calendar day.
func ValidateDate(s string) bool {
	_, err := ParseDate(s)
	return err == nil
}

// ValidateTime reports whether s is an ISO HH:MM:SS time of day.
func ValidateTime(s string) bool {
	_, err := ParseClock(s)
	return err == nil
}

// ValidateAmount reports whether s is a valid signed decimal literal.
func ValidateAmount(s string) bool {
	_, err := ParseMoney(s)
	return err == nil
}

// NewTransaction validates the textual fields and builds an unsaved
// transaction (ID 0). Fields are checked in the order date, amount, time and
// the first failure is returned as *InvalidInputError.
func NewTransaction(amount, date, clock, description, vendor string) (Transaction, error) {
	d, err := ParseDate(date)
	if err != nil {
		return Transaction{}, err
	}
	m, err := ParseMoney(amount)
	if err != nil {
		return Transaction{}, invalid(FieldAmount, "%q is not a signed decimal amount", amount)
	}
	c, err := ParseClock(clock)
	if err != nil {
		return Transaction{}, err
	}
	return Transaction{
		Amount:      m,
		Date:        d,
		Time:        c,
		Description: description,
		Vendor:      vendor,
	}, nil
}

// WithID returns a copy of t carrying the given identity.
func (t Transaction) WithID(id int64) Transaction {
	t.ID = id
	return t
}

// WithCategory returns a copy of t tagged with category.
func (t Transaction) WithCategory(category string) Transaction {
	t.Category = strings.TrimSpace(category)
	return t
}

// IsDeposit reports a strictly positive amount.
func (t Transaction) IsDeposit() bool { return t.Amount.IsPositive() }

// IsPayment reports a strictly negative amount.
func (t Transaction) IsPayment() bool { return t.Amount.IsNegative() }

// SameFields reports whether t and o carry the same values, ignoring identity.
func (t Transaction) SameFields(o Transaction) bool {
	return t.Amount.String() == o.Amount.String() &&
		t.Date.Equal(o.Date) &&
		t.Time.Equal(o.Time) &&
		t.Description == o.Description &&
		t.Vendor == o.Vendor &&
		t.Category == o.Category
}

func (t Transaction) String() string {
	return fmt.Sprintf("#%d %s %s %s %s %s", t.ID, t.Date, t.Time, t.Amount, t.Vendor, t.Description)
}

// Compare orders transactions by date then time of day, both ascending.
func Compare(a, b Transaction) int {
	if c := a.Date.Compare(b.Date.Time); c != 0 {
		return c
	}
	return a.Time.Compare(b.Time.Time)
}

// SortChronological returns a chronologically sorted copy of in. The sort is
// stable so transactions with equal date and time keep their relative order.
func SortChronological(in []Transaction) []Transaction {
	out := slices.Clone(in)
	slices.SortStableFunc(out, Compare)
	return out
}

// lineFields is the number of fields of an interchange line.
const lineFields = 5

// ParseLine decodes a comma separated line "amount,date,time,description,vendor".
// Standard CSV quoting is honoured so descriptions may contain commas.
func ParseLine(line string) (Transaction, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	fields, err := r.Read()
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: line %q: %v", ErrInvalidFormat, line, err)
	}
	if len(fields) != lineFields {
		return Transaction{}, fmt.Errorf("%w: line %q has %d fields, want %d", ErrInvalidFormat, line, len(fields), lineFields)
	}
	t, err := NewTransaction(fields[0], fields[1], fields[2], fields[3], fields[4])
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: line %q: %w", ErrInvalidFormat, line, err)
	}
	return t, nil
}

// FormatLine encodes t in the ParseLine format. ID and category are not part
// of the interchange line.
func FormatLine(t Transaction) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Fields(t)); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\r\n"), nil
}

// Fields returns the five textual fields of t in line order.
func Fields(t Transaction) []string {
	return []string{t.Amount.String(), t.Date.String(), t.Time.String(), t.Description, t.Vendor}
}

// IsInvalidInput reports whether err is, or wraps, an *InvalidInputError.
func IsInvalidInput(err error) bool {
	var ie *InvalidInputError
	return errors.As(err, &ie)
}
