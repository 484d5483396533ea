package core

import (
	"fmt"
	"strings"
	"time"
)

// DateRange is an inclusive range of calendar days.
type DateRange struct{ From, To Date }

// NewDateRange returns the inclusive range [from, to]. It fails when from is
// after to.
func NewDateRange(from, to Date) (DateRange, error) {
	if from.After(to) {
		return DateRange{}, invalid(FieldRange, "start %s is after end %s", from, to)
	}
	return DateRange{From: from, To: to}, nil
}

// Contains reports whether d is within the range, boundaries included.
func (r DateRange) Contains(d Date) bool { return !d.Before(r.From) && !d.After(r.To) }

func (r DateRange) String() string { return fmt.Sprintf("%s..%s", r.From, r.To) }

// Period is a named reporting period computed relative to a reference day.
type Period int

const (
	MonthToDate Period = iota
	PreviousMonth
	YearToDate
	PreviousYear
)

func (p Period) String() string {
	switch p {
	case MonthToDate:
		return "month-to-date"
	case PreviousMonth:
		return "previous-month"
	case YearToDate:
		return "year-to-date"
	case PreviousYear:
		return "previous-year"
	default:
		panic(fmt.Sprintf("unknown period %d", int(p)))
	}
}

// Periods lists every reporting period in menu order.
func Periods() []Period { return []Period{MonthToDate, PreviousMonth, YearToDate, PreviousYear} }

// ParsePeriod accepts the period names and their short forms.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "month-to-date", "mtd":
		return MonthToDate, nil
	case "previous-month", "prev-month", "pm":
		return PreviousMonth, nil
	case "year-to-date", "ytd":
		return YearToDate, nil
	case "previous-year", "prev-year", "py":
		return PreviousYear, nil
	default:
		return MonthToDate, fmt.Errorf("unknown period %q", s)
	}
}

// Range returns the calendar range of p relative to today.
func (p Period) Range(today Date) DateRange {
	y, m, _ := today.Date()
	switch p {
	case MonthToDate:
		return DateRange{From: FirstOfMonth(today), To: today}
	case PreviousMonth:
		// time.Date normalizes month 0 to December of the previous year.
		first := NewDate(y, m-1, 1)
		return DateRange{From: first, To: LastOfMonth(first)}
	case YearToDate:
		return DateRange{From: NewDate(y, time.January, 1), To: today}
	case PreviousYear:
		return DateRange{From: NewDate(y-1, time.January, 1), To: NewDate(y-1, time.December, 31)}
	default:
		panic(fmt.Sprintf("unknown period %d", int(p)))
	}
}

// FirstOfMonth returns the first day of d's month.
func FirstOfMonth(d Date) Date {
	y, m, _ := d.Date()
	return NewDate(y, m, 1)
}

// LastOfMonth returns the last day of d's month, leap years included.
func LastOfMonth(d Date) Date {
	y, m, _ := d.Date()
	// day 0 of the next month is the last day of this one.
	return NewDate(y, m+1, 0)
}
