// Package core provides money parsing and handling utilities.
//
// This file contains the exact decimal Money type used for every amount in
// the ledger. Values are never converted to binary floating point; rounding
// only happens when an amount is rendered for display.
package core

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// displayFraction is the number of fraction digits used by Format.
const displayFraction = 2

// Money is a signed, arbitrary precision decimal amount.
// Positive values are deposits (credits), negative values are payments (debits).
type Money struct {
	value decimal.Decimal
	// negZero records a "-0" style literal, which decimal normalizes away.
	negZero bool
}

// Zero is the additive identity.
var Zero = Money{}

var displayFormatter = money.NewFormatter(displayFraction, ".", ",", "", "1")

// ParseMoney parses a signed decimal literal.
//
// The accepted grammar is an optional leading '-', one or more digits and an
// optional '.' followed by one or more digits. Anything else (empty input,
// '+', repeated signs or points, exponents, spaces, letters) fails with
// ErrInvalidFormat.
//
// Examples:
//
//	ParseMoney("42.50")  -> 42.50, nil
//	ParseMoney("-7")     -> -7, nil
//	ParseMoney("1.2.3")  -> error
//	ParseMoney("1e3")    -> error
func ParseMoney(s string) (Money, error) {
	if !isDecimalLiteral(s) {
		return Money{}, fmt.Errorf("%w: amount %q", ErrInvalidFormat, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: amount %q: %v", ErrInvalidFormat, s, err)
	}
	return Money{value: d, negZero: d.IsZero() && s[0] == '-'}, nil
}

// MustParseMoney is like ParseMoney but panics on error.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err.Error())
	}
	return m
}

// NewMoneyFromDecimal wraps an existing decimal value.
func NewMoneyFromDecimal(d decimal.Decimal) Money { return Money{value: d} }

func isDecimalLiteral(s string) bool {
	i := 0
	if i < len(s) && s[i] == '-' {
		i++
	}
	start := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == start {
		return false
	}
	if i == len(s) {
		return true
	}
	if s[i] != '.' {
		return false
	}
	i++
	start = i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i > start && i == len(s)
}

// Decimal returns the underlying decimal value.
func (m Money) Decimal() decimal.Decimal { return m.value }

func (m Money) Add(n Money) Money { return Money{value: m.value.Add(n.value)} }
func (m Money) Sub(n Money) Money { return Money{value: m.value.Sub(n.value)} }
func (m Money) Neg() Money        { return Money{value: m.value.Neg()} }

// Cmp returns -1, 0 or +1 when m is less than, equal to or greater than n.
// Scale is ignored: 1.5 and 1.50 compare equal.
func (m Money) Cmp(n Money) int                 { return m.value.Cmp(n.value) }
func (m Money) Equal(n Money) bool              { return m.value.Equal(n.value) }
func (m Money) LessThan(n Money) bool           { return m.value.LessThan(n.value) }
func (m Money) LessThanOrEqual(n Money) bool    { return m.value.LessThanOrEqual(n.value) }
func (m Money) GreaterThan(n Money) bool        { return m.value.GreaterThan(n.value) }
func (m Money) GreaterThanOrEqual(n Money) bool { return m.value.GreaterThanOrEqual(n.value) }
func (m Money) IsZero() bool                    { return m.value.IsZero() }
func (m Money) IsPositive() bool                { return m.value.IsPositive() }
func (m Money) IsNegative() bool                { return m.value.IsNegative() }

// Sum adds all amounts exactly.
func Sum(amounts ...Money) Money {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Average divides total by n and rounds half-up to two fraction digits.
func Average(total Money, n int) Money {
	if n <= 0 {
		panic("core: average of zero items")
	}
	return Money{value: total.value.DivRound(decimal.NewFromInt(int64(n)), displayFraction)}
}

// String returns the exact literal, keeping the scale the amount was parsed
// with ("42.50" stays "42.50"). It is the persisted form.
func (m Money) String() string {
	out := m.value.String()
	if exp := m.value.Exponent(); exp < 0 {
		out = m.value.StringFixed(-exp)
	}
	if m.negZero {
		return "-" + out
	}
	return out
}

// Format renders the amount for display with thousands separators and exactly
// two fraction digits, rounding half-up at the third fraction digit.
func (m Money) Format() string {
	rounded := m.value.Round(displayFraction)
	cents := rounded.Shift(displayFraction)
	if !cents.BigInt().IsInt64() {
		// beyond int64 cents the formatter cannot help
		return groupThousands(rounded.StringFixed(displayFraction))
	}
	return displayFormatter.Format(cents.IntPart())
}

// groupThousands inserts ',' every three integer digits of a plain decimal
// string such as "-1234567.89".
func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
