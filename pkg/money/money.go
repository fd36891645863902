// Package money formats and splits monetary amounts using integer minor units
// and ISO-4217 currency codes.
package money

import (
	"errors"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Common currency codes (ISO-4217)
const (
	GBP = "GBP" // British Pound
	EUR = "EUR" // Euro
	USD = "USD" // US Dollar
)

// DefaultCurrency is used when a currency code is empty or unknown.
const DefaultCurrency = GBP

// Money represents a monetary value with currency.
type Money struct {
	m *money.Money
}

// New creates a new Money value from minor units and a currency code.
func New(amountCents int64, currencyCode string) *Money {
	return &Money{m: money.New(amountCents, currencyOrDefault(currencyCode))}
}

// NewFromDecimal creates Money from a decimal.Decimal value, rounding to the
// currency's minor unit.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) *Money {
	code := currencyOrDefault(currencyCode)
	currency := money.GetCurrency(code)
	multiplier := decimal.New(1, int32(currency.Fraction))
	return New(amount.Mul(multiplier).Round(0).IntPart(), code)
}

// Zero returns a zero Money value for the given currency
func Zero(currencyCode string) *Money {
	return New(0, currencyCode)
}

func currencyOrDefault(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || money.GetCurrency(code) == nil {
		return DefaultCurrency
	}
	return code
}

// Amount returns the amount in minor units (cents)
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 code.
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return DefaultCurrency
	}
	return m.m.Currency().Code
}

// IsNegative reports whether the amount is below zero.
func (m *Money) IsNegative() bool {
	return m != nil && m.m != nil && m.m.IsNegative()
}

// Abs returns the absolute value.
func (m *Money) Abs() *Money {
	if m == nil || m.m == nil {
		return Zero(DefaultCurrency)
	}
	return &Money{m: m.m.Absolute()}
}

// Add returns m + other. Both must share a currency.
func (m *Money) Add(other *Money) (*Money, error) {
	if m == nil || other == nil || m.m == nil || other.m == nil {
		return nil, errors.New("cannot add nil money")
	}
	sum, err := m.m.Add(other.m)
	if err != nil {
		return nil, err
	}
	return &Money{m: sum}, nil
}

// Display returns a formatted string for display (e.g., "£1,234.56")
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return Zero(DefaultCurrency).Display()
	}
	return m.m.Display()
}

// String returns the amount as a decimal string (e.g., "1234.56")
func (m *Money) String() string {
	return m.ToDecimal().StringFixed(int32(m.fraction()))
}

func (m *Money) fraction() int {
	if m == nil || m.m == nil {
		return 2
	}
	return m.m.Currency().Fraction
}

// ToDecimal converts back to decimal.Decimal.
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	return decimal.New(m.m.Amount(), -int32(m.fraction()))
}

// Allocate splits money according to integer weights without losing a penny.
// Leftover minor units go to the first parts.
func (m *Money) Allocate(ratios ...int) ([]*Money, error) {
	if m == nil || m.m == nil {
		return nil, errors.New("cannot allocate nil money")
	}
	parts, err := m.m.Allocate(ratios...)
	if err != nil {
		return nil, err
	}
	out := make([]*Money, len(parts))
	for i, p := range parts {
		out[i] = &Money{m: p}
	}
	return out, nil
}

// Display formats a decimal amount in the given currency.
func Display(amount decimal.Decimal, currencyCode string) string {
	return NewFromDecimal(amount, currencyCode).Display()
}
