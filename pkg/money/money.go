// Package money provides a value object for monetary amounts.
//
// Invariants:
//   - Amount is always stored in the smallest currency unit (e.g. cents for
//     USD; whole francs for XAF, which has no minor unit).
//   - Currency code must be valid ISO 4217 (3 uppercase letters).
//   - All arithmetic operations require matching currencies.
package money

import (
	"fmt"
	"math"
	"math/big"
)

var (
	// ErrInvalidCurrency is returned when a currency code is malformed.
	ErrInvalidCurrency = fmt.Errorf("invalid currency code")

	// ErrMismatchedCurrencies is returned when operating on two amounts
	// with different currencies.
	ErrMismatchedCurrencies = fmt.Errorf("mismatched currencies")

	// ErrNonPositiveAmount is returned when an amount that must be
	// strictly positive is zero or negative.
	ErrNonPositiveAmount = fmt.Errorf("amount must be positive")
)

// Code represents a 3-letter ISO 4217 currency code.
type Code string

// Currency codes the settlement engine commonly deals with.
const (
	XAF Code = "XAF"
	XOF Code = "XOF"
	NGN Code = "NGN"
	KES Code = "KES"
	GHS Code = "GHS"
	USD Code = "USD"
	EUR Code = "EUR"
)

// IsValid checks if the currency code is valid.
func (c Code) IsValid() bool {
	if len(c) != 3 {
		return false
	}
	return c[0] >= 'A' && c[0] <= 'Z' &&
		c[1] >= 'A' && c[1] <= 'Z' &&
		c[2] >= 'A' && c[2] <= 'Z'
}

// String returns the string representation of the currency code.
func (c Code) String() string { return string(c) }

// Decimals returns the number of minor-unit digits for the code.
// CFA francs have no minor unit; everything else defaults to 2.
func (c Code) Decimals() int {
	switch c {
	case XAF, XOF:
		return 0
	default:
		return 2
	}
}

// Money represents a monetary value in a specific currency.
type Money struct {
	amount   int64
	currency Code
}

// New creates a Money value from a main-unit amount (e.g. 150.25 for
// 150.25 USD, 10000 for 10,000 XAF).
func New(amount float64, currency Code) (*Money, error) {
	if !currency.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}
	smallest, err := toSmallestUnit(amount, currency)
	if err != nil {
		return nil, err
	}
	return &Money{amount: smallest, currency: currency}, nil
}

// NewFromSmallestUnit creates a Money value directly from the smallest
// currency unit. Used for repository hydration and provider payloads.
func NewFromSmallestUnit(amount int64, currency Code) (*Money, error) {
	if !currency.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}
	return &Money{amount: amount, currency: currency}, nil
}

// Must is New but panics on invalid input. For tests and constants.
func Must(amount float64, currency Code) *Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(fmt.Sprintf("money.Must(%v, %v): %v", amount, currency, err))
	}
	return m
}

// Zero creates a zero amount in the given currency.
func Zero(currency Code) *Money {
	return &Money{amount: 0, currency: currency}
}

// Amount returns the amount in the smallest currency unit.
func (m *Money) Amount() int64 { return m.amount }

// Currency returns the currency code.
func (m *Money) Currency() Code { return m.currency }

// AmountFloat returns the amount in the main currency unit.
func (m *Money) AmountFloat() float64 {
	amount := new(big.Rat).SetInt64(m.amount)
	divisor := new(big.Rat).SetFloat64(math.Pow10(m.currency.Decimals()))
	result := new(big.Rat).Quo(amount, divisor)
	f, _ := result.Float64()
	return f
}

// Add returns a new Money with the sum of the two amounts.
// Invariants enforced:
//   - Currencies must match.
func (m *Money) Add(other *Money) (*Money, error) {
	if m.currency != other.currency {
		return nil, fmt.Errorf("%w: %s and %s",
			ErrMismatchedCurrencies, m.currency, other.currency)
	}
	return &Money{amount: m.amount + other.amount, currency: m.currency}, nil
}

// Negate returns the additive inverse, used for refund ledger rows.
func (m *Money) Negate() *Money {
	return &Money{amount: -m.amount, currency: m.currency}
}

// IsPositive reports whether the amount is strictly greater than zero.
func (m *Money) IsPositive() bool {
	return m != nil && m.amount > 0
}

// Equals reports value equality including currency.
func (m *Money) Equals(other *Money) bool {
	if m == nil || other == nil {
		return false
	}
	return m.currency == other.currency && m.amount == other.amount
}

// String returns a human-readable representation, e.g. "10000 XAF".
func (m *Money) String() string {
	return fmt.Sprintf("%.*f %s", m.currency.Decimals(), m.AmountFloat(), m.currency)
}

// toSmallestUnit converts a main-unit float to the smallest currency unit
// using big.Rat to avoid floating-point drift.
func toSmallestUnit(amount float64, currency Code) (int64, error) {
	factor := new(big.Rat).SetFloat64(math.Pow10(currency.Decimals()))
	amountRat := new(big.Rat).SetFloat64(amount)
	result := new(big.Rat).Mul(amountRat, factor)
	f, _ := result.Float64()
	if f > float64(math.MaxInt64) || f < float64(math.MinInt64) {
		return 0, fmt.Errorf("amount out of range: %v", amount)
	}
	return int64(math.Round(f)), nil
}
