package valueobject

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places every amount is kept at
const MoneyScale int32 = 2

// Money is a value object representing a monetary amount in the tenant's single currency.
// It is immutable and always rounded half-up to two decimal places.
type Money struct {
	amount decimal.Decimal
}

// NewMoney creates Money from a decimal, rounding half-up to two places
func NewMoney(amount decimal.Decimal) Money {
	return Money{amount: amount.Round(MoneyScale)}
}

// NewMoneyFromInt creates Money from a whole amount
func NewMoneyFromInt(amount int64) Money {
	return NewMoney(decimal.NewFromInt(amount))
}

// NewMoneyFromMinor creates Money from minor units (paise/cents)
func NewMoneyFromMinor(minor int64) Money {
	return NewMoney(decimal.New(minor, -MoneyScale))
}

// NewMoneyFromString parses a decimal string such as "150.00"
func NewMoneyFromString(amount string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return NewMoney(d), nil
}

// MustMoney parses a decimal string and panics on failure. Intended for constants and tests.
func MustMoney(amount string) Money {
	m, err := NewMoneyFromString(amount)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount
func Zero() Money {
	return Money{amount: decimal.Zero}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// MinorUnits returns the amount in minor units
func (m Money) MinorUnits() int64 {
	return m.amount.Shift(MoneyScale).IntPart()
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive returns true if the amount is positive
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative returns true if the amount is negative
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// Add returns the sum of both amounts
func (m Money) Add(other Money) Money {
	return NewMoney(m.amount.Add(other.amount))
}

// Subtract returns the difference of both amounts
func (m Money) Subtract(other Money) Money {
	return NewMoney(m.amount.Sub(other.amount))
}

// MultiplyByInt multiplies by an integer quantity
func (m Money) MultiplyByInt(factor int64) Money {
	return NewMoney(m.amount.Mul(decimal.NewFromInt(factor)))
}

// Percent returns rate percent of the amount, e.g. Percent(5) of 300.00 is 15.00
func (m Money) Percent(rate decimal.Decimal) Money {
	return NewMoney(m.amount.Mul(rate).Div(decimal.NewFromInt(100)))
}

// NonNegative clamps the amount at zero
func (m Money) NonNegative() Money {
	if m.amount.IsNegative() {
		return Zero()
	}
	return m
}

// Min returns the smaller of two amounts
func (m Money) Min(other Money) Money {
	if other.amount.LessThan(m.amount) {
		return other
	}
	return m
}

// Equals returns true if both amounts are equal
func (m Money) Equals(other Money) bool {
	return m.amount.Equal(other.amount)
}

// LessThan returns true if this amount is less than the other
func (m Money) LessThan(other Money) bool {
	return m.amount.LessThan(other.amount)
}

// LessThanOrEqual returns true if this amount is less than or equal to the other
func (m Money) LessThanOrEqual(other Money) bool {
	return m.amount.LessThanOrEqual(other.amount)
}

// GreaterThan returns true if this amount is greater than the other
func (m Money) GreaterThan(other Money) bool {
	return m.amount.GreaterThan(other.amount)
}

// GreaterThanOrEqual returns true if this amount is greater than or equal to the other
func (m Money) GreaterThanOrEqual(other Money) bool {
	return m.amount.GreaterThanOrEqual(other.amount)
}

// String returns the amount with two fixed decimal places
func (m Money) String() string {
	return m.amount.StringFixed(MoneyScale)
}

// MarshalJSON renders the amount as a JSON number with two decimals, e.g. 300.00
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.amount.StringFixed(MoneyScale)), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
// Amounts are parsed as decimals so binary floating point never touches them.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		m.amount = decimal.Zero
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	m.amount = d.Round(MoneyScale)
	return nil
}

// Sum adds up a list of amounts
func Sum(values ...Money) Money {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v.amount)
	}
	return NewMoney(total)
}
