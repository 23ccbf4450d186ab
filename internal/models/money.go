package models

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Money is the unified amount type (2 decimal places, major units).
type Money struct {
	decimal.Decimal
}

// NewMoneyFromDecimal creates a Money value rounded to 2 decimal places.
func NewMoneyFromDecimal(amount decimal.Decimal) Money {
	return Money{Decimal: amount.Round(2)}
}

// NewMoneyFromMinorUnits converts an integer amount in minor units (cents)
// into major units.
func NewMoneyFromMinorUnits(minor int64) Money {
	return Money{Decimal: decimal.NewFromInt(minor).Shift(-2)}
}

// ToMinorUnits converts the amount to integer minor units, rounding to the
// nearest cent.
func (m Money) ToMinorUnits() int64 {
	return m.Decimal.Shift(2).Round(0).IntPart()
}

// MarshalJSON writes the amount as a JSON number with 2 decimal places.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.Round(2).StringFixed(2)), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		m.Decimal = d.Round(2)
		return nil
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return err
	}
	m.Decimal = d.Round(2)
	return nil
}

// Value implements driver.Valuer for database writes.
func (m Money) Value() (driver.Value, error) {
	return m.Decimal.Round(2).Value()
}

// Scan implements sql.Scanner for database reads.
func (m *Money) Scan(value interface{}) error {
	if err := m.Decimal.Scan(value); err != nil {
		return err
	}
	m.Decimal = m.Decimal.Round(2)
	return nil
}

// String returns the amount with 2 decimal places.
func (m Money) String() string {
	return m.Decimal.Round(2).StringFixed(2)
}
