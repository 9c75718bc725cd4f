package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a provider-reported amount in major units, stored as
// decimal(20,2). Webhook amounts arrive as strings or JSON numbers; numbers
// are parsed from their literal text so no float rounding creeps in.
type Money struct {
	decimal.Decimal
}

// NewMoneyFromDecimal rounds amount to cents.
func NewMoneyFromDecimal(amount decimal.Decimal) Money {
	return Money{Decimal: amount.Round(2)}
}

// MarshalJSON writes a fixed two-decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts "12.50", 12.50 or null.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		m.Decimal = decimal.Zero
		return nil
	}
	literal := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &literal); err != nil {
			return err
		}
	}
	d, err := decimal.NewFromString(literal)
	if err != nil {
		return fmt.Errorf("invalid money amount %q: %w", literal, err)
	}
	m.Decimal = d.Round(2)
	return nil
}

// Value implements driver.Valuer.
func (m Money) Value() (driver.Value, error) {
	return m.Decimal.Round(2).Value()
}

// Scan implements sql.Scanner.
func (m *Money) Scan(value interface{}) error {
	if value == nil {
		m.Decimal = decimal.Zero
		return nil
	}
	if err := m.Decimal.Scan(value); err != nil {
		return err
	}
	m.Decimal = m.Decimal.Round(2)
	return nil
}

// String formats with two decimals.
func (m Money) String() string {
	return m.Decimal.Round(2).StringFixed(2)
}
