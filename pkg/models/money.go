package models

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// Cents is a euro amount stored in the smallest currency unit to avoid float drift.
type Cents int64

// CentsFromDecimal rounds d half away from zero to whole cents.
func CentsFromDecimal(d decimal.Decimal) Cents {
	return Cents(d.Shift(2).Round(0).IntPart())
}

// CentsFromFloat converts a float euro amount, rounding to cents.
func CentsFromFloat(f float64) Cents {
	return CentsFromDecimal(decimal.NewFromFloat(f))
}

// Decimal returns the amount in euros.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// Float64 returns the amount in euros for display and score math only.
func (c Cents) Float64() float64 {
	return c.Decimal().InexactFloat64()
}

// String formats the amount with two decimals and a dot separator.
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// MarshalJSON writes the amount as a JSON number in euros (12.34).
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (c *Cents) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || string(data) == "null" {
		*c = 0
		return nil
	}
	return c.UnmarshalText(data)
}

// UnmarshalText parses a dot-decimal amount; used by YAML session files.
func (c *Cents) UnmarshalText(text []byte) error {
	d, err := decimal.NewFromString(string(bytes.TrimSpace(text)))
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", text, err)
	}
	*c = CentsFromDecimal(d)
	return nil
}

// MarshalText mirrors MarshalJSON for text encoders.
func (c Cents) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
