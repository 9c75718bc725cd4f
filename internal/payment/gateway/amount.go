package gateway

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountUnit names the unit a provider expects on the wire.
type AmountUnit string

const (
	AmountUnitMajor AmountUnit = "major"
	AmountUnitMinor AmountUnit = "minor"
)

var zeroDecimalCurrencies = map[string]struct{}{
	"BIF": {},
	"CLP": {},
	"DJF": {},
	"GNF": {},
	"JPY": {},
	"KMF": {},
	"KRW": {},
	"MGA": {},
	"PYG": {},
	"RWF": {},
	"UGX": {},
	"VND": {},
	"VUV": {},
	"XAF": {},
	"XOF": {},
	"XPF": {},
}

// CurrencyScale returns the number of minor-unit digits for currency.
func CurrencyScale(currency string) int32 {
	if _, ok := zeroDecimalCurrencies[NormalizeCurrency(currency)]; ok {
		return 0
	}
	return 2
}

// MajorUnits is embedded by adapters whose provider takes decimal strings ("1500.00").
type MajorUnits struct{}

func (MajorUnits) AmountUnit() AmountUnit { return AmountUnitMajor }

// FormatAmount renders amount with the currency's fixed scale.
func (MajorUnits) FormatAmount(amount decimal.Decimal, currency string) string {
	return amount.StringFixed(CurrencyScale(currency))
}

// ParseAmount reads a provider decimal string.
func (MajorUnits) ParseAmount(raw string) (decimal.Decimal, error) {
	parsed, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q is invalid", ErrResponseInvalid, raw)
	}
	return parsed, nil
}

// MinorUnits is embedded by adapters whose provider takes integer minor units (cents).
type MinorUnits struct{}

func (MinorUnits) AmountUnit() AmountUnit { return AmountUnitMinor }

// ToMinor converts a major-unit amount, rejecting sub-minor precision.
func (MinorUnits) ToMinor(amount decimal.Decimal, currency string) (int64, error) {
	if !amount.IsPositive() {
		return 0, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidParams)
	}
	minor := amount.Shift(CurrencyScale(currency))
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("%w: amount precision is invalid", ErrInvalidParams)
	}
	return minor.IntPart(), nil
}

// FromMinor converts provider minor units back to a major-unit amount.
func (MinorUnits) FromMinor(minor int64, currency string) decimal.Decimal {
	return decimal.NewFromInt(minor).Shift(-CurrencyScale(currency))
}

// MajorUnitGateway is satisfied by adapters that embed MajorUnits.
type MajorUnitGateway interface {
	Gateway
	AmountUnit() AmountUnit
	FormatAmount(amount decimal.Decimal, currency string) string
	ParseAmount(raw string) (decimal.Decimal, error)
}

// MinorUnitGateway is satisfied by adapters that embed MinorUnits.
type MinorUnitGateway interface {
	Gateway
	AmountUnit() AmountUnit
	ToMinor(amount decimal.Decimal, currency string) (int64, error)
	FromMinor(minor int64, currency string) decimal.Decimal
}
