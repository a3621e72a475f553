// Package money holds the integer minor-unit amount type used on the charge path.
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// MinorUnits is an amount in the smallest denomination of a currency (cents for usd).
// It is never converted to a floating point value.
type MinorUnits int64

// Currency is a lower-case ISO 4217 code as the gateway expects it.
type Currency string

var (
	ErrNegativeAmount  = errors.New("amount cannot be negative")
	ErrMissingCurrency = errors.New("currency is required")
)

// NewCurrency normalizes a currency code.
func NewCurrency(code string) (Currency, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "", ErrMissingCurrency
	}
	return Currency(code), nil
}

// Validate rejects negative amounts.
func (m MinorUnits) Validate() error {
	if m < 0 {
		return ErrNegativeAmount
	}
	return nil
}

// Int64 returns the raw count of minor units for the gateway request.
func (m MinorUnits) Int64() int64 { return int64(m) }

// exponents lists currencies whose minor unit is not a hundredth of the major unit.
var exponents = map[Currency]int32{
	"bif": 0, "clp": 0, "djf": 0, "gnf": 0, "jpy": 0, "kmf": 0,
	"krw": 0, "mga": 0, "pyg": 0, "rwf": 0, "ugx": 0, "vnd": 0,
	"vuv": 0, "xaf": 0, "xof": 0, "xpf": 0,
	"bhd": 3, "iqd": 3, "jod": 3, "kwd": 3, "lyd": 3, "omr": 3, "tnd": 3,
}

// Exponent is the number of decimal places between minor and major units.
func (c Currency) Exponent() int32 {
	if exp, ok := exponents[c]; ok {
		return exp
	}
	return 2
}

var symbols = map[Currency]string{
	"usd": "$", "eur": "€", "gbp": "£", "jpy": "¥",
}

// Format renders the amount as a major-unit display string, e.g. 500 usd -> "$5.00".
// It is for display only and is never parsed back into an amount.
func (m MinorUnits) Format(c Currency) string {
	exp := c.Exponent()
	major := decimal.New(int64(m), -exp)

	sign := ""
	if major.IsNegative() {
		sign = "-"
		major = major.Abs()
	}
	prefix, suffix := symbols[c], ""
	if prefix == "" {
		suffix = " " + strings.ToUpper(string(c))
	}
	return sign + prefix + major.StringFixed(exp) + suffix
}
