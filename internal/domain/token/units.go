package token

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ParseUnits converts a display amount such as "3.5" into smallest units for
// the given number of decimals.
func ParseUnits(s string, decimals uint8) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("token: parse units %q: %w", s, err)
	}
	if d.Sign() < 0 {
		return 0, fmt.Errorf("token: parse units %q: negative amount", s)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("token: parse units %q: more than %d decimals", s, decimals)
	}
	n := scaled.BigInt()
	if !n.IsUint64() {
		return 0, fmt.Errorf("token: parse units %q: %w", s, ErrOverflow)
	}
	return Amount(n.Uint64()), nil
}

// FormatUnits renders an amount with the given number of decimals, trimming
// trailing zeros ("3000000" with 6 decimals is "3").
func FormatUnits(a Amount, decimals uint8) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(a)), -int32(decimals)).String()
}

// Units is ParseUnits with the metadata's decimals.
func (m Metadata) Units(s string) (Amount, error) { return ParseUnits(s, m.Decimals) }

// Format is FormatUnits with the metadata's decimals.
func (m Metadata) Format(a Amount) string { return FormatUnits(a, m.Decimals) }
