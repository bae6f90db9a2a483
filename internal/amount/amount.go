// Package amount converts raw on-chain integers into fixed-point decimals and
// holds the arithmetic helpers shared by the valuation engine.
package amount

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// WadDecimals is the exponent used by share tokens, rates and indices.
const WadDecimals uint8 = 18

// DivPrecision is the number of fractional digits kept by Div.
const DivPrecision int32 = 36

var (
	// Zero and One are shared read-only values.
	Zero = decimal.Zero
	One  = decimal.NewFromInt(1)
)

// FromRaw scales raw by 10^-decimals. A zero exponent keeps raw as is.
func FromRaw(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	if decimals == 0 {
		return decimal.NewFromBigInt(raw, 0)
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

// FromWad converts an 18-decimal fixed point integer.
func FromWad(raw *big.Int) decimal.Decimal {
	return FromRaw(raw, WadDecimals)
}

// Div returns num/den, or zero when den is zero.
func Div(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.DivRound(den, DivPrecision)
}

// Fraction returns part/whole for integer share tables, zero when whole is zero.
func Fraction(part, whole *big.Int) decimal.Decimal {
	if part == nil || whole == nil || whole.Sign() == 0 {
		return decimal.Zero
	}
	return Div(decimal.NewFromBigInt(part, 0), decimal.NewFromBigInt(whole, 0))
}

// Uint64 converts a timestamp or length, saturating values that overflow.
func Uint64(raw *big.Int) uint64 {
	if raw == nil || raw.Sign() <= 0 {
		return 0
	}
	if !raw.IsUint64() {
		return math.MaxUint64
	}
	return raw.Uint64()
}
