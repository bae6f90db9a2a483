package amount

import (
	"math"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFromRaw(t *testing.T) {
	raw, ok := new(big.Int).SetString("1500000000000000000000", 10)
	require.True(t, ok)

	require.True(t, FromRaw(raw, 18).Equal(decimal.NewFromInt(1500)))
	require.True(t, FromRaw(big.NewInt(2500000), 6).Equal(decimal.RequireFromString("2.5")))
	require.True(t, FromRaw(big.NewInt(42), 0).Equal(decimal.NewFromInt(42)))
	require.True(t, FromRaw(nil, 18).IsZero())
}

func TestFromWadKeepsPrecision(t *testing.T) {
	require.Equal(t, "0.000000000000000001", FromWad(big.NewInt(1)).String())
}

func TestDivZeroDenominator(t *testing.T) {
	require.True(t, Div(decimal.NewFromInt(5), decimal.Zero).IsZero())
	require.True(t, Div(decimal.NewFromInt(1), decimal.NewFromInt(4)).Equal(decimal.RequireFromString("0.25")))
}

func TestFraction(t *testing.T) {
	require.True(t, Fraction(big.NewInt(25), big.NewInt(100)).Equal(decimal.RequireFromString("0.25")))
	require.True(t, Fraction(big.NewInt(25), big.NewInt(0)).IsZero())
	require.True(t, Fraction(nil, big.NewInt(3)).IsZero())
}

func TestUint64Saturates(t *testing.T) {
	require.Equal(t, uint64(0), Uint64(nil))
	require.Equal(t, uint64(1700000000), Uint64(big.NewInt(1700000000)))
	huge := new(big.Int).Lsh(big.NewInt(1), 70)
	require.Equal(t, uint64(math.MaxUint64), Uint64(huge))
}
