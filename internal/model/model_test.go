package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestProtocolApplyDelta(t *testing.T) {
	p := Protocol{ID: "factory", TotalBalanceUSD: decimal.NewFromInt(500)}

	p.ApplyDelta(Totals{}, Totals{BalanceUSD: decimal.NewFromInt(2000), SupplyUSD: decimal.NewFromInt(10)})
	require.True(t, p.TotalBalanceUSD.Equal(decimal.NewFromInt(2500)))
	require.True(t, p.TotalSupplyUSD.Equal(decimal.NewFromInt(10)))

	p.ApplyDelta(
		Totals{BalanceUSD: decimal.NewFromInt(2000), SupplyUSD: decimal.NewFromInt(10)},
		Totals{BalanceUSD: decimal.NewFromInt(1500), SupplyUSD: decimal.NewFromInt(10)},
	)
	require.True(t, p.TotalBalanceUSD.Equal(decimal.NewFromInt(2000)))
	require.True(t, p.TotalSupplyUSD.Equal(decimal.NewFromInt(10)))
	require.True(t, p.TotalBorrowsUSD.IsZero())
	require.Equal(t, uint64(2), p.Version)
}

func TestWatchedContractHasRole(t *testing.T) {
	w := WatchedContract{ID: "0x1", Roles: []Role{RolePair, RoleWrappedPair}}
	require.True(t, w.HasRole(RoleWrappedPair))
	require.False(t, w.HasRole(RoleCollateral))
}

func TestPositionID(t *testing.T) {
	require.Equal(t, "0xaa-0xbb", PositionID("0xaa", "0xbb"))
}

func TestLogPositionBefore(t *testing.T) {
	a := LogRecord{BlockNumber: 10, LogIndex: 5}.Position()
	b := LogRecord{BlockNumber: 11, LogIndex: 0}.Position()
	c := LogRecord{BlockNumber: 11, LogIndex: 2}.Position()

	require.True(t, a.Before(b))
	require.True(t, b.Before(c))
	require.True(t, a.Before(c))
	require.False(t, c.Before(b))
	require.False(t, b.Before(b))
}
