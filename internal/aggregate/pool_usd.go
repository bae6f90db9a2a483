package aggregate

import (
	"go.uber.org/zap"

	"lendingScope/internal/model"
)

// UpdateLendingPoolUSD re-values the pool over pairID from current prices and
// applies the change in its totals to the protocol record. It reports whether
// the pool existed.
func (v *Valuator) UpdateLendingPoolUSD(pairID string) (bool, error) {
	pool, ok := v.store.LendingPools.Load(pairID)
	if !ok {
		v.logger.Debug("lending pool not initialized, skipping refresh", zap.String("pair", pairID))
		return false, nil
	}
	prev := pool.Totals()

	pair, err := v.store.Pairs.Get(pool.Pair)
	if err != nil {
		return true, err
	}
	collateral, err := v.store.Collaterals.Get(pool.Collateral)
	if err != nil {
		return true, err
	}
	borrowable0, err := v.store.Borrowables.Get(pool.Borrowable0)
	if err != nil {
		return true, err
	}
	borrowable1, err := v.store.Borrowables.Get(pool.Borrowable1)
	if err != nil {
		return true, err
	}
	token0, err := v.store.Tokens.Get(borrowable0.Underlying)
	if err != nil {
		return true, err
	}
	token1, err := v.store.Tokens.Get(borrowable1.Underlying)
	if err != nil {
		return true, err
	}

	collateral.TotalBalanceUSD = collateral.TotalBalance.Mul(pair.SharePriceUSD)
	revalueBorrowable(&borrowable0, token0)
	revalueBorrowable(&borrowable1, token1)
	v.store.Collaterals.Save(collateral)
	v.store.Borrowables.Save(borrowable0)
	v.store.Borrowables.Save(borrowable1)

	pool.TotalBalanceUSD = collateral.TotalBalanceUSD.Add(borrowable0.TotalBalanceUSD).Add(borrowable1.TotalBalanceUSD)
	pool.TotalSupplyUSD = borrowable0.TotalSupplyUSD.Add(borrowable1.TotalSupplyUSD)
	pool.TotalBorrowsUSD = borrowable0.TotalBorrowsUSD.Add(borrowable1.TotalBorrowsUSD)
	v.store.LendingPools.Save(pool)

	protocol, ok := v.store.Protocols.Load(v.protocolID)
	if !ok {
		v.logger.Debug("protocol totals not initialized, skipping delta", zap.String("protocol", v.protocolID))
		return true, nil
	}
	protocol.ApplyDelta(prev, pool.Totals())
	v.store.Protocols.Save(protocol)
	return true, nil
}

func revalueBorrowable(b *model.Borrowable, underlying model.Token) {
	b.TotalBalanceUSD = b.TotalBalance.Mul(underlying.USDPrice)
	b.TotalBorrowsUSD = b.TotalBorrows.Mul(underlying.USDPrice)
	b.TotalSupplyUSD = b.TotalBalanceUSD.Add(b.TotalBorrowsUSD)
}
