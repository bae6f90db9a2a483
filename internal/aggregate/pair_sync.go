package aggregate

import (
	"fmt"

	"go.uber.org/zap"

	"lendingScope/internal/amount"
	"lendingScope/internal/model"
	"lendingScope/internal/pricing"
)

// SyncPair recomputes a pair's reserves, spot prices and share prices, and
// re-prices both constituent tokens. Total supply is always 18 decimals.
func (v *Valuator) SyncPair(r pricing.PairReader, pairID string, snap ReserveSnapshot) (model.Pair, error) {
	pair, err := v.store.Pairs.Get(pairID)
	if err != nil {
		return model.Pair{}, err
	}
	token0, err := v.store.Tokens.Get(pair.Token0)
	if err != nil {
		return model.Pair{}, err
	}
	token1, err := v.store.Tokens.Get(pair.Token1)
	if err != nil {
		return model.Pair{}, err
	}

	pair.SyncCount++
	pair.Reserve0 = amount.FromRaw(snap.Reserve0, token0.Decimals)
	pair.Reserve1 = amount.FromRaw(snap.Reserve1, token1.Decimals)
	pair.Token0Price = amount.Div(pair.Reserve0, pair.Reserve1)
	pair.Token1Price = amount.Div(pair.Reserve1, pair.Reserve0)
	v.store.Pairs.Save(pair)

	anchorUSD, err := v.prices.USDAnchorPrice(r, snap.Factory)
	if err != nil {
		return model.Pair{}, fmt.Errorf("anchor price: %w", err)
	}
	quote0, err := v.prices.Quote(r, snap.Factory, token0.ID, anchorUSD)
	if err != nil {
		return model.Pair{}, err
	}
	quote1, err := v.prices.Quote(r, snap.Factory, token1.ID, anchorUSD)
	if err != nil {
		return model.Pair{}, err
	}
	token0.ReferencePrice, token0.USDPrice = quote0.Reference, quote0.USD
	token1.ReferencePrice, token1.USDPrice = quote1.Reference, quote1.USD
	v.store.Tokens.Save(token0)
	v.store.Tokens.Save(token1)

	pair.ReserveReference = pair.Reserve0.Mul(token0.ReferencePrice).Add(pair.Reserve1.Mul(token1.ReferencePrice))
	pair.ReserveUSD = pair.ReserveReference.Mul(anchorUSD)
	pair.TotalSupply = amount.FromWad(snap.TotalSupply)
	pair.SharePriceReference = amount.Div(pair.ReserveReference, pair.TotalSupply)
	pair.SharePriceUSD = amount.Div(pair.ReserveUSD, pair.TotalSupply)
	v.store.Pairs.Save(pair)

	v.logger.Debug("pair synced",
		zap.String("pair", pair.ID),
		zap.Uint64("sync_count", pair.SyncCount),
		zap.String("reserve_usd", pair.ReserveUSD.String()),
		zap.String("share_price_usd", pair.SharePriceUSD.String()),
	)
	return pair, nil
}
