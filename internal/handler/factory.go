package handler

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lendingScope/internal/amount"
	"lendingScope/internal/model"
	"lendingScope/internal/store"
)

// Risk parameter defaults in effect until the contracts announce their own.
var (
	DefaultSafetyMargin         = decimal.RequireFromString("2.5")
	DefaultLiquidationIncentive = decimal.RequireFromString("1.04")
	DefaultReserveFactor        = decimal.RequireFromString("0.1")
	DefaultKinkBorrowRate       = decimal.RequireFromString("0.1")
	DefaultKinkUtilizationRate  = decimal.RequireFromString("0.7")
)

func (p *Processor) onLendingPoolInitialized(_ context.Context, c Chain, ev model.Event) error {
	data, err := payload[model.LendingPoolInitializedData](ev)
	if err != nil {
		return err
	}

	if _, _, err := p.store.Protocols.LoadOrCreate(p.cfg.ProtocolID, func() (model.Protocol, store.Origin, error) {
		return model.Protocol{
			ID:              p.cfg.ProtocolID,
			TotalBalanceUSD: amount.Zero,
			TotalSupplyUSD:  amount.Zero,
			TotalBorrowsUSD: amount.Zero,
		}, store.OriginCreated, nil
	}); err != nil {
		return fmt.Errorf("load protocol: %w", err)
	}

	pair, origin, err := p.loadOrCreatePair(c, data.Pair, ev.BlockNumber)
	if err != nil {
		return fmt.Errorf("load pair: %w", err)
	}
	if origin == store.OriginFallback {
		p.logger.Warn("pair created with fallback token metadata", zap.String("pair", pair.ID))
	}

	if p.store.LendingPools.Exists(pair.ID) {
		p.logger.Warn("lending pool already initialized", zap.String("pair", pair.ID), zap.Uint64("block", ev.BlockNumber))
		return nil
	}

	collateral := model.Collateral{
		ID:                   data.Collateral,
		LendingPool:          pair.ID,
		Underlying:           pair.ID,
		TotalBalance:         amount.Zero,
		SafetyMargin:         DefaultSafetyMargin,
		LiquidationIncentive: DefaultLiquidationIncentive,
		ExchangeRate:         amount.One,
		TotalBalanceUSD:      amount.Zero,
	}
	borrowable0 := newBorrowable(data.Borrowable0, pair.ID, pair.Token0, ev.Timestamp)
	borrowable1 := newBorrowable(data.Borrowable1, pair.ID, pair.Token1, ev.Timestamp)

	var poolIndex string
	if data.PoolIndex != nil {
		poolIndex = data.PoolIndex.String()
	}
	pool := model.LendingPool{
		ID:                 pair.ID,
		Pair:               pair.ID,
		Collateral:         collateral.ID,
		Borrowable0:        borrowable0.ID,
		Borrowable1:        borrowable1.ID,
		PoolIndex:          poolIndex,
		CreatedAtBlock:     ev.BlockNumber,
		CreatedAtTimestamp: ev.Timestamp,
		TotalBalanceUSD:    amount.Zero,
		TotalSupplyUSD:     amount.Zero,
		TotalBorrowsUSD:    amount.Zero,
	}

	p.store.Collaterals.Save(collateral)
	p.store.Borrowables.Save(borrowable0)
	p.store.Borrowables.Save(borrowable1)
	p.store.LendingPools.Save(pool)

	p.registry.Register(collateral.ID, model.RoleCollateral, ev.BlockNumber)
	p.registry.Register(borrowable0.ID, model.RoleBorrowable, ev.BlockNumber)
	p.registry.Register(borrowable1.ID, model.RoleBorrowable, ev.BlockNumber)

	p.logger.Info("lending pool initialized",
		zap.String("pair", pair.ID),
		zap.String("pool_index", poolIndex),
		zap.String("collateral", collateral.ID),
		zap.String("borrowable0", borrowable0.ID),
		zap.String("borrowable1", borrowable1.ID),
	)
	return nil
}

func newBorrowable(id, poolID, underlying string, timestamp uint64) model.Borrowable {
	return model.Borrowable{
		ID:                  id,
		LendingPool:         poolID,
		Underlying:          underlying,
		TotalBalance:        amount.Zero,
		TotalBorrows:        amount.Zero,
		BorrowRate:          amount.Zero,
		ReserveFactor:       DefaultReserveFactor,
		KinkBorrowRate:      DefaultKinkBorrowRate,
		KinkUtilizationRate: DefaultKinkUtilizationRate,
		BorrowIndex:         amount.One,
		AccrualTimestamp:    timestamp,
		ExchangeRate:        amount.One,
		TotalBalanceUSD:     amount.Zero,
		TotalSupplyUSD:      amount.Zero,
		TotalBorrowsUSD:     amount.Zero,
	}
}
