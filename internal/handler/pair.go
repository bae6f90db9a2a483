package handler

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"lendingScope/internal/aggregate"
	"lendingScope/internal/amount"
	"lendingScope/internal/model"
	"lendingScope/internal/store"
)

// loadOrCreatePair materializes a pair, both its tokens, and its watch
// bindings. A pair answering the vault probe is also bound as a wrapper and
// its reward token is materialized; the wrapped pair itself is not.
func (p *Processor) loadOrCreatePair(c Chain, id string, block uint64) (model.Pair, store.Origin, error) {
	return p.store.Pairs.LoadOrCreate(id, func() (model.Pair, store.Origin, error) {
		origin := store.OriginCreated

		token0, err := c.Token0(id)
		if err != nil {
			return model.Pair{}, origin, fmt.Errorf("pair token0: %w", err)
		}
		token1, err := c.Token1(id)
		if err != nil {
			return model.Pair{}, origin, fmt.Errorf("pair token1: %w", err)
		}
		for _, tokenID := range []string{token0, token1} {
			_, tokenOrigin, err := p.loadOrCreateToken(c, tokenID, block)
			if err != nil {
				return model.Pair{}, origin, fmt.Errorf("pair token %s: %w", tokenID, err)
			}
			if tokenOrigin == store.OriginFallback {
				origin = store.OriginFallback
			}
		}

		pair := model.Pair{
			ID:                  id,
			Token0:              token0,
			Token1:              token1,
			Reserve0:            amount.Zero,
			Reserve1:            amount.Zero,
			TotalSupply:         amount.Zero,
			Token0Price:         amount.Zero,
			Token1Price:         amount.Zero,
			ReserveReference:    amount.Zero,
			ReserveUSD:          amount.Zero,
			SharePriceReference: amount.Zero,
			SharePriceUSD:       amount.Zero,
			UnderlyingPair:      id,
		}
		p.registry.Register(id, model.RolePair, block)

		isVault, err := c.IsVaultToken(id)
		if _, err := p.degraded(err, id, "isVaultToken", block); err != nil {
			return model.Pair{}, origin, err
		}
		if isVault {
			if err := p.markWrapped(c, &pair, block); err != nil {
				return model.Pair{}, origin, err
			}
		}

		p.logger.Info("pair created",
			zap.String("pair", id),
			zap.String("token0", token0),
			zap.String("token1", token1),
			zap.Bool("wrapped", pair.IsWrapped),
		)
		return pair, origin, nil
	})
}

func (p *Processor) markWrapped(c Chain, pair *model.Pair, block uint64) error {
	pair.IsWrapped = true
	p.registry.Register(pair.ID, model.RoleWrappedPair, block)

	underlying, err := c.Underlying(pair.ID)
	if fallback, err := p.degraded(err, pair.ID, "underlying", block); err != nil {
		return err
	} else if !fallback {
		pair.UnderlyingPair = underlying
	}

	rewardToken, err := c.RewardsToken(pair.ID)
	if fallback, err := p.degraded(err, pair.ID, "rewardsToken", block); err != nil {
		return err
	} else if fallback {
		return nil
	}
	if _, _, err := p.loadOrCreateToken(c, rewardToken, block); err != nil {
		return fmt.Errorf("reward token %s: %w", rewardToken, err)
	}
	pair.RewardToken = rewardToken
	return nil
}

func (p *Processor) belowSyncFloor(ev model.Event) bool {
	if ev.BlockNumber >= p.cfg.PairSyncMinBlock {
		return false
	}
	p.logger.Debug("pair sync below minimum block", zap.String("pair", ev.Address), zap.Uint64("block", ev.BlockNumber))
	return true
}

func (p *Processor) onPairSync(_ context.Context, c Chain, ev model.Event) error {
	data, err := payload[model.ReserveSyncData](ev)
	if err != nil {
		return err
	}
	if p.belowSyncFloor(ev) {
		return nil
	}

	factory, err := c.PairFactory(ev.Address)
	if _, err := p.degraded(err, ev.Address, "factory", ev.BlockNumber); err != nil {
		return err
	}
	totalSupply, err := p.totalSupply(c, ev.Address, ev.BlockNumber)
	if err != nil {
		return err
	}

	_, err = p.valuator.SyncPair(c, ev.Address, aggregate.ReserveSnapshot{
		Factory:     factory,
		Reserve0:    data.Reserve0,
		Reserve1:    data.Reserve1,
		TotalSupply: totalSupply,
	})
	return err
}

// onWrappedPairSync refreshes a vault wrapper from its own reserve and
// supply accessors; the factory is found through the vault's router.
func (p *Processor) onWrappedPairSync(_ context.Context, c Chain, ev model.Event) error {
	if _, err := payload[model.BalanceSyncData](ev); err != nil {
		return err
	}
	if p.belowSyncFloor(ev) {
		return nil
	}

	var factory string
	router, err := c.Router(ev.Address)
	if fallback, err := p.degraded(err, ev.Address, "router", ev.BlockNumber); err != nil {
		return err
	} else if !fallback {
		factory, err = c.RouterFactory(router)
		if _, err := p.degraded(err, router, "factory", ev.BlockNumber); err != nil {
			return err
		}
	}

	reserve0, reserve1, err := c.Reserves(ev.Address)
	if fallback, err := p.degraded(err, ev.Address, "getReserves", ev.BlockNumber); err != nil {
		return err
	} else if fallback {
		reserve0, reserve1 = new(big.Int), new(big.Int)
	}
	totalSupply, err := p.totalSupply(c, ev.Address, ev.BlockNumber)
	if err != nil {
		return err
	}

	_, err = p.valuator.SyncPair(c, ev.Address, aggregate.ReserveSnapshot{
		Factory:     factory,
		Reserve0:    reserve0,
		Reserve1:    reserve1,
		TotalSupply: totalSupply,
	})
	return err
}

func (p *Processor) totalSupply(c Chain, token string, block uint64) (*big.Int, error) {
	supply, err := c.TotalSupply(token)
	if fallback, err := p.degraded(err, token, "totalSupply", block); err != nil {
		return nil, err
	} else if fallback {
		return new(big.Int), nil
	}
	return supply, nil
}
