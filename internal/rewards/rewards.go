// Package rewards tracks the emission schedule of reward pools attached to
// borrowables.
package rewards

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lendingScope/internal/amount"
	"lendingScope/internal/contracts"
	"lendingScope/internal/model"
	"lendingScope/internal/store"
)

// Reader is the slice of the contract read interface the tracker needs.
type Reader interface {
	Claimable(rewardPool string) (string, error)
	EpochAmount(rewardPool string) (*big.Int, error)
	EpochBegin(rewardPool string) (*big.Int, error)
	SegmentLength(rewardPool string) (*big.Int, error)
	VestingBegin(rewardPool string) (*big.Int, error)
	TotalShares(distributor string) (*big.Int, error)
	RecipientShares(distributor, recipient string) (*big.Int, error)
}

// Tracker applies reward pool attachment and epoch advances.
type Tracker struct {
	store  *store.Store
	logger *zap.Logger
}

// New creates a Tracker.
func New(st *store.Store, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{store: st, logger: logger}
}

// Attach records rewardPoolID as the borrowable's reward contract and creates
// the reward pool on first sight. The zero address detaches without creating
// anything. The returned origin is OriginLoaded when nothing was created.
func (t *Tracker) Attach(r Reader, borrowableID, rewardPoolID string) (store.Origin, error) {
	borrowable, err := t.store.Borrowables.Get(borrowableID)
	if err != nil {
		return store.OriginLoaded, err
	}
	borrowable.RewardPool = rewardPoolID
	t.store.Borrowables.Save(borrowable)

	if rewardPoolID == model.ZeroAddress {
		return store.OriginLoaded, nil
	}

	_, origin, err := t.store.RewardPools.LoadOrCreate(rewardPoolID, func() (model.RewardPool, store.Origin, error) {
		return t.create(r, borrowableID, rewardPoolID)
	})
	return origin, err
}

func (t *Tracker) create(r Reader, borrowableID, rewardPoolID string) (model.RewardPool, store.Origin, error) {
	s := reads{logger: t.logger, contract: rewardPoolID}

	distributor, err := r.Claimable(rewardPoolID)
	distributor = s.address(distributor, err, "claimable")

	pool := model.RewardPool{
		ID:          rewardPoolID,
		Borrowable:  borrowableID,
		Distributor: distributor,
	}
	pool.EpochAmount = amount.FromWad(s.number("epochAmount", r.EpochAmount))
	pool.EpochBegin = amount.Uint64(s.number("epochBegin", r.EpochBegin))
	pool.SegmentLength = amount.Uint64(s.number("segmentLength", r.SegmentLength))
	pool.VestingBegin = amount.Uint64(s.number("vestingBegin", r.VestingBegin))
	if distributor != "" {
		share, ok := t.sharePercentage(r, &s, distributor, rewardPoolID)
		if ok {
			pool.SharePercentage = share
		}
	}
	if s.fatal != nil {
		return model.RewardPool{}, store.OriginLoaded, s.fatal
	}
	if distributor != "" {
		if _, _, err := t.store.Distributors.LoadOrCreate(distributor, func() (model.Distributor, store.Origin, error) {
			return model.Distributor{ID: distributor}, store.OriginCreated, nil
		}); err != nil {
			return model.RewardPool{}, store.OriginLoaded, fmt.Errorf("load distributor: %w", err)
		}
	}

	origin := store.OriginCreated
	if s.degraded {
		origin = store.OriginFallback
	}
	t.logger.Info("reward pool attached",
		zap.String("reward_pool", rewardPoolID),
		zap.String("borrowable", borrowableID),
		zap.String("distributor", distributor),
		zap.String("share", pool.SharePercentage.String()),
		zap.Stringer("origin", origin),
	)
	return pool, origin, nil
}

// Advance applies an epoch advance and re-reads the pool's distributor share.
// A share read that reverts keeps the previous share.
func (t *Tracker) Advance(r Reader, rewardPoolID string, epochBegin, epochAmount *big.Int) error {
	pool, err := t.store.RewardPools.Get(rewardPoolID)
	if err != nil {
		return err
	}
	pool.EpochAmount = amount.FromWad(epochAmount)
	pool.EpochBegin = amount.Uint64(epochBegin)

	if pool.Distributor != "" {
		s := reads{logger: t.logger, contract: rewardPoolID}
		share, ok := t.sharePercentage(r, &s, pool.Distributor, rewardPoolID)
		if s.fatal != nil {
			return s.fatal
		}
		if ok {
			pool.SharePercentage = share
		}
	}
	t.store.RewardPools.Save(pool)
	return nil
}

func (t *Tracker) sharePercentage(r Reader, s *reads, distributor, rewardPoolID string) (decimal.Decimal, bool) {
	total, err := r.TotalShares(distributor)
	if !s.check(err, "totalShares") {
		return decimal.Zero, false
	}
	shares, err := r.RecipientShares(distributor, rewardPoolID)
	if !s.check(err, "recipients") {
		return decimal.Zero, false
	}
	return amount.Fraction(shares, total), true
}

// reads collects the outcome of a sequence of best-effort contract reads:
// reverts degrade to zero values, the first transport failure is kept.
type reads struct {
	logger   *zap.Logger
	contract string
	degraded bool
	fatal    error
}

func (s *reads) check(err error, method string) bool {
	if err == nil {
		return true
	}
	if contracts.IsReverted(err) {
		s.degraded = true
		s.logger.Warn("reward read reverted, using default",
			zap.String("contract", s.contract),
			zap.String("method", method),
			zap.Error(err),
		)
		return false
	}
	if s.fatal == nil {
		s.fatal = err
	}
	return false
}

func (s *reads) number(method string, read func(string) (*big.Int, error)) *big.Int {
	n, err := read(s.contract)
	if !s.check(err, method) {
		return nil
	}
	return n
}

func (s *reads) address(addr string, err error, method string) string {
	if !s.check(err, method) {
		return ""
	}
	return addr
}
