// Package handler routes decoded events to the valuation engine. Each event
// is handled to completion against the store before the next one starts.
package handler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lendingScope/internal/aggregate"
	"lendingScope/internal/contracts"
	"lendingScope/internal/ledger"
	"lendingScope/internal/model"
	"lendingScope/internal/pricing"
	"lendingScope/internal/rewards"
	"lendingScope/internal/store"
)

// ErrUnknownEntity is returned for an event addressed to an entity that was
// never created. It aborts the run.
var ErrUnknownEntity = store.ErrUnknownEntity

// Registry starts watching newly discovered contracts.
type Registry interface {
	Register(address string, role model.Role, block uint64) bool
}

// Config holds the protocol constants handlers need.
type Config struct {
	// ProtocolID is the lending factory address; it keys the protocol totals.
	ProtocolID string
	// PairSyncMinBlock drops pair and wrapper syncs below this block.
	PairSyncMinBlock uint64
}

type route struct {
	role model.Role
	name string
}

type handlerFunc func(ctx context.Context, c Chain, ev model.Event) error

// Processor dispatches events by (role, event name).
type Processor struct {
	cfg      Config
	store    *store.Store
	chain    ChainSource
	registry Registry
	prices   *pricing.Engine
	valuator *aggregate.Valuator
	ledger   *ledger.Ledger
	rewards  *rewards.Tracker
	logger   *zap.Logger
	routes   map[route]handlerFunc
}

// New wires a processor.
func New(cfg Config, st *store.Store, chain ChainSource, registry Registry, prices *pricing.Engine, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Processor{
		cfg:      cfg,
		store:    st,
		chain:    chain,
		registry: registry,
		prices:   prices,
		valuator: aggregate.New(st, prices, cfg.ProtocolID, logger.Named("aggregate")),
		ledger:   ledger.New(st, logger.Named("ledger")),
		rewards:  rewards.New(st, logger.Named("rewards")),
		logger:   logger,
	}
	p.routes = map[route]handlerFunc{
		{model.RoleFactory, model.EventLendingPoolInitialized}: p.onLendingPoolInitialized,

		{model.RolePair, model.EventSync}:        p.onPairSync,
		{model.RoleWrappedPair, model.EventSync}: p.onWrappedPairSync,

		{model.RoleBorrowable, model.EventSync}:                    p.onBorrowableSync,
		{model.RoleBorrowable, model.EventAccrueInterest}:          p.onAccrueInterest,
		{model.RoleBorrowable, model.EventBorrow}:                  p.onBorrow,
		{model.RoleBorrowable, model.EventLiquidate}:               p.onLiquidate,
		{model.RoleBorrowable, model.EventCalculateKinkBorrowRate}: p.onBorrowableParameter,
		{model.RoleBorrowable, model.EventCalculateBorrowRate}:     p.onBorrowableParameter,
		{model.RoleBorrowable, model.EventNewReserveFactor}:        p.onBorrowableParameter,
		{model.RoleBorrowable, model.EventNewKinkUtilizationRate}:  p.onBorrowableParameter,
		{model.RoleBorrowable, model.EventNewBorrowTracker}:        p.onNewBorrowTracker,
		{model.RoleBorrowable, model.EventTransfer}:                p.onBorrowableTransfer,

		{model.RoleCollateral, model.EventSync}:                    p.onCollateralSync,
		{model.RoleCollateral, model.EventNewSafetyMargin}:         p.onCollateralParameter,
		{model.RoleCollateral, model.EventNewLiquidationIncentive}: p.onCollateralParameter,
		{model.RoleCollateral, model.EventTransfer}:                p.onCollateralTransfer,

		{model.RoleRewardPool, model.EventAdvance}: p.onAdvance,
	}
	return p
}

// Handles reports whether the processor has a handler for (role, name).
func (p *Processor) Handles(role model.Role, name string) bool {
	_, ok := p.routes[route{role, name}]
	return ok
}

// Handle applies one event. Any returned error is fatal for the run.
func (p *Processor) Handle(ctx context.Context, ev model.Event) error {
	fn, ok := p.routes[route{ev.Role, ev.Name}]
	if !ok {
		p.logger.Debug("no handler for event",
			zap.String("role", string(ev.Role)),
			zap.String("event", ev.Name),
			zap.String("address", ev.Address),
		)
		return nil
	}
	if err := fn(ctx, p.chain.ChainAt(ctx, ev.BlockNumber), ev); err != nil {
		return fmt.Errorf("%s %s at %d/%d on %s: %w", ev.Role, ev.Name, ev.BlockNumber, ev.LogIndex, ev.Address, err)
	}
	return nil
}

func payload[T any](ev model.Event) (T, error) {
	data, ok := ev.Payload.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("unexpected payload %T", ev.Payload)
	}
	return data, nil
}

// degraded logs a reverted read and reports true, or returns err untouched
// when it is a transport failure.
func (p *Processor) degraded(err error, contract, method string, block uint64) (bool, error) {
	if err == nil {
		return false, nil
	}
	if !contracts.IsReverted(err) {
		return false, err
	}
	p.logger.Warn("contract read reverted, using default",
		zap.String("contract", contract),
		zap.String("method", method),
		zap.Uint64("block", block),
		zap.Error(err),
	)
	return true, nil
}
