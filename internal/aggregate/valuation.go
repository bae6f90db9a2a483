// Package aggregate keeps pair valuations and lending pool USD totals current
// and folds pool changes into the protocol-wide totals as deltas.
package aggregate

import (
	"math/big"

	"go.uber.org/zap"

	"lendingScope/internal/pricing"
	"lendingScope/internal/store"
)

// Valuator applies pair syncs and lending pool refreshes to the store.
type Valuator struct {
	store      *store.Store
	prices     *pricing.Engine
	protocolID string
	logger     *zap.Logger
}

// New creates a Valuator. protocolID is the id of the protocol totals record.
func New(st *store.Store, prices *pricing.Engine, protocolID string, logger *zap.Logger) *Valuator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Valuator{store: st, prices: prices, protocolID: protocolID, logger: logger}
}

// ReserveSnapshot is the raw pair state a sync is computed from.
type ReserveSnapshot struct {
	// Factory is the AMM factory prices are discovered through.
	Factory     string
	Reserve0    *big.Int
	Reserve1    *big.Int
	TotalSupply *big.Int
}
