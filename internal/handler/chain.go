package handler

import (
	"context"
	"math/big"

	"lendingScope/internal/contracts"
	"lendingScope/internal/pricing"
	"lendingScope/internal/rewards"
)

// Chain is the set of live contract reads handlers perform. Every read can
// fail; contracts.IsReverted separates contract-level failures, which fall
// back to defaults, from transport failures, which abort the event.
type Chain interface {
	pricing.PairReader
	rewards.Reader

	Symbol(token string) (string, error)
	Name(token string) (string, error)
	SymbolBytes32(token string) (string, error)
	NameBytes32(token string) (string, error)
	TotalSupply(token string) (*big.Int, error)

	PairFactory(pair string) (string, error)
	RouterFactory(router string) (string, error)
	IsVaultToken(pair string) (bool, error)
	Underlying(vault string) (string, error)
	RewardsToken(vault string) (string, error)
	Router(vault string) (string, error)

	ExchangeRate(poolToken string) (*big.Int, error)
}

// ChainSource opens a read view for one event's block.
type ChainSource interface {
	ChainAt(ctx context.Context, block uint64) Chain
}

var _ Chain = (*contracts.View)(nil)

type readerSource struct {
	reader *contracts.Reader
}

// ReaderSource adapts a contract reader to ChainSource.
func ReaderSource(reader *contracts.Reader) ChainSource {
	return readerSource{reader: reader}
}

func (s readerSource) ChainAt(ctx context.Context, block uint64) Chain {
	return s.reader.At(ctx, block)
}
