// Package pricing discovers token prices by walking AMM pairs against a
// reference asset, then converts them to USD through a stable anchor pair.
// Prices are always read from live pair state; nothing is cached here.
package pricing

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lendingScope/internal/amount"
	"lendingScope/internal/contracts"
	"lendingScope/internal/model"
)

// PairReader is the slice of the contract read interface price discovery
// needs.
type PairReader interface {
	GetPair(factory, tokenA, tokenB string) (string, error)
	Token0(pair string) (string, error)
	Token1(pair string) (string, error)
	Reserves(pair string) (*big.Int, *big.Int, error)
	Decimals(token string) (uint8, error)
}

// Engine resolves prices relative to one reference asset and one USD anchor.
type Engine struct {
	reference string
	anchor    string
	logger    *zap.Logger
}

// NewEngine creates an engine. reference and anchor are entity ids.
func NewEngine(reference, anchor string, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{reference: reference, anchor: anchor, logger: logger}
}

// Reference returns the reference asset id.
func (e *Engine) Reference() string {
	return e.reference
}

// Quote is a token's price in both currencies.
type Quote struct {
	Reference decimal.Decimal
	USD       decimal.Decimal
}

// RelativePrice returns how many units of the other constituent one unit of
// token is worth in pair. Zero reserves give zero. A reverted read makes the
// pair unpriced and is not an error.
func (e *Engine) RelativePrice(r PairReader, pair, token string) (decimal.Decimal, error) {
	token0, err := r.Token0(pair)
	if err != nil {
		return e.unpriced(err, pair)
	}
	token1, err := r.Token1(pair)
	if err != nil {
		return e.unpriced(err, pair)
	}
	raw0, raw1, err := r.Reserves(pair)
	if err != nil {
		return e.unpriced(err, pair)
	}
	decimals0, err := r.Decimals(token0)
	if err != nil {
		return e.unpriced(err, pair)
	}
	decimals1, err := r.Decimals(token1)
	if err != nil {
		return e.unpriced(err, pair)
	}

	reserve0 := amount.FromRaw(raw0, decimals0)
	reserve1 := amount.FromRaw(raw1, decimals1)
	if token0 == token {
		return amount.Div(reserve1, reserve0), nil
	}
	return amount.Div(reserve0, reserve1), nil
}

// USDAnchorPrice returns the USD price of the reference asset, read from the
// anchor/reference pair of factory. No such pair, or no factory, gives zero.
func (e *Engine) USDAnchorPrice(r PairReader, factory string) (decimal.Decimal, error) {
	if factory == "" {
		return amount.Zero, nil
	}
	pair, err := r.GetPair(factory, e.anchor, e.reference)
	if err != nil {
		return e.unpriced(err, factory)
	}
	if pair == model.ZeroAddress {
		return amount.Zero, nil
	}
	return e.RelativePrice(r, pair, e.reference)
}

// ReferencePrice returns token's price in the reference asset. The reference
// asset itself is worth one; a token without a reference pair is worth zero.
func (e *Engine) ReferencePrice(r PairReader, factory, token string) (decimal.Decimal, error) {
	if token == e.reference {
		return amount.One, nil
	}
	if factory == "" {
		return amount.Zero, nil
	}
	pair, err := r.GetPair(factory, token, e.reference)
	if err != nil {
		return e.unpriced(err, factory)
	}
	if pair == model.ZeroAddress {
		return amount.Zero, nil
	}
	return e.RelativePrice(r, pair, token)
}

// Quote prices token against a USD anchor price already read for this sync.
func (e *Engine) Quote(r PairReader, factory, token string, anchorUSD decimal.Decimal) (Quote, error) {
	ref, err := e.ReferencePrice(r, factory, token)
	if err != nil {
		return Quote{}, fmt.Errorf("reference price %s: %w", token, err)
	}
	return Quote{Reference: ref, USD: ref.Mul(anchorUSD)}, nil
}

// USDPrice is ReferencePrice times USDAnchorPrice.
func (e *Engine) USDPrice(r PairReader, factory, token string) (decimal.Decimal, error) {
	anchorUSD, err := e.USDAnchorPrice(r, factory)
	if err != nil {
		return amount.Zero, fmt.Errorf("anchor price: %w", err)
	}
	quote, err := e.Quote(r, factory, token, anchorUSD)
	if err != nil {
		return amount.Zero, err
	}
	return quote.USD, nil
}

func (e *Engine) unpriced(err error, address string) (decimal.Decimal, error) {
	if contracts.IsReverted(err) {
		e.logger.Warn("price read reverted, treating as unpriced", zap.String("contract", address), zap.Error(err))
		return amount.Zero, nil
	}
	return amount.Zero, err
}
