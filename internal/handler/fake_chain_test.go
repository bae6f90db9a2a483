package handler

import (
	"context"
	"fmt"
	"math/big"

	"lendingScope/internal/contracts"
	"lendingScope/internal/model"
)

// fakeChain answers reads from maps. A read with no configured answer
// reverts, like a call to a contract that lacks the method.
type fakeChain struct {
	text      map[string]string
	decimals  map[string]uint8
	addresses map[string]string
	numbers   map[string]*big.Int
	reserves  map[string][2]*big.Int
	vaults    map[string]bool
	pairs     map[string]string
	errs      map[string]error
	calls     []string
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		text:      map[string]string{},
		decimals:  map[string]uint8{},
		addresses: map[string]string{},
		numbers:   map[string]*big.Int{},
		reserves:  map[string][2]*big.Int{},
		vaults:    map[string]bool{},
		pairs:     map[string]string{},
		errs:      map[string]error{},
	}
}

func key(method, address string) string {
	return method + "|" + address
}

func revert(method, address string) error {
	return &contracts.ReadError{Method: method, Address: address, Err: fmt.Errorf("%w: execution reverted", contracts.ErrReverted)}
}

func (f *fakeChain) token(id, symbol string, decimals uint8) {
	f.text[key("symbol", id)] = symbol
	f.text[key("name", id)] = symbol + " token"
	f.decimals[id] = decimals
}

func (f *fakeChain) pair(id, token0, token1, factory string) {
	f.addresses[key("token0", id)] = token0
	f.addresses[key("token1", id)] = token1
	f.addresses[key("factory", id)] = factory
	f.pairs[token0+token1] = id
	f.pairs[token1+token0] = id
}

func (f *fakeChain) lookup(method, address string) error {
	f.calls = append(f.calls, key(method, address))
	if err, ok := f.errs[key(method, address)]; ok {
		return err
	}
	return nil
}

func (f *fakeChain) textRead(method, address string) (string, error) {
	if err := f.lookup(method, address); err != nil {
		return "", err
	}
	v, ok := f.text[key(method, address)]
	if !ok {
		return "", revert(method, address)
	}
	return v, nil
}

func (f *fakeChain) addressRead(method, address string) (string, error) {
	if err := f.lookup(method, address); err != nil {
		return "", err
	}
	v, ok := f.addresses[key(method, address)]
	if !ok {
		return "", revert(method, address)
	}
	return v, nil
}

func (f *fakeChain) numberRead(method, address string) (*big.Int, error) {
	if err := f.lookup(method, address); err != nil {
		return nil, err
	}
	v, ok := f.numbers[key(method, address)]
	if !ok {
		return nil, revert(method, address)
	}
	return v, nil
}

func (f *fakeChain) Symbol(token string) (string, error) { return f.textRead("symbol", token) }
func (f *fakeChain) Name(token string) (string, error)   { return f.textRead("name", token) }
func (f *fakeChain) SymbolBytes32(token string) (string, error) {
	return f.textRead("symbolBytes32", token)
}
func (f *fakeChain) NameBytes32(token string) (string, error) {
	return f.textRead("nameBytes32", token)
}

func (f *fakeChain) Decimals(token string) (uint8, error) {
	if err := f.lookup("decimals", token); err != nil {
		return 0, err
	}
	d, ok := f.decimals[token]
	if !ok {
		return 0, revert("decimals", token)
	}
	return d, nil
}

func (f *fakeChain) TotalSupply(token string) (*big.Int, error) {
	return f.numberRead("totalSupply", token)
}
func (f *fakeChain) Token0(pair string) (string, error)      { return f.addressRead("token0", pair) }
func (f *fakeChain) Token1(pair string) (string, error)      { return f.addressRead("token1", pair) }
func (f *fakeChain) PairFactory(pair string) (string, error) { return f.addressRead("factory", pair) }
func (f *fakeChain) RouterFactory(router string) (string, error) {
	return f.addressRead("routerFactory", router)
}
func (f *fakeChain) Underlying(vault string) (string, error) {
	return f.addressRead("underlying", vault)
}
func (f *fakeChain) RewardsToken(vault string) (string, error) {
	return f.addressRead("rewardsToken", vault)
}
func (f *fakeChain) Router(vault string) (string, error) { return f.addressRead("router", vault) }

func (f *fakeChain) Reserves(pair string) (*big.Int, *big.Int, error) {
	if err := f.lookup("getReserves", pair); err != nil {
		return nil, nil, err
	}
	r, ok := f.reserves[pair]
	if !ok {
		return nil, nil, revert("getReserves", pair)
	}
	return r[0], r[1], nil
}

func (f *fakeChain) GetPair(factory, a, b string) (string, error) {
	if err := f.lookup("getPair", factory); err != nil {
		return "", err
	}
	if p, ok := f.pairs[a+b]; ok {
		return p, nil
	}
	return model.ZeroAddress, nil
}

func (f *fakeChain) IsVaultToken(pair string) (bool, error) {
	if err := f.lookup("isVaultToken", pair); err != nil {
		return false, err
	}
	v, ok := f.vaults[pair]
	if !ok {
		return false, revert("isVaultToken", pair)
	}
	return v, nil
}

func (f *fakeChain) ExchangeRate(poolToken string) (*big.Int, error) {
	return f.numberRead("exchangeRate", poolToken)
}
func (f *fakeChain) Claimable(pool string) (string, error) { return f.addressRead("claimable", pool) }
func (f *fakeChain) EpochAmount(pool string) (*big.Int, error) {
	return f.numberRead("epochAmount", pool)
}
func (f *fakeChain) EpochBegin(pool string) (*big.Int, error) {
	return f.numberRead("epochBegin", pool)
}
func (f *fakeChain) SegmentLength(pool string) (*big.Int, error) {
	return f.numberRead("segmentLength", pool)
}
func (f *fakeChain) VestingBegin(pool string) (*big.Int, error) {
	return f.numberRead("vestingBegin", pool)
}
func (f *fakeChain) TotalShares(distributor string) (*big.Int, error) {
	return f.numberRead("totalShares", distributor)
}
func (f *fakeChain) RecipientShares(distributor, recipient string) (*big.Int, error) {
	return f.numberRead("recipients", distributor+"/"+recipient)
}

type fakeSource struct {
	chain  *fakeChain
	blocks []uint64
}

func (s *fakeSource) ChainAt(_ context.Context, block uint64) Chain {
	s.blocks = append(s.blocks, block)
	return s.chain
}
