package contracts

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// Caller executes eth_call. *chain.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Reader builds per-event views over live contract state.
type Reader struct {
	caller   Caller
	pinBlock bool
	onRevert func(method string)
}

// Option configures a Reader.
type Option func(*Reader)

// WithPinnedBlock makes views read state at the event's block instead of
// the latest block.
func WithPinnedBlock(pin bool) Option {
	return func(r *Reader) { r.pinBlock = pin }
}

// WithRevertHook registers fn to be called for every reverted read.
func WithRevertHook(fn func(method string)) Option {
	return func(r *Reader) { r.onRevert = fn }
}

// NewReader creates a Reader over caller.
func NewReader(caller Caller, opts ...Option) *Reader {
	r := &Reader{caller: caller, pinBlock: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// At returns a view reading state as of block.
func (r *Reader) At(ctx context.Context, block uint64) *View {
	v := &View{ctx: ctx, reader: r, blockNumber: block}
	if r.pinBlock && block > 0 {
		v.block = new(big.Int).SetUint64(block)
	}
	return v
}

// View is a set of typed reads bound to one context and block height.
type View struct {
	ctx         context.Context
	reader      *Reader
	block       *big.Int
	blockNumber uint64
}

func (v *View) call(parsed *lazyABI, address string, method string, args ...interface{}) ([]interface{}, error) {
	fail := func(err error) error {
		if IsReverted(err) && v.reader.onRevert != nil {
			v.reader.onRevert(method)
		}
		return &ReadError{Method: method, Address: address, Block: v.blockNumber, Err: err}
	}

	contractABI, err := parsed.get()
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	if !common.IsHexAddress(address) {
		return nil, fail(fmt.Errorf("invalid address %q", address))
	}
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fail(fmt.Errorf("pack: %w", err))
	}
	to := common.HexToAddress(address)
	resp, err := v.reader.caller.CallContract(v.ctx, ethereum.CallMsg{To: &to, Data: data}, v.block)
	if err != nil {
		return nil, fail(classifyCallError(err))
	}
	if len(resp) == 0 {
		return nil, fail(fmt.Errorf("%w: empty return", ErrReverted))
	}
	values, err := contractABI.Unpack(method, resp)
	if err != nil {
		return nil, fail(fmt.Errorf("%w: unpack: %w", ErrReverted, err))
	}
	if len(values) == 0 {
		return nil, fail(fmt.Errorf("%w: no values", ErrReverted))
	}
	return values, nil
}

func (v *View) address(parsed *lazyABI, address, method string, args ...interface{}) (string, error) {
	values, err := v.call(parsed, address, method, args...)
	if err != nil {
		return "", err
	}
	addr, err := asAddress(values[0])
	if err != nil {
		return "", &ReadError{Method: method, Address: address, Block: v.blockNumber, Err: fmt.Errorf("%w: %w", ErrReverted, err)}
	}
	return AddressID(addr), nil
}

func (v *View) bigInt(parsed *lazyABI, address, method string, args ...interface{}) (*big.Int, error) {
	values, err := v.call(parsed, address, method, args...)
	if err != nil {
		return nil, err
	}
	n, err := asBigInt(values[0])
	if err != nil {
		return nil, &ReadError{Method: method, Address: address, Block: v.blockNumber, Err: fmt.Errorf("%w: %w", ErrReverted, err)}
	}
	return n, nil
}

// Decimals reads an ERC20 decimal exponent.
func (v *View) Decimals(token string) (uint8, error) {
	values, err := v.call(erc20StringABI, token, "decimals")
	if err != nil {
		return 0, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return 0, &ReadError{Method: "decimals", Address: token, Block: v.blockNumber, Err: fmt.Errorf("%w: %w", ErrReverted, err)}
	}
	return decimals, nil
}

// Symbol reads a string-typed ERC20 symbol.
func (v *View) Symbol(token string) (string, error) {
	return v.text(erc20StringABI, token, "symbol")
}

// Name reads a string-typed ERC20 name.
func (v *View) Name(token string) (string, error) {
	return v.text(erc20StringABI, token, "name")
}

// SymbolBytes32 reads a bytes32-typed symbol, as returned by older tokens.
func (v *View) SymbolBytes32(token string) (string, error) {
	return v.text(erc20Bytes32ABI, token, "symbol")
}

// NameBytes32 reads a bytes32-typed name.
func (v *View) NameBytes32(token string) (string, error) {
	return v.text(erc20Bytes32ABI, token, "name")
}

func (v *View) text(parsed *lazyABI, token, method string) (string, error) {
	values, err := v.call(parsed, token, method)
	if err != nil {
		return "", err
	}
	if s, ok := values[0].(string); ok {
		return s, nil
	}
	if s, ok := bytes32ToString(values[0]); ok {
		return s, nil
	}
	return "", &ReadError{Method: method, Address: token, Block: v.blockNumber, Err: fmt.Errorf("%w: null value", ErrReverted)}
}

// TotalSupply reads an ERC20 total supply.
func (v *View) TotalSupply(token string) (*big.Int, error) {
	return v.bigInt(erc20StringABI, token, "totalSupply")
}

// Token0 reads a pair's first constituent.
func (v *View) Token0(pair string) (string, error) {
	return v.address(pairABI, pair, "token0")
}

// Token1 reads a pair's second constituent.
func (v *View) Token1(pair string) (string, error) {
	return v.address(pairABI, pair, "token1")
}

// Reserves reads a pair's (or vault wrapper's) raw reserves.
func (v *View) Reserves(pair string) (*big.Int, *big.Int, error) {
	values, err := v.call(pairABI, pair, "getReserves")
	if err != nil {
		return nil, nil, err
	}
	if len(values) < 2 {
		return nil, nil, &ReadError{Method: "getReserves", Address: pair, Block: v.blockNumber, Err: fmt.Errorf("%w: %d values", ErrReverted, len(values))}
	}
	r0, err0 := asBigInt(values[0])
	r1, err1 := asBigInt(values[1])
	if err0 != nil || err1 != nil {
		return nil, nil, &ReadError{Method: "getReserves", Address: pair, Block: v.blockNumber, Err: fmt.Errorf("%w: reserve types %T %T", ErrReverted, values[0], values[1])}
	}
	return r0, r1, nil
}

// PairFactory reads the AMM factory that deployed a pair.
func (v *View) PairFactory(pair string) (string, error) {
	return v.address(pairABI, pair, "factory")
}

// GetPair looks up the pair for (tokenA, tokenB). The zero address means
// no pair exists.
func (v *View) GetPair(factory, tokenA, tokenB string) (string, error) {
	return v.address(factoryABI, factory, "getPair", common.HexToAddress(tokenA), common.HexToAddress(tokenB))
}

// RouterFactory reads the factory behind a router.
func (v *View) RouterFactory(router string) (string, error) {
	return v.address(factoryABI, router, "factory")
}

// IsVaultToken probes whether a pair address is a vault wrapper. Plain
// pairs revert.
func (v *View) IsVaultToken(pair string) (bool, error) {
	values, err := v.call(pairABI, pair, "isVaultToken")
	if err != nil {
		return false, err
	}
	ok, isBool := values[0].(bool)
	if !isBool {
		return false, &ReadError{Method: "isVaultToken", Address: pair, Block: v.blockNumber, Err: fmt.Errorf("%w: type %T", ErrReverted, values[0])}
	}
	return ok, nil
}

// Underlying reads the pair wrapped by a vault.
func (v *View) Underlying(vault string) (string, error) {
	return v.address(pairABI, vault, "underlying")
}

// RewardsToken reads the reward token a vault harvests.
func (v *View) RewardsToken(vault string) (string, error) {
	return v.address(pairABI, vault, "rewardsToken")
}

// Router reads the AMM router a vault trades through.
func (v *View) Router(vault string) (string, error) {
	return v.address(pairABI, vault, "router")
}

// ExchangeRate reads a collateral or borrowable share exchange rate.
func (v *View) ExchangeRate(poolToken string) (*big.Int, error) {
	return v.bigInt(poolTokenABI, poolToken, "exchangeRate")
}

// Claimable reads the distributor a reward pool claims from.
func (v *View) Claimable(rewardPool string) (string, error) {
	return v.address(rewardPoolABI, rewardPool, "claimable")
}

// EpochAmount reads the reward pool's current epoch emission.
func (v *View) EpochAmount(rewardPool string) (*big.Int, error) {
	return v.bigInt(rewardPoolABI, rewardPool, "epochAmount")
}

// EpochBegin reads the current epoch start time.
func (v *View) EpochBegin(rewardPool string) (*big.Int, error) {
	return v.bigInt(rewardPoolABI, rewardPool, "epochBegin")
}

// SegmentLength reads the vesting segment length.
func (v *View) SegmentLength(rewardPool string) (*big.Int, error) {
	return v.bigInt(rewardPoolABI, rewardPool, "segmentLength")
}

// VestingBegin reads the vesting start time.
func (v *View) VestingBegin(rewardPool string) (*big.Int, error) {
	return v.bigInt(rewardPoolABI, rewardPool, "vestingBegin")
}

// TotalShares reads a distributor's total allocated shares.
func (v *View) TotalShares(distributor string) (*big.Int, error) {
	return v.bigInt(distributorABI, distributor, "totalShares")
}

// RecipientShares reads the shares a distributor allocates to recipient.
func (v *View) RecipientShares(distributor, recipient string) (*big.Int, error) {
	return v.bigInt(distributorABI, distributor, "recipients", common.HexToAddress(recipient))
}

// AddressID renders an address as the lowercase hex id entities use.
func AddressID(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// NormalizeAddress validates a hex address and returns its entity id.
func NormalizeAddress(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return "", fmt.Errorf("invalid address: %s", s)
	}
	return AddressID(common.HexToAddress(s)), nil
}

var nullBytes32 = common.BigToHash(big.NewInt(1))

func bytes32ToString(value interface{}) (string, bool) {
	var raw []byte
	switch v := value.(type) {
	case [32]byte:
		if common.Hash(v) == nullBytes32 {
			return "", false
		}
		raw = v[:]
	case []byte:
		if common.BytesToHash(v) == nullBytes32 {
			return "", false
		}
		raw = v
	default:
		return "", false
	}
	return string(bytes.TrimRight(raw, "\x00")), true
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("nil big int")
		}
		return new(big.Int).Set(v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		if v == nil || !v.IsUint64() || v.Uint64() > 255 {
			return 0, fmt.Errorf("decimals out of range")
		}
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
