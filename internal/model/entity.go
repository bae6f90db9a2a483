package model

import "github.com/shopspring/decimal"

// ZeroAddress is the lowercase hex id of the zero address. Mints and burns
// flow through it like any other account.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// Kind names an entity table.
type Kind string

const (
	KindToken              Kind = "token"
	KindPair               Kind = "pair"
	KindLendingPool        Kind = "lending_pool"
	KindCollateral         Kind = "collateral"
	KindBorrowable         Kind = "borrowable"
	KindSupplyPosition     Kind = "supply_position"
	KindBorrowPosition     Kind = "borrow_position"
	KindCollateralPosition Kind = "collateral_position"
	KindUser               Kind = "user"
	KindRewardPool         Kind = "reward_pool"
	KindDistributor        Kind = "distributor"
	KindProtocol           Kind = "protocol"
	KindWatchedContract    Kind = "watched_contract"
)

// Token is an ERC20 asset with its derived prices.
type Token struct {
	ID               string          `json:"id"`
	Symbol           string          `json:"symbol"`
	Name             string          `json:"name"`
	Decimals         uint8           `json:"decimals"`
	DecimalsFallback bool            `json:"decimals_fallback,omitempty"`
	ReferencePrice   decimal.Decimal `json:"reference_price"`
	USDPrice         decimal.Decimal `json:"usd_price"`
}

func (t Token) Key() string { return t.ID }

// Pair is a two-asset AMM pool, or a reward-bearing wrapper around one.
type Pair struct {
	ID                  string          `json:"id"`
	Token0              string          `json:"token0"`
	Token1              string          `json:"token1"`
	Reserve0            decimal.Decimal `json:"reserve0"`
	Reserve1            decimal.Decimal `json:"reserve1"`
	TotalSupply         decimal.Decimal `json:"total_supply"`
	Token0Price         decimal.Decimal `json:"token0_price"`
	Token1Price         decimal.Decimal `json:"token1_price"`
	ReserveReference    decimal.Decimal `json:"reserve_reference"`
	ReserveUSD          decimal.Decimal `json:"reserve_usd"`
	SharePriceReference decimal.Decimal `json:"share_price_reference"`
	SharePriceUSD       decimal.Decimal `json:"share_price_usd"`
	SyncCount           uint64          `json:"sync_count"`
	IsWrapped           bool            `json:"is_wrapped"`
	UnderlyingPair      string          `json:"underlying_pair"`
	RewardToken         string          `json:"reward_token,omitempty"`
}

func (p Pair) Key() string { return p.ID }

// Totals is the USD triple every pool-level aggregate carries.
type Totals struct {
	BalanceUSD decimal.Decimal `json:"balance_usd"`
	SupplyUSD  decimal.Decimal `json:"supply_usd"`
	BorrowsUSD decimal.Decimal `json:"borrows_usd"`
}

// LendingPool groups one collateral and two borrowables over a pair. Its id
// is the pair id.
type LendingPool struct {
	ID                 string          `json:"id"`
	Pair               string          `json:"pair"`
	Collateral         string          `json:"collateral"`
	Borrowable0        string          `json:"borrowable0"`
	Borrowable1        string          `json:"borrowable1"`
	PoolIndex          string          `json:"pool_index"`
	CreatedAtBlock     uint64          `json:"created_at_block"`
	CreatedAtTimestamp uint64          `json:"created_at_timestamp"`
	TotalBalanceUSD    decimal.Decimal `json:"total_balance_usd"`
	TotalSupplyUSD     decimal.Decimal `json:"total_supply_usd"`
	TotalBorrowsUSD    decimal.Decimal `json:"total_borrows_usd"`
}

func (l LendingPool) Key() string { return l.ID }

// Totals returns the pool's current USD aggregates.
func (l LendingPool) Totals() Totals {
	return Totals{BalanceUSD: l.TotalBalanceUSD, SupplyUSD: l.TotalSupplyUSD, BorrowsUSD: l.TotalBorrowsUSD}
}

// Collateral is the shared collateral share token of a lending pool.
type Collateral struct {
	ID                   string          `json:"id"`
	LendingPool          string          `json:"lending_pool"`
	Underlying           string          `json:"underlying"`
	TotalBalance         decimal.Decimal `json:"total_balance"`
	SafetyMargin         decimal.Decimal `json:"safety_margin"`
	LiquidationIncentive decimal.Decimal `json:"liquidation_incentive"`
	ExchangeRate         decimal.Decimal `json:"exchange_rate"`
	TotalBalanceUSD      decimal.Decimal `json:"total_balance_usd"`
}

func (c Collateral) Key() string { return c.ID }

// Borrowable is one debt market of a lending pool.
type Borrowable struct {
	ID                  string          `json:"id"`
	LendingPool         string          `json:"lending_pool"`
	Underlying          string          `json:"underlying"`
	TotalBalance        decimal.Decimal `json:"total_balance"`
	TotalBorrows        decimal.Decimal `json:"total_borrows"`
	BorrowRate          decimal.Decimal `json:"borrow_rate"`
	ReserveFactor       decimal.Decimal `json:"reserve_factor"`
	KinkBorrowRate      decimal.Decimal `json:"kink_borrow_rate"`
	KinkUtilizationRate decimal.Decimal `json:"kink_utilization_rate"`
	BorrowIndex         decimal.Decimal `json:"borrow_index"`
	AccrualTimestamp    uint64          `json:"accrual_timestamp"`
	ExchangeRate        decimal.Decimal `json:"exchange_rate"`
	TotalBalanceUSD     decimal.Decimal `json:"total_balance_usd"`
	TotalSupplyUSD      decimal.Decimal `json:"total_supply_usd"`
	TotalBorrowsUSD     decimal.Decimal `json:"total_borrows_usd"`
	RewardPool          string          `json:"reward_pool,omitempty"`
}

func (b Borrowable) Key() string { return b.ID }

// SupplyPosition is a user's share balance in a borrowable.
type SupplyPosition struct {
	ID         string          `json:"id"`
	Borrowable string          `json:"borrowable"`
	User       string          `json:"user"`
	Balance    decimal.Decimal `json:"balance"`
}

func (p SupplyPosition) Key() string { return p.ID }

// CollateralPosition is a user's share balance in a collateral.
type CollateralPosition struct {
	ID         string          `json:"id"`
	Collateral string          `json:"collateral"`
	User       string          `json:"user"`
	Balance    decimal.Decimal `json:"balance"`
}

func (p CollateralPosition) Key() string { return p.ID }

// BorrowPosition is a user's debt snapshot. Live debt is
// BorrowBalance * borrowable.BorrowIndex / BorrowIndex.
type BorrowPosition struct {
	ID            string          `json:"id"`
	Borrowable    string          `json:"borrowable"`
	User          string          `json:"user"`
	BorrowBalance decimal.Decimal `json:"borrow_balance"`
	BorrowIndex   decimal.Decimal `json:"borrow_index"`
}

func (p BorrowPosition) Key() string { return p.ID }

// User is an account that has held a position.
type User struct {
	ID string `json:"id"`
}

func (u User) Key() string { return u.ID }

// Distributor emits rewards to reward pools in proportion to their shares.
type Distributor struct {
	ID string `json:"id"`
}

func (d Distributor) Key() string { return d.ID }

// RewardPool is the emission schedule attached to a borrowable.
type RewardPool struct {
	ID              string          `json:"id"`
	Borrowable      string          `json:"borrowable"`
	Distributor     string          `json:"distributor"`
	EpochAmount     decimal.Decimal `json:"epoch_amount"`
	EpochBegin      uint64          `json:"epoch_begin"`
	SegmentLength   uint64          `json:"segment_length"`
	VestingBegin    uint64          `json:"vesting_begin"`
	SharePercentage decimal.Decimal `json:"share_percentage"`
}

func (r RewardPool) Key() string { return r.ID }

// Protocol holds the protocol-wide running totals. It is only ever moved by
// ApplyDelta; Version counts applied deltas.
type Protocol struct {
	ID              string          `json:"id"`
	TotalBalanceUSD decimal.Decimal `json:"total_balance_usd"`
	TotalSupplyUSD  decimal.Decimal `json:"total_supply_usd"`
	TotalBorrowsUSD decimal.Decimal `json:"total_borrows_usd"`
	Version         uint64          `json:"version"`
}

func (p Protocol) Key() string { return p.ID }

// ApplyDelta folds a pool's change from prev to next into the totals.
func (p *Protocol) ApplyDelta(prev, next Totals) {
	p.TotalBalanceUSD = p.TotalBalanceUSD.Add(next.BalanceUSD.Sub(prev.BalanceUSD))
	p.TotalSupplyUSD = p.TotalSupplyUSD.Add(next.SupplyUSD.Sub(prev.SupplyUSD))
	p.TotalBorrowsUSD = p.TotalBorrowsUSD.Add(next.BorrowsUSD.Sub(prev.BorrowsUSD))
	p.Version++
}

// PositionID builds the composite id of a (contract, user) position.
func PositionID(contract, user string) string {
	return contract + "-" + user
}
