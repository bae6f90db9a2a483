package contracts

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const erc20StringABIJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalSupply", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const erc20Bytes32ABIJSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

// pairABIJSON covers the AMM pair and the vault wrapper accessors. A vault
// token exposes getReserves and totalSupply with the same shape as a pair.
const pairABIJSON = `[
  {"inputs": [], "name": "token0", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "token1", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "factory", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalSupply", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {
    "inputs": [],
    "name": "getReserves",
    "outputs": [
      {"name": "reserve0", "type": "uint112"},
      {"name": "reserve1", "type": "uint112"},
      {"name": "blockTimestampLast", "type": "uint32"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {"inputs": [], "name": "isVaultToken", "outputs": [{"type": "bool"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "underlying", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "rewardsToken", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "router", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"}
]`

const factoryABIJSON = `[
  {
    "inputs": [{"name": "tokenA", "type": "address"}, {"name": "tokenB", "type": "address"}],
    "name": "getPair",
    "outputs": [{"type": "address"}],
    "stateMutability": "view",
    "type": "function"
  },
  {"inputs": [], "name": "factory", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"}
]`

// poolTokenABIJSON is shared by collateral and borrowable share tokens.
const poolTokenABIJSON = `[
  {"inputs": [], "name": "exchangeRate", "outputs": [{"type": "uint256"}], "stateMutability": "nonpayable", "type": "function"}
]`

const rewardPoolABIJSON = `[
  {"inputs": [], "name": "claimable", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "epochAmount", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "epochBegin", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "segmentLength", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "vestingBegin", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const distributorABIJSON = `[
  {"inputs": [], "name": "totalShares", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {
    "inputs": [{"name": "recipient", "type": "address"}],
    "name": "recipients",
    "outputs": [
      {"name": "shares", "type": "uint256"},
      {"name": "lastShareIndex", "type": "uint256"},
      {"name": "credit", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

const factoryEventsJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "uniswapV2Pair", "type": "address"},
      {"indexed": true, "name": "token0", "type": "address"},
      {"indexed": true, "name": "token1", "type": "address"},
      {"indexed": false, "name": "collateral", "type": "address"},
      {"indexed": false, "name": "borrowable0", "type": "address"},
      {"indexed": false, "name": "borrowable1", "type": "address"},
      {"indexed": false, "name": "lendingPoolId", "type": "uint256"}
    ],
    "name": "LendingPoolInitialized",
    "type": "event"
  }
]`

const borrowableEventsJSON = `[
  {"anonymous": false, "inputs": [{"indexed": false, "name": "totalBalance", "type": "uint256"}], "name": "Sync", "type": "event"},
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "name": "interestAccumulated", "type": "uint256"},
      {"indexed": false, "name": "borrowIndex", "type": "uint256"},
      {"indexed": false, "name": "totalBorrows", "type": "uint256"}
    ],
    "name": "AccrueInterest",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "sender", "type": "address"},
      {"indexed": true, "name": "borrower", "type": "address"},
      {"indexed": true, "name": "receiver", "type": "address"},
      {"indexed": false, "name": "borrowAmount", "type": "uint256"},
      {"indexed": false, "name": "repayAmount", "type": "uint256"},
      {"indexed": false, "name": "accountBorrowsPrior", "type": "uint256"},
      {"indexed": false, "name": "accountBorrows", "type": "uint256"},
      {"indexed": false, "name": "totalBorrows", "type": "uint256"}
    ],
    "name": "Borrow",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "sender", "type": "address"},
      {"indexed": true, "name": "borrower", "type": "address"},
      {"indexed": true, "name": "liquidator", "type": "address"},
      {"indexed": false, "name": "seizeTokens", "type": "uint256"},
      {"indexed": false, "name": "repayAmount", "type": "uint256"},
      {"indexed": false, "name": "accountBorrowsPrior", "type": "uint256"},
      {"indexed": false, "name": "accountBorrows", "type": "uint256"},
      {"indexed": false, "name": "totalBorrows", "type": "uint256"}
    ],
    "name": "Liquidate",
    "type": "event"
  },
  {"anonymous": false, "inputs": [{"indexed": false, "name": "kinkBorrowRate", "type": "uint256"}], "name": "CalculateKinkBorrowRate", "type": "event"},
  {"anonymous": false, "inputs": [{"indexed": false, "name": "borrowRate", "type": "uint256"}], "name": "CalculateBorrowRate", "type": "event"},
  {"anonymous": false, "inputs": [{"indexed": false, "name": "newReserveFactor", "type": "uint256"}], "name": "NewReserveFactor", "type": "event"},
  {"anonymous": false, "inputs": [{"indexed": false, "name": "newKinkUtilizationRate", "type": "uint256"}], "name": "NewKinkUtilizationRate", "type": "event"},
  {"anonymous": false, "inputs": [{"indexed": false, "name": "newBorrowTracker", "type": "address"}], "name": "NewBorrowTracker", "type": "event"},
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "from", "type": "address"},
      {"indexed": true, "name": "to", "type": "address"},
      {"indexed": false, "name": "value", "type": "uint256"}
    ],
    "name": "Transfer",
    "type": "event"
  }
]`

const collateralEventsJSON = `[
  {"anonymous": false, "inputs": [{"indexed": false, "name": "totalBalance", "type": "uint256"}], "name": "Sync", "type": "event"},
  {"anonymous": false, "inputs": [{"indexed": false, "name": "newSafetyMarginSqrt", "type": "uint256"}], "name": "NewSafetyMargin", "type": "event"},
  {"anonymous": false, "inputs": [{"indexed": false, "name": "newLiquidationIncentive", "type": "uint256"}], "name": "NewLiquidationIncentive", "type": "event"},
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "from", "type": "address"},
      {"indexed": true, "name": "to", "type": "address"},
      {"indexed": false, "name": "value", "type": "uint256"}
    ],
    "name": "Transfer",
    "type": "event"
  }
]`

const pairEventsJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "name": "reserve0", "type": "uint112"},
      {"indexed": false, "name": "reserve1", "type": "uint112"}
    ],
    "name": "Sync",
    "type": "event"
  }
]`

const wrappedPairEventsJSON = `[
  {"anonymous": false, "inputs": [{"indexed": false, "name": "totalBalance", "type": "uint256"}], "name": "Sync", "type": "event"}
]`

const rewardPoolEventsJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "name": "epochBegin", "type": "uint256"},
      {"indexed": false, "name": "epochAmount", "type": "uint256"}
    ],
    "name": "Advance",
    "type": "event"
  }
]`

type lazyABI struct {
	json   string
	once   sync.Once
	parsed abi.ABI
	err    error
}

func (l *lazyABI) get() (abi.ABI, error) {
	l.once.Do(func() {
		l.parsed, l.err = abi.JSON(strings.NewReader(l.json))
	})
	return l.parsed, l.err
}

var (
	erc20StringABI  = &lazyABI{json: erc20StringABIJSON}
	erc20Bytes32ABI = &lazyABI{json: erc20Bytes32ABIJSON}
	pairABI         = &lazyABI{json: pairABIJSON}
	factoryABI      = &lazyABI{json: factoryABIJSON}
	poolTokenABI    = &lazyABI{json: poolTokenABIJSON}
	rewardPoolABI   = &lazyABI{json: rewardPoolABIJSON}
	distributorABI  = &lazyABI{json: distributorABIJSON}

	factoryEvents     = &lazyABI{json: factoryEventsJSON}
	borrowableEvents  = &lazyABI{json: borrowableEventsJSON}
	collateralEvents  = &lazyABI{json: collateralEventsJSON}
	pairEvents        = &lazyABI{json: pairEventsJSON}
	wrappedPairEvents = &lazyABI{json: wrappedPairEventsJSON}
	rewardPoolEvents  = &lazyABI{json: rewardPoolEventsJSON}
)

// FactoryEventsABI returns the lending factory event ABI.
func FactoryEventsABI() (abi.ABI, error) { return factoryEvents.get() }

// BorrowableEventsABI returns the borrowable event ABI.
func BorrowableEventsABI() (abi.ABI, error) { return borrowableEvents.get() }

// CollateralEventsABI returns the collateral event ABI.
func CollateralEventsABI() (abi.ABI, error) { return collateralEvents.get() }

// PairEventsABI returns the AMM pair event ABI.
func PairEventsABI() (abi.ABI, error) { return pairEvents.get() }

// WrappedPairEventsABI returns the vault wrapper event ABI.
func WrappedPairEventsABI() (abi.ABI, error) { return wrappedPairEvents.get() }

// RewardPoolEventsABI returns the reward pool event ABI.
func RewardPoolEventsABI() (abi.ABI, error) { return rewardPoolEvents.get() }
