package model

import "math/big"

// Event names as they appear in the contract ABIs.
const (
	EventLendingPoolInitialized  = "LendingPoolInitialized"
	EventSync                    = "Sync"
	EventAccrueInterest          = "AccrueInterest"
	EventBorrow                  = "Borrow"
	EventLiquidate               = "Liquidate"
	EventCalculateKinkBorrowRate = "CalculateKinkBorrowRate"
	EventCalculateBorrowRate     = "CalculateBorrowRate"
	EventNewReserveFactor        = "NewReserveFactor"
	EventNewKinkUtilizationRate  = "NewKinkUtilizationRate"
	EventNewBorrowTracker        = "NewBorrowTracker"
	EventTransfer                = "Transfer"
	EventNewSafetyMargin         = "NewSafetyMargin"
	EventNewLiquidationIncentive = "NewLiquidationIncentive"
	EventAdvance                 = "Advance"
)

// Event is a decoded log addressed to one role of a watched contract.
type Event struct {
	ChainID     uint64
	BlockNumber uint64
	BlockHash   string
	TxHash      string
	LogIndex    uint64
	Address     string
	Timestamp   uint64
	Role        Role
	Name        string
	Payload     interface{}
}

// LendingPoolInitializedData is emitted by the lending factory.
type LendingPoolInitializedData struct {
	Pair        string
	Token0      string
	Token1      string
	Collateral  string
	Borrowable0 string
	Borrowable1 string
	PoolIndex   *big.Int
}

// BalanceSyncData carries a share token's new total balance. Wrapped pairs
// emit it too, where it only triggers a reserve refresh.
type BalanceSyncData struct {
	TotalBalance *big.Int
}

// ReserveSyncData is an AMM pair's reserve update.
type ReserveSyncData struct {
	Reserve0 *big.Int
	Reserve1 *big.Int
}

// AccrueInterestData reports a borrowable's accrual.
type AccrueInterestData struct {
	InterestAccumulated *big.Int
	BorrowIndex         *big.Int
	TotalBorrows        *big.Int
}

// BorrowData covers both borrow and repay. AccountBorrows is the borrower's
// new absolute balance.
type BorrowData struct {
	Sender              string
	Borrower            string
	Receiver            string
	BorrowAmount        *big.Int
	RepayAmount         *big.Int
	AccountBorrowsPrior *big.Int
	AccountBorrows      *big.Int
	TotalBorrows        *big.Int
}

// LiquidateData reports a liquidation against a borrower.
type LiquidateData struct {
	Sender              string
	Borrower            string
	Liquidator          string
	SeizeTokens         *big.Int
	RepayAmount         *big.Int
	AccountBorrowsPrior *big.Int
	AccountBorrows      *big.Int
	TotalBorrows        *big.Int
}

// TransferData is an ERC20 share transfer.
type TransferData struct {
	From  string
	To    string
	Value *big.Int
}

// ParameterData carries a single 18-decimal parameter update (rates, reserve
// factor, kink utilization, safety margin sqrt, liquidation incentive).
type ParameterData struct {
	Value *big.Int
}

// BorrowTrackerData names the reward contract attached to a borrowable.
type BorrowTrackerData struct {
	Tracker string
}

// AdvanceData is a reward pool epoch advance.
type AdvanceData struct {
	EpochBegin  *big.Int
	EpochAmount *big.Int
}
