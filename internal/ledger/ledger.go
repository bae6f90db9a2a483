// Package ledger maintains per-user supply, collateral and borrow positions.
// Share balances move only by transfer deltas; borrow balances are snapshots
// taken against the borrowable's global index.
package ledger

import (
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"lendingScope/internal/amount"
	"lendingScope/internal/model"
	"lendingScope/internal/store"
)

// Ledger applies position events to the store.
type Ledger struct {
	store  *store.Store
	logger *zap.Logger
}

// New creates a Ledger.
func New(st *store.Store, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{store: st, logger: logger}
}

// TransferSupply moves borrowable shares. Amounts use the underlying token's
// decimals.
func (l *Ledger) TransferSupply(borrowableID, from, to string, raw *big.Int) error {
	borrowable, err := l.store.Borrowables.Get(borrowableID)
	if err != nil {
		return err
	}
	decimals, err := l.underlyingDecimals(borrowable)
	if err != nil {
		return err
	}
	value := amount.FromRaw(raw, decimals)

	sender, err := l.supplyPosition(borrowableID, from)
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}
	receiver, err := l.supplyPosition(borrowableID, to)
	if err != nil {
		return err
	}
	sender.Balance = sender.Balance.Sub(value)
	receiver.Balance = receiver.Balance.Add(value)
	l.store.SupplyPositions.Save(sender)
	l.store.SupplyPositions.Save(receiver)
	return nil
}

// TransferCollateral moves collateral shares, which are always 18 decimals.
func (l *Ledger) TransferCollateral(collateralID, from, to string, raw *big.Int) error {
	if _, err := l.store.Collaterals.Get(collateralID); err != nil {
		return err
	}
	value := amount.FromWad(raw)

	sender, err := l.collateralPosition(collateralID, from)
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}
	receiver, err := l.collateralPosition(collateralID, to)
	if err != nil {
		return err
	}
	sender.Balance = sender.Balance.Sub(value)
	receiver.Balance = receiver.Balance.Add(value)
	l.store.CollateralPositions.Save(sender)
	l.store.CollateralPositions.Save(receiver)
	return nil
}

// RecordBorrow applies a borrow, repay or liquidation: both the borrower's
// balance and the market total are absolute values reported by the event.
func (l *Ledger) RecordBorrow(borrowableID, borrower string, accountBorrows, totalBorrows *big.Int) (model.BorrowPosition, error) {
	borrowable, err := l.store.Borrowables.Get(borrowableID)
	if err != nil {
		return model.BorrowPosition{}, err
	}
	decimals, err := l.underlyingDecimals(borrowable)
	if err != nil {
		return model.BorrowPosition{}, err
	}
	borrowable.TotalBorrows = amount.FromRaw(totalBorrows, decimals)
	l.store.Borrowables.Save(borrowable)

	position, _, err := l.store.BorrowPositions.LoadOrCreate(model.PositionID(borrowableID, borrower), func() (model.BorrowPosition, store.Origin, error) {
		if err := l.ensureUser(borrower); err != nil {
			return model.BorrowPosition{}, store.OriginCreated, err
		}
		return model.BorrowPosition{
			ID:            model.PositionID(borrowableID, borrower),
			Borrowable:    borrowableID,
			User:          borrower,
			BorrowBalance: amount.Zero,
			BorrowIndex:   amount.One,
		}, store.OriginCreated, nil
	})
	if err != nil {
		return model.BorrowPosition{}, err
	}
	position.BorrowBalance = amount.FromRaw(accountBorrows, decimals)
	position.BorrowIndex = borrowable.BorrowIndex
	l.store.BorrowPositions.Save(position)
	return position, nil
}

// Accrue records an interest accrual on the market. Positions are not
// touched; they are reconciled at their next borrow event.
func (l *Ledger) Accrue(borrowableID string, totalBorrows, borrowIndex *big.Int, timestamp uint64) error {
	borrowable, err := l.store.Borrowables.Get(borrowableID)
	if err != nil {
		return err
	}
	decimals, err := l.underlyingDecimals(borrowable)
	if err != nil {
		return err
	}
	borrowable.TotalBorrows = amount.FromRaw(totalBorrows, decimals)
	borrowable.BorrowIndex = amount.FromWad(borrowIndex)
	borrowable.AccrualTimestamp = timestamp
	l.store.Borrowables.Save(borrowable)
	return nil
}

func (l *Ledger) underlyingDecimals(b model.Borrowable) (uint8, error) {
	token, err := l.store.Tokens.Get(b.Underlying)
	if err != nil {
		return 0, err
	}
	return token.Decimals, nil
}

func (l *Ledger) supplyPosition(borrowableID, user string) (model.SupplyPosition, error) {
	id := model.PositionID(borrowableID, user)
	position, _, err := l.store.SupplyPositions.LoadOrCreate(id, func() (model.SupplyPosition, store.Origin, error) {
		if err := l.ensureUser(user); err != nil {
			return model.SupplyPosition{}, store.OriginCreated, err
		}
		return model.SupplyPosition{ID: id, Borrowable: borrowableID, User: user, Balance: amount.Zero}, store.OriginCreated, nil
	})
	return position, err
}

func (l *Ledger) collateralPosition(collateralID, user string) (model.CollateralPosition, error) {
	id := model.PositionID(collateralID, user)
	position, _, err := l.store.CollateralPositions.LoadOrCreate(id, func() (model.CollateralPosition, store.Origin, error) {
		if err := l.ensureUser(user); err != nil {
			return model.CollateralPosition{}, store.OriginCreated, err
		}
		return model.CollateralPosition{ID: id, Collateral: collateralID, User: user, Balance: amount.Zero}, store.OriginCreated, nil
	})
	return position, err
}

func (l *Ledger) ensureUser(id string) error {
	_, origin, err := l.store.Users.LoadOrCreate(id, func() (model.User, store.Origin, error) {
		return model.User{ID: id}, store.OriginCreated, nil
	})
	if err != nil {
		return fmt.Errorf("load user %s: %w", id, err)
	}
	if origin.Created() {
		l.logger.Debug("user created", zap.String("user", id))
	}
	return nil
}
