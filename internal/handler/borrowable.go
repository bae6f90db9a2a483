package handler

import (
	"context"
	"fmt"

	"lendingScope/internal/amount"
	"lendingScope/internal/model"
)

func (p *Processor) onBorrowableSync(_ context.Context, c Chain, ev model.Event) error {
	data, err := payload[model.BalanceSyncData](ev)
	if err != nil {
		return err
	}
	borrowable, err := p.store.Borrowables.Get(ev.Address)
	if err != nil {
		return err
	}
	token, err := p.store.Tokens.Get(borrowable.Underlying)
	if err != nil {
		return err
	}
	borrowable.TotalBalance = amount.FromRaw(data.TotalBalance, token.Decimals)

	rate, err := c.ExchangeRate(ev.Address)
	if fallback, err := p.degraded(err, ev.Address, "exchangeRate", ev.BlockNumber); err != nil {
		return err
	} else if !fallback {
		borrowable.ExchangeRate = amount.FromWad(rate)
	}
	p.store.Borrowables.Save(borrowable)

	_, err = p.valuator.UpdateLendingPoolUSD(borrowable.LendingPool)
	return err
}

func (p *Processor) onAccrueInterest(_ context.Context, _ Chain, ev model.Event) error {
	data, err := payload[model.AccrueInterestData](ev)
	if err != nil {
		return err
	}
	return p.ledger.Accrue(ev.Address, data.TotalBorrows, data.BorrowIndex, ev.Timestamp)
}

func (p *Processor) onBorrow(_ context.Context, _ Chain, ev model.Event) error {
	data, err := payload[model.BorrowData](ev)
	if err != nil {
		return err
	}
	_, err = p.ledger.RecordBorrow(ev.Address, data.Borrower, data.AccountBorrows, data.TotalBorrows)
	return err
}

func (p *Processor) onLiquidate(_ context.Context, _ Chain, ev model.Event) error {
	data, err := payload[model.LiquidateData](ev)
	if err != nil {
		return err
	}
	_, err = p.ledger.RecordBorrow(ev.Address, data.Borrower, data.AccountBorrows, data.TotalBorrows)
	return err
}

func (p *Processor) onBorrowableParameter(_ context.Context, _ Chain, ev model.Event) error {
	data, err := payload[model.ParameterData](ev)
	if err != nil {
		return err
	}
	borrowable, err := p.store.Borrowables.Get(ev.Address)
	if err != nil {
		return err
	}
	value := amount.FromWad(data.Value)
	switch ev.Name {
	case model.EventCalculateKinkBorrowRate:
		borrowable.KinkBorrowRate = value
	case model.EventCalculateBorrowRate:
		borrowable.BorrowRate = value
	case model.EventNewReserveFactor:
		borrowable.ReserveFactor = value
	case model.EventNewKinkUtilizationRate:
		borrowable.KinkUtilizationRate = value
	default:
		return fmt.Errorf("unexpected borrowable parameter %s", ev.Name)
	}
	p.store.Borrowables.Save(borrowable)
	return nil
}

func (p *Processor) onNewBorrowTracker(_ context.Context, c Chain, ev model.Event) error {
	data, err := payload[model.BorrowTrackerData](ev)
	if err != nil {
		return err
	}
	origin, err := p.rewards.Attach(c, ev.Address, data.Tracker)
	if err != nil {
		return err
	}
	if origin.Created() {
		p.registry.Register(data.Tracker, model.RoleRewardPool, ev.BlockNumber)
	}
	return nil
}

func (p *Processor) onBorrowableTransfer(_ context.Context, _ Chain, ev model.Event) error {
	data, err := payload[model.TransferData](ev)
	if err != nil {
		return err
	}
	return p.ledger.TransferSupply(ev.Address, data.From, data.To, data.Value)
}
