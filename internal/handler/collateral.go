package handler

import (
	"context"
	"fmt"

	"lendingScope/internal/amount"
	"lendingScope/internal/model"
)

func (p *Processor) onCollateralSync(_ context.Context, c Chain, ev model.Event) error {
	data, err := payload[model.BalanceSyncData](ev)
	if err != nil {
		return err
	}
	collateral, err := p.store.Collaterals.Get(ev.Address)
	if err != nil {
		return err
	}
	collateral.TotalBalance = amount.FromWad(data.TotalBalance)

	rate, err := c.ExchangeRate(ev.Address)
	if fallback, err := p.degraded(err, ev.Address, "exchangeRate", ev.BlockNumber); err != nil {
		return err
	} else if !fallback {
		collateral.ExchangeRate = amount.FromWad(rate)
	}
	p.store.Collaterals.Save(collateral)

	_, err = p.valuator.UpdateLendingPoolUSD(collateral.LendingPool)
	return err
}

func (p *Processor) onCollateralParameter(_ context.Context, _ Chain, ev model.Event) error {
	data, err := payload[model.ParameterData](ev)
	if err != nil {
		return err
	}
	collateral, err := p.store.Collaterals.Get(ev.Address)
	if err != nil {
		return err
	}
	value := amount.FromWad(data.Value)
	switch ev.Name {
	case model.EventNewSafetyMargin:
		// the contract stores the square root
		collateral.SafetyMargin = value.Mul(value)
	case model.EventNewLiquidationIncentive:
		collateral.LiquidationIncentive = value
	default:
		return fmt.Errorf("unexpected collateral parameter %s", ev.Name)
	}
	p.store.Collaterals.Save(collateral)
	return nil
}

func (p *Processor) onCollateralTransfer(_ context.Context, _ Chain, ev model.Event) error {
	data, err := payload[model.TransferData](ev)
	if err != nil {
		return err
	}
	return p.ledger.TransferCollateral(ev.Address, data.From, data.To, data.Value)
}
