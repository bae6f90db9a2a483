package handler

import (
	"context"

	"lendingScope/internal/model"
)

func (p *Processor) onAdvance(_ context.Context, c Chain, ev model.Event) error {
	data, err := payload[model.AdvanceData](ev)
	if err != nil {
		return err
	}
	return p.rewards.Advance(c, ev.Address, data.EpochBegin, data.EpochAmount)
}
