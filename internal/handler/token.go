package handler

import (
	"go.uber.org/zap"

	"lendingScope/internal/amount"
	"lendingScope/internal/model"
	"lendingScope/internal/store"
)

const unknownText = "unknown"

// loadOrCreateToken materializes a token with its metadata. A decimals read
// that reverts leaves the exponent at zero and flags the token.
func (p *Processor) loadOrCreateToken(c Chain, id string, block uint64) (model.Token, store.Origin, error) {
	return p.store.Tokens.LoadOrCreate(id, func() (model.Token, store.Origin, error) {
		origin := store.OriginCreated

		symbol, err := p.tokenText(c, id, "symbol", c.Symbol, c.SymbolBytes32, block)
		if err != nil {
			return model.Token{}, origin, err
		}
		name, err := p.tokenText(c, id, "name", c.Name, c.NameBytes32, block)
		if err != nil {
			return model.Token{}, origin, err
		}

		token := model.Token{
			ID:             id,
			Symbol:         symbol,
			Name:           name,
			ReferencePrice: amount.Zero,
			USDPrice:       amount.Zero,
		}
		decimals, err := c.Decimals(id)
		if fallback, err := p.degraded(err, id, "decimals", block); err != nil {
			return model.Token{}, origin, err
		} else if fallback {
			token.DecimalsFallback = true
			origin = store.OriginFallback
		} else {
			token.Decimals = decimals
		}

		p.logger.Info("token created",
			zap.String("token", id),
			zap.String("symbol", token.Symbol),
			zap.Uint8("decimals", token.Decimals),
			zap.Stringer("origin", origin),
		)
		return token, origin, nil
	})
}

// tokenText reads a string field, falling back to the bytes32 accessor and
// then to "unknown".
func (p *Processor) tokenText(c Chain, token, field string, primary, bytes32 func(string) (string, error), block uint64) (string, error) {
	value, err := primary(token)
	if err == nil {
		return value, nil
	}
	if _, err := p.degraded(err, token, field, block); err != nil {
		return "", err
	}

	value, err = bytes32(token)
	if err == nil {
		return value, nil
	}
	if _, err := p.degraded(err, token, field+"Bytes32", block); err != nil {
		return "", err
	}
	return unknownText, nil
}
