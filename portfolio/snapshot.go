package portfolio

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"portfolio-tracker/market"
)

var hundred = decimal.NewFromInt(100)

// Skipped names a symbol left out of a valuation because no price was found.
type Skipped struct {
	Symbol string        `json:"symbol"`
	Status market.Status `json:"status"`
	Reason string        `json:"reason"`
}

// StockValue is one holding valued at its latest close. The gain fields are
// only set when the holding has an average cost.
type StockValue struct {
	Symbol             string              `json:"symbol"`
	Shares             decimal.Decimal     `json:"shares"`
	AverageCost        decimal.NullDecimal `json:"average_cost"`
	CurrentPrice       decimal.Decimal     `json:"current_price"`
	CurrentValue       decimal.Decimal     `json:"current_value"`
	RemainingCostBasis decimal.Decimal     `json:"remaining_cost_basis"`
	GainLoss           decimal.NullDecimal `json:"gain_loss"`
	GainLossPct        decimal.NullDecimal `json:"gain_loss_pct"`
}

type Snapshot struct {
	Stocks  []StockValue `json:"stocks"`
	Skipped []Skipped    `json:"skipped,omitempty"`
}

// Value returns the entry for symbol, if it was priced.
func (s Snapshot) Value(symbol string) (StockValue, bool) {
	for _, v := range s.Stocks {
		if v.Symbol == symbol {
			return v, true
		}
	}
	return StockValue{}, false
}

// CurrentSnapshot values every holding at its most recent close. Symbols the
// provider cannot price are logged and listed in Skipped.
func (p *Portfolio) CurrentSnapshot(ctx context.Context) Snapshot {
	return p.snapshot(ctx, p.Holdings())
}

func (p *Portfolio) snapshot(ctx context.Context, holdings []Holding) Snapshot {
	snap := Snapshot{Stocks: make([]StockValue, 0, len(holdings))}
	for _, h := range holdings {
		price, skipped := p.latestClose(ctx, h.Symbol, market.Period5D)
		if skipped != nil {
			snap.Skipped = append(snap.Skipped, *skipped)
			continue
		}
		snap.Stocks = append(snap.Stocks, valueHolding(h, price))
	}
	return snap
}

func valueHolding(h Holding, price decimal.Decimal) StockValue {
	v := StockValue{
		Symbol:             h.Symbol,
		Shares:             h.Shares,
		AverageCost:        h.AverageCost,
		CurrentPrice:       price,
		CurrentValue:       h.Shares.Mul(price),
		RemainingCostBasis: h.RemainingCostBasis(),
	}
	if h.AverageCost.Valid {
		v.GainLoss = decimal.NewNullDecimal(v.CurrentValue.Sub(v.RemainingCostBasis))
		if h.AverageCost.Decimal.IsPositive() {
			pct := price.Div(h.AverageCost.Decimal).Sub(decimal.NewFromInt(1)).Mul(hundred)
			v.GainLossPct = decimal.NewNullDecimal(pct)
		}
	}
	return v
}

// latestClose fetches the last close over period. A nil *Skipped means the
// price is usable.
func (p *Portfolio) latestClose(ctx context.Context, symbol string, period market.Period) (decimal.Decimal, *Skipped) {
	h := p.prices.GetHistory(ctx, symbol, period)
	price, ok := h.LastClose()
	if !ok {
		status := h.Status
		if status == market.StatusOK {
			status = market.StatusNoData
		}
		p.logger.Warn("no price for symbol",
			zap.String("symbol", symbol),
			zap.String("period", string(period)),
			zap.String("status", string(status)),
			zap.Error(h.Err))
		return decimal.Zero, &Skipped{Symbol: symbol, Status: status, Reason: h.Reason()}
	}
	return price, nil
}
