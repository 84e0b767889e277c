package portfolio

import (
	"context"

	"github.com/shopspring/decimal"
)

type Summary struct {
	TotalValue          decimal.Decimal `json:"total_value"`
	TotalCost           decimal.Decimal `json:"total_cost"`
	GainLoss            decimal.Decimal `json:"gain_loss"`
	GainLossPct         decimal.Decimal `json:"gain_loss_pct"`
	TotalRealizedProfit decimal.Decimal `json:"total_realized_profit"`
	OverallProfit       decimal.Decimal `json:"overall_profit"`
	Holdings            int             `json:"holdings"`
	Skipped             []Skipped       `json:"skipped,omitempty"`
}

// Summary reports headline totals. Unrealized gain covers priced holdings
// that carry an average cost; TotalValue covers every priced holding.
func (p *Portfolio) Summary(ctx context.Context) Summary {
	st := p.state()
	snap := p.snapshot(ctx, st.holdings)

	out := Summary{Holdings: len(st.holdings), Skipped: snap.Skipped}
	for _, v := range snap.Stocks {
		out.TotalValue = out.TotalValue.Add(v.CurrentValue)
		if v.GainLoss.Valid {
			out.TotalCost = out.TotalCost.Add(v.RemainingCostBasis)
			out.GainLoss = out.GainLoss.Add(v.GainLoss.Decimal)
		}
	}
	out.GainLossPct = percentOf(out.GainLoss, out.TotalCost)
	for _, r := range st.realized {
		out.TotalRealizedProfit = out.TotalRealizedProfit.Add(r)
	}
	out.OverallProfit = out.TotalRealizedProfit.Add(out.GainLoss)
	return out
}
