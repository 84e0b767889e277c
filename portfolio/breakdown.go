package portfolio

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// StockProfit splits one symbol's profit into realized and unrealized parts.
type StockProfit struct {
	Symbol           string          `json:"symbol"`
	TotalBought      decimal.Decimal `json:"total_bought"`
	TotalBoughtValue decimal.Decimal `json:"total_bought_value"`
	TotalSold        decimal.Decimal `json:"total_sold"`
	TotalSoldValue   decimal.Decimal `json:"total_sold_value"`
	CurrentShares    decimal.Decimal `json:"current_shares"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	CurrentValue     decimal.Decimal `json:"current_value"`
	RemainingCost    decimal.Decimal `json:"remaining_cost"`
	RealizedProfit   decimal.Decimal `json:"realized_profit"`
	UnrealizedProfit decimal.Decimal `json:"unrealized_profit"`
	TotalProfit      decimal.Decimal `json:"total_profit"`
	ProfitPct        decimal.Decimal `json:"profit_pct"`
	AverageCost      decimal.Decimal `json:"average_cost"`
	ROI              decimal.Decimal `json:"roi"`
}

type ProfitSummary struct {
	TotalInvested   decimal.Decimal `json:"total_invested"`
	CurrentValue    decimal.Decimal `json:"current_value"`
	TotalRealized   decimal.Decimal `json:"total_realized"`
	TotalUnrealized decimal.Decimal `json:"total_unrealized"`
	TotalProfit     decimal.Decimal `json:"total_profit"`
	RealizedRatio   decimal.Decimal `json:"realized_ratio"`
	UnrealizedRatio decimal.Decimal `json:"unrealized_ratio"`
}

type ProfitBreakdown struct {
	ByStock []StockProfit `json:"by_stock"`
	Summary ProfitSummary `json:"summary"`
	Skipped []Skipped     `json:"skipped,omitempty"`
}

// ProfitBreakdown reports every symbol that is held or has realized profit,
// sorted by total profit descending. Summary totals are sums of the rows, so
// TotalProfit always equals TotalRealized plus TotalUnrealized.
func (p *Portfolio) ProfitBreakdown(ctx context.Context) ProfitBreakdown {
	st := p.state()
	snap := p.snapshot(ctx, st.holdings)

	held := make(map[string]Holding, len(st.holdings))
	for _, h := range st.holdings {
		held[h.Symbol] = h
	}
	symbols := make(map[string]struct{}, len(held)+len(st.realized))
	for s := range held {
		symbols[s] = struct{}{}
	}
	for s := range st.realized {
		symbols[s] = struct{}{}
	}

	out := ProfitBreakdown{ByStock: make([]StockProfit, 0, len(symbols)), Skipped: snap.Skipped}
	for symbol := range symbols {
		row := StockProfit{Symbol: symbol, RealizedProfit: st.realized[symbol]}

		for _, tx := range st.ledger[symbol] {
			switch tx.Action {
			case Buy:
				row.TotalBought = row.TotalBought.Add(tx.Shares)
				row.TotalBoughtValue = row.TotalBoughtValue.Add(tx.Value())
			case Sell:
				row.TotalSold = row.TotalSold.Add(tx.Shares)
				row.TotalSoldValue = row.TotalSoldValue.Add(tx.Value())
			}
		}
		if row.TotalBought.IsPositive() {
			row.AverageCost = row.TotalBoughtValue.Div(row.TotalBought)
		}

		if h, ok := held[symbol]; ok {
			row.CurrentShares = h.Shares
			row.RemainingCost = h.RemainingCostBasis()
		}
		if v, ok := snap.Value(symbol); ok {
			row.CurrentPrice = v.CurrentPrice
			row.CurrentValue = v.CurrentValue
			if v.GainLoss.Valid {
				row.UnrealizedProfit = v.GainLoss.Decimal
			}
		}

		row.TotalProfit = row.RealizedProfit.Add(row.UnrealizedProfit)
		row.ProfitPct = percentOf(row.TotalProfit, row.TotalBoughtValue)
		row.ROI = percentOf(row.TotalProfit, row.TotalBoughtValue.Sub(row.TotalSoldValue))
		out.ByStock = append(out.ByStock, row)

		out.Summary.TotalInvested = out.Summary.TotalInvested.Add(row.RemainingCost)
		out.Summary.CurrentValue = out.Summary.CurrentValue.Add(row.CurrentValue)
		out.Summary.TotalRealized = out.Summary.TotalRealized.Add(row.RealizedProfit)
		out.Summary.TotalUnrealized = out.Summary.TotalUnrealized.Add(row.UnrealizedProfit)
	}

	sort.Slice(out.ByStock, func(i, j int) bool {
		a, b := out.ByStock[i], out.ByStock[j]
		if c := a.TotalProfit.Cmp(b.TotalProfit); c != 0 {
			return c > 0
		}
		return a.Symbol < b.Symbol
	})

	s := &out.Summary
	s.TotalProfit = s.TotalRealized.Add(s.TotalUnrealized)
	if !s.TotalProfit.IsZero() {
		s.RealizedRatio = s.TotalRealized.Div(s.TotalProfit)
		s.UnrealizedRatio = decimal.NewFromInt(1).Sub(s.RealizedRatio)
	}
	return out
}
