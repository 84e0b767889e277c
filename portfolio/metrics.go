package portfolio

import (
	"context"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"portfolio-tracker/market"
)

// StockMetrics is the performance of one held ledger symbol.
type StockMetrics struct {
	Symbol             string              `json:"symbol"`
	Shares             decimal.Decimal     `json:"shares"`
	CurrentPrice       decimal.Decimal     `json:"current_price"`
	CurrentValue       decimal.Decimal     `json:"current_value"`
	InitialInvestment  decimal.Decimal     `json:"initial_investment"`
	RemainingCostBasis decimal.Decimal     `json:"remaining_cost_basis"`
	GainLoss           decimal.Decimal     `json:"gain_loss"`
	GainLossPct        decimal.Decimal     `json:"gain_loss_pct"`
	RealizedProfit     decimal.Decimal     `json:"realized_profit"`
	EarliestPurchase   *time.Time          `json:"earliest_purchase,omitempty"`
	DaysHeld           int                 `json:"days_held"`
	AnnualizedReturn   decimal.NullDecimal `json:"annualized_return"`
}

type PerformanceMetrics struct {
	TotalInvested       decimal.Decimal            `json:"total_invested"`
	TotalCurrentValue   decimal.Decimal            `json:"total_current_value"`
	TotalGainLoss       decimal.Decimal            `json:"total_gain_loss"`
	TotalGainLossPct    decimal.Decimal            `json:"total_gain_loss_pct"`
	TotalRealizedProfit decimal.Decimal            `json:"total_realized_profit"`
	RealizedBySymbol    map[string]decimal.Decimal `json:"realized_by_symbol"`
	Stocks              []StockMetrics             `json:"stocks"`
	Skipped             []Skipped                  `json:"skipped,omitempty"`
}

// PerformanceMetrics measures every ledger symbol that is still held against
// its last close over one year. Gain percentages are relative to the
// remaining cost basis.
func (p *Portfolio) PerformanceMetrics(ctx context.Context) PerformanceMetrics {
	st := p.state()
	now := p.now().UTC()

	out := PerformanceMetrics{
		RealizedBySymbol: st.realized,
		Stocks:           []StockMetrics{},
	}
	for _, v := range st.realized {
		out.TotalRealizedProfit = out.TotalRealizedProfit.Add(v)
	}

	for _, h := range st.holdings {
		txs, ok := st.ledger[h.Symbol]
		if !ok {
			continue
		}
		price, skipped := p.latestClose(ctx, h.Symbol, market.Period1Y)
		if skipped != nil {
			out.Skipped = append(out.Skipped, *skipped)
			continue
		}

		m := StockMetrics{
			Symbol:             h.Symbol,
			Shares:             h.Shares,
			CurrentPrice:       price,
			CurrentValue:       h.Shares.Mul(price),
			RemainingCostBasis: h.RemainingCostBasis(),
			RealizedProfit:     st.realized[h.Symbol],
		}
		for _, tx := range txs {
			if tx.Action != Buy {
				continue
			}
			m.InitialInvestment = m.InitialInvestment.Add(tx.Value())
			if m.EarliestPurchase == nil || tx.Date.Before(*m.EarliestPurchase) {
				d := tx.Date
				m.EarliestPurchase = &d
			}
		}
		m.GainLoss = m.CurrentValue.Sub(m.RemainingCostBasis)
		m.GainLossPct = percentOf(m.GainLoss, m.RemainingCostBasis)
		if m.EarliestPurchase != nil {
			m.DaysHeld = int(now.Sub(*m.EarliestPurchase).Hours() / 24)
		}
		if m.DaysHeld > 0 {
			m.AnnualizedReturn = annualizedReturn(m.GainLossPct, m.DaysHeld)
		}

		out.Stocks = append(out.Stocks, m)
		out.TotalInvested = out.TotalInvested.Add(m.RemainingCostBasis)
		out.TotalCurrentValue = out.TotalCurrentValue.Add(m.CurrentValue)
	}

	out.TotalGainLoss = out.TotalCurrentValue.Sub(out.TotalInvested)
	out.TotalGainLossPct = percentOf(out.TotalGainLoss, out.TotalInvested)
	return out
}

// annualizedReturn compounds a holding-period gain to a yearly rate. A total
// loss or worse annualizes to -100.
func annualizedReturn(gainLossPct decimal.Decimal, days int) decimal.NullDecimal {
	growth := 1 + gainLossPct.InexactFloat64()/100
	if growth <= 0 {
		return decimal.NewNullDecimal(decimal.NewFromInt(-100))
	}
	r := (math.Pow(growth, 365/float64(days)) - 1) * 100
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(r))
}

// percentOf is part/whole*100, or zero when whole is not positive.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}
