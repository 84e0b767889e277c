package portfolio

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"portfolio-tracker/market"
)

// ValuePoint is the portfolio value on one trading day.
type ValuePoint struct {
	Date   time.Time                  `json:"date"`
	Total  decimal.Decimal            `json:"total"`
	Values map[string]decimal.Decimal `json:"values"`
}

type PerformanceSeries struct {
	Period  market.Period `json:"period"`
	Points  []ValuePoint  `json:"points"`
	Skipped []Skipped     `json:"skipped,omitempty"`
}

// HistoricalPerformance values today's share counts at each day's close over
// period. Trades made inside the window are not reflected. Dates are the
// union of all symbols' sessions; a symbol without a bar on a date carries its
// previous close and contributes nothing before its first close.
func (p *Portfolio) HistoricalPerformance(ctx context.Context, period market.Period) (PerformanceSeries, error) {
	if !period.Valid() {
		return PerformanceSeries{}, fmt.Errorf("%w: %q", market.ErrInvalidPeriod, period)
	}

	holdings := p.Holdings()
	out := PerformanceSeries{Period: period, Points: []ValuePoint{}}

	closes := make(map[string]map[time.Time]decimal.Decimal, len(holdings))
	dateSet := make(map[time.Time]struct{})
	for _, h := range holdings {
		hist := p.prices.GetHistory(ctx, h.Symbol, period)
		if !hist.OK() {
			out.Skipped = append(out.Skipped, Skipped{Symbol: h.Symbol, Status: hist.Status, Reason: hist.Reason()})
			continue
		}
		byDate := make(map[time.Time]decimal.Decimal, len(hist.Bars))
		for _, bar := range hist.Bars {
			d := bar.Date.UTC()
			byDate[d] = bar.Close
			dateSet[d] = struct{}{}
		}
		closes[h.Symbol] = byDate
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	last := make(map[string]decimal.Decimal, len(closes))
	for _, d := range dates {
		pt := ValuePoint{Date: d, Values: make(map[string]decimal.Decimal, len(closes))}
		for _, h := range holdings {
			byDate, ok := closes[h.Symbol]
			if !ok {
				continue
			}
			if c, ok := byDate[d]; ok {
				last[h.Symbol] = c
			}
			c, ok := last[h.Symbol]
			if !ok {
				continue
			}
			v := c.Mul(h.Shares)
			pt.Values[h.Symbol] = v
			pt.Total = pt.Total.Add(v)
		}
		out.Points = append(out.Points, pt)
	}
	return out, nil
}
