package portfolio

import (
	"context"
	"fmt"

	"portfolio-tracker/market"
)

type CorrelationReport struct {
	Period market.Period `json:"period"`
	market.Correlation
	Skipped []Skipped `json:"skipped,omitempty"`
}

// Correlation correlates the daily returns of the held symbols over period.
// Symbols without data are skipped; fewer than two priced symbols yields
// market.ErrNotEnoughData.
func (p *Portfolio) Correlation(ctx context.Context, period market.Period) (CorrelationReport, error) {
	if !period.Valid() {
		return CorrelationReport{}, fmt.Errorf("%w: %q", market.ErrInvalidPeriod, period)
	}

	report := CorrelationReport{Period: period}
	series := make(map[string][]market.Bar)
	for _, h := range p.Holdings() {
		hist := p.prices.GetHistory(ctx, h.Symbol, period)
		if !hist.OK() {
			report.Skipped = append(report.Skipped, Skipped{Symbol: h.Symbol, Status: hist.Status, Reason: hist.Reason()})
			continue
		}
		series[h.Symbol] = hist.Bars
	}

	corr, err := market.Correlate(series)
	if err != nil {
		return CorrelationReport{}, err
	}
	report.Correlation = corr
	return report, nil
}
