package jobs

import (
	"context"

	"go.uber.org/zap"

	"portfolio-tracker/market"
)

// SymbolSource lists the symbols worth keeping warm.
type SymbolSource interface {
	HeldSymbols() []string
}

// HistoryRefresher re-fetches a history and updates its cache entry.
type HistoryRefresher interface {
	Refresh(ctx context.Context, symbol string, period market.Period) market.History
}

// QuoteRefresher keeps the latest closes of held symbols in the cache so
// snapshots are served without waiting on the provider.
type QuoteRefresher struct {
	symbols SymbolSource
	prices  HistoryRefresher
	logger  *zap.Logger
}

func NewQuoteRefresher(symbols SymbolSource, prices HistoryRefresher, logger *zap.Logger) *QuoteRefresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteRefresher{symbols: symbols, prices: prices, logger: logger}
}

// Run refreshes every held symbol once and returns how many succeeded.
func (q *QuoteRefresher) Run(ctx context.Context) int {
	symbols := q.symbols.HeldSymbols()
	ok := 0
	for _, s := range symbols {
		if ctx.Err() != nil {
			break
		}
		h := q.prices.Refresh(ctx, s, market.Period5D)
		if !h.OK() {
			q.logger.Warn("quote refresh failed",
				zap.String("symbol", s),
				zap.String("status", string(h.Status)),
				zap.Error(h.Err))
			continue
		}
		ok++
	}
	q.logger.Info("quotes refreshed", zap.Int("symbols", len(symbols)), zap.Int("ok", ok))
	return ok
}

// Schedule registers Run on the runner.
func (q *QuoteRefresher) Schedule(r *Runner, spec string) error {
	_, err := r.Add(spec, func(ctx context.Context) { q.Run(ctx) })
	return err
}
