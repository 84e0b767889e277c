// Package portfolio is the accounting engine: it replays buy/sell ledgers with
// weighted-average cost basis, keeps holdings and realized profit per symbol,
// and values them against market data.
package portfolio

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"portfolio-tracker/market"
)

// PriceSource is the slice of market.Provider the engine needs.
type PriceSource interface {
	GetHistory(ctx context.Context, symbol string, period market.Period) market.History
}

// Holding is a currently held position. AverageCost is absent for holdings
// added manually without a purchase price.
type Holding struct {
	Symbol      string              `json:"symbol"`
	Shares      decimal.Decimal     `json:"shares"`
	AverageCost decimal.NullDecimal `json:"average_cost"`
}

// RemainingCostBasis is Shares times AverageCost, or zero without a cost.
func (h Holding) RemainingCostBasis() decimal.Decimal {
	if !h.AverageCost.Valid {
		return decimal.Zero
	}
	return h.Shares.Mul(h.AverageCost.Decimal)
}

// ImportResult summarizes a successful ledger replacement.
type ImportResult struct {
	Symbols      int              `json:"symbols"`
	Transactions int              `json:"transactions"`
	Holdings     int              `json:"holdings"`
	Warnings     []*OverSellError `json:"warnings,omitempty"`
}

// Portfolio owns one user's holdings, ledger and realized profit. It is safe
// for concurrent use; market data is fetched outside the lock.
type Portfolio struct {
	mu       sync.RWMutex
	holdings map[string]Holding
	ledger   Ledger
	realized map[string]decimal.Decimal

	prices PriceSource
	logger *zap.Logger
	now    func() time.Time
}

func New(prices PriceSource, logger *zap.Logger) *Portfolio {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Portfolio{
		holdings: make(map[string]Holding),
		ledger:   make(Ledger),
		realized: make(map[string]decimal.Decimal),
		prices:   prices,
		logger:   logger,
		now:      time.Now,
	}
}

// AddStock merges shares into a holding. With both prices known the average
// is re-weighted; a missing existing average takes the new price; a missing
// new price leaves the average untouched. The ledger is not modified.
func (p *Portfolio) AddStock(symbol string, shares decimal.Decimal, price decimal.NullDecimal) (Holding, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return Holding{}, invalidInput("symbol is required")
	}
	if !shares.IsPositive() {
		return Holding{}, invalidInput("shares must be positive, got %s", shares)
	}
	if price.Valid && !price.Decimal.IsPositive() {
		return Holding{}, invalidInput("purchase price must be positive, got %s", price.Decimal)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	h, ok := p.holdings[symbol]
	if !ok {
		h = Holding{Symbol: symbol, Shares: shares, AverageCost: price}
		p.holdings[symbol] = h
		return h, nil
	}

	switch {
	case h.AverageCost.Valid && price.Valid:
		total := h.Shares.Add(shares)
		avg := h.RemainingCostBasis().Add(shares.Mul(price.Decimal)).Div(total)
		h.AverageCost = decimal.NewNullDecimal(avg)
	case price.Valid:
		h.AverageCost = price
	}
	h.Shares = h.Shares.Add(shares)
	p.holdings[symbol] = h
	return h, nil
}

// RemoveStock drops shares from a holding, or the whole holding when shares is
// absent or at least the held amount. No profit is booked and any realized
// profit for the symbol is kept.
func (p *Portfolio) RemoveStock(symbol string, shares decimal.NullDecimal) error {
	symbol = NormalizeSymbol(symbol)
	if shares.Valid && !shares.Decimal.IsPositive() {
		return invalidInput("shares must be positive, got %s", shares.Decimal)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	h, ok := p.holdings[symbol]
	if !ok {
		return ErrNotHeld
	}
	if !shares.Valid || shares.Decimal.GreaterThanOrEqual(h.Shares) {
		delete(p.holdings, symbol)
		return nil
	}
	h.Shares = h.Shares.Sub(shares.Decimal)
	p.holdings[symbol] = h
	return nil
}

// ImportLedger decodes a JSON ledger and replaces all state with its replay.
// On any error the previous state is left untouched.
func (p *Portfolio) ImportLedger(data []byte) (*ImportResult, error) {
	ledger, err := DecodeLedger(data)
	if err != nil {
		return nil, err
	}
	return p.ReplaceLedger(ledger)
}

// ReplaceLedger validates and replays ledger, then swaps holdings, ledger and
// realized profit in one step.
func (p *Portfolio) ReplaceLedger(ledger Ledger) (*ImportResult, error) {
	r, err := ReplayLedger(ledger)
	if err != nil {
		return nil, err
	}
	p.Apply(r)
	return r.Result, nil
}

// Replayed is the state rebuilt from a ledger, ready to be installed with
// Apply. Building it has no side effects.
type Replayed struct {
	Ledger   Ledger
	Holdings []Holding
	Realized map[string]decimal.Decimal
	Result   *ImportResult
}

// ReplayLedger validates ledger and replays every symbol.
func ReplayLedger(ledger Ledger) (*Replayed, error) {
	if err := ledger.Validate(); err != nil {
		return nil, err
	}

	r := &Replayed{
		Ledger:   ledger.Clone(),
		Holdings: []Holding{},
		Realized: make(map[string]decimal.Decimal, len(ledger)),
		Result:   &ImportResult{Symbols: len(ledger), Transactions: ledger.Len()},
	}
	for _, symbol := range r.Ledger.Symbols() {
		pos := Replay(symbol, r.Ledger[symbol])
		r.Result.Warnings = append(r.Result.Warnings, pos.Warnings...)
		if pos.Shares.IsPositive() {
			r.Holdings = append(r.Holdings, Holding{
				Symbol:      symbol,
				Shares:      pos.Shares,
				AverageCost: decimal.NewNullDecimal(pos.AverageCost),
			})
		}
		if !pos.RealizedProfit.IsZero() {
			r.Realized[symbol] = pos.RealizedProfit
		}
	}
	r.Result.Holdings = len(r.Holdings)
	return r, nil
}

// Apply installs a replayed ledger, discarding all previous state.
func (p *Portfolio) Apply(r *Replayed) {
	holdings := make(map[string]Holding, len(r.Holdings))
	for _, h := range r.Holdings {
		holdings[h.Symbol] = h
	}

	p.mu.Lock()
	p.holdings = holdings
	p.ledger = r.Ledger.Clone()
	p.realized = cloneAmounts(r.Realized)
	p.mu.Unlock()

	for _, w := range r.Result.Warnings {
		p.logger.Warn("oversell skipped during replay",
			zap.String("symbol", w.Symbol),
			zap.Int("index", w.Index),
			zap.String("requested", w.Requested.String()),
			zap.String("owned", w.Owned.String()))
	}
	p.logger.Info("ledger replaced",
		zap.Int("symbols", r.Result.Symbols),
		zap.Int("transactions", r.Result.Transactions),
		zap.Int("holdings", r.Result.Holdings),
		zap.Int("warnings", len(r.Result.Warnings)))
}

// RestoreHoldings replaces the holdings with a previously saved set, keeping
// the ledger and realized profit. It restores manual adjustments made on top
// of a replayed ledger.
func (p *Portfolio) RestoreHoldings(holdings []Holding) error {
	next := make(map[string]Holding, len(holdings))
	for _, h := range holdings {
		if h.Symbol == "" || h.Symbol != NormalizeSymbol(h.Symbol) {
			return invalidInput("holding symbol %q", h.Symbol)
		}
		if !h.Shares.IsPositive() {
			return invalidInput("%s: shares must be positive, got %s", h.Symbol, h.Shares)
		}
		if h.AverageCost.Valid && !h.AverageCost.Decimal.IsPositive() {
			return invalidInput("%s: average cost must be positive, got %s", h.Symbol, h.AverageCost.Decimal)
		}
		next[h.Symbol] = h
	}

	p.mu.Lock()
	p.holdings = next
	p.mu.Unlock()
	return nil
}

// Holdings returns a copy of the held positions sorted by symbol.
func (p *Portfolio) Holdings() []Holding {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sortedHoldings()
}

func (p *Portfolio) Holding(symbol string) (Holding, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	h, ok := p.holdings[NormalizeSymbol(symbol)]
	return h, ok
}

// Ledger returns a copy of the imported ledger.
func (p *Portfolio) Ledger() Ledger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ledger.Clone()
}

// RealizedProfits returns a copy of realized profit per symbol.
func (p *Portfolio) RealizedProfits() map[string]decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return cloneAmounts(p.realized)
}

// state is a consistent copy used by the read-side calculators.
type state struct {
	holdings []Holding
	ledger   Ledger
	realized map[string]decimal.Decimal
}

func (p *Portfolio) state() state {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return state{
		holdings: p.sortedHoldings(),
		ledger:   p.ledger.Clone(),
		realized: cloneAmounts(p.realized),
	}
}

// sortedHoldings must be called with p.mu held.
func (p *Portfolio) sortedHoldings() []Holding {
	out := make([]Holding, 0, len(p.holdings))
	for _, h := range p.holdings {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func cloneAmounts(in map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
