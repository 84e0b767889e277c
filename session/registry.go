// Package session keeps one portfolio per signed-in user and mirrors every
// change to persistent storage.
package session

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"portfolio-tracker/portfolio"
)

// Store persists ledgers and holdings per user.
type Store interface {
	LoadLedger(ctx context.Context, userID uint) (portfolio.Ledger, error)
	LoadHoldings(ctx context.Context, userID uint) ([]portfolio.Holding, error)
	SaveLedger(ctx context.Context, userID uint, ledger portfolio.Ledger, holdings []portfolio.Holding) error
	SaveHoldings(ctx context.Context, userID uint, holdings []portfolio.Holding) error
}

type entry struct {
	// mu serializes mutations so the saved holdings follow memory order.
	mu sync.Mutex
	p  *portfolio.Portfolio
}

type Registry struct {
	mu       sync.Mutex
	sessions map[uint]*entry

	prices portfolio.PriceSource
	store  Store
	logger *zap.Logger
}

func NewRegistry(prices portfolio.PriceSource, store Store, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		sessions: make(map[uint]*entry),
		prices:   prices,
		store:    store,
		logger:   logger,
	}
}

// Get returns the user's portfolio, restoring it from the store on first use.
func (r *Registry) Get(ctx context.Context, userID uint) (*portfolio.Portfolio, error) {
	e, err := r.entry(ctx, userID)
	if err != nil {
		return nil, err
	}
	return e.p, nil
}

// entry returns the cached session or restores one. The store is read
// without holding r.mu; when two requests restore the same user at once the
// first one installed wins.
func (r *Registry) entry(ctx context.Context, userID uint) (*entry, error) {
	r.mu.Lock()
	e, ok := r.sessions[userID]
	r.mu.Unlock()
	if ok {
		return e, nil
	}

	p := portfolio.New(r.prices, r.logger.With(zap.Uint("user_id", userID)))
	if err := r.restore(ctx, userID, p); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[userID]; ok {
		return e, nil
	}
	e = &entry{p: p}
	r.sessions[userID] = e
	return e, nil
}

func (r *Registry) restore(ctx context.Context, userID uint, p *portfolio.Portfolio) error {
	ledger, err := r.store.LoadLedger(ctx, userID)
	if err != nil {
		return err
	}
	if len(ledger) > 0 {
		if _, err := p.ReplaceLedger(ledger); err != nil {
			return fmt.Errorf("restore ledger: %w", err)
		}
	}
	holdings, err := r.store.LoadHoldings(ctx, userID)
	if err != nil {
		return err
	}
	if err := p.RestoreHoldings(holdings); err != nil {
		return fmt.Errorf("restore holdings: %w", err)
	}
	r.logger.Debug("session restored",
		zap.Uint("user_id", userID),
		zap.Int("ledger_symbols", len(ledger)),
		zap.Int("holdings", len(holdings)))
	return nil
}

// Import replaces the user's ledger with data. The ledger is saved before the
// in-memory portfolio changes, so a failed save leaves both untouched.
func (r *Registry) Import(ctx context.Context, userID uint, data []byte) (*portfolio.ImportResult, error) {
	ledger, err := portfolio.DecodeLedger(data)
	if err != nil {
		return nil, err
	}
	return r.ReplaceLedger(ctx, userID, ledger)
}

func (r *Registry) ReplaceLedger(ctx context.Context, userID uint, ledger portfolio.Ledger) (*portfolio.ImportResult, error) {
	replayed, err := portfolio.ReplayLedger(ledger)
	if err != nil {
		return nil, err
	}
	e, err := r.entry(ctx, userID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := r.store.SaveLedger(ctx, userID, replayed.Ledger, replayed.Holdings); err != nil {
		return nil, fmt.Errorf("save ledger: %w", err)
	}
	e.p.Apply(replayed)
	return replayed.Result, nil
}

func (r *Registry) AddStock(ctx context.Context, userID uint, symbol string, shares decimal.Decimal, price decimal.NullDecimal) (portfolio.Holding, error) {
	e, err := r.entry(ctx, userID)
	if err != nil {
		return portfolio.Holding{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	h, err := e.p.AddStock(symbol, shares, price)
	if err != nil {
		return portfolio.Holding{}, err
	}
	return h, r.saveHoldings(ctx, userID, e.p)
}

func (r *Registry) RemoveStock(ctx context.Context, userID uint, symbol string, shares decimal.NullDecimal) error {
	e, err := r.entry(ctx, userID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.p.RemoveStock(symbol, shares); err != nil {
		return err
	}
	return r.saveHoldings(ctx, userID, e.p)
}

func (r *Registry) saveHoldings(ctx context.Context, userID uint, p *portfolio.Portfolio) error {
	if err := r.store.SaveHoldings(ctx, userID, p.Holdings()); err != nil {
		r.logger.Error("save holdings failed", zap.Uint("user_id", userID), zap.Error(err))
		return fmt.Errorf("save holdings: %w", err)
	}
	return nil
}

// HeldSymbols lists every symbol held in any loaded session.
func (r *Registry) HeldSymbols() []string {
	r.mu.Lock()
	entries := make([]*entry, 0, len(r.sessions))
	for _, e := range r.sessions {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	seen := make(map[string]struct{})
	for _, e := range entries {
		for _, h := range e.p.Holdings() {
			seen[h.Symbol] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Forget drops a cached session; the next Get restores it from the store.
func (r *Registry) Forget(userID uint) {
	r.mu.Lock()
	delete(r.sessions, userID)
	r.mu.Unlock()
}
