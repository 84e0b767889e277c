package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-tracker/market"
	"portfolio-tracker/portfolio"
)

type noPrices struct{}

func (noPrices) GetHistory(_ context.Context, symbol string, period market.Period) market.History {
	return market.History{Symbol: symbol, Period: period, Status: market.StatusNoData}
}

type memStore struct {
	mu       sync.Mutex
	ledgers  map[uint]portfolio.Ledger
	holdings map[uint][]portfolio.Holding
	saveErr  error
	loads    int
}

func newMemStore() *memStore {
	return &memStore{ledgers: map[uint]portfolio.Ledger{}, holdings: map[uint][]portfolio.Holding{}}
}

func (s *memStore) LoadLedger(_ context.Context, userID uint) (portfolio.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	return s.ledgers[userID].Clone(), nil
}

func (s *memStore) LoadHoldings(_ context.Context, userID uint) ([]portfolio.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]portfolio.Holding(nil), s.holdings[userID]...), nil
}

func (s *memStore) SaveLedger(_ context.Context, userID uint, ledger portfolio.Ledger, holdings []portfolio.Holding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.ledgers[userID] = ledger.Clone()
	s.holdings[userID] = append([]portfolio.Holding(nil), holdings...)
	return nil
}

func (s *memStore) SaveHoldings(_ context.Context, userID uint, holdings []portfolio.Holding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.holdings[userID] = append([]portfolio.Holding(nil), holdings...)
	return nil
}

const ledgerJSON = `{"AAPL": [["Bought", "2023-01-02", 10, 100], ["Sold", "2023-02-01", 4, 150]]}`

func TestRegistryImportPersistsAndRestores(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := NewRegistry(noPrices{}, store, nil)

	res, err := r.Import(ctx, 1, []byte(ledgerJSON))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Holdings)
	require.Len(t, store.ledgers[1]["AAPL"], 2)
	require.Len(t, store.holdings[1], 1)

	_, err = r.AddStock(ctx, 1, "msft", decimal.NewFromInt(3), decimal.NullDecimal{})
	require.NoError(t, err)
	require.Len(t, store.holdings[1], 2)

	r.Forget(1)
	p, err := r.Get(ctx, 1)
	require.NoError(t, err)
	holdings := p.Holdings()
	require.Len(t, holdings, 2)
	assert.Equal(t, "AAPL", holdings[0].Symbol)
	assert.Equal(t, "MSFT", holdings[1].Symbol)
	assert.True(t, p.RealizedProfits()["AAPL"].Equal(decimal.NewFromInt(200)))
}

func TestRegistryRemovedHoldingsStayRemoved(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := NewRegistry(noPrices{}, store, nil)

	_, err := r.Import(ctx, 1, []byte(ledgerJSON))
	require.NoError(t, err)
	require.NoError(t, r.RemoveStock(ctx, 1, "AAPL", decimal.NullDecimal{}))

	r.Forget(1)
	p, err := r.Get(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, p.Holdings())
	assert.Len(t, p.Ledger()["AAPL"], 2)
}

func TestRegistryImportFailureLeavesState(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := NewRegistry(noPrices{}, store, nil)
	_, err := r.Import(ctx, 1, []byte(ledgerJSON))
	require.NoError(t, err)

	_, err = r.Import(ctx, 1, []byte(`{"AAPL": [["Bought"]]}`))
	assert.ErrorIs(t, err, portfolio.ErrImportFormat)

	store.saveErr = errors.New("connection reset")
	_, err = r.Import(ctx, 1, []byte(`{"TSLA": [["Bought", "2023-01-02", 1, 100]]}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, store.saveErr)

	p, err := r.Get(ctx, 1)
	require.NoError(t, err)
	holdings := p.Holdings()
	require.Len(t, holdings, 1)
	assert.Equal(t, "AAPL", holdings[0].Symbol)
	assert.Len(t, store.ledgers[1], 1)
}

func TestRegistryIsolatesUsersAndCachesSessions(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := NewRegistry(noPrices{}, store, nil)

	_, err := r.AddStock(ctx, 1, "AAPL", decimal.NewFromInt(1), decimal.NullDecimal{})
	require.NoError(t, err)
	_, err = r.AddStock(ctx, 2, "TSLA", decimal.NewFromInt(1), decimal.NullDecimal{})
	require.NoError(t, err)
	_, err = r.AddStock(ctx, 2, "AAPL", decimal.NewFromInt(1), decimal.NullDecimal{})
	require.NoError(t, err)

	p1, err := r.Get(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, p1.Holdings(), 1)
	assert.Equal(t, 2, store.loads)

	assert.Equal(t, []string{"AAPL", "TSLA"}, r.HeldSymbols())
}

func TestRegistryMutationErrors(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(noPrices{}, newMemStore(), nil)

	_, err := r.AddStock(ctx, 1, "", decimal.NewFromInt(1), decimal.NullDecimal{})
	assert.ErrorIs(t, err, portfolio.ErrInvalidInput)
	assert.ErrorIs(t, r.RemoveStock(ctx, 1, "AAPL", decimal.NullDecimal{}), portfolio.ErrNotHeld)
}

// gatedStore blocks LoadLedger for one user until release is closed.
type gatedStore struct {
	*memStore
	user    uint
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) LoadLedger(ctx context.Context, userID uint) (portfolio.Ledger, error) {
	if userID == s.user {
		close(s.entered)
		<-s.release
	}
	return s.memStore.LoadLedger(ctx, userID)
}

func TestRegistrySlowRestoreDoesNotBlockOtherUsers(t *testing.T) {
	ctx := context.Background()
	store := &gatedStore{
		memStore: newMemStore(),
		user:     1,
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	r := NewRegistry(noPrices{}, store, nil)

	slow := make(chan error, 1)
	go func() {
		_, err := r.Get(ctx, 1)
		slow <- err
	}()
	<-store.entered

	done := make(chan error, 1)
	go func() {
		_, err := r.AddStock(ctx, 2, "AAPL", decimal.NewFromInt(1), decimal.NullDecimal{})
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		close(store.release)
		t.Fatal("user 2 waited on user 1's restore")
	}

	close(store.release)
	require.NoError(t, <-slow)

	p1, err := r.Get(ctx, 1)
	require.NoError(t, err)
	p1again, err := r.Get(ctx, 1)
	require.NoError(t, err)
	assert.Same(t, p1, p1again)
}
