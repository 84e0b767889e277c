package portfolio

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"portfolio-tracker/market"
)

// fakePrices serves canned histories and records every request.
type fakePrices struct {
	mu      sync.Mutex
	bars    map[string][]market.Bar
	failing map[string]market.Status
	calls   []string
}

func newFakePrices() *fakePrices {
	return &fakePrices{bars: map[string][]market.Bar{}, failing: map[string]market.Status{}}
}

func (f *fakePrices) closes(symbol string, start time.Time, closes ...string) *fakePrices {
	bars := make([]market.Bar, 0, len(closes))
	for i, c := range closes {
		bars = append(bars, market.Bar{Date: start.AddDate(0, 0, i), Close: decimal.RequireFromString(c)})
	}
	f.bars[symbol] = bars
	return f
}

func (f *fakePrices) fail(symbol string, status market.Status) *fakePrices {
	f.failing[symbol] = status
	return f
}

func (f *fakePrices) GetHistory(_ context.Context, symbol string, period market.Period) market.History {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, symbol+":"+string(period))
	if status, ok := f.failing[symbol]; ok {
		return market.History{Symbol: symbol, Period: period, Status: status}
	}
	bars, ok := f.bars[symbol]
	if !ok {
		return market.History{Symbol: symbol, Period: period, Status: market.StatusNoData}
	}
	return market.History{Symbol: symbol, Period: period, Status: market.StatusOK, Bars: bars}
}

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func price(s string) decimal.NullDecimal { return decimal.NewNullDecimal(dec(s)) }

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func buy(t *testing.T, d, shares, px string) Transaction {
	return Transaction{Action: Buy, Date: date(t, d), Shares: dec(shares), Price: dec(px)}
}

func sell(t *testing.T, d, shares, px string) Transaction {
	return Transaction{Action: Sell, Date: date(t, d), Shares: dec(shares), Price: dec(px)}
}

// requireDecimal compares by value so 600 and 600.00 are equal.
func requireDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}
