package market

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-tracker/cache"
)

type countingProvider struct {
	mu      sync.Mutex
	history int
	info    int
	news    int
	fail    bool
}

func (p *countingProvider) GetHistory(_ context.Context, symbol string, period Period) History {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history++
	if p.fail {
		return HistoryFromError(symbol, period, ErrUnavailable)
	}
	return History{Symbol: symbol, Period: period, Status: StatusOK, Bars: []Bar{
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: decimal.RequireFromString("101.5")},
	}}
}

func (p *countingProvider) GetQuoteInfo(_ context.Context, symbol string) (QuoteInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.info++
	if p.fail {
		return QuoteInfo{}, ErrUnavailable
	}
	info := EmptyQuoteInfo(symbol)
	info.Name = "Apple Inc."
	return info, nil
}

func (p *countingProvider) GetNews(_ context.Context, _ string, max int) ([]NewsItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.news++
	return []NewsItem{{Title: "headline"}}[:min(max, 1)], nil
}

type recordingArchive struct {
	saved map[string]int
	err   error
}

func (a *recordingArchive) SaveBars(_ context.Context, symbol string, bars []Bar) error {
	if a.saved == nil {
		a.saved = map[string]int{}
	}
	a.saved[symbol] += len(bars)
	return a.err
}

func TestCachedProviderHistory(t *testing.T) {
	upstream := &countingProvider{}
	p := NewCachedProvider(upstream, cache.NewMemoryStore(), CacheTTL{Latest: time.Minute, History: time.Hour}, nil)
	ctx := context.Background()

	h := p.GetHistory(ctx, "AAPL", Period5D)
	require.True(t, h.OK())
	h = p.GetHistory(ctx, "AAPL", Period5D)
	require.True(t, h.OK())
	last, _ := h.LastClose()
	assert.Equal(t, "101.5", last.String())
	assert.Equal(t, 1, upstream.history)

	// A different period is a different entry.
	p.GetHistory(ctx, "AAPL", Period1Y)
	assert.Equal(t, 2, upstream.history)

	p.Refresh(ctx, "AAPL", Period5D)
	assert.Equal(t, 3, upstream.history)
}

func TestCachedProviderDoesNotCacheFailures(t *testing.T) {
	upstream := &countingProvider{fail: true}
	p := NewCachedProvider(upstream, cache.NewMemoryStore(), CacheTTL{History: time.Hour}, nil)
	ctx := context.Background()

	assert.Equal(t, StatusUnavailable, p.GetHistory(ctx, "AAPL", Period1Y).Status)
	assert.Equal(t, StatusUnavailable, p.GetHistory(ctx, "AAPL", Period1Y).Status)
	assert.Equal(t, 2, upstream.history)

	_, err := p.GetQuoteInfo(ctx, "AAPL")
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestCachedProviderInfoAndNews(t *testing.T) {
	upstream := &countingProvider{}
	p := NewCachedProvider(upstream, cache.NewMemoryStore(), CacheTTL{Info: time.Hour, News: time.Hour}, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		info, err := p.GetQuoteInfo(ctx, "AAPL")
		require.NoError(t, err)
		assert.Equal(t, "Apple Inc.", info.Name)
		assert.Equal(t, NotAvailable, info.Sector)

		news, err := p.GetNews(ctx, "AAPL", 5)
		require.NoError(t, err)
		assert.Len(t, news, 1)
	}
	assert.Equal(t, 1, upstream.info)
	assert.Equal(t, 1, upstream.news)
}

func TestArchivingProvider(t *testing.T) {
	archive := &recordingArchive{err: errors.New("db down")}
	upstream := &countingProvider{}
	p := NewArchivingProvider(upstream, archive, nil)

	h := p.GetHistory(context.Background(), "MSFT", Period1M)
	assert.True(t, h.OK())
	assert.Equal(t, 1, archive.saved["MSFT"])

	upstream.fail = true
	h = p.GetHistory(context.Background(), "MSFT", Period1M)
	assert.False(t, h.OK())
	assert.Equal(t, 1, archive.saved["MSFT"])

	// Non-history calls pass through.
	_, err := p.GetQuoteInfo(context.Background(), "MSFT")
	assert.Error(t, err)
}
