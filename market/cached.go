package market

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"portfolio-tracker/cache"
)

// CacheTTL sets how long each kind of response is kept.
type CacheTTL struct {
	Latest  time.Duration
	History time.Duration
	Info    time.Duration
	News    time.Duration
}

// CachedProvider serves repeated queries from a cache.Store. Only successful
// responses are cached, so failures are retried on the next call.
type CachedProvider struct {
	upstream Provider
	store    cache.Store
	ttl      CacheTTL
	logger   *zap.Logger
}

func NewCachedProvider(upstream Provider, store cache.Store, ttl CacheTTL, logger *zap.Logger) *CachedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProvider{upstream: upstream, store: store, ttl: ttl, logger: logger}
}

var _ Provider = (*CachedProvider)(nil)

func historyKey(symbol string, period Period) string {
	return fmt.Sprintf("stock:%s:history:%s", symbol, period)
}

func (p *CachedProvider) historyTTL(period Period) time.Duration {
	if period == Period5D {
		return p.ttl.Latest
	}
	return p.ttl.History
}

func (p *CachedProvider) GetHistory(ctx context.Context, symbol string, period Period) History {
	var bars []Bar
	ok, err := cache.GetJSON(ctx, p.store, historyKey(symbol, period), &bars)
	if err != nil {
		p.logger.Warn("cache read failed", zap.String("symbol", symbol), zap.Error(err))
	}
	if ok && len(bars) > 0 {
		return History{Symbol: symbol, Period: period, Status: StatusOK, Bars: bars}
	}
	return p.Refresh(ctx, symbol, period)
}

// Refresh bypasses the cache, fetches upstream and stores a good result.
func (p *CachedProvider) Refresh(ctx context.Context, symbol string, period Period) History {
	h := p.upstream.GetHistory(ctx, symbol, period)
	if h.OK() {
		if err := cache.SetJSON(ctx, p.store, historyKey(symbol, period), h.Bars, p.historyTTL(period)); err != nil {
			p.logger.Warn("cache write failed", zap.String("symbol", symbol), zap.Error(err))
		}
	}
	return h
}

func (p *CachedProvider) GetQuoteInfo(ctx context.Context, symbol string) (QuoteInfo, error) {
	key := fmt.Sprintf("stock:%s:info", symbol)
	var info QuoteInfo
	if ok, _ := cache.GetJSON(ctx, p.store, key, &info); ok {
		return info, nil
	}
	info, err := p.upstream.GetQuoteInfo(ctx, symbol)
	if err != nil {
		return QuoteInfo{}, err
	}
	if err := cache.SetJSON(ctx, p.store, key, info, p.ttl.Info); err != nil {
		p.logger.Warn("cache write failed", zap.String("symbol", symbol), zap.Error(err))
	}
	return info, nil
}

func (p *CachedProvider) GetNews(ctx context.Context, symbol string, max int) ([]NewsItem, error) {
	key := fmt.Sprintf("stock:%s:news:%d", symbol, max)
	var items []NewsItem
	if ok, _ := cache.GetJSON(ctx, p.store, key, &items); ok {
		return items, nil
	}
	items, err := p.upstream.GetNews(ctx, symbol, max)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, p.store, key, items, p.ttl.News); err != nil {
		p.logger.Warn("cache write failed", zap.String("symbol", symbol), zap.Error(err))
	}
	return items, nil
}
