package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"portfolio-tracker/market"
	"portfolio-tracker/middleware"
	"portfolio-tracker/portfolio"
	"portfolio-tracker/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

type fakeProvider struct {
	bars    map[string][]market.Bar
	failing map[string]market.Status
	info    map[string]market.QuoteInfo
	news    []market.NewsItem
	newsMax int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		bars:    map[string][]market.Bar{},
		failing: map[string]market.Status{},
		info:    map[string]market.QuoteInfo{},
	}
}

func (f *fakeProvider) closes(symbol string, closes ...string) *fakeProvider {
	bars := make([]market.Bar, 0, len(closes))
	for i, c := range closes {
		bars = append(bars, market.Bar{Date: day0.AddDate(0, 0, i), Close: decimal.RequireFromString(c), Volume: 1000})
	}
	f.bars[symbol] = bars
	return f
}

func (f *fakeProvider) GetHistory(_ context.Context, symbol string, period market.Period) market.History {
	if status, ok := f.failing[symbol]; ok {
		return market.History{Symbol: symbol, Period: period, Status: status}
	}
	bars, ok := f.bars[symbol]
	if !ok {
		return market.History{Symbol: symbol, Period: period, Status: market.StatusNoData}
	}
	return market.History{Symbol: symbol, Period: period, Status: market.StatusOK, Bars: bars}
}

func (f *fakeProvider) GetQuoteInfo(_ context.Context, symbol string) (market.QuoteInfo, error) {
	info, ok := f.info[symbol]
	if !ok {
		return market.QuoteInfo{}, market.ErrNoData
	}
	return info, nil
}

func (f *fakeProvider) GetNews(_ context.Context, _ string, max int) ([]market.NewsItem, error) {
	f.newsMax = max
	if len(f.news) > max {
		return f.news[:max], nil
	}
	return f.news, nil
}

type memLedgers struct {
	mu       sync.Mutex
	ledgers  map[uint]portfolio.Ledger
	holdings map[uint][]portfolio.Holding
}

func newMemLedgers() *memLedgers {
	return &memLedgers{ledgers: map[uint]portfolio.Ledger{}, holdings: map[uint][]portfolio.Holding{}}
}

func (s *memLedgers) LoadLedger(_ context.Context, userID uint) (portfolio.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledgers[userID].Clone(), nil
}

func (s *memLedgers) LoadHoldings(_ context.Context, userID uint) ([]portfolio.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]portfolio.Holding(nil), s.holdings[userID]...), nil
}

func (s *memLedgers) SaveLedger(_ context.Context, userID uint, ledger portfolio.Ledger, holdings []portfolio.Holding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgers[userID] = ledger.Clone()
	s.holdings[userID] = append([]portfolio.Holding(nil), holdings...)
	return nil
}

func (s *memLedgers) SaveHoldings(_ context.Context, userID uint, holdings []portfolio.Holding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holdings[userID] = append([]portfolio.Holding(nil), holdings...)
	return nil
}

// asUser stands in for JWTAuth.
func asUser(id uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, id)
		c.Next()
	}
}

type testServer struct {
	router   *gin.Engine
	provider *fakeProvider
	store    *memLedgers
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	provider := newFakeProvider()
	store := newMemLedgers()
	sessions := session.NewRegistry(provider, store, nil)

	router := gin.New()
	Routes{
		Portfolio: NewPortfolioHandler(sessions, nil),
		Market:    NewMarketHandler(provider, nil),
	}.Register(router, asUser(1))
	return &testServer{router: router, provider: provider, store: store}
}

func (s *testServer) do(method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) get(path string) *httptest.ResponseRecorder {
	return s.do(http.MethodGet, path, "", nil)
}

func (s *testServer) postJSON(path string, v any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(v)
	return s.do(http.MethodPost, path, "application/json", b)
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}
