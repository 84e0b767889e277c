package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"portfolio-tracker/market"
	"portfolio-tracker/portfolio"
)

const (
	defaultNewsLimit = 5
	maxNewsLimit     = 50
	maxCompare       = 10
)

type MarketHandler struct {
	provider market.Provider
	logger   *zap.Logger
}

func NewMarketHandler(provider market.Provider, logger *zap.Logger) *MarketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarketHandler{provider: provider, logger: logger}
}

func historyError(h market.History) error {
	if h.Err != nil {
		return h.Err
	}
	if h.Status == market.StatusUnavailable {
		return fmt.Errorf("%w: %s", market.ErrUnavailable, h.Symbol)
	}
	return fmt.Errorf("%w: %s", market.ErrNoData, h.Symbol)
}

func (h *MarketHandler) history(c *gin.Context, symbol string, period market.Period) (market.History, bool) {
	hist := h.provider.GetHistory(c.Request.Context(), symbol, period)
	if !hist.OK() {
		h.logger.Warn("history unavailable",
			zap.String("symbol", symbol),
			zap.String("period", string(period)),
			zap.String("reason", hist.Reason()))
		abortWithError(c, "Failed to fetch stock data", historyError(hist))
		return market.History{}, false
	}
	return hist, true
}

// GetStockPrice returns the latest close.
func (h *MarketHandler) GetStockPrice(c *gin.Context) {
	symbol := portfolio.NormalizeSymbol(c.Param("symbol"))
	hist, ok := h.history(c, symbol, market.Period5D)
	if !ok {
		return
	}
	last := hist.Bars[len(hist.Bars)-1]
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "price": last.Close, "date": last.Date})
}

// GetHistoricalData returns daily bars with moving averages, returns and
// volatility.
func (h *MarketHandler) GetHistoricalData(c *gin.Context) {
	period, err := periodParam(c)
	if err != nil {
		abortWithError(c, "Invalid period", err)
		return
	}
	symbol := portfolio.NormalizeSymbol(c.Param("symbol"))
	hist, ok := h.history(c, symbol, period)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol": symbol,
		"period": period,
		"points": market.Indicators(hist.Bars),
	})
}

func (h *MarketHandler) GetInfo(c *gin.Context) {
	symbol := portfolio.NormalizeSymbol(c.Param("symbol"))
	info, err := h.provider.GetQuoteInfo(c.Request.Context(), symbol)
	if err != nil {
		abortWithError(c, "Failed to fetch quote info", err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *MarketHandler) GetNews(c *gin.Context) {
	limit := defaultNewsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxNewsLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit", "details": fmt.Sprintf("limit must be between 1 and %d", maxNewsLimit)})
			return
		}
		limit = n
	}

	symbol := portfolio.NormalizeSymbol(c.Param("symbol"))
	news, err := h.provider.GetNews(c.Request.Context(), symbol, limit)
	if err != nil {
		abortWithError(c, "Failed to fetch news", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "news": news})
}

// Compare rebases each symbol to 100 at the start of the period and
// correlates their daily returns. Symbols without data are listed as skipped.
func (h *MarketHandler) Compare(c *gin.Context) {
	period, err := periodParam(c)
	if err != nil {
		abortWithError(c, "Invalid period", err)
		return
	}

	var symbols []string
	seen := make(map[string]bool)
	for _, s := range strings.Split(c.Query("symbols"), ",") {
		s = portfolio.NormalizeSymbol(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		symbols = append(symbols, s)
	}
	if len(symbols) < 2 || len(symbols) > maxCompare {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid symbols",
			"details": fmt.Sprintf("give between 2 and %d comma separated symbols", maxCompare),
		})
		return
	}

	normalized := make(map[string][]market.NormalizedPoint, len(symbols))
	series := make(map[string][]market.Bar, len(symbols))
	skipped := []portfolio.Skipped{}
	for _, s := range symbols {
		hist := h.provider.GetHistory(c.Request.Context(), s, period)
		if !hist.OK() {
			skipped = append(skipped, portfolio.Skipped{Symbol: s, Status: hist.Status, Reason: hist.Reason()})
			continue
		}
		normalized[s] = market.Normalize(hist.Bars)
		series[s] = hist.Bars
	}

	resp := gin.H{"period": period, "normalized": normalized, "skipped": skipped}
	corr, err := market.Correlate(series)
	if err == nil {
		resp["correlation"] = corr
	} else {
		resp["correlation"] = nil
		resp["correlation_error"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}
