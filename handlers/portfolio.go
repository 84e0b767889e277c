package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"portfolio-tracker/market"
	"portfolio-tracker/middleware"
	"portfolio-tracker/portfolio"
	"portfolio-tracker/session"
)

const maxImportBytes = 10 << 20

type StockInput struct {
	Symbol        string              `json:"symbol" binding:"required"`
	Shares        decimal.Decimal     `json:"shares"`
	PurchasePrice decimal.NullDecimal `json:"purchase_price"`
}

type PortfolioHandler struct {
	sessions *session.Registry
	logger   *zap.Logger
}

func NewPortfolioHandler(sessions *session.Registry, logger *zap.Logger) *PortfolioHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PortfolioHandler{sessions: sessions, logger: logger}
}

func userID(c *gin.Context) uint {
	return c.MustGet(middleware.UserIDKey).(uint)
}

// load resolves the caller's portfolio or writes the error response.
func (h *PortfolioHandler) load(c *gin.Context) (*portfolio.Portfolio, bool) {
	p, err := h.sessions.Get(c.Request.Context(), userID(c))
	if err != nil {
		h.logger.Error("load portfolio failed", zap.Uint("user_id", userID(c)), zap.Error(err))
		abortWithError(c, "Failed to load portfolio", err)
		return nil, false
	}
	return p, true
}

func periodParam(c *gin.Context) (market.Period, error) {
	return market.ParsePeriod(c.DefaultQuery("period", string(market.Period1Y)))
}

func (h *PortfolioHandler) AddStock(c *gin.Context) {
	var input StockInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	holding, err := h.sessions.AddStock(c.Request.Context(), userID(c), input.Symbol, input.Shares, input.PurchasePrice)
	if err != nil {
		abortWithError(c, "Failed to add stock", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Stock added successfully", "holding": holding})
}

// RemoveStock drops the holding, or only ?shares= of it when given.
func (h *PortfolioHandler) RemoveStock(c *gin.Context) {
	var shares decimal.NullDecimal
	if raw := c.Query("shares"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid shares", "details": err.Error()})
			return
		}
		shares = decimal.NewNullDecimal(d)
	}

	if err := h.sessions.RemoveStock(c.Request.Context(), userID(c), c.Param("symbol"), shares); err != nil {
		abortWithError(c, "Failed to remove stock", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Stock removed successfully"})
}

func (h *PortfolioHandler) GetPortfolio(c *gin.Context) {
	p, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, p.CurrentSnapshot(c.Request.Context()))
}

func (h *PortfolioHandler) GetSummary(c *gin.Context) {
	p, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, p.Summary(c.Request.Context()))
}

func (h *PortfolioHandler) GetMetrics(c *gin.Context) {
	p, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, p.PerformanceMetrics(c.Request.Context()))
}

func (h *PortfolioHandler) GetBreakdown(c *gin.Context) {
	p, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, p.ProfitBreakdown(c.Request.Context()))
}

func (h *PortfolioHandler) GetHistory(c *gin.Context) {
	period, err := periodParam(c)
	if err != nil {
		abortWithError(c, "Invalid period", err)
		return
	}
	p, ok := h.load(c)
	if !ok {
		return
	}
	series, err := p.HistoricalPerformance(c.Request.Context(), period)
	if err != nil {
		abortWithError(c, "Failed to build history", err)
		return
	}
	c.JSON(http.StatusOK, series)
}

func (h *PortfolioHandler) GetCorrelation(c *gin.Context) {
	period, err := periodParam(c)
	if err != nil {
		abortWithError(c, "Invalid period", err)
		return
	}
	p, ok := h.load(c)
	if !ok {
		return
	}
	report, err := p.Correlation(c.Request.Context(), period)
	if err != nil {
		abortWithError(c, "Failed to correlate holdings", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Import replaces the caller's ledger. JSON bodies use the ledger file
// format; text/csv bodies use the export format.
func (h *PortfolioHandler) Import(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body", "details": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var result *portfolio.ImportResult
	if c.ContentType() == "text/csv" {
		ledger, perr := portfolio.LedgerFromCSV(bytes.NewReader(body))
		if perr != nil {
			abortWithError(c, "Failed to import ledger", perr)
			return
		}
		result, err = h.sessions.ReplaceLedger(ctx, userID(c), ledger)
	} else {
		result, err = h.sessions.Import(ctx, userID(c), body)
	}
	if err != nil {
		abortWithError(c, "Failed to import ledger", err)
		return
	}

	h.logger.Info("ledger imported",
		zap.Uint("user_id", userID(c)),
		zap.Int("symbols", result.Symbols),
		zap.Int("transactions", result.Transactions),
		zap.Int("warnings", len(result.Warnings)))
	c.JSON(http.StatusOK, result)
}

func (h *PortfolioHandler) Export(c *gin.Context) {
	p, ok := h.load(c)
	if !ok {
		return
	}
	name := fmt.Sprintf("transactions_%s.csv", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("Content-Type", "text/csv")
	c.Status(http.StatusOK)
	if err := p.ExportTransactions(c.Writer); err != nil {
		h.logger.Error("export failed", zap.Uint("user_id", userID(c)), zap.Error(err))
		_ = c.Error(err)
	}
}

// GetLedger returns the ledger in the same format Import accepts.
func (h *PortfolioHandler) GetLedger(c *gin.Context) {
	p, ok := h.load(c)
	if !ok {
		return
	}
	data, err := portfolio.EncodeLedger(p.Ledger())
	if err != nil {
		abortWithError(c, "Failed to encode ledger", err)
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}
