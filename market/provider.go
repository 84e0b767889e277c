// Package market fetches quotes, price history, company facts and news, and
// derives chart analytics from daily bars.
package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPeriod = errors.New("invalid period")
	ErrNoData        = errors.New("no market data")
	ErrUnavailable   = errors.New("market data unavailable")
	ErrNotEnoughData = errors.New("not enough data")
)

// NotAvailable fills quote fields the provider did not return.
const NotAvailable = "N/A"

// Period is a trailing look-back window ending at the latest bar.
type Period string

const (
	Period5D Period = "5d"
	Period1M Period = "1mo"
	Period3M Period = "3mo"
	Period6M Period = "6mo"
	Period1Y Period = "1y"
	Period5Y Period = "5y"
)

// ParsePeriod accepts the user-selectable periods plus the internal 5d window.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return p, nil
}

func (p Period) Valid() bool {
	switch p {
	case Period5D, Period1M, Period3M, Period6M, Period1Y, Period5Y:
		return true
	}
	return false
}

// Start is the first calendar day inside the window ending at end. The 5d
// window spans a week so it always covers five trading sessions.
func (p Period) Start(end time.Time) time.Time {
	switch p {
	case Period5D:
		return end.AddDate(0, 0, -7)
	case Period1M:
		return end.AddDate(0, -1, 0)
	case Period3M:
		return end.AddDate(0, -3, 0)
	case Period6M:
		return end.AddDate(0, -6, 0)
	case Period5Y:
		return end.AddDate(-5, 0, 0)
	default:
		return end.AddDate(-1, 0, 0)
	}
}

// Bar is one daily OHLCV record. Date is UTC midnight of the session.
type Bar struct {
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

type Status string

const (
	StatusOK          Status = "ok"
	StatusNoData      Status = "no_data"
	StatusUnavailable Status = "unavailable"
)

// History is the result of a history query. Providers report failures in
// Status and Err instead of returning an error.
type History struct {
	Symbol string `json:"symbol"`
	Period Period `json:"period"`
	Status Status `json:"status"`
	Bars   []Bar  `json:"bars"`
	Err    error  `json:"-"`
}

func (h History) OK() bool {
	return h.Status == StatusOK && len(h.Bars) > 0
}

// LastClose is the close of the most recent bar.
func (h History) LastClose() (decimal.Decimal, bool) {
	if !h.OK() {
		return decimal.Zero, false
	}
	return h.Bars[len(h.Bars)-1].Close, true
}

// Reason describes why a history is not usable.
func (h History) Reason() string {
	if h.Err != nil {
		return h.Err.Error()
	}
	if h.Status == StatusOK && len(h.Bars) == 0 {
		return string(StatusNoData)
	}
	return string(h.Status)
}

// HistoryFromError classifies err into a failed History.
func HistoryFromError(symbol string, period Period, err error) History {
	status := StatusUnavailable
	if errors.Is(err, ErrNoData) {
		status = StatusNoData
	}
	return History{Symbol: symbol, Period: period, Status: status, Err: err}
}

// QuoteInfo holds company facts as display strings.
type QuoteInfo struct {
	Symbol           string `json:"symbol"`
	Name             string `json:"name"`
	Sector           string `json:"sector"`
	Industry         string `json:"industry"`
	MarketCap        string `json:"market_cap"`
	PERatio          string `json:"pe_ratio"`
	EPS              string `json:"eps"`
	FiftyTwoWeekHigh string `json:"fifty_two_week_high"`
	FiftyTwoWeekLow  string `json:"fifty_two_week_low"`
	DividendYield    string `json:"dividend_yield"`
	Beta             string `json:"beta"`
	PriceToBook      string `json:"price_to_book"`
	CurrentPrice     string `json:"current_price"`
}

// EmptyQuoteInfo returns a QuoteInfo with every field set to NotAvailable.
func EmptyQuoteInfo(symbol string) QuoteInfo {
	return QuoteInfo{
		Symbol:           symbol,
		Name:             NotAvailable,
		Sector:           NotAvailable,
		Industry:         NotAvailable,
		MarketCap:        NotAvailable,
		PERatio:          NotAvailable,
		EPS:              NotAvailable,
		FiftyTwoWeekHigh: NotAvailable,
		FiftyTwoWeekLow:  NotAvailable,
		DividendYield:    NotAvailable,
		Beta:             NotAvailable,
		PriceToBook:      NotAvailable,
		CurrentPrice:     NotAvailable,
	}
}

type NewsItem struct {
	Title     string    `json:"title"`
	Publisher string    `json:"publisher"`
	URL       string    `json:"url"`
	Published time.Time `json:"published"`
	Thumbnail string    `json:"thumbnail"`
}

// Provider is the market data source.
type Provider interface {
	GetHistory(ctx context.Context, symbol string, period Period) History
	GetQuoteInfo(ctx context.Context, symbol string) (QuoteInfo, error)
	GetNews(ctx context.Context, symbol string, max int) ([]NewsItem, error)
}
