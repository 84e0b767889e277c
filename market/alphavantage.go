package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultAlphaVantageURL = "https://www.alphavantage.co/query"

	newsTimeLayout = "20060102T150405"
)

// AlphaVantageResponse covers the GLOBAL_QUOTE and TIME_SERIES_DAILY payloads.
type AlphaVantageResponse struct {
	GlobalQuote struct {
		Symbol string `json:"01. symbol"`
		Price  string `json:"05. price"`
	} `json:"Global Quote"`
	TimeSeriesDaily map[string]struct {
		Open   string `json:"1. open"`
		High   string `json:"2. high"`
		Low    string `json:"3. low"`
		Close  string `json:"4. close"`
		Volume string `json:"5. volume"`
	} `json:"Time Series (Daily)"`
}

type overviewResponse struct {
	Symbol               string `json:"Symbol"`
	Name                 string `json:"Name"`
	Sector               string `json:"Sector"`
	Industry             string `json:"Industry"`
	MarketCapitalization string `json:"MarketCapitalization"`
	PERatio              string `json:"PERatio"`
	EPS                  string `json:"EPS"`
	WeekHigh52           string `json:"52WeekHigh"`
	WeekLow52            string `json:"52WeekLow"`
	DividendYield        string `json:"DividendYield"`
	Beta                 string `json:"Beta"`
	PriceToBookRatio     string `json:"PriceToBookRatio"`
}

type newsResponse struct {
	Feed []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		TimePublished string `json:"time_published"`
		Source        string `json:"source"`
		BannerImage   string `json:"banner_image"`
	} `json:"feed"`
}

// envelope carries the error fields Alpha Vantage returns with status 200.
type envelope struct {
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

// AlphaVantage is a Provider backed by the Alpha Vantage REST API.
type AlphaVantage struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

func NewAlphaVantage(apiKey string, timeout time.Duration) *AlphaVantage {
	return &AlphaVantage{
		APIKey:  apiKey,
		BaseURL: DefaultAlphaVantageURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

var _ Provider = (*AlphaVantage)(nil)

func (c *AlphaVantage) query(ctx context.Context, params url.Values, out any) error {
	params.Set("apikey", c.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d", ErrUnavailable, params.Get("function"), resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUnavailable, params.Get("function"), err)
	}
	switch {
	case env.ErrorMessage != "":
		return fmt.Errorf("%w: %s", ErrNoData, env.ErrorMessage)
	case env.Note != "":
		return fmt.Errorf("%w: API limit: %s", ErrUnavailable, env.Note)
	case env.Information != "":
		return fmt.Errorf("%w: %s", ErrUnavailable, env.Information)
	}
	return json.Unmarshal(body, out)
}

// GetHistory fetches daily bars and trims them to period, oldest first.
func (c *AlphaVantage) GetHistory(ctx context.Context, symbol string, period Period) History {
	if !period.Valid() {
		return HistoryFromError(symbol, period, fmt.Errorf("%w: %q", ErrInvalidPeriod, period))
	}
	size := "compact"
	if period == Period6M || period == Period1Y || period == Period5Y {
		size = "full"
	}

	var result AlphaVantageResponse
	params := url.Values{
		"function":   {"TIME_SERIES_DAILY"},
		"symbol":     {symbol},
		"outputsize": {size},
	}
	if err := c.query(ctx, params, &result); err != nil {
		return HistoryFromError(symbol, period, err)
	}

	bars := make([]Bar, 0, len(result.TimeSeriesDaily))
	for ds, day := range result.TimeSeriesDaily {
		d, err := time.ParseInLocation("2006-01-02", ds, time.UTC)
		if err != nil {
			continue
		}
		closePrice, err := decimal.NewFromString(day.Close)
		if err != nil {
			continue
		}
		volume, _ := strconv.ParseInt(day.Volume, 10, 64)
		bars = append(bars, Bar{
			Date:   d,
			Open:   parseDecimal(day.Open),
			High:   parseDecimal(day.High),
			Low:    parseDecimal(day.Low),
			Close:  closePrice,
			Volume: volume,
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	if len(bars) > 0 {
		start := period.Start(bars[len(bars)-1].Date)
		i := sort.Search(len(bars), func(i int) bool { return !bars[i].Date.Before(start) })
		bars = bars[i:]
	}
	if len(bars) == 0 {
		return HistoryFromError(symbol, period, fmt.Errorf("%w: no daily bars for %s", ErrNoData, symbol))
	}
	return History{Symbol: symbol, Period: period, Status: StatusOK, Bars: bars}
}

// GetQuoteInfo merges the company overview with the latest quote.
func (c *AlphaVantage) GetQuoteInfo(ctx context.Context, symbol string) (QuoteInfo, error) {
	var ov overviewResponse
	if err := c.query(ctx, url.Values{"function": {"OVERVIEW"}, "symbol": {symbol}}, &ov); err != nil {
		return QuoteInfo{}, err
	}
	var quote AlphaVantageResponse
	if err := c.query(ctx, url.Values{"function": {"GLOBAL_QUOTE"}, "symbol": {symbol}}, &quote); err != nil {
		return QuoteInfo{}, err
	}
	if ov.Symbol == "" && quote.GlobalQuote.Price == "" {
		return QuoteInfo{}, fmt.Errorf("%w: no quote for %s", ErrNoData, symbol)
	}

	return QuoteInfo{
		Symbol:           symbol,
		Name:             orNA(ov.Name),
		Sector:           orNA(ov.Sector),
		Industry:         orNA(ov.Industry),
		MarketCap:        orNA(ov.MarketCapitalization),
		PERatio:          orNA(ov.PERatio),
		EPS:              orNA(ov.EPS),
		FiftyTwoWeekHigh: orNA(ov.WeekHigh52),
		FiftyTwoWeekLow:  orNA(ov.WeekLow52),
		DividendYield:    orNA(ov.DividendYield),
		Beta:             orNA(ov.Beta),
		PriceToBook:      orNA(ov.PriceToBookRatio),
		CurrentPrice:     orNA(quote.GlobalQuote.Price),
	}, nil
}

// GetNews returns up to max articles mentioning symbol, newest first.
func (c *AlphaVantage) GetNews(ctx context.Context, symbol string, max int) ([]NewsItem, error) {
	if max <= 0 {
		return []NewsItem{}, nil
	}
	var result newsResponse
	params := url.Values{
		"function": {"NEWS_SENTIMENT"},
		"tickers":  {symbol},
		"sort":     {"LATEST"},
		"limit":    {strconv.Itoa(max)},
	}
	if err := c.query(ctx, params, &result); err != nil {
		return nil, err
	}

	items := make([]NewsItem, 0, len(result.Feed))
	for _, f := range result.Feed {
		published, _ := time.ParseInLocation(newsTimeLayout, f.TimePublished, time.UTC)
		items = append(items, NewsItem{
			Title:     f.Title,
			Publisher: f.Source,
			URL:       f.URL,
			Published: published,
			Thumbnail: f.BannerImage,
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Published.After(items[j].Published) })
	if len(items) > max {
		items = items[:max]
	}
	return items, nil
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func orNA(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || s == "None" || s == "-" {
		return NotAvailable
	}
	return s
}
