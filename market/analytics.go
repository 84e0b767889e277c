package market

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const tradingDaysPerYear = 252

// IndicatorPoint is one bar with its derived chart series. Fields are null
// until their look-back window is full.
type IndicatorPoint struct {
	Date       time.Time           `json:"date"`
	Close      decimal.Decimal     `json:"close"`
	Volume     int64               `json:"volume"`
	MA20       decimal.NullDecimal `json:"ma20"`
	MA50       decimal.NullDecimal `json:"ma50"`
	MA200      decimal.NullDecimal `json:"ma200"`
	Return     decimal.NullDecimal `json:"daily_return"`
	Volatility decimal.NullDecimal `json:"volatility"`
}

// Indicators computes 20/50/200-day simple moving averages, daily returns and
// the 20-day annualised volatility of returns for bars in date order.
func Indicators(bars []Bar) []IndicatorPoint {
	out := make([]IndicatorPoint, len(bars))
	returns := make([]float64, len(bars))
	for i, bar := range bars {
		pt := IndicatorPoint{Date: bar.Date, Close: bar.Close, Volume: bar.Volume}
		pt.MA20 = movingAverage(bars, i, 20)
		pt.MA50 = movingAverage(bars, i, 50)
		pt.MA200 = movingAverage(bars, i, 200)
		if i > 0 && bars[i-1].Close.IsPositive() {
			r := bar.Close.Div(bars[i-1].Close).Sub(decimal.NewFromInt(1))
			pt.Return = decimal.NewNullDecimal(r)
			returns[i] = r.InexactFloat64()
		}
		// returns[0] is undefined, so the first full window ends at index 20.
		if i >= 20 {
			sd := stddev(returns[i-19 : i+1])
			pt.Volatility = decimal.NewNullDecimal(decimal.NewFromFloat(sd * math.Sqrt(tradingDaysPerYear)))
		}
		out[i] = pt
	}
	return out
}

func movingAverage(bars []Bar, i, window int) decimal.NullDecimal {
	if i+1 < window {
		return decimal.NullDecimal{}
	}
	sum := decimal.Zero
	for _, b := range bars[i+1-window : i+1] {
		sum = sum.Add(b.Close)
	}
	return decimal.NewNullDecimal(sum.Div(decimal.NewFromInt(int64(window))))
}

// stddev is the sample standard deviation.
func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

type NormalizedPoint struct {
	Date  time.Time       `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// Normalize rebases closes so the first bar is 100.
func Normalize(bars []Bar) []NormalizedPoint {
	if len(bars) == 0 || !bars[0].Close.IsPositive() {
		return []NormalizedPoint{}
	}
	base := bars[0].Close
	out := make([]NormalizedPoint, len(bars))
	for i, b := range bars {
		out[i] = NormalizedPoint{Date: b.Date, Value: b.Close.Div(base).Mul(decimal.NewFromInt(100))}
	}
	return out
}

// Correlation is a symmetric Pearson matrix of daily returns. Values[i][j]
// pairs Symbols[i] with Symbols[j]; a pair with a flat series reads 0.
type Correlation struct {
	Symbols      []string    `json:"symbols"`
	Values       [][]float64 `json:"values"`
	Observations int         `json:"observations"`
}

// Correlate aligns the closes of every symbol on the dates they all share and
// correlates their daily returns. It needs two symbols and two returns.
func Correlate(series map[string][]Bar) (Correlation, error) {
	if len(series) < 2 {
		return Correlation{}, fmt.Errorf("%w: need at least two symbols, got %d", ErrNotEnoughData, len(series))
	}

	symbols := make([]string, 0, len(series))
	for s := range series {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	closes := make(map[string]map[time.Time]float64, len(symbols))
	counts := make(map[time.Time]int)
	for _, s := range symbols {
		m := make(map[time.Time]float64, len(series[s]))
		for _, b := range series[s] {
			d := b.Date.UTC()
			if _, dup := m[d]; !dup {
				counts[d]++
			}
			m[d] = b.Close.InexactFloat64()
		}
		closes[s] = m
	}
	var dates []time.Time
	for d, n := range counts {
		if n == len(symbols) {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	if len(dates) < 3 {
		return Correlation{}, fmt.Errorf("%w: %d shared sessions", ErrNotEnoughData, len(dates))
	}

	returns := make([][]float64, len(symbols))
	for i, s := range symbols {
		r := make([]float64, 0, len(dates)-1)
		for k := 1; k < len(dates); k++ {
			prev := closes[s][dates[k-1]]
			if prev == 0 {
				r = append(r, 0)
				continue
			}
			r = append(r, closes[s][dates[k]]/prev-1)
		}
		returns[i] = r
	}

	out := Correlation{Symbols: symbols, Values: make([][]float64, len(symbols)), Observations: len(dates) - 1}
	for i := range symbols {
		out.Values[i] = make([]float64, len(symbols))
		out.Values[i][i] = 1
	}
	for i := range symbols {
		for j := i + 1; j < len(symbols); j++ {
			c := pearson(returns[i], returns[j])
			out.Values[i][j] = c
			out.Values[j][i] = c
		}
	}
	return out, nil
}

func pearson(x, y []float64) float64 {
	n := float64(len(x))
	var mx, my float64
	for i := range x {
		mx += x[i]
		my += y[i]
	}
	mx /= n
	my /= n
	var sxy, sxx, syy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0
	}
	return sxy / math.Sqrt(sxx*syy)
}
