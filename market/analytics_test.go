package market

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func barsFrom(closes ...float64) []Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]Bar, len(closes))
	for i, c := range closes {
		out[i] = Bar{Date: start.AddDate(0, 0, i), Close: decimal.NewFromFloat(c)}
	}
	return out
}

func TestIndicatorsMovingAverages(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	pts := Indicators(barsFrom(closes...))

	require.Len(t, pts, 60)
	assert.False(t, pts[18].MA20.Valid)
	require.True(t, pts[19].MA20.Valid)
	assert.Equal(t, "10.5", pts[19].MA20.Decimal.String())
	assert.False(t, pts[48].MA50.Valid)
	assert.Equal(t, "25.5", pts[49].MA50.Decimal.String())
	assert.False(t, pts[59].MA200.Valid)

	assert.False(t, pts[0].Return.Valid)
	assert.Equal(t, "1", pts[1].Return.Decimal.String())
	assert.False(t, pts[19].Volatility.Valid)
	assert.True(t, pts[20].Volatility.Valid)
}

func TestIndicatorsVolatilityOfConstantReturns(t *testing.T) {
	closes := make([]float64, 25)
	closes[0] = 100
	for i := 1; i < len(closes); i++ {
		closes[i] = 100
	}
	pts := Indicators(barsFrom(closes...))
	require.True(t, pts[24].Volatility.Valid)
	assert.True(t, pts[24].Volatility.Decimal.IsZero())
}

func TestStddev(t *testing.T) {
	assert.InDelta(t, math.Sqrt(2.5), stddev([]float64{1, 2, 3, 4, 5}), 1e-12)
	assert.Zero(t, stddev([]float64{3}))
}

func TestNormalize(t *testing.T) {
	pts := Normalize(barsFrom(50, 55, 45))
	require.Len(t, pts, 3)
	assert.Equal(t, "100", pts[0].Value.String())
	assert.Equal(t, "110", pts[1].Value.String())
	assert.Equal(t, "90", pts[2].Value.String())

	assert.Empty(t, Normalize(nil))
}

func TestCorrelateAlignsOnSharedDates(t *testing.T) {
	a := barsFrom(10, 11, 12, 11, 13)
	b := barsFrom(20, 22, 24, 22, 26)
	// Drop one session from b; only shared dates are used.
	b = append(b[:2], b[3:]...)

	c, err := Correlate(map[string][]Bar{"B": b, "A": a})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, c.Symbols)
	assert.Equal(t, 3, c.Observations)
	assert.InDelta(t, 1.0, c.Values[0][1], 1e-9)
}

func TestCorrelateNotEnoughData(t *testing.T) {
	_, err := Correlate(map[string][]Bar{"A": barsFrom(1, 2, 3)})
	assert.True(t, errors.Is(err, ErrNotEnoughData))

	_, err = Correlate(map[string][]Bar{"A": barsFrom(1, 2), "B": barsFrom(3, 4)})
	assert.True(t, errors.Is(err, ErrNotEnoughData))
}

func TestCorrelateFlatSeriesReadsZero(t *testing.T) {
	c, err := Correlate(map[string][]Bar{"A": barsFrom(1, 2, 4), "B": barsFrom(5, 5, 5)})
	require.NoError(t, err)
	assert.Zero(t, c.Values[0][1])
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod(" 6MO ")
	require.NoError(t, err)
	assert.Equal(t, Period6M, p)

	_, err = ParsePeriod("2w")
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2023, 3, 31, 0, 0, 0, 0, time.UTC), Period1Y.Start(end))
	assert.Equal(t, time.Date(2024, 3, 24, 0, 0, 0, 0, time.UTC), Period5D.Start(end))
}
