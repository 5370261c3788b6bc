package signals

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/stance/internal/models"
)

// series returns n closes newest first, starting at start for the oldest
// and moving by step per session.
func series(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[n-1-i] = start + float64(i)*step
	}
	return out
}

func TestSMA(t *testing.T) {
	v, ok := SMA([]float64{10, 20, 30, 40}, 2)
	require.True(t, ok)
	assert.Equal(t, 15.0, v)

	_, ok = SMA([]float64{10}, 2)
	assert.False(t, ok)
	_, ok = SMA([]float64{10}, 0)
	assert.False(t, ok)
}

func TestEMA_TracksRisingSeriesAboveSMA(t *testing.T) {
	closes := series(40, 100, 1)

	ema, ok := EMA(closes, 10)
	require.True(t, ok)
	sma, _ := SMA(closes, 10)
	assert.Greater(t, ema, sma-5)
	assert.Less(t, ema, closes[0])

	flat, ok := EMA(series(20, 50, 0), 10)
	require.True(t, ok)
	assert.InDelta(t, 50, flat, 1e-9)
}

func TestRSI(t *testing.T) {
	up, ok := RSI(series(20, 100, 1), 14)
	require.True(t, ok)
	assert.Equal(t, 100.0, up)

	down, _ := RSI(series(20, 100, -1), 14)
	assert.Equal(t, 0.0, down)

	flat, _ := RSI(series(20, 100, 0), 14)
	assert.Equal(t, 50.0, flat)

	// Alternating +2 / -1 moves: 7 gains of 2 and 7 losses of 1
	closes := make([]float64, 15)
	price := 100.0
	for i := 14; i >= 0; i-- {
		closes[i] = price
		if i%2 == 0 {
			price += 2
		} else {
			price--
		}
	}
	mixed, _ := RSI(closes, 14)
	assert.InDelta(t, 66.67, mixed, 0.01)

	_, ok = RSI([]float64{1, 2}, 14)
	assert.False(t, ok)
}

func TestHighLow(t *testing.T) {
	high, low := HighLow([]float64{5, 9, 1, 7, 20}, 4)
	assert.Equal(t, 9.0, high)
	assert.Equal(t, 1.0, low)

	high, low = HighLow([]float64{5, 9}, 100)
	assert.Equal(t, 9.0, high)
	assert.Equal(t, 5.0, low)

	high, low = HighLow(nil, 10)
	assert.Zero(t, high)
	assert.Zero(t, low)
}

func TestCrossover(t *testing.T) {
	// Long decline, then a sharp jump on the latest close lifts the short
	// average through the long one.
	closes := append([]float64{200}, series(10, 100, -1)...)
	assert.Equal(t, CrossGolden, Crossover(closes, 2, 5))

	closes = append([]float64{0}, series(10, 100, 1)...)
	assert.Equal(t, CrossDeath, Crossover(closes, 2, 5))

	assert.Equal(t, CrossNone, Crossover(series(10, 100, 1), 2, 5))
	assert.Equal(t, CrossNone, Crossover([]float64{1, 2}, 2, 5))
}

func TestClassifyRSI(t *testing.T) {
	assert.Equal(t, "overbought", ClassifyRSI(75))
	assert.Equal(t, "oversold", ClassifyRSI(30))
	assert.Equal(t, "neutral", ClassifyRSI(50))
}

func history(n int, start, step float64) []models.PricePoint {
	out := make([]models.PricePoint, n)
	for i := 0; i < n; i++ {
		out[i] = models.PricePoint{
			Date:  fmt.Sprintf("2024-%02d-%02d", 1+i/28, 1+i%28),
			Close: start + float64(i)*step,
		}
	}
	return out
}

func TestCompute_ShortHistory(t *testing.T) {
	assert.Nil(t, Compute(nil))
	assert.Nil(t, Compute(history(1, 100, 0)))

	tech := Compute(history(3, 100, 5))
	require.NotNil(t, tech)
	assert.Equal(t, 3, tech.Sessions)
	assert.Equal(t, "2024-01-03", tech.AsOf)
	assert.Nil(t, tech.SMA20)
	assert.Nil(t, tech.RSI14)
	assert.Empty(t, tech.RSIZone)
	assert.Equal(t, models.TrendUnknown, tech.Trend)
	assert.Equal(t, 110.0, *tech.High52W)
	assert.Equal(t, 100.0, *tech.Low52W)
	assert.Equal(t, 0.0, *tech.FromHighPct)
}

func TestCompute_RisingYear(t *testing.T) {
	tech := Compute(history(260, 100, 1))
	require.NotNil(t, tech)

	require.NotNil(t, tech.SMA20)
	assert.Equal(t, 349.5, *tech.SMA20)
	require.NotNil(t, tech.SMA200)
	assert.Equal(t, 259.5, *tech.SMA200)
	require.NotNil(t, tech.RSI14)
	assert.Equal(t, 100.0, *tech.RSI14)
	assert.Equal(t, "overbought", tech.RSIZone)
	assert.Equal(t, models.TrendBullish, tech.Trend)
	assert.Equal(t, CrossNone, tech.Crossover)

	// 52-week window covers the latest 252 sessions only
	assert.Equal(t, 359.0, *tech.High52W)
	assert.Equal(t, 108.0, *tech.Low52W)
}

func TestCompute_FallingYear(t *testing.T) {
	tech := Compute(history(220, 400, -1))
	require.NotNil(t, tech)
	assert.Equal(t, models.TrendBearish, tech.Trend)
	assert.Equal(t, "oversold", tech.RSIZone)
	require.NotNil(t, tech.FromHighPct)
	assert.InDelta(t, -54.75, *tech.FromHighPct, 0.01)
}
