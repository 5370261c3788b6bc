package signals

import (
	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/models"
)

// tradingYear is the number of sessions in the 52-week window.
const tradingYear = 252

// Compute summarises a daily history (oldest first, as the merger emits
// it). Indicators whose window is longer than the history stay nil. Returns
// nil for fewer than two points.
func Compute(history []models.PricePoint) *models.Technicals {
	if len(history) < 2 {
		return nil
	}
	closes := make([]float64, len(history))
	for i, p := range history {
		closes[len(history)-1-i] = p.Close
	}
	latest := closes[0]

	t := &models.Technicals{
		AsOf:      history[len(history)-1].Date,
		Sessions:  len(closes),
		Crossover: Crossover(closes, 50, 200),
	}
	t.SMA20 = value(SMA(closes, 20))
	t.SMA50 = value(SMA(closes, 50))
	t.SMA200 = value(SMA(closes, 200))
	t.EMA20 = value(EMA(closes, 20))
	if rsi, ok := RSI(closes, 14); ok {
		t.RSI14 = common.Float(common.Round(rsi, 2))
		t.RSIZone = ClassifyRSI(rsi)
	}

	high, low := HighLow(closes, tradingYear)
	t.High52W = common.Float(common.Round(high, 2))
	t.Low52W = common.Float(common.Round(low, 2))
	if high > 0 {
		t.FromHighPct = common.Float(common.Round((latest-high)/high*100, 2))
	}
	t.Trend = trend(latest, t.SMA50, t.SMA200)
	return t
}

// trend is bullish above a rising long average, bearish below a falling
// one, and neutral otherwise or when the averages are unknown.
func trend(price float64, sma50, sma200 *float64) models.Trend {
	if sma50 == nil || sma200 == nil {
		return models.TrendUnknown
	}
	switch {
	case price > *sma200 && *sma50 > *sma200:
		return models.TrendBullish
	case price < *sma200 && *sma50 < *sma200:
		return models.TrendBearish
	}
	return models.TrendNeutral
}

func value(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return common.Float(common.Round(v, 2))
}
