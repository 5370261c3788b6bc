package models

// Trend classifies the price against its long moving averages.
type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
	TrendNeutral Trend = "neutral"
	TrendUnknown Trend = "unknown"
)

// Technicals summarises the daily price history. Moving averages are nil
// when the history is shorter than their window.
type Technicals struct {
	AsOf        string   `json:"as_of"`
	Sessions    int      `json:"sessions"`
	SMA20       *float64 `json:"sma_20"`
	SMA50       *float64 `json:"sma_50"`
	SMA200      *float64 `json:"sma_200"`
	EMA20       *float64 `json:"ema_20"`
	RSI14       *float64 `json:"rsi_14"`
	RSIZone     string   `json:"rsi_zone,omitempty"`
	High52W     *float64 `json:"high_52w"`
	Low52W      *float64 `json:"low_52w"`
	FromHighPct *float64 `json:"from_high_pct"`
	Trend       Trend    `json:"trend"`
	Crossover   string   `json:"crossover"`
}
