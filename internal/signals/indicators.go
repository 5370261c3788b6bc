// Package signals derives technical indicators from a daily close series.
// Every function takes closes newest first.
package signals

import "math"

// SMA is the simple moving average of the latest period closes. ok is false
// when the series is too short.
func SMA(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period {
		return 0, false
	}
	sum := 0.0
	for _, c := range closes[:period] {
		sum += c
	}
	return sum / float64(period), true
}

// EMA seeds with the SMA of the oldest period closes in the window and
// walks forward to the latest close.
func EMA(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period {
		return 0, false
	}
	multiplier := 2.0 / float64(period+1)
	window := closes[:min(len(closes), 2*period)]
	ema, _ := SMA(window[len(window)-period:], period)
	for i := len(window) - period - 1; i >= 0; i-- {
		ema = (window[i]-ema)*multiplier + ema
	}
	return ema, true
}

// RSI is the simple-average relative strength index over period changes.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}
	var gains, losses float64
	for i := 0; i < period; i++ {
		change := closes[i] - closes[i+1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	if losses == 0 {
		if gains == 0 {
			return 50, true
		}
		return 100, true
	}
	rs := gains / losses
	return 100 - 100/(1+rs), true
}

// HighLow returns the extremes over the latest window closes, or the whole
// series when it is shorter.
func HighLow(closes []float64, window int) (high, low float64) {
	if len(closes) == 0 {
		return 0, 0
	}
	if window <= 0 || window > len(closes) {
		window = len(closes)
	}
	high, low = math.Inf(-1), math.Inf(1)
	for _, c := range closes[:window] {
		high = math.Max(high, c)
		low = math.Min(low, c)
	}
	return high, low
}

// Crossover reports "golden_cross" when the short SMA moved above the long
// SMA on the latest close, "death_cross" for the reverse, else "none".
func Crossover(closes []float64, short, long int) string {
	if len(closes) < long+1 {
		return CrossNone
	}
	s, _ := SMA(closes, short)
	l, _ := SMA(closes, long)
	prevS, _ := SMA(closes[1:], short)
	prevL, _ := SMA(closes[1:], long)

	switch {
	case prevS <= prevL && s > l:
		return CrossGolden
	case prevS >= prevL && s < l:
		return CrossDeath
	}
	return CrossNone
}

// Crossover results
const (
	CrossGolden = "golden_cross"
	CrossDeath  = "death_cross"
	CrossNone   = "none"
)

// ClassifyRSI buckets an RSI reading.
func ClassifyRSI(rsi float64) string {
	switch {
	case rsi >= 70:
		return "overbought"
	case rsi <= 30:
		return "oversold"
	}
	return "neutral"
}
