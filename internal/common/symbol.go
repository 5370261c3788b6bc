package common

import (
	"fmt"
	"regexp"
	"strings"
)

// symbolPattern accepts exchange tickers such as TCS, M&M, BAJAJ-AUTO and RELIANCE.NS.
var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9&._-]{0,24}$`)

// NormalizeSymbol trims and upper-cases a ticker and validates its shape.
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if !symbolPattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return s, nil
}
