package compliance

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize_Words(t *testing.T) {
	got := Sanitize("Investors may Buy or SELL; some hold. Others accumulate.")
	assert.Equal(t, "Investors may "+Marker+" or "+Marker+"; some "+Marker+". Others "+Marker+".", got)
}

func TestSanitize_LeavesLongerWordsAlone(t *testing.T) {
	in := "The buyback program and holdings data show investment discipline."
	assert.Equal(t, in, Sanitize(in))
}

func TestSanitize_Phrases(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"strong buy", "Analysts see a strong buy here.", "Analysts see a " + Marker + " here."},
		{"sell now", "Sell now before results.", Marker + " before results."},
		{"price target clause", "Our price target is Rs 500 by March. Margins are stable.", "Our " + Marker + ". Margins are stable."},
		{"rating", "It carries a hold rating.", "It carries a " + Marker + "."},
		{"guarantee", "Guaranteed returns are rare.", Marker + " are rare."},
		{"prediction", "The stock could reach 1,250.50 soon.", "The stock " + Marker + " soon."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"Return on equity of 20% is above the sector average.",
		"This stock is a strong buy with a target price of 500. Guaranteed returns!",
		"Hold, accumulate, invest, target, sell, buy.",
		"It will hit $90 and should reach Rs. 1,000",
		Marker,
	}
	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), "input %q", in)
		assert.True(t, Compliant(once), "sanitized text still flagged: %q", once)
	}
}

func TestSanitize_Deterministic(t *testing.T) {
	in := "Strong sell. Buy now. Target price 20."
	assert.Equal(t, Sanitize(in), Sanitize(in))
}

func TestScan(t *testing.T) {
	v := Scan("A strong buy with guaranteed returns; we hold.")
	if assert.Len(t, v, 3) {
		assert.Equal(t, "strong_call", v[0].Rule)
		assert.Equal(t, "strong buy", v[0].Match)
		assert.Equal(t, "guarantee", v[1].Rule)
		assert.Equal(t, "word", v[2].Rule)
		assert.Equal(t, "hold", v[2].Match)
	}
	assert.Empty(t, Scan("Fundamentals indicate a stable margin profile."))
}

func TestDisclaimerNotAdvice(t *testing.T) {
	assert.True(t, strings.Contains(Disclaimer, "not investment advice"))
}
