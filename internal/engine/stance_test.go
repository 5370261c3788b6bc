package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bobmcallan/stance/internal/models"
)

func metricsWith(roe, de, pe *float64) models.ComputedMetrics {
	m := models.ComputedMetrics{}
	m.Profitability.ROE = roe
	m.Leverage.DebtToEquity = de
	m.Valuation.PERatio = pe
	return m
}

func TestScore_StrongProfile(t *testing.T) {
	res := Score(metricsWith(f(30), f(0.3), f(12)), models.BenchmarkResult{}, Options{})

	assert.Equal(t, 9.0, res.PillarScores.BusinessQuality)
	assert.Equal(t, 9.0, res.PillarScores.FinancialSafety)
	assert.Equal(t, 8.0, res.PillarScores.ValuationComfort)
	assert.Equal(t, 8.67, res.OverallScore)
	assert.Equal(t, models.StanceStrong, res.OverallStance)
	assert.Empty(t, res.RedFlags)
	assert.NotNil(t, res.RedFlags)
}

func TestScore_MissingMetricsAreNeutral(t *testing.T) {
	res := Score(models.ComputedMetrics{}, models.BenchmarkResult{}, Options{})

	assert.Equal(t, models.PillarScores{BusinessQuality: 5, FinancialSafety: 5, ValuationComfort: 5}, res.PillarScores)
	assert.Equal(t, 5.0, res.OverallScore)
	assert.Equal(t, models.StanceMixed, res.OverallStance)
}

func TestScore_Thresholds(t *testing.T) {
	tests := []struct {
		name    string
		roe     *float64
		de      *float64
		pe      *float64
		pillars models.PillarScores
		stance  string
	}{
		{"improving", f(20), f(0.8), f(25), models.PillarScores{BusinessQuality: 7, FinancialSafety: 6, ValuationComfort: 6}, models.StanceImproving},
		{"mixed", f(10), f(0.4), f(40), models.PillarScores{BusinessQuality: 4, FinancialSafety: 9, ValuationComfort: 4}, models.StanceMixed},
		{"risky", f(3), f(2.5), f(80), models.PillarScores{BusinessQuality: 4, FinancialSafety: 3, ValuationComfort: 2}, models.StanceRisky},
		{"boundary values fall to the lower band", f(25), f(0.5), f(15), models.PillarScores{BusinessQuality: 7, FinancialSafety: 6, ValuationComfort: 6}, models.StanceImproving},
		{"negative pe is neutral", f(20), f(0.2), f(-8), models.PillarScores{BusinessQuality: 7, FinancialSafety: 9, ValuationComfort: 5}, models.StanceImproving},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Score(metricsWith(tt.roe, tt.de, tt.pe), models.BenchmarkResult{}, Options{})
			assert.Equal(t, tt.pillars, res.PillarScores)
			assert.Equal(t, tt.stance, res.OverallStance)
			assert.GreaterOrEqual(t, res.OverallScore, 0.0)
			assert.LessOrEqual(t, res.OverallScore, 10.0)
		})
	}
}

func TestScore_RedFlagOrder(t *testing.T) {
	m := metricsWith(f(2), f(3), f(10))
	m.Leverage.NegativeEquity = true
	m.QualityScores.AltmanZScore = f(1.2)
	m.QualityScores.PiotroskiFScore = 1
	m.GrowthTrends.DataPoints = 3

	audit := models.IntegrityReport{Warnings: []string{"ROE 250.00% outside plausible range"}}
	res := ScoreAudited(m, models.BenchmarkResult{}, audit, Options{})

	assert.Equal(t, []string{
		FlagHighLeverage,
		FlagNegativeEquity,
		FlagLowROE,
		FlagAltmanDistress,
		FlagWeakPiotroski,
		FlagIntegrity,
	}, res.RedFlags)
}

func TestScore_WeakPiotroskiNeedsHistory(t *testing.T) {
	m := models.ComputedMetrics{}
	m.QualityScores.PiotroskiFScore = 0
	m.GrowthTrends.DataPoints = 1
	assert.Empty(t, Score(m, models.BenchmarkResult{}, Options{}).RedFlags)
}

func TestScore_Deterministic(t *testing.T) {
	m := ComputeRatios(healthyContext())
	b := NewBenchmarker().Compare(m, "Technology")
	assert.Equal(t, Score(m, b, Options{}), Score(m, b, Options{}))
}

func TestScore_BenchmarkAdjust(t *testing.T) {
	m := metricsWith(f(30), f(0.3), f(12))
	b := NewBenchmarker().Compare(m, "Default")

	plain := Score(m, b, Options{})
	adjusted := Score(m, b, Options{BenchmarkAdjust: true})

	// ROE 30 vs 15 is favourable, D/E 0.3 vs 0.8 and P/E 12 vs 25 are favourably low
	assert.Equal(t, 9.5, adjusted.PillarScores.BusinessQuality)
	assert.Equal(t, 9.5, adjusted.PillarScores.FinancialSafety)
	assert.Equal(t, 8.5, adjusted.PillarScores.ValuationComfort)
	assert.Greater(t, adjusted.OverallScore, plain.OverallScore)

	bad := metricsWith(f(1), f(9.9), f(500))
	adjBad := Score(bad, NewBenchmarker().Compare(bad, "Default"), Options{BenchmarkAdjust: true})
	assert.Equal(t, 3.5, adjBad.PillarScores.BusinessQuality)
	assert.Equal(t, 2.5, adjBad.PillarScores.FinancialSafety)
	assert.Equal(t, 1.5, adjBad.PillarScores.ValuationComfort)
}
