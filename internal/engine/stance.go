package engine

import (
	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/models"
)

// neutralScore is given to a pillar whose metric is missing.
const neutralScore = 5.0

// benchmarkNudge is added to (or taken from) a pillar when its sector
// comparison is favourable (or not) and Options.BenchmarkAdjust is set.
const benchmarkNudge = 0.5

// Red flag messages, in evaluation order
const (
	FlagHighLeverage   = "High Debt-to-Equity ratio"
	FlagNegativeEquity = "Negative shareholder equity"
	FlagLowROE         = "Low Return on Equity"
	FlagAltmanDistress = "Altman Z-Score in distress zone"
	FlagWeakPiotroski  = "Weak Piotroski F-Score"
	FlagIntegrity      = "Data integrity warnings present"
)

// Options tunes stance scoring.
type Options struct {
	// BenchmarkAdjust nudges each pillar by +/-0.5 from its sector comparison.
	BenchmarkAdjust bool
}

// Score derives pillar scores, the overall stance and red flags.
func Score(m models.ComputedMetrics, b models.BenchmarkResult, opts Options) models.StanceResult {
	pillars := models.PillarScores{
		BusinessQuality:  businessQuality(m.Profitability.ROE),
		FinancialSafety:  financialSafety(m.Leverage.DebtToEquity),
		ValuationComfort: valuationComfort(m.Valuation.PERatio),
	}

	if opts.BenchmarkAdjust {
		pillars.BusinessQuality = nudge(pillars.BusinessQuality, b.Comparisons[MetricROE])
		pillars.FinancialSafety = nudge(pillars.FinancialSafety, b.Comparisons[MetricDebtToEquity])
		pillars.ValuationComfort = nudge(pillars.ValuationComfort, b.Comparisons[MetricPE])
	}

	mean := (pillars.BusinessQuality + pillars.FinancialSafety + pillars.ValuationComfort) / 3
	overall := clamp(common.Round(mean, 2))

	return models.StanceResult{
		PillarScores:  pillars,
		OverallScore:  overall,
		OverallStance: stanceFor(overall),
		RedFlags:      redFlags(m),
	}
}

// ScoreAudited is Score with the integrity red flag appended when the audit
// raised warnings.
func ScoreAudited(m models.ComputedMetrics, b models.BenchmarkResult, audit models.IntegrityReport, opts Options) models.StanceResult {
	res := Score(m, b, opts)
	if len(audit.Warnings) > 0 {
		res.RedFlags = append(res.RedFlags, FlagIntegrity)
	}
	return res
}

func businessQuality(roe *float64) float64 {
	switch {
	case roe == nil:
		return neutralScore
	case *roe > 25:
		return 9
	case *roe > 15:
		return 7
	default:
		return 4
	}
}

func financialSafety(de *float64) float64 {
	switch {
	case de == nil:
		return neutralScore
	case *de < 0.5:
		return 9
	case *de < 1.0:
		return 6
	default:
		return 3
	}
}

func valuationComfort(pe *float64) float64 {
	switch {
	case pe == nil || *pe < 0:
		return neutralScore
	case *pe < 15:
		return 8
	case *pe < 30:
		return 6
	case *pe < 50:
		return 4
	default:
		return 2
	}
}

func nudge(score float64, c *models.Comparison) float64 {
	if c == nil || c.Favorable == nil {
		return score
	}
	if *c.Favorable {
		return clamp(score + benchmarkNudge)
	}
	return clamp(score - benchmarkNudge)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

func stanceFor(overall float64) string {
	switch {
	case overall >= 7.5:
		return models.StanceStrong
	case overall >= 6.0:
		return models.StanceImproving
	case overall >= 4.0:
		return models.StanceMixed
	default:
		return models.StanceRisky
	}
}

func redFlags(m models.ComputedMetrics) []string {
	flags := []string{}
	if de := m.Leverage.DebtToEquity; de != nil && *de > 2.0 {
		flags = append(flags, FlagHighLeverage)
	}
	if m.Leverage.NegativeEquity {
		flags = append(flags, FlagNegativeEquity)
	}
	if roe := m.Profitability.ROE; roe != nil && *roe < 5 {
		flags = append(flags, FlagLowROE)
	}
	if z := m.QualityScores.AltmanZScore; z != nil && *z < 1.81 {
		flags = append(flags, FlagAltmanDistress)
	}
	if m.QualityScores.PiotroskiFScore <= 2 && m.GrowthTrends.DataPoints >= 2 {
		flags = append(flags, FlagWeakPiotroski)
	}
	return flags
}
