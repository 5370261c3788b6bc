package models

import "time"

// Margin stability classes
const (
	StabilityStable   = "Stable"
	StabilityVolatile = "Volatile"
	StabilityUnknown  = "Unknown"
)

// ComputedMetrics is derived from a FinancialContext. Every numeric field is
// either finite or null.
type ComputedMetrics struct {
	Profitability Profitability `json:"profitability"`
	Leverage      Leverage      `json:"leverage"`
	Valuation     Valuation     `json:"valuation"`
	QualityScores QualityScores `json:"quality_scores"`
	GrowthTrends  GrowthTrends  `json:"growth_trends"`
	Warnings      []string      `json:"warnings"`
}

// Profitability ratios, in percent
type Profitability struct {
	ROE       *float64 `json:"roe"`
	ROA       *float64 `json:"roa"`
	NetMargin *float64 `json:"net_margin"`
}

// Leverage ratios
type Leverage struct {
	DebtToEquity   *float64 `json:"debt_to_equity"`
	NegativeEquity bool     `json:"negative_equity"`
}

// Valuation ratios
type Valuation struct {
	PERatio *float64 `json:"pe_ratio"`
	Price   *float64 `json:"price"`
}

// QualityScores holds composite scores
type QualityScores struct {
	PiotroskiFScore int      `json:"piotroski_f_score"`
	AltmanZScore    *float64 `json:"altman_z_score"`
}

// GrowthTrends holds multi-period trends
type GrowthTrends struct {
	RevenueCAGR3Y   *float64 `json:"revenue_cagr_3y"` // percent
	MarginStability string   `json:"margin_stability"`
	DataPoints      int      `json:"data_points"`
}

// Comparison status values
const (
	StatusAbove  = "Above"
	StatusInline = "Inline"
	StatusBelow  = "Below"
)

// SectorAverages are the benchmark values for one sector.
type SectorAverages struct {
	AvgROE        *float64 `json:"avg_roe" toml:"avg_roe"`
	AvgPE         *float64 `json:"avg_pe" toml:"avg_pe"`
	AvgDebtEquity *float64 `json:"avg_debt_equity" toml:"avg_debt_equity"`
	AvgNetMargin  *float64 `json:"avg_net_margin" toml:"avg_net_margin"`
}

// Comparison is one metric against its sector average.
type Comparison struct {
	Value     float64 `json:"value"`
	Average   float64 `json:"average"`
	DiffPct   float64 `json:"diff_pct"`
	Status    string  `json:"status"`
	Favorable *bool   `json:"favorable"` // nil when inline
}

// BenchmarkResult holds the sector averages used and per-metric comparisons.
// A nil comparison means the metric or its average was unavailable.
type BenchmarkResult struct {
	Sector         string                 `json:"sector"`
	SectorResolved string                 `json:"sector_resolved"`
	Averages       SectorAverages         `json:"averages"`
	Comparisons    map[string]*Comparison `json:"comparisons"`
}

// Stance labels
const (
	StanceStrong    = "Fundamentally Strong"
	StanceImproving = "Improving"
	StanceMixed     = "Mixed Signals"
	StanceRisky     = "Risky Profile"
)

// PillarScores are the three 0-10 sub-scores.
type PillarScores struct {
	BusinessQuality  float64 `json:"business_quality"`
	FinancialSafety  float64 `json:"financial_safety"`
	ValuationComfort float64 `json:"valuation_comfort"`
}

// StanceResult is the categorical verdict derived from the pillar scores.
type StanceResult struct {
	PillarScores  PillarScores `json:"pillar_scores"`
	OverallScore  float64      `json:"overall_score"`
	OverallStance string       `json:"overall_stance"`
	RedFlags      []string     `json:"red_flags"`
}

// IntegrityReport annotates a computation with plausibility warnings.
type IntegrityReport struct {
	IsValid          bool             `json:"is_valid"`
	Warnings         []string         `json:"warnings"`
	DataCompleteness DataCompleteness `json:"data_completeness"`
}

// DataCompleteness is a weighted coverage ratio of expected sections.
type DataCompleteness struct {
	Confidence         int             `json:"confidence"`
	SourceAvailability map[string]bool `json:"source_availability"`
}

// NumericAnalysis is the cached output of the synchronous pipeline.
type NumericAnalysis struct {
	Context     *FinancialContext `json:"context"`
	Ratios      ComputedMetrics   `json:"ratios"`
	Benchmarks  BenchmarkResult   `json:"benchmarks"`
	Integrity   IntegrityReport   `json:"integrity"`
	Stance      StanceResult      `json:"stance"`
	GeneratedAt time.Time         `json:"generated_at"`
}
