package models

import "time"

// Company is one row of the symbol registry.
type Company struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Sector   string `json:"sector,omitempty"`
	Industry string `json:"industry,omitempty"`
}

// Include sections for the analysis report
const (
	IncludeProfile      = "profile"
	IncludeFinancials   = "financials"
	IncludePriceHistory = "price_history"
	IncludeShareholding = "shareholding"
	IncludeKeyRatios    = "key_ratios"
)

// AnalysisReport is the response for /analysis/{symbol}. The numeric
// sections are always populated; the context sections depend on include.
type AnalysisReport struct {
	Symbol         string              `json:"symbol"`
	Profile        Profile             `json:"profile"`
	Price          Price               `json:"price"`
	Ratios         ComputedMetrics     `json:"ratios"`
	Stance         StanceResult        `json:"stance"`
	Benchmarks     BenchmarkResult     `json:"benchmarks"`
	IntegrityAudit IntegrityReport     `json:"integrity_audit"`
	AIInsights     *AIInsights         `json:"ai_insights"`
	Financials     *Financials         `json:"financials,omitempty"`
	Shareholding   *Shareholding       `json:"shareholding,omitempty"`
	KeyRatios      map[string]*float64 `json:"key_ratios,omitempty"`
	Technicals     *Technicals         `json:"technicals,omitempty"`
	Source         SourceMeta          `json:"source"`
	MergeWarnings  []string            `json:"merge_warnings,omitempty"`
	CacheTier      CacheTier           `json:"cache_tier"`
	GeneratedAt    time.Time           `json:"generated_at"`
	Disclaimer     string              `json:"disclaimer"`
}

// SearchResult is the response for /search.
type SearchResult struct {
	Query   string    `json:"query"`
	Results []Company `json:"results"`
	Count   int       `json:"count"`
}
