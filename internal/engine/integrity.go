package engine

import (
	"fmt"
	"math"
	"sort"

	"github.com/bobmcallan/stance/internal/models"
)

// Section names reported in source_availability
const (
	SectionPrice           = "price"
	SectionProfile         = "profile"
	SectionShareholding    = "shareholding"
	SectionIncomeStatement = "income_statement"
	SectionBalanceSheet    = "balance_sheet"
	SectionCashflow        = "cashflow"
)

// completenessTotal is the sum of all section weights.
const completenessTotal = 5.0

var sectionWeights = []struct {
	name   string
	weight float64
}{
	{SectionPrice, 1},
	{SectionProfile, 1},
	{SectionShareholding, 1},
	{SectionIncomeStatement, 2.0 / 3},
	{SectionBalanceSheet, 2.0 / 3},
	{SectionCashflow, 2.0 / 3},
}

type rangeCheck struct {
	label    string
	value    *float64
	min, max float64
	unit     string
}

// Audit range-checks the computed metrics and measures data completeness.
// It only annotates; it never rejects a report.
func Audit(ctx *models.FinancialContext, m models.ComputedMetrics) models.IntegrityReport {
	warnings := []string{}

	checks := []rangeCheck{
		{"ROE", m.Profitability.ROE, -200, 200, "%"},
		{"ROA", m.Profitability.ROA, -100, 100, "%"},
		{"Net margin", m.Profitability.NetMargin, -500, 100, "%"},
		{"P/E ratio", m.Valuation.PERatio, 0, 1000, ""},
		{"Debt-to-equity", m.Leverage.DebtToEquity, 0, 50, ""},
		{"Altman Z-Score", m.QualityScores.AltmanZScore, -50, 100, ""},
	}
	for _, c := range checks {
		if c.value == nil {
			continue
		}
		if *c.value < c.min || *c.value > c.max {
			warnings = append(warnings, fmt.Sprintf("%s %.2f%s outside plausible range [%g, %g]", c.label, *c.value, c.unit, c.min, c.max))
		}
	}

	if p := ctx.Price.Current; p != nil && *p <= 0 {
		warnings = append(warnings, fmt.Sprintf("Price %.2f is not positive", *p))
	}
	warnings = append(warnings, shareholdingWarnings(ctx.Shareholding)...)

	return models.IntegrityReport{
		IsValid:          len(warnings) == 0,
		Warnings:         warnings,
		DataCompleteness: completeness(ctx),
	}
}

func shareholdingWarnings(sh *models.Shareholding) []string {
	if sh == nil {
		return nil
	}
	var out []string
	total := 0.0
	for _, holder := range sortedKeys(sh.Holders) {
		v := sh.Holders[holder]
		if v == nil {
			continue
		}
		if *v < 0 || *v > 100 {
			out = append(out, fmt.Sprintf("Shareholding %s %.2f%% outside plausible range [0, 100]", holder, *v))
		}
		total += *v
	}
	if total > 101 {
		out = append(out, fmt.Sprintf("Shareholding total %.2f%% exceeds 100%%", total))
	}
	return out
}

func completeness(ctx *models.FinancialContext) models.DataCompleteness {
	available := map[string]bool{
		SectionPrice:           ctx.Price.Available(),
		SectionProfile:         ctx.Profile.Available(),
		SectionShareholding:    ctx.Shareholding.Available(),
		SectionIncomeStatement: ctx.Financials.IncomeStatement.Available(),
		SectionBalanceSheet:    ctx.Financials.BalanceSheet.Available(),
		SectionCashflow:        ctx.Financials.Cashflow.Available(),
	}
	present := 0.0
	for _, s := range sectionWeights {
		if available[s.name] {
			present += s.weight
		}
	}
	return models.DataCompleteness{
		Confidence:         int(math.Round(100 * present / completenessTotal)),
		SourceAvailability: available,
	}
}

func sortedKeys(m map[string]*float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
