package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bobmcallan/stance/internal/models"
)

func TestAudit_HealthyIsValid(t *testing.T) {
	ctx := healthyContext()
	report := Audit(ctx, ComputeRatios(ctx))

	assert.True(t, report.IsValid)
	assert.Empty(t, report.Warnings)
	assert.Equal(t, 100, report.DataCompleteness.Confidence)
	for section, ok := range report.DataCompleteness.SourceAvailability {
		assert.True(t, ok, section)
	}
}

func TestAudit_ProfileAndPriceOnly(t *testing.T) {
	ctx := emptyContext()
	m := ComputeRatios(ctx)
	report := Audit(ctx, m)

	assert.True(t, report.IsValid)
	assert.Equal(t, 40, report.DataCompleteness.Confidence)
	assert.Equal(t, map[string]bool{
		SectionPrice:           true,
		SectionProfile:         true,
		SectionShareholding:    false,
		SectionIncomeStatement: false,
		SectionBalanceSheet:    false,
		SectionCashflow:        false,
	}, report.DataCompleteness.SourceAvailability)

	res := ScoreAudited(m, NewBenchmarker().Compare(m, ""), report, Options{})
	assert.Equal(t, 5.0, res.OverallScore)
	assert.Empty(t, res.RedFlags)
}

func TestAudit_RangeViolations(t *testing.T) {
	ctx := emptyContext()
	ctx.Price.Current = f(-1)
	ctx.Shareholding = &models.Shareholding{Holders: map[string]*float64{
		"promoters": f(80),
		"public":    f(30),
		"fii":       f(-2),
	}}

	m := models.ComputedMetrics{}
	m.Profitability.ROE = f(250)
	m.Profitability.ROA = f(-120)
	m.Profitability.NetMargin = f(150)
	m.Valuation.PERatio = f(1500)
	m.Leverage.DebtToEquity = f(60)
	m.QualityScores.AltmanZScore = f(-80)

	report := Audit(ctx, m)
	assert.False(t, report.IsValid)
	assert.Equal(t, []string{
		"ROE 250.00% outside plausible range [-200, 200]",
		"ROA -120.00% outside plausible range [-100, 100]",
		"Net margin 150.00% outside plausible range [-500, 100]",
		"P/E ratio 1500.00 outside plausible range [0, 1000]",
		"Debt-to-equity 60.00 outside plausible range [0, 50]",
		"Altman Z-Score -80.00 outside plausible range [-50, 100]",
		"Price -1.00 is not positive",
		"Shareholding fii -2.00% outside plausible range [0, 100]",
		"Shareholding total 108.00% exceeds 100%",
	}, report.Warnings)
}

func TestAudit_PartialStatements(t *testing.T) {
	ctx := emptyContext()
	ctx.Financials.IncomeStatement = models.Statement{"2024-03-31": {ItemRevenue: f(10)}}
	ctx.Financials.BalanceSheet = models.Statement{"2024-03-31": {ItemTotalAssets: f(10)}}

	report := Audit(ctx, ComputeRatios(ctx))
	// (1 + 1 + 2/3 + 2/3) / 5
	assert.Equal(t, 67, report.DataCompleteness.Confidence)
}
