package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/stance/internal/engine"
	"github.com/bobmcallan/stance/internal/models"
	"github.com/bobmcallan/stance/internal/services/compliance"
)

// formatReport generates the report markdown. insights is nil when they
// were not requested.
func formatReport(r *models.AnalysisReport, insights *models.AIInsights, now time.Time) string {
	var sb strings.Builder

	// Header
	name := r.Symbol
	if r.Profile.Name != nil && *r.Profile.Name != "" {
		name = *r.Profile.Name
	}
	sb.WriteString(fmt.Sprintf("# %s (%s)\n\n", name, r.Symbol))
	sb.WriteString(fmt.Sprintf("**Sector:** %s | **Industry:** %s\n\n", orNA(r.Profile.Sector), orNA(r.Profile.Industry)))
	if r.Price.Current != nil {
		sb.WriteString(fmt.Sprintf("**Price:** %.2f %s", *r.Price.Current, strings.TrimSpace(orEmpty(r.Price.Currency))))
		if r.Price.AsOf != nil {
			sb.WriteString(fmt.Sprintf(" (as of %s)", *r.Price.AsOf))
		}
		sb.WriteString("\n\n")
	}
	sb.WriteString(fmt.Sprintf("**Generated:** %s\n\n", now.UTC().Format("2006-01-02 15:04 UTC")))
	if r.Profile.Description != nil && *r.Profile.Description != "" {
		sb.WriteString(*r.Profile.Description + "\n\n")
	}

	formatStance(&sb, r.Stance)
	formatRatios(&sb, r.Ratios)
	formatBenchmarks(&sb, r.Benchmarks)
	formatIntegrity(&sb, r.IntegrityAudit, r.MergeWarnings)
	if r.Technicals != nil {
		formatTechnicals(&sb, r.Technicals)
	}

	if insights != nil {
		formatInsights(&sb, insights)
	}

	sb.WriteString("---\n\n")
	sb.WriteString("*" + compliance.Disclaimer + "*\n")
	return sb.String()
}

func formatStance(sb *strings.Builder, s models.StanceResult) {
	sb.WriteString("## Stance\n\n")
	sb.WriteString(fmt.Sprintf("**Overall:** %s (%.2f/10)\n\n", s.OverallStance, s.OverallScore))
	sb.WriteString("| Pillar | Score |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Business Quality | %.1f |\n", s.PillarScores.BusinessQuality))
	sb.WriteString(fmt.Sprintf("| Financial Safety | %.1f |\n", s.PillarScores.FinancialSafety))
	sb.WriteString(fmt.Sprintf("| Valuation Comfort | %.1f |\n\n", s.PillarScores.ValuationComfort))

	sb.WriteString("### Red Flags\n\n")
	if len(s.RedFlags) == 0 {
		sb.WriteString("None raised.\n\n")
		return
	}
	for _, f := range s.RedFlags {
		sb.WriteString("- " + f + "\n")
	}
	sb.WriteString("\n")
}

func formatRatios(sb *strings.Builder, m models.ComputedMetrics) {
	sb.WriteString("## Key Ratios\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	rows := []struct {
		label string
		value string
	}{
		{"Return on Equity", pct(m.Profitability.ROE)},
		{"Return on Assets", pct(m.Profitability.ROA)},
		{"Net Margin", pct(m.Profitability.NetMargin)},
		{"Debt-to-Equity", num(m.Leverage.DebtToEquity)},
		{"P/E Ratio", num(m.Valuation.PERatio)},
		{"Piotroski F-Score", fmt.Sprintf("%d/9", m.QualityScores.PiotroskiFScore)},
		{"Altman Z-Score", num(m.QualityScores.AltmanZScore)},
		{"Revenue CAGR (3Y)", pct(m.GrowthTrends.RevenueCAGR3Y)},
		{"Margin Stability", m.GrowthTrends.MarginStability},
	}
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %s |\n", row.label, row.value))
	}
	sb.WriteString("\n")
}

var benchmarkRows = []struct {
	key   string
	label string
}{
	{engine.MetricROE, "ROE"},
	{engine.MetricNetMargin, "Net Margin"},
	{engine.MetricPE, "P/E"},
	{engine.MetricDebtToEquity, "Debt-to-Equity"},
}

func formatBenchmarks(sb *strings.Builder, b models.BenchmarkResult) {
	sb.WriteString(fmt.Sprintf("## Sector Benchmarks (%s)\n\n", b.SectorResolved))
	sb.WriteString("| Metric | Company | Sector Avg | Difference | Position |\n")
	sb.WriteString("|--------|---------|------------|------------|----------|\n")
	for _, row := range benchmarkRows {
		c := b.Comparisons[row.key]
		if c == nil {
			sb.WriteString(fmt.Sprintf("| %s | n/a | n/a | n/a | n/a |\n", row.label))
			continue
		}
		sb.WriteString(fmt.Sprintf("| %s | %.2f | %.2f | %+.1f%% | %s |\n", row.label, c.Value, c.Average, c.DiffPct, c.Status))
	}
	sb.WriteString("\n")
}

func formatIntegrity(sb *strings.Builder, audit models.IntegrityReport, mergeWarnings []string) {
	sb.WriteString("## Data Integrity\n\n")
	sb.WriteString(fmt.Sprintf("**Confidence:** %d%%\n\n", audit.DataCompleteness.Confidence))

	warnings := append(append([]string{}, audit.Warnings...), mergeWarnings...)
	if len(warnings) == 0 {
		sb.WriteString("All computed metrics are within plausible ranges.\n\n")
		return
	}
	for _, w := range warnings {
		sb.WriteString("- " + w + "\n")
	}
	sb.WriteString("\n")
}

func formatInsights(sb *strings.Builder, ai *models.AIInsights) {
	sb.WriteString("## AI Insights\n\n")
	if ai.Status != models.InsightsReady && ai.Status != models.InsightsPartial {
		sb.WriteString(fmt.Sprintf("Narrative insights are %s for this report.\n\n", ai.Status))
		return
	}
	sections := []struct {
		title string
		text  string
	}{
		{"Analyst", ai.Analyst},
		{"Contrarian", ai.Contrarian},
		{"Educator", ai.Educator},
		{"Verdict", ai.FinalVerdict},
	}
	for _, s := range sections {
		if s.text == "" {
			continue
		}
		sb.WriteString("### " + s.title + "\n\n")
		sb.WriteString(s.text + "\n\n")
	}
}

func formatTechnicals(sb *strings.Builder, t *models.Technicals) {
	sb.WriteString("## Price Technicals\n\n")
	sb.WriteString(fmt.Sprintf("%d sessions to %s. **Trend:** %s", t.Sessions, t.AsOf, t.Trend))
	if t.Crossover != "" && t.Crossover != "none" {
		sb.WriteString(fmt.Sprintf(" (%s)", strings.ReplaceAll(t.Crossover, "_", " ")))
	}
	sb.WriteString("\n\n")
	sb.WriteString("| Indicator | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| SMA 20 / 50 / 200 | %s / %s / %s |\n", num(t.SMA20), num(t.SMA50), num(t.SMA200)))
	rsi := num(t.RSI14)
	if t.RSIZone != "" {
		rsi += " (" + t.RSIZone + ")"
	}
	sb.WriteString(fmt.Sprintf("| RSI 14 | %s |\n", rsi))
	sb.WriteString(fmt.Sprintf("| 52-week range | %s to %s |\n", num(t.Low52W), num(t.High52W)))
	sb.WriteString(fmt.Sprintf("| From 52-week high | %s |\n\n", pct(t.FromHighPct)))
}

func pct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *v)
}

func num(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}

func orNA(s *string) string {
	if s == nil || *s == "" {
		return "n/a"
	}
	return *s
}

func orEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
