package llm

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/bobmcallan/stance/internal/models"
)

const complianceRules = `COMPLIANCE RULES:
- Do not use the words "buy", "sell", "hold", "accumulate", "invest" or "target".
- Do not state price targets, expected prices or guaranteed returns.
- Frame everything as educational analysis of what the data shows, never as advice.`

var systemPrompts = map[string]string{
	models.PerspectiveAnalyst:    "You are a senior fundamental analyst. Be precise, data-driven and balanced.\n" + complianceRules,
	models.PerspectiveContrarian: "You are a skeptical research analyst who looks for what could go wrong in the data.\n" + complianceRules,
	models.PerspectiveEducator:   "You are a financial literacy educator explaining metrics to beginners in plain language.\n" + complianceRules,
	models.PerspectiveVerdict:    "You write a short, balanced synthesis of several analyst perspectives.\n" + complianceRules,
}

const snapshotTemplate = `COMPANY: {{.Name}} ({{.Symbol}})
Sector: {{.Sector}}{{if .Description}}
Business: {{.Description}}{{end}}
Current price: {{num .Price}}{{if .PriceDate}} (as of {{.PriceDate}}){{end}}

PROFITABILITY
- ROE: {{pct .M.Profitability.ROE}} {{cmp "roe" .B}}
- ROA: {{pct .M.Profitability.ROA}}
- Net margin: {{pct .M.Profitability.NetMargin}} {{cmp "net_margin" .B}}

GROWTH
- Revenue CAGR (3Y): {{pct .M.GrowthTrends.RevenueCAGR3Y}}
- Margin stability: {{.M.GrowthTrends.MarginStability}} over {{.M.GrowthTrends.DataPoints}} periods

LEVERAGE AND VALUATION
- Debt-to-equity: {{num .M.Leverage.DebtToEquity}} {{cmp "debt_to_equity" .B}}
- P/E ratio: {{num .M.Valuation.PERatio}} {{cmp "pe" .B}}

QUALITY
- Piotroski F-Score: {{.M.QualityScores.PiotroskiFScore}}/9
- Altman Z-Score: {{num .M.QualityScores.AltmanZScore}} (above 3.0 is the safe zone, below 1.81 distress)

STANCE: {{.S.OverallStance}} (score {{printf "%.2f" .S.OverallScore}}/10)
- Business quality {{printf "%.1f" .S.PillarScores.BusinessQuality}}, financial safety {{printf "%.1f" .S.PillarScores.FinancialSafety}}, valuation comfort {{printf "%.1f" .S.PillarScores.ValuationComfort}}
RED FLAGS: {{if .S.RedFlags}}{{join .S.RedFlags "; "}}{{else}}none{{end}}
DATA CONFIDENCE: {{.Confidence}}%{{if .IntegrityWarnings}} (integrity warnings: {{join .IntegrityWarnings "; "}}){{end}}
`

const analystTemplate = `{{template "snapshot" .}}
Write a professional analysis in 5 to 8 sentences. Cover business quality against the {{.Sector}} sector averages,
profitability, growth sustainability, financial safety, whether the valuation is supported by the fundamentals,
the quality scores, and any red flags. Connect the metrics to each other.`

const contrarianTemplate = `{{template "snapshot" .}}
Write the bear case in 5 to 8 sentences. Identify the main risks and vulnerabilities, challenge metrics that look
too good, point out where {{.Symbol}} is weaker than its sector, and question whether growth and margins are sustainable.
Be specific and cite the figures above.`

const educatorTemplate = `{{template "snapshot" .}}
Explain in 4 to 6 short sentences what these numbers mean for a beginner. Say what ROE, debt-to-equity and P/E measure
and what the {{.S.OverallStance}} stance reflects. Avoid jargon.`

const verdictTemplate = `COMPANY: {{.Name}} ({{.Symbol}})
STANCE: {{.S.OverallStance}} (score {{printf "%.2f" .S.OverallScore}}/10)
{{range .Perspectives}}
{{.Title}}:
{{.Text}}
{{end}}
Write a balanced synthesis of the perspectives above in 3 to 4 sentences. Weigh strengths against risks and
finish with what the data shows overall.`

var prompts = template.Must(template.New("prompts").Funcs(template.FuncMap{
	"num":  formatNum,
	"pct":  formatPct,
	"cmp":  formatComparison,
	"join": strings.Join,
}).Parse(`{{define "snapshot"}}` + snapshotTemplate + `{{end}}` +
	`{{define "analyst"}}` + analystTemplate + `{{end}}` +
	`{{define "contrarian"}}` + contrarianTemplate + `{{end}}` +
	`{{define "educator"}}` + educatorTemplate + `{{end}}` +
	`{{define "verdict"}}` + verdictTemplate + `{{end}}`))

// promptData is the view of a numeric analysis the templates render.
type promptData struct {
	Symbol            string
	Name              string
	Sector            string
	Description       string
	Price             *float64
	PriceDate         string
	Confidence        int
	IntegrityWarnings []string
	M                 models.ComputedMetrics
	B                 models.BenchmarkResult
	S                 models.StanceResult
	Perspectives      []titledText
}

type titledText struct {
	Title string
	Text  string
}

func newPromptData(a *models.NumericAnalysis) promptData {
	d := promptData{
		M:                 a.Ratios,
		B:                 a.Benchmarks,
		S:                 a.Stance,
		Confidence:        a.Integrity.DataCompleteness.Confidence,
		IntegrityWarnings: a.Integrity.Warnings,
		Sector:            a.Benchmarks.SectorResolved,
	}
	if ctx := a.Context; ctx != nil {
		d.Symbol = ctx.Symbol
		d.Name = deref(ctx.Profile.Name, ctx.Symbol)
		if sector := ctx.Profile.SectorName(); sector != "" {
			d.Sector = sector
		}
		d.Description = truncate(deref(ctx.Profile.Description, ""), 600)
		d.Price = ctx.Price.Current
		d.PriceDate = deref(ctx.Price.AsOf, "")
	}
	return d
}

// render executes the named perspective template.
func render(name string, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", name, err)
	}
	return buf.String(), nil
}

func formatNum(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}

func formatPct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *v)
}

func formatComparison(metric string, b models.BenchmarkResult) string {
	c := b.Comparisons[metric]
	if c == nil {
		return ""
	}
	return fmt.Sprintf("(sector avg %.2f, %s, %+.1f%%)", c.Average, c.Status, c.DiffPct)
}

func deref(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}
