// Package engine provides the pure scoring functions: ratios, sector
// benchmarks, stance and the integrity audit. Nothing here does I/O.
package engine

import (
	"math"

	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/models"
)

// Line item names read from the statements
const (
	ItemNetIncome          = "Net Income"
	ItemRevenue            = "Total Revenue"
	ItemEquity             = "Stockholders Equity"
	ItemEquityCapital      = "Equity Capital"
	ItemReserves           = "Reserves"
	ItemTotalAssets        = "Total Assets"
	ItemTotalDebt          = "Total Debt"
	ItemLongTermDebt       = "Long Term Debt"
	ItemEPS                = "Basic EPS"
	ItemCurrentAssets      = "Current Assets"
	ItemCurrentLiabilities = "Current Liabilities"
	ItemShares             = "Ordinary Shares Number"
	ItemGrossProfit        = "Gross Profit"
	ItemOperatingCashFlow  = "Operating Cash Flow"
	ItemRetainedEarnings   = "Retained Earnings"
	ItemEBIT               = "EBIT"
	ItemTotalLiabilities   = "Total Liabilities"
	ItemTotalLiabilitiesNM = "Total Liabilities Net Minority Interest"
)

// Margin stability threshold on the coefficient of variation
const stableMarginCV = 0.20

// cagrWindow is the number of periods spanned by revenue_cagr_3y
const cagrWindow = 3

// statements bundles accessors over the three statements with the
// derived fallbacks applied.
type statements struct {
	income   models.Statement
	balance  models.Statement
	cashflow models.Statement
}

func (s statements) equity(periodsAgo int) *float64 {
	if v := s.balance.Value(ItemEquity, periodsAgo); v != nil {
		return v
	}
	capital := s.balance.Value(ItemEquityCapital, periodsAgo)
	reserves := s.balance.Value(ItemReserves, periodsAgo)
	if capital == nil || reserves == nil {
		return nil
	}
	return common.Float(*capital + *reserves)
}

func (s statements) liabilities(periodsAgo int) *float64 {
	if v := s.balance.Value(ItemTotalLiabilities, periodsAgo); v != nil {
		return v
	}
	if v := s.balance.Value(ItemTotalLiabilitiesNM, periodsAgo); v != nil {
		return v
	}
	assets := s.balance.Value(ItemTotalAssets, periodsAgo)
	equity := s.equity(periodsAgo)
	if assets == nil || equity == nil {
		return nil
	}
	return common.Float(*assets - *equity)
}

// leverageDebt prefers long-term debt and falls back to total debt.
func (s statements) leverageDebt(periodsAgo int) *float64 {
	if v := s.balance.Value(ItemLongTermDebt, periodsAgo); v != nil {
		return v
	}
	return s.balance.Value(ItemTotalDebt, periodsAgo)
}

// ComputeRatios derives every metric from ctx. Ratios whose inputs are
// missing or whose denominator is zero are null and add a warning.
func ComputeRatios(ctx *models.FinancialContext) models.ComputedMetrics {
	st := statements{
		income:   ctx.Financials.IncomeStatement,
		balance:  ctx.Financials.BalanceSheet,
		cashflow: ctx.Financials.Cashflow,
	}

	netIncome := st.income.Value(ItemNetIncome, 0)
	revenue := st.income.Value(ItemRevenue, 0)
	equity := st.equity(0)
	assets := st.balance.Value(ItemTotalAssets, 0)
	debt := st.balance.Value(ItemTotalDebt, 0)
	eps := st.income.Value(ItemEPS, 0)
	price := common.RoundPtr(ctx.Price.Current, 2)

	m := models.ComputedMetrics{Warnings: []string{}}

	m.Profitability.ROE = percent(netIncome, equity)
	m.Profitability.ROA = percent(netIncome, assets)
	m.Profitability.NetMargin = percent(netIncome, revenue)
	m.Leverage.DebtToEquity = common.RoundPtr(common.Div(debt, equity), 2)
	m.Leverage.NegativeEquity = equity != nil && *equity < 0
	m.Valuation.PERatio = common.RoundPtr(common.Div(ctx.Price.Current, eps), 2)
	m.Valuation.Price = price

	m.QualityScores.PiotroskiFScore = piotroskiFScore(st)
	m.QualityScores.AltmanZScore = altmanZScore(st, ctx.Price.Current)

	m.GrowthTrends.RevenueCAGR3Y = revenueCAGR(st.income)
	m.GrowthTrends.MarginStability, m.GrowthTrends.DataPoints = marginStability(st.income)

	checks := []struct {
		value *float64
		msg   string
	}{
		{m.Profitability.ROE, "roe unavailable: requires Net Income and non-zero Stockholders Equity"},
		{m.Profitability.ROA, "roa unavailable: requires Net Income and non-zero Total Assets"},
		{m.Profitability.NetMargin, "net_margin unavailable: requires Net Income and non-zero Total Revenue"},
		{m.Leverage.DebtToEquity, "debt_to_equity unavailable: requires Total Debt and non-zero Stockholders Equity"},
		{m.Valuation.PERatio, "pe_ratio unavailable: requires current price and non-zero Basic EPS"},
		{m.QualityScores.AltmanZScore, "altman_z_score unavailable: balance sheet, EBIT or price missing"},
		{m.GrowthTrends.RevenueCAGR3Y, "revenue_cagr_3y unavailable: fewer than 2 periods with positive revenue"},
	}
	for _, c := range checks {
		if c.value == nil {
			m.Warnings = append(m.Warnings, c.msg)
		}
	}
	return m
}

// percent returns num/den as a percentage rounded to 2 places.
func percent(num, den *float64) *float64 {
	q := common.Div(num, den)
	if q == nil {
		return nil
	}
	return common.Float(common.Round(*q*100, 2))
}

// ratioAt returns num/den for one period.
func ratioAt(num, den *float64) (float64, bool) {
	q := common.Div(num, den)
	if q == nil {
		return 0, false
	}
	return *q, true
}

// piotroskiFScore sums nine binary tests. A test with any input missing
// scores 0.
func piotroskiFScore(st statements) int {
	score := 0
	pass := func(ok bool) {
		if ok {
			score++
		}
	}

	ni := st.income.Value(ItemNetIncome, 0)
	prevNI := st.income.Value(ItemNetIncome, 1)
	ocf := st.cashflow.Value(ItemOperatingCashFlow, 0)
	assets := st.balance.Value(ItemTotalAssets, 0)
	prevAssets := st.balance.Value(ItemTotalAssets, 1)
	revenue := st.income.Value(ItemRevenue, 0)
	prevRevenue := st.income.Value(ItemRevenue, 1)

	// Profitability
	pass(ni != nil && *ni > 0)
	pass(ocf != nil && *ocf > 0)

	roa, okROA := ratioAt(ni, assets)
	prevROA, okPrevROA := ratioAt(prevNI, prevAssets)
	pass(okROA && okPrevROA && roa > prevROA)
	pass(okROA && roa > 0)

	// Leverage and liquidity
	lev, okLev := ratioAt(st.leverageDebt(0), assets)
	prevLev, okPrevLev := ratioAt(st.leverageDebt(1), prevAssets)
	pass(okLev && okPrevLev && lev < prevLev)

	cr, okCR := ratioAt(st.balance.Value(ItemCurrentAssets, 0), st.balance.Value(ItemCurrentLiabilities, 0))
	prevCR, okPrevCR := ratioAt(st.balance.Value(ItemCurrentAssets, 1), st.balance.Value(ItemCurrentLiabilities, 1))
	pass(okCR && okPrevCR && cr > prevCR)

	shares := st.balance.Value(ItemShares, 0)
	prevShares := st.balance.Value(ItemShares, 1)
	pass(shares != nil && prevShares != nil && *shares <= *prevShares)

	// Operating efficiency
	gm, okGM := ratioAt(st.income.Value(ItemGrossProfit, 0), revenue)
	prevGM, okPrevGM := ratioAt(st.income.Value(ItemGrossProfit, 1), prevRevenue)
	pass(okGM && okPrevGM && gm > prevGM)

	at, okAT := ratioAt(revenue, assets)
	prevAT, okPrevAT := ratioAt(prevRevenue, prevAssets)
	pass(okAT && okPrevAT && at > prevAT)

	return score
}

// altmanZScore is the original manufacturing Z-score. Null when any input is
// missing or a denominator is zero.
func altmanZScore(st statements, price *float64) *float64 {
	assets := st.balance.Value(ItemTotalAssets, 0)
	ca := st.balance.Value(ItemCurrentAssets, 0)
	cl := st.balance.Value(ItemCurrentLiabilities, 0)
	re := st.balance.Value(ItemRetainedEarnings, 0)
	ebit := st.income.Value(ItemEBIT, 0)
	shares := st.balance.Value(ItemShares, 0)
	tl := st.liabilities(0)
	sales := st.income.Value(ItemRevenue, 0)

	for _, v := range []*float64{assets, ca, cl, re, ebit, shares, tl, sales, price} {
		if v == nil {
			return nil
		}
	}
	if *assets == 0 || *tl == 0 {
		return nil
	}

	ta := *assets
	a := (*ca - *cl) / ta
	b := *re / ta
	c := *ebit / ta
	d := (*price * *shares) / *tl
	e := *sales / ta

	z := 1.2*a + 1.4*b + 3.3*c + 0.6*d + 1.0*e
	return common.RoundPtr(common.Float(z), 2)
}

// revenueCAGR compounds revenue across the latest periods with positive
// revenue, up to cagrWindow of them, with N equal to the periods in the window.
func revenueCAGR(income models.Statement) *float64 {
	var window []float64
	for _, p := range income.Periods() {
		if len(window) == cagrWindow {
			break
		}
		v := income[p][ItemRevenue]
		if v == nil {
			continue
		}
		if *v <= 0 {
			// A non-positive endpoint makes the growth rate meaningless
			if len(window) == 0 {
				return nil
			}
			break
		}
		window = append(window, *v)
	}
	if len(window) < 2 {
		return nil
	}

	latest := window[0]
	earliest := window[len(window)-1]
	n := float64(len(window))
	cagr := math.Pow(latest/earliest, 1/n) - 1
	return common.RoundPtr(common.Float(cagr*100), 2)
}

// marginStability classifies the dispersion of net margin across every
// period that has both inputs.
func marginStability(income models.Statement) (string, int) {
	var margins []float64
	for _, p := range income.Periods() {
		if m, ok := ratioAt(income[p][ItemNetIncome], income[p][ItemRevenue]); ok {
			margins = append(margins, m)
		}
	}
	if len(margins) < 2 {
		return models.StabilityUnknown, len(margins)
	}

	mean := 0.0
	for _, m := range margins {
		mean += m
	}
	mean /= float64(len(margins))

	variance := 0.0
	for _, m := range margins {
		variance += (m - mean) * (m - mean)
	}
	std := math.Sqrt(variance / float64(len(margins)))

	if mean == 0 {
		if std == 0 {
			return models.StabilityStable, len(margins)
		}
		return models.StabilityVolatile, len(margins)
	}
	if std/math.Abs(mean) <= stableMarginCV {
		return models.StabilityStable, len(margins)
	}
	return models.StabilityVolatile, len(margins)
}
