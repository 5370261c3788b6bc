package engine

import (
	"github.com/bobmcallan/stance/internal/models"
)

func f(v float64) *float64 { return &v }
func s(v string) *string   { return &v }

// healthyContext has two fully populated periods where every Piotroski test passes.
func healthyContext() *models.FinancialContext {
	return &models.FinancialContext{
		Symbol:  "TCS",
		Profile: models.Profile{Name: s("Tata Consultancy Services"), Sector: s("Technology")},
		Price:   models.Price{Current: f(40)},
		Financials: models.Financials{
			IncomeStatement: models.Statement{
				"2024-03-31": {
					ItemNetIncome:   f(120),
					ItemRevenue:     f(1000),
					ItemEPS:         f(2),
					ItemGrossProfit: f(400),
					ItemEBIT:        f(160),
				},
				"2023-03-31": {
					ItemNetIncome:   f(80),
					ItemRevenue:     f(900),
					ItemGrossProfit: f(300),
				},
			},
			BalanceSheet: models.Statement{
				"2024-03-31": {
					ItemEquity:             f(600),
					ItemTotalAssets:        f(1000),
					ItemTotalDebt:          f(150),
					ItemLongTermDebt:       f(100),
					ItemCurrentAssets:      f(500),
					ItemCurrentLiabilities: f(200),
					ItemShares:             f(100),
					ItemRetainedEarnings:   f(300),
					ItemTotalLiabilities:   f(400),
				},
				"2023-03-31": {
					ItemEquity:             f(500),
					ItemTotalAssets:        f(950),
					ItemLongTermDebt:       f(150),
					ItemCurrentAssets:      f(400),
					ItemCurrentLiabilities: f(250),
					ItemShares:             f(100),
				},
			},
			Cashflow: models.Statement{
				"2024-03-31": {ItemOperatingCashFlow: f(150)},
			},
		},
		Shareholding: &models.Shareholding{Holders: map[string]*float64{"promoters": f(72), "public": f(28)}},
	}
}

// emptyContext has a profile and price but no statements or shareholding.
func emptyContext() *models.FinancialContext {
	return &models.FinancialContext{
		Symbol:  "NEWCO",
		Profile: models.Profile{Name: s("New Co")},
		Price:   models.Price{Current: f(100)},
	}
}
