// Package models defines data structures for Stance
package models

import (
	"sort"
)

// FinancialContext is the merged, normalised input to scoring. It is built
// once per computation and never mutated by the engines.
type FinancialContext struct {
	Symbol        string              `json:"symbol"`
	Profile       Profile             `json:"profile"`
	Price         Price               `json:"price"`
	Financials    Financials          `json:"financials"`
	Shareholding  *Shareholding       `json:"shareholding"`
	KeyRatios     map[string]*float64 `json:"key_ratios"`
	Source        SourceMeta          `json:"source"`
	MergeWarnings []string            `json:"merge_warnings"`
}

// Profile holds descriptive company fields; any of them may be null.
type Profile struct {
	Name        *string `json:"name"`
	Sector      *string `json:"sector"`
	Industry    *string `json:"industry"`
	Description *string `json:"description"`
}

// Available reports whether the profile carries at least a company name.
func (p Profile) Available() bool {
	return p.Name != nil && *p.Name != ""
}

// SectorName returns the sector or "" when unknown.
func (p Profile) SectorName() string {
	if p.Sector == nil {
		return ""
	}
	return *p.Sector
}

// Price holds the latest price and its daily history.
type Price struct {
	Current  *float64     `json:"current"`
	AsOf     *string      `json:"as_of"`
	Currency *string      `json:"currency"`
	History  []PricePoint `json:"history"`
}

// Available reports whether a current price is known.
func (p Price) Available() bool {
	return p.Current != nil
}

// PricePoint is one daily close.
type PricePoint struct {
	Date   string   `json:"date"`
	Close  float64  `json:"close"`
	Volume *float64 `json:"volume"`
}

// LineItems maps a line item name ("Net Income") to a nullable value.
type LineItems map[string]*float64

// Statement maps an ISO period-end date (YYYY-MM-DD) to its line items.
type Statement map[string]LineItems

// Periods returns the period-end dates sorted newest first.
func (s Statement) Periods() []string {
	periods := make([]string, 0, len(s))
	for p := range s {
		periods = append(periods, p)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(periods)))
	return periods
}

// Value returns a line item from the period periodsAgo steps before the
// latest, or nil when the period or item is missing.
func (s Statement) Value(field string, periodsAgo int) *float64 {
	periods := s.Periods()
	if periodsAgo < 0 || periodsAgo >= len(periods) {
		return nil
	}
	items := s[periods[periodsAgo]]
	if items == nil {
		return nil
	}
	return items[field]
}

// Available reports whether the statement has at least one period with a value.
func (s Statement) Available() bool {
	for _, items := range s {
		for _, v := range items {
			if v != nil {
				return true
			}
		}
	}
	return false
}

// Financials groups the three time-indexed statements. A nil statement
// means the section was absent from the source.
type Financials struct {
	IncomeStatement Statement `json:"income_statement"`
	BalanceSheet    Statement `json:"balance_sheet"`
	Cashflow        Statement `json:"cashflow"`
}

// Shareholding is the latest holder breakdown in percent.
type Shareholding struct {
	Holders        map[string]*float64 `json:"holders"`
	AsOf           *string             `json:"as_of"`
	PromoterPledge *float64            `json:"promoter_pledge,omitempty"` // percent of promoter holding
	Shareholders   *float64            `json:"shareholders,omitempty"`    // count of holders
}

// Available reports whether any holder percentage is known.
func (s *Shareholding) Available() bool {
	if s == nil {
		return false
	}
	for _, v := range s.Holders {
		if v != nil {
			return true
		}
	}
	return false
}

// SourceMeta describes where the payload came from.
type SourceMeta struct {
	URL           *string  `json:"source_url"`
	ScrapedAt     *string  `json:"scraped_at"`
	SectionsFound []string `json:"sections_found"`
}
