// Package merger turns the untyped provider payload into a FinancialContext.
// It is the only code that knows the payload's shape.
package merger

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/interfaces"
	"github.com/bobmcallan/stance/internal/models"
)

// Statement keys in the payload's financials object
const (
	keyIncome   = "income_statement"
	keyBalance  = "balance_sheet"
	keyCashflow = "cashflow"
)

// holderKeys maps shareholding labels to holder classes. Labels that are
// not holder percentages are handled separately.
var holderKeys = map[string]string{
	"promoters":  "promoters",
	"promoter":   "promoters",
	"fiis":       "fii",
	"fii":        "fii",
	"fii / fpi":  "fii",
	"diis":       "dii",
	"dii":        "dii",
	"government": "government",
	"public":     "public",
	"others":     "others",
}

// Merger builds FinancialContexts, back-filling profile fields from the
// company registry when the provider leaves them empty.
type Merger struct {
	registry interfaces.CompanyLookup
}

// NewMerger creates a merger. registry may be nil.
func NewMerger(registry interfaces.CompanyLookup) *Merger {
	return &Merger{registry: registry}
}

// Merge parses payload for symbol. Only a payload that is empty, not JSON or
// not an object is an error; every missing or malformed field becomes null.
func (m *Merger) Merge(symbol string, payload []byte) (*models.FinancialContext, error) {
	if len(strings.TrimSpace(string(payload))) == 0 || !gjson.ValidBytes(payload) {
		return nil, &common.ProviderDataError{Symbol: symbol, Reason: "unparseable payload"}
	}
	root := gjson.ParseBytes(payload)
	if !root.IsObject() {
		return nil, &common.ProviderDataError{Symbol: symbol, Reason: "unparseable payload: not an object"}
	}

	fc := &models.FinancialContext{
		Symbol:        strings.ToUpper(strings.TrimSpace(symbol)),
		KeyRatios:     numberMap(root.Get("key_ratios")),
		MergeWarnings: []string{},
	}

	fc.Profile = models.Profile{
		Name:        str(root.Get("name")),
		Sector:      firstStr(root.Get("sector"), root.Get("company_details.sector")),
		Industry:    firstStr(root.Get("industry"), root.Get("company_details.industry")),
		Description: firstStr(root.Get("description"), root.Get("company_details.about")),
	}
	m.backfillProfile(fc)

	fc.Price = models.Price{
		Current:  number(root.Get("current_price")),
		AsOf:     str(root.Get("price_date")),
		Currency: str(root.Get("currency")),
		History:  priceHistory(root.Get("price_history")),
	}
	if fc.Price.Current == nil {
		fc.Price.Current = fc.KeyRatios["current_price"]
	}

	fin := root.Get("financials")
	fc.Financials = models.Financials{
		IncomeStatement: statement(fin.Get(keyIncome), keyIncome, &fc.MergeWarnings),
		BalanceSheet:    statement(fin.Get(keyBalance), keyBalance, &fc.MergeWarnings),
		Cashflow:        statement(fin.Get(keyCashflow), keyCashflow, &fc.MergeWarnings),
	}

	fc.Shareholding = shareholding(root.Get("shareholding"))

	fc.Source = models.SourceMeta{
		URL:       str(root.Get("source_url")),
		ScrapedAt: str(root.Get("scraped_at")),
	}
	for _, s := range root.Get("sections_found").Array() {
		if s.Type == gjson.String && s.Str != "" {
			fc.Source.SectionsFound = append(fc.Source.SectionsFound, s.Str)
		}
	}

	return fc, nil
}

func (m *Merger) backfillProfile(fc *models.FinancialContext) {
	if m.registry == nil {
		return
	}
	c, ok := m.registry.Lookup(fc.Symbol)
	if !ok {
		return
	}
	fill := func(dst **string, v string) {
		if (*dst == nil || **dst == "") && v != "" {
			v := v
			*dst = &v
		}
	}
	fill(&fc.Profile.Name, c.Name)
	fill(&fc.Profile.Sector, c.Sector)
	fill(&fc.Profile.Industry, c.Industry)
}

// statement converts {period label: {line item: value}}. Labels are
// normalised to ISO dates; unknown labels are dropped with a warning. When
// two labels land on the same date the first non-null value wins.
func statement(v gjson.Result, section string, warnings *[]string) models.Statement {
	if !v.IsObject() {
		return nil
	}
	out := make(models.Statement)
	v.ForEach(func(label, items gjson.Result) bool {
		if !items.IsObject() {
			return true
		}
		period, ok, skip := normalizePeriod(label.String())
		if skip {
			return true
		}
		if !ok {
			*warnings = append(*warnings, fmt.Sprintf("%s: dropped unrecognised period %q", section, label.String()))
			return true
		}
		row := out[period]
		if row == nil {
			row = make(models.LineItems)
			out[period] = row
		}
		items.ForEach(func(item, value gjson.Result) bool {
			name := strings.TrimSpace(item.String())
			if name == "" {
				return true
			}
			if existing, seen := row[name]; seen && existing != nil {
				return true
			}
			row[name] = number(value)
			return true
		})
		return true
	})
	if len(out) == 0 {
		return nil
	}
	return out
}

// normalizePeriod returns the ISO date for a period label. skip is true for
// trailing-twelve-month columns, which are not fiscal periods.
func normalizePeriod(label string) (period string, ok bool, skip bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", false, false
	}
	if strings.Contains(strings.ToLower(label), "ttm") {
		return "", false, true
	}
	if t, err := time.Parse("2006-01-02", label); err == nil {
		return t.Format("2006-01-02"), true, false
	}
	for _, layout := range []string{"Jan 2006", "January 2006", "Jan-2006", "Jan-06", "Jan 06"} {
		if t, err := time.Parse(layout, label); err == nil {
			return monthEnd(t).Format("2006-01-02"), true, false
		}
	}
	if len(label) == 4 {
		if year, err := strconv.Atoi(label); err == nil && year > 1900 {
			// Plain years are fiscal years ending in March.
			return fmt.Sprintf("%04d-03-31", year), true, false
		}
	}
	return "", false, false
}

func monthEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

func shareholding(v gjson.Result) *models.Shareholding {
	if !v.IsObject() {
		return nil
	}
	sh := &models.Shareholding{Holders: make(map[string]*float64)}
	v.ForEach(func(key, value gjson.Result) bool {
		label := strings.ToLower(strings.TrimSpace(key.String()))
		switch {
		case label == "as_of":
			sh.AsOf = str(value)
		case strings.Contains(label, "pledge"):
			sh.PromoterPledge = number(value)
		case strings.Contains(label, "shareholders"):
			sh.Shareholders = number(value)
		default:
			if class, ok := holderKeys[label]; ok {
				sh.Holders[class] = number(value)
			}
		}
		return true
	})
	if len(sh.Holders) == 0 && sh.AsOf == nil {
		return nil
	}
	return sh
}

func priceHistory(v gjson.Result) []models.PricePoint {
	if !v.IsArray() {
		return nil
	}
	var out []models.PricePoint
	for _, p := range v.Array() {
		date := strings.TrimSpace(p.Get("date").String())
		closing := number(p.Get("close"))
		if date == "" || closing == nil {
			continue
		}
		out = append(out, models.PricePoint{Date: date, Close: *closing, Volume: number(p.Get("volume"))})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func numberMap(v gjson.Result) map[string]*float64 {
	if !v.IsObject() {
		return map[string]*float64{}
	}
	out := make(map[string]*float64)
	v.ForEach(func(key, value gjson.Result) bool {
		out[key.String()] = number(value)
		return true
	})
	return out
}

// number reads a JSON number or a formatted numeric string such as
// "1,23,456.78", "12.5%" or "₹ 2,450". Anything else, NaN and Inf become nil.
func number(v gjson.Result) *float64 {
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Num
	case gjson.String:
		cleaned := strings.NewReplacer(",", "", "%", "", "₹", "", "Rs.", "", "Rs", "", "$", "", " ", "").Replace(v.Str)
		if cleaned == "" || cleaned == "--" || cleaned == "-" {
			return nil
		}
		parsed, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func str(v gjson.Result) *string {
	if v.Type != gjson.String {
		return nil
	}
	s := strings.TrimSpace(v.Str)
	if s == "" {
		return nil
	}
	return &s
}

func firstStr(vs ...gjson.Result) *string {
	for _, v := range vs {
		if s := str(v); s != nil {
			return s
		}
	}
	return nil
}
