package engine

import (
	"fmt"
	"math"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/models"
)

// DefaultSector is used when a company's sector is unknown.
const DefaultSector = "Default"

// inlineBandPct is the +/- deviation from the sector average still counted as inline.
const inlineBandPct = 10.0

// Compared metric keys
const (
	MetricROE          = "roe"
	MetricNetMargin    = "net_margin"
	MetricPE           = "pe"
	MetricDebtToEquity = "debt_to_equity"
)

func avg(v float64) *float64 { return &v }

// builtinSectors are the sector averages used when no override file is
// configured. Percentages are in percent.
var builtinSectors = map[string]models.SectorAverages{
	"Technology":             {AvgROE: avg(24), AvgPE: avg(28), AvgDebtEquity: avg(0.15), AvgNetMargin: avg(18)},
	"Financial Services":     {AvgROE: avg(14), AvgPE: avg(18), AvgDebtEquity: avg(6.5), AvgNetMargin: avg(16)},
	"Consumer Defensive":     {AvgROE: avg(28), AvgPE: avg(45), AvgDebtEquity: avg(0.25), AvgNetMargin: avg(12)},
	"Consumer Cyclical":      {AvgROE: avg(16), AvgPE: avg(32), AvgDebtEquity: avg(0.8), AvgNetMargin: avg(7)},
	"Healthcare":             {AvgROE: avg(16), AvgPE: avg(32), AvgDebtEquity: avg(0.3), AvgNetMargin: avg(13)},
	"Energy":                 {AvgROE: avg(13), AvgPE: avg(12), AvgDebtEquity: avg(0.7), AvgNetMargin: avg(8)},
	"Industrials":            {AvgROE: avg(15), AvgPE: avg(35), AvgDebtEquity: avg(0.6), AvgNetMargin: avg(8)},
	"Basic Materials":        {AvgROE: avg(13), AvgPE: avg(20), AvgDebtEquity: avg(0.6), AvgNetMargin: avg(9)},
	"Utilities":              {AvgROE: avg(12), AvgPE: avg(18), AvgDebtEquity: avg(1.4), AvgNetMargin: avg(11)},
	"Real Estate":            {AvgROE: avg(9), AvgPE: avg(40), AvgDebtEquity: avg(0.9), AvgNetMargin: avg(15)},
	"Communication Services": {AvgROE: avg(11), AvgPE: avg(30), AvgDebtEquity: avg(1.2), AvgNetMargin: avg(9)},
	DefaultSector:            {AvgROE: avg(15), AvgPE: avg(25), AvgDebtEquity: avg(0.8), AvgNetMargin: avg(10)},
}

// benchmarkFile is the TOML shape of a sector override file:
//
//	[sectors.Technology]
//	avg_roe = 22.0
type benchmarkFile struct {
	Sectors map[string]models.SectorAverages `toml:"sectors"`
}

// Benchmarker compares metrics with sector averages.
type Benchmarker struct {
	sectors map[string]models.SectorAverages // keyed by lower-case name
	names   map[string]string                // lower-case to display name
}

// NewBenchmarker returns a benchmarker over the built-in table.
func NewBenchmarker() *Benchmarker {
	b := &Benchmarker{
		sectors: make(map[string]models.SectorAverages),
		names:   make(map[string]string),
	}
	for name, a := range builtinSectors {
		b.set(name, a)
	}
	return b
}

// LoadBenchmarker returns the built-in table overridden by the TOML file at
// path. An empty path loads the built-in table only.
func LoadBenchmarker(path string) (*Benchmarker, error) {
	b := NewBenchmarker()
	if path == "" {
		return b, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read benchmarks file %s: %w", path, err)
	}
	var file benchmarkFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse benchmarks file %s: %w", path, err)
	}
	for name, a := range file.Sectors {
		b.set(name, a)
	}
	return b, nil
}

func (b *Benchmarker) set(name string, a models.SectorAverages) {
	key := strings.ToLower(strings.TrimSpace(name))
	b.sectors[key] = a
	b.names[key] = name
}

// Resolve returns the sector name used and its averages, falling back to Default.
func (b *Benchmarker) Resolve(sector string) (string, models.SectorAverages) {
	key := strings.ToLower(strings.TrimSpace(sector))
	if a, ok := b.sectors[key]; ok && key != "" {
		return b.names[key], a
	}
	def := strings.ToLower(DefaultSector)
	return b.names[def], b.sectors[def]
}

// Compare benchmarks m against the sector. It never fails: unknown sectors
// use the Default averages and unavailable metrics yield nil comparisons.
func (b *Benchmarker) Compare(m models.ComputedMetrics, sector string) models.BenchmarkResult {
	resolved, a := b.Resolve(sector)
	return models.BenchmarkResult{
		Sector:         sector,
		SectorResolved: resolved,
		Averages:       a,
		Comparisons: map[string]*models.Comparison{
			MetricROE:          compare(m.Profitability.ROE, a.AvgROE, false),
			MetricNetMargin:    compare(m.Profitability.NetMargin, a.AvgNetMargin, false),
			MetricPE:           compare(m.Valuation.PERatio, a.AvgPE, true),
			MetricDebtToEquity: compare(m.Leverage.DebtToEquity, a.AvgDebtEquity, true),
		},
	}
}

// compare places value relative to average. For lowerIsBetter metrics a
// Below status is the favourable one.
func compare(value, average *float64, lowerIsBetter bool) *models.Comparison {
	if value == nil || average == nil || *average == 0 {
		return nil
	}
	d := common.Float((*value - *average) / math.Abs(*average) * 100)
	if d == nil {
		return nil
	}
	diff := *d
	c := &models.Comparison{
		Value:   *value,
		Average: *average,
		DiffPct: common.Round(diff, 1),
		Status:  models.StatusInline,
	}
	switch {
	case diff > inlineBandPct:
		c.Status = models.StatusAbove
	case diff < -inlineBandPct:
		c.Status = models.StatusBelow
	}
	if c.Status != models.StatusInline {
		fav := (c.Status == models.StatusAbove) != lowerIsBetter
		c.Favorable = &fav
	}
	return c
}
