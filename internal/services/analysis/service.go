// Package analysis runs the fetch, merge and score pipeline behind the
// tiered cache and attaches narrative insights when they are ready in time.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/stance/internal/cache"
	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/engine"
	"github.com/bobmcallan/stance/internal/interfaces"
	"github.com/bobmcallan/stance/internal/models"
	"github.com/bobmcallan/stance/internal/resilience"
	"github.com/bobmcallan/stance/internal/services/compliance"
	"github.com/bobmcallan/stance/internal/services/llm"
	"github.com/bobmcallan/stance/internal/services/merger"
	"github.com/bobmcallan/stance/internal/signals"
)

// Config carries the cache lifetimes and deadlines.
type Config struct {
	AnalysisTTL    time.Duration
	InsightsTTL    time.Duration
	RequestTimeout time.Duration
	Scoring        engine.Options
}

// Service implements interfaces.AnalysisService.
type Service struct {
	provider    interfaces.RawDataProvider
	policy      *resilience.Policy
	merger      *merger.Merger
	benchmarker *engine.Benchmarker
	llm         *llm.Orchestrator
	cache       *cache.Tiered
	cfg         Config
	logger      *common.Logger
	now         func() time.Time
}

var _ interfaces.AnalysisService = (*Service)(nil)

// NewService creates the analysis service. orchestrator may be nil, in which
// case insights are always reported as disabled.
func NewService(provider interfaces.RawDataProvider, policy *resilience.Policy, m *merger.Merger, b *engine.Benchmarker, orchestrator *llm.Orchestrator, c *cache.Tiered, cfg Config, logger *common.Logger) *Service {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return &Service{
		provider:    provider,
		policy:      policy,
		merger:      m,
		benchmarker: b,
		llm:         orchestrator,
		cache:       c,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// unavailableError carries an all-failed generation back through the cache
// flight so it reaches every waiter without being stored.
type unavailableError struct {
	insights models.AIInsights
}

func (e *unavailableError) Error() string {
	return fmt.Sprintf("insights unavailable: %s failed", strings.Join(e.insights.Failed, ", "))
}

// GetReport returns the numeric report for symbol. Insights are attached when
// requested: from the cache, or from a generation that finishes before the
// request deadline, or else as pending while generation carries on.
func (s *Service) GetReport(ctx context.Context, symbol string, opts interfaces.ReportOptions) (*models.AnalysisReport, error) {
	sym, err := common.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	a, tier, err := s.numeric(ctx, sym)
	if err != nil {
		return nil, err
	}

	report := project(a, ParseInclude(opts.Include))
	report.CacheTier = tier

	switch {
	case !opts.Insights || !s.insightsEnabled():
		report.AIInsights = &models.AIInsights{Status: models.InsightsDisabled}
	default:
		report.AIInsights = s.waitInsights(ctx, sym, a)
	}
	return report, nil
}

// GetInsights blocks until insights are generated or ctx ends. A generation
// where every perspective failed is returned with status unavailable and is
// not cached.
func (s *Service) GetInsights(ctx context.Context, symbol string) (*models.AIInsights, error) {
	sym, err := common.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if !s.insightsEnabled() {
		return &models.AIInsights{Status: models.InsightsDisabled}, nil
	}

	a, _, err := s.numeric(ctx, sym)
	if err != nil {
		return nil, err
	}

	insights, _, err := s.insights(ctx, sym, a)
	if err != nil {
		var unavailable *unavailableError
		if errors.As(err, &unavailable) {
			out := unavailable.insights
			return &out, nil
		}
		return nil, err
	}
	return &insights, nil
}

// Invalidate drops both cached values for symbol.
func (s *Service) Invalidate(ctx context.Context, symbol string) error {
	sym, err := common.NormalizeSymbol(symbol)
	if err != nil {
		return err
	}
	return errors.Join(
		s.cache.Invalidate(ctx, models.AnalysisKey(sym)),
		s.cache.Invalidate(ctx, models.InsightsKey(sym)),
	)
}

// Warm pre-computes reports for symbols one at a time and returns how many
// succeeded. Symbols are processed sequentially to stay inside the
// provider's rate limit.
func (s *Service) Warm(ctx context.Context, symbols []string, withInsights bool) int {
	warmed := 0
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}
		sym, err := common.NormalizeSymbol(symbol)
		if err != nil {
			s.logger.Warn().Str("symbol", symbol).Err(err).Msg("Warm: skipping invalid symbol")
			continue
		}
		a, _, err := s.numeric(ctx, sym)
		if err != nil {
			s.logger.Warn().Str("symbol", sym).Err(err).Msg("Warm: analysis failed")
			continue
		}
		if withInsights && s.insightsEnabled() {
			if _, _, err := s.insights(ctx, sym, a); err != nil {
				s.logger.Warn().Str("symbol", sym).Err(err).Msg("Warm: insights failed")
			}
		}
		warmed++
	}
	s.logger.Info().Int("requested", len(symbols)).Int("warmed", warmed).Msg("Cache warm complete")
	return warmed
}

func (s *Service) insightsEnabled() bool {
	return s.llm != nil && s.llm.Enabled()
}

// numeric returns the cached numeric analysis or computes it once for all
// concurrent callers.
func (s *Service) numeric(ctx context.Context, sym string) (*models.NumericAnalysis, models.CacheTier, error) {
	return cache.GetOrComputeJSON(ctx, s.cache, models.AnalysisKey(sym), s.cfg.AnalysisTTL, func(ctx context.Context) (*models.NumericAnalysis, error) {
		return s.compute(ctx, sym)
	})
}

func (s *Service) compute(ctx context.Context, sym string) (*models.NumericAnalysis, error) {
	start := s.now()

	payload, err := resilience.Do(ctx, s.policy, func(ctx context.Context) ([]byte, error) {
		return s.provider.Fetch(ctx, sym)
	})
	if err != nil {
		return nil, err
	}

	fc, err := s.merger.Merge(sym, payload)
	if err != nil {
		return nil, err
	}
	if empty(fc) {
		return nil, fmt.Errorf("%s: %w", sym, common.ErrSymbolNotFound)
	}

	metrics := engine.ComputeRatios(fc)
	bench := s.benchmarker.Compare(metrics, fc.Profile.SectorName())
	audit := engine.Audit(fc, metrics)
	stance := engine.ScoreAudited(metrics, bench, audit, s.cfg.Scoring)

	s.logger.Info().
		Str("symbol", sym).
		Str("stance", stance.OverallStance).
		Float64("score", stance.OverallScore).
		Int("confidence", audit.DataCompleteness.Confidence).
		Dur("elapsed", s.now().Sub(start)).
		Msg("Analysis computed")

	return &models.NumericAnalysis{
		Context:     fc,
		Ratios:      metrics,
		Benchmarks:  bench,
		Integrity:   audit,
		Stance:      stance,
		GeneratedAt: s.now().UTC(),
	}, nil
}

// empty reports whether the payload held nothing usable at all.
func empty(fc *models.FinancialContext) bool {
	return !fc.Profile.Available() &&
		!fc.Price.Available() &&
		!fc.Shareholding.Available() &&
		!fc.Financials.IncomeStatement.Available() &&
		!fc.Financials.BalanceSheet.Available() &&
		!fc.Financials.Cashflow.Available()
}

// insights returns cached insights or joins the single generation flight for
// sym. The flight runs detached from ctx, so a waiter that gives up leaves it
// to finish and populate the cache.
func (s *Service) insights(ctx context.Context, sym string, a *models.NumericAnalysis) (models.AIInsights, models.CacheTier, error) {
	return cache.GetOrComputeJSON(ctx, s.cache, models.InsightsKey(sym), s.cfg.InsightsTTL, func(ctx context.Context) (models.AIInsights, error) {
		out := s.llm.Generate(ctx, a)
		if out.Status == models.InsightsUnavailable {
			return out, &unavailableError{insights: out}
		}
		return out, nil
	})
}

func (s *Service) waitInsights(ctx context.Context, sym string, a *models.NumericAnalysis) *models.AIInsights {
	out, _, err := s.insights(ctx, sym, a)
	if err == nil {
		return &out
	}

	var unavailable *unavailableError
	switch {
	case errors.As(err, &unavailable):
		res := unavailable.insights
		return &res
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		s.logger.Debug().Str("symbol", sym).Msg("Insights still generating; returning pending")
		return &models.AIInsights{Status: models.InsightsPending}
	default:
		s.logger.Warn().Str("symbol", sym).Err(err).Msg("Insights generation failed")
		return &models.AIInsights{Status: models.InsightsUnavailable}
	}
}

// project builds the report from the analysis, keeping the context sections
// named in include.
func project(a *models.NumericAnalysis, include map[string]bool) *models.AnalysisReport {
	fc := a.Context
	report := &models.AnalysisReport{
		Symbol:         fc.Symbol,
		Profile:        fc.Profile,
		Price:          fc.Price,
		Ratios:         a.Ratios,
		Stance:         a.Stance,
		Benchmarks:     a.Benchmarks,
		IntegrityAudit: a.Integrity,
		Source:         fc.Source,
		MergeWarnings:  fc.MergeWarnings,
		GeneratedAt:    a.GeneratedAt,
		Disclaimer:     compliance.Disclaimer,
	}

	if include[models.IncludePriceHistory] {
		report.Technicals = signals.Compute(fc.Price.History)
	} else {
		report.Price.History = nil
	}
	if include[models.IncludeFinancials] {
		f := fc.Financials
		report.Financials = &f
	}
	if include[models.IncludeShareholding] {
		report.Shareholding = fc.Shareholding
	}
	if include[models.IncludeKeyRatios] {
		report.KeyRatios = fc.KeyRatios
	}
	return report
}

// includePresets expand the named include levels.
var includePresets = map[string][]string{
	"basic":      {models.IncludeProfile},
	"financials": {models.IncludeProfile, models.IncludeFinancials},
	"history":    {models.IncludeProfile, models.IncludePriceHistory},
	"full": {
		models.IncludeProfile,
		models.IncludeFinancials,
		models.IncludePriceHistory,
		models.IncludeShareholding,
		models.IncludeKeyRatios,
	},
}

var includeSections = map[string]bool{
	models.IncludeProfile:      true,
	models.IncludeFinancials:   true,
	models.IncludePriceHistory: true,
	models.IncludeShareholding: true,
	models.IncludeKeyRatios:    true,
}

// ParseInclude expands an include parameter into the set of sections. An
// empty value means basic; unknown names are ignored.
func ParseInclude(include string) map[string]bool {
	out := map[string]bool{models.IncludeProfile: true}
	for _, part := range strings.Split(include, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if preset, ok := includePresets[name]; ok {
			for _, section := range preset {
				out[section] = true
			}
			continue
		}
		if includeSections[name] {
			out[name] = true
		}
	}
	return out
}
