// Package llm fans a numeric analysis out to the configured model backends
// and collects the narrative perspectives.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/interfaces"
	"github.com/bobmcallan/stance/internal/models"
	"github.com/bobmcallan/stance/internal/resilience"
	"github.com/bobmcallan/stance/internal/services/compliance"
)

// ErrNoBackend means no model backend is configured at all.
var ErrNoBackend = errors.New("no llm backend configured")

// perspectives are generated in parallel; the verdict runs after them.
var perspectives = []string{
	models.PerspectiveAnalyst,
	models.PerspectiveContrarian,
	models.PerspectiveEducator,
}

var perspectiveTitles = map[string]string{
	models.PerspectiveAnalyst:    "ANALYST PERSPECTIVE",
	models.PerspectiveContrarian: "CONTRARIAN PERSPECTIVE",
	models.PerspectiveEducator:   "EDUCATOR PERSPECTIVE",
}

const (
	perspectiveMaxTokens = 700
	verdictMaxTokens     = 350
	temperature          = 0.4
)

// Routes maps each perspective to a backend name.
type Routes map[string]string

// DefaultRoutes spreads the perspectives over the three backends.
func DefaultRoutes() Routes {
	return Routes{
		models.PerspectiveAnalyst:    "openai",
		models.PerspectiveContrarian: "claude",
		models.PerspectiveEducator:   "gemini",
		models.PerspectiveVerdict:    "gemini",
	}
}

// RoutesFromConfig overlays configured routes on the defaults.
func RoutesFromConfig(cfg common.PerspectivesConfig) Routes {
	r := DefaultRoutes()
	set := func(p, backend string) {
		if backend != "" {
			r[p] = backend
		}
	}
	set(models.PerspectiveAnalyst, cfg.Analyst)
	set(models.PerspectiveContrarian, cfg.Contrarian)
	set(models.PerspectiveEducator, cfg.Educator)
	set(models.PerspectiveVerdict, cfg.Verdict)
	return r
}

// Orchestrator generates AI insights for a numeric analysis.
type Orchestrator struct {
	backends    map[string]interfaces.LLMBackend
	order       []string
	policies    map[string]*resilience.Policy
	routes      Routes
	joinTimeout time.Duration
	logger      *common.Logger
	now         func() time.Time
}

// NewOrchestrator wraps each backend in its own resilience policy, named
// llm:<backend>, registered with registry. Backends earlier in the list are
// preferred as fallbacks for perspectives whose backend is missing.
func NewOrchestrator(backends []interfaces.LLMBackend, routes Routes, registry *resilience.Registry, policy common.PolicyConfig, joinTimeout time.Duration, logger *common.Logger) *Orchestrator {
	o := &Orchestrator{
		backends:    make(map[string]interfaces.LLMBackend, len(backends)),
		policies:    make(map[string]*resilience.Policy, len(backends)),
		routes:      routes,
		joinTimeout: joinTimeout,
		logger:      logger,
		now:         time.Now,
	}
	for _, b := range backends {
		if b == nil {
			continue
		}
		o.backends[b.Name()] = b
		o.order = append(o.order, b.Name())
		o.policies[b.Name()] = registry.Register("llm:"+b.Name(), policy)
	}
	for _, p := range []string{models.PerspectiveAnalyst, models.PerspectiveContrarian, models.PerspectiveEducator, models.PerspectiveVerdict} {
		if _, ok := o.backends[routes[p]]; !ok && len(o.order) > 0 {
			logger.Info().Str("perspective", p).Str("configured", routes[p]).Str("using", o.order[0]).
				Msg("Perspective backend not configured, falling back")
		}
	}
	return o
}

// Enabled reports whether at least one backend is configured.
func (o *Orchestrator) Enabled() bool {
	return len(o.order) > 0
}

// Backends returns the configured backend names in preference order.
func (o *Orchestrator) Backends() []string {
	return append([]string(nil), o.order...)
}

// backendFor returns the routed backend, or the first available one.
func (o *Orchestrator) backendFor(perspective string) interfaces.LLMBackend {
	if b, ok := o.backends[o.routes[perspective]]; ok {
		return b
	}
	if len(o.order) == 0 {
		return nil
	}
	return o.backends[o.order[0]]
}

type outcome struct {
	perspective string
	text        string
	err         error
}

// Generate runs the three perspectives in parallel, joins them with a
// bounded wait, then produces the verdict from whatever succeeded. It never
// fails: missing perspectives are left empty and listed in Failed.
func (o *Orchestrator) Generate(ctx context.Context, a *models.NumericAnalysis) models.AIInsights {
	if !o.Enabled() {
		return models.AIInsights{Status: models.InsightsDisabled}
	}

	data := newPromptData(a)
	logger := o.logger
	start := o.now()

	joinCtx, cancel := context.WithTimeout(ctx, o.joinTimeout)
	defer cancel()

	results := make(chan outcome, len(perspectives))
	for _, p := range perspectives {
		go func(p string) {
			text, err := o.perspective(joinCtx, p, data)
			results <- outcome{perspective: p, text: text, err: err}
		}(p)
	}

	got := make(map[string]string, len(perspectives))
	failures := make(map[string]error, len(perspectives))
collect:
	for range perspectives {
		select {
		case r := <-results:
			if r.err != nil {
				failures[r.perspective] = r.err
				continue
			}
			got[r.perspective] = r.text
		case <-joinCtx.Done():
			break collect
		}
	}

	insights := models.AIInsights{
		Analyst:    got[models.PerspectiveAnalyst],
		Contrarian: got[models.PerspectiveContrarian],
		Educator:   got[models.PerspectiveEducator],
	}
	for _, p := range perspectives {
		if _, ok := got[p]; ok {
			continue
		}
		insights.Failed = append(insights.Failed, p)
		err := failures[p]
		if err == nil {
			err = joinCtx.Err()
		}
		logger.Warn().Str("symbol", data.Symbol).Str("perspective", p).Err(err).Msg("Perspective unavailable")
	}

	generatedAt := o.now().UTC()
	insights.GeneratedAt = &generatedAt

	switch len(got) {
	case 0:
		insights.Status = models.InsightsUnavailable
		return insights
	case len(perspectives):
		insights.Status = models.InsightsReady
	default:
		insights.Status = models.InsightsPartial
	}

	verdictCtx, cancelVerdict := context.WithTimeout(ctx, o.joinTimeout)
	defer cancelVerdict()
	verdict, err := o.verdict(verdictCtx, data, &insights)
	if err != nil {
		logger.Warn().Str("symbol", data.Symbol).Err(err).Msg("Verdict generation failed, using local synthesis")
		insights.Failed = append(insights.Failed, models.PerspectiveVerdict)
		verdict = synthesize(data, &insights)
	}
	insights.FinalVerdict = verdict

	logger.Info().Str("symbol", data.Symbol).Str("status", insights.Status).
		Dur("elapsed", o.now().Sub(start)).Msg("Insights generated")
	return insights
}

func (o *Orchestrator) perspective(ctx context.Context, perspective string, data promptData) (string, error) {
	prompt, err := render(perspective, data)
	if err != nil {
		return "", err
	}
	return o.complete(ctx, models.CompletionRequest{
		Kind:        perspective,
		System:      systemPrompts[perspective],
		Prompt:      prompt,
		MaxTokens:   perspectiveMaxTokens,
		Temperature: temperature,
	})
}

// verdict prompts only with the perspectives that succeeded.
func (o *Orchestrator) verdict(ctx context.Context, data promptData, insights *models.AIInsights) (string, error) {
	succeeded := insights.Succeeded()
	for _, p := range perspectives {
		if text, ok := succeeded[p]; ok {
			data.Perspectives = append(data.Perspectives, titledText{Title: perspectiveTitles[p], Text: text})
		}
	}
	prompt, err := render(models.PerspectiveVerdict, data)
	if err != nil {
		return "", err
	}
	return o.complete(ctx, models.CompletionRequest{
		Kind:        models.PerspectiveVerdict,
		System:      systemPrompts[models.PerspectiveVerdict],
		Prompt:      prompt,
		MaxTokens:   verdictMaxTokens,
		Temperature: temperature,
	})
}

// complete calls the routed backend under its policy and sanitizes the text.
func (o *Orchestrator) complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	backend := o.backendFor(req.Kind)
	if backend == nil {
		return "", ErrNoBackend
	}
	text, err := resilience.Do(ctx, o.policies[backend.Name()], func(ctx context.Context) (string, error) {
		return backend.Complete(ctx, req)
	})
	if err != nil {
		return "", fmt.Errorf("%s via %s: %w", req.Kind, backend.Name(), err)
	}
	text = compliance.Sanitize(strings.TrimSpace(text))
	if text == "" {
		return "", fmt.Errorf("%s via %s: empty response", req.Kind, backend.Name())
	}
	return text, nil
}

// synthesize builds a deterministic verdict from the stance and the first
// sentence of each successful perspective.
func synthesize(data promptData, insights *models.AIInsights) string {
	parts := []string{fmt.Sprintf("Fundamentals for %s currently indicate a %s stance with an overall score of %.2f/10.",
		data.Symbol, data.S.OverallStance, data.S.OverallScore)}
	succeeded := insights.Succeeded()
	for _, p := range perspectives {
		if text, ok := succeeded[p]; ok {
			parts = append(parts, firstSentence(text))
		}
	}
	return compliance.Sanitize(strings.Join(parts, " "))
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	for i, r := range text {
		if (r == '.' || r == '!' || r == '?') && (i+1 == len(text) || text[i+1] == ' ' || text[i+1] == '\n') {
			return text[:i+1]
		}
	}
	return text
}
