// Package provider fetches the raw scraped company payload, either from the
// scraper service over HTTP or from fixture files on disk.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/stance/internal/common"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 2 // requests per second
)

// HTTPProvider implements interfaces.RawDataProvider against the scraper service
type HTTPProvider struct {
	client  *resty.Client
	apiKey  string
	limiter *rate.Limiter
	logger  *common.Logger
}

// Option configures the provider
type Option func(*HTTPProvider)

// WithAPIKey sends the key in X-API-Key on every request
func WithAPIKey(key string) Option {
	return func(p *HTTPProvider) {
		p.apiKey = key
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) Option {
	return func(p *HTTPProvider) {
		p.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) Option {
	return func(p *HTTPProvider) {
		if requestsPerSecond > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) Option {
	return func(p *HTTPProvider) {
		if timeout > 0 {
			p.client.SetTimeout(timeout)
		}
	}
}

// NewHTTPProvider creates a provider for the scraper at baseURL
func NewHTTPProvider(baseURL string, opts ...Option) *HTTPProvider {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(DefaultTimeout)
	client.SetHeader("Accept", "application/json")

	p := &HTTPProvider{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider name
func (p *HTTPProvider) Name() string { return "http" }

// Fetch returns the raw company payload for symbol
func (p *HTTPProvider) Fetch(ctx context.Context, symbol string) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	path := "/company/" + url.PathEscape(symbol)
	req := p.client.R().SetContext(ctx)
	if p.apiKey != "" {
		req.SetHeader("X-API-Key", p.apiKey)
	}

	start := time.Now()
	resp, err := req.Get(path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, ctxErr
		}
		return nil, &common.ProviderDataError{Symbol: symbol, Reason: "request failed", Transient: true, Err: err}
	}

	p.logger.Debug().Str("symbol", symbol).Int("status", resp.StatusCode()).
		Dur("elapsed", time.Since(start)).Msg("Provider request")

	status := resp.StatusCode()
	switch {
	case status == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", symbol, common.ErrSymbolNotFound)
	case status == http.StatusTooManyRequests || status >= 500:
		return nil, &common.ProviderDataError{Symbol: symbol, Reason: fmt.Sprintf("upstream status %d", status), Transient: true}
	case status < 200 || status >= 300:
		return nil, &common.ProviderDataError{Symbol: symbol, Reason: fmt.Sprintf("upstream status %d", status)}
	}

	return resp.Body(), nil
}
