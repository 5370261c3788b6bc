package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bobmcallan/stance/internal/common"
)

// Policy guards one external dependency.
type Policy struct {
	name           string
	breaker        *Breaker
	timeout        time.Duration
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *common.Logger
}

// Option customises a Policy
type Option func(*policyOptions)

type policyOptions struct {
	now func() time.Time
}

// WithClock injects the time source used by the breaker
func WithClock(now func() time.Time) Option {
	return func(o *policyOptions) { o.now = now }
}

// NewPolicy creates a policy from config.
func NewPolicy(name string, cfg common.PolicyConfig, logger *common.Logger, opts ...Option) *Policy {
	o := policyOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Policy{
		name:           name,
		breaker:        NewBreaker(cfg.FailureThreshold, cfg.GetCooldown(), o.now),
		timeout:        cfg.GetTimeout(),
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.GetInitialBackoff(),
		maxBackoff:     cfg.GetMaxBackoff(),
		logger:         logger,
	}
}

// Name returns the dependency name
func (p *Policy) Name() string { return p.name }

// Breaker exposes the policy's breaker
func (p *Policy) Breaker() *Breaker { return p.breaker }

// Execute runs fn under the breaker with a per-attempt timeout, retrying
// transient failures with exponential backoff. Fatal errors trip the breaker
// and are returned without retry. A missing or invalid symbol is an answer,
// not a dependency failure, and leaves the breaker healthy.
func (p *Policy) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	attempt := 0
	op := func() error {
		if err := p.breaker.Allow(); err != nil {
			return backoff.Permanent(err)
		}
		attempt++

		attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := fn(attemptCtx)
		cancel()

		switch {
		case err == nil:
			p.breaker.Success()
			return nil
		case ctx.Err() != nil:
			p.breaker.Release()
			return backoff.Permanent(ctx.Err())
		case errors.Is(err, common.ErrSymbolNotFound), errors.Is(err, common.ErrInvalidSymbol):
			p.breaker.Success()
			return backoff.Permanent(err)
		case common.IsFatal(err):
			p.breaker.Trip()
			p.logger.Warn().Str("dependency", p.name).Err(err).Msg("Fatal dependency error, breaker opened")
			return backoff.Permanent(err)
		default:
			p.breaker.Failure()
			return err
		}
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.initialBackoff
	eb.MaxInterval = p.maxBackoff
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.maxRetries)), ctx)

	err := backoff.RetryNotify(op, b, func(err error, wait time.Duration) {
		p.logger.Debug().
			Str("dependency", p.name).
			Int("attempt", attempt).
			Dur("wait", wait).
			Err(err).
			Msg("Retrying dependency call")
	})
	if err != nil && attempt > 1 {
		p.logger.Warn().Str("dependency", p.name).Int("attempts", attempt).Err(err).Msg("Dependency call failed after retries")
	}
	return err
}

// Do runs fn through p and returns its value.
func Do[T any](ctx context.Context, p *Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Execute(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
