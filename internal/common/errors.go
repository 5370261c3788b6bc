package common

import (
	"errors"
	"fmt"
)

var (
	// ErrSymbolNotFound means the provider has no data at all for the symbol.
	ErrSymbolNotFound = errors.New("symbol not found")

	// ErrInvalidSymbol means the requested symbol failed validation.
	ErrInvalidSymbol = errors.New("invalid symbol")

	// ErrRateLimitExceeded is returned to callers rejected before any work is done.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// ProviderDataError means the raw payload could not be obtained or interpreted,
// so no report can be produced.
type ProviderDataError struct {
	Symbol    string
	Reason    string
	Transient bool
	Err       error
}

func (e *ProviderDataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider data error for %s: %s: %v", e.Symbol, e.Reason, e.Err)
	}
	return fmt.Sprintf("provider data error for %s: %s", e.Symbol, e.Reason)
}

func (e *ProviderDataError) Unwrap() error { return e.Err }

// IsTransient reports whether a retry could succeed.
func (e *ProviderDataError) IsTransient() bool { return e.Transient }

// LLMError classifies a model backend failure as transient (retryable) or
// fatal (trips the breaker without retry).
type LLMError struct {
	Backend string
	Fatal   bool
	Err     error
}

func (e *LLMError) Error() string {
	kind := "transient"
	if e.Fatal {
		kind = "fatal"
	}
	return fmt.Sprintf("%s llm error (%s): %v", kind, e.Backend, e.Err)
}

func (e *LLMError) Unwrap() error { return e.Err }

// NewTransientError wraps err as a retryable backend failure.
func NewTransientError(backend string, err error) error {
	return &LLMError{Backend: backend, Err: err}
}

// NewFatalError wraps err as a non-retryable backend failure.
func NewFatalError(backend string, err error) error {
	return &LLMError{Backend: backend, Fatal: true, Err: err}
}

// IsFatal reports whether err must not be retried. Non-transient provider
// errors and fatal LLM errors qualify; a missing symbol does too.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSymbolNotFound) || errors.Is(err, ErrInvalidSymbol) {
		return true
	}
	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		return llmErr.Fatal
	}
	var pErr *ProviderDataError
	if errors.As(err, &pErr) {
		return !pErr.Transient
	}
	return false
}

// ClassifyStatus wraps a backend failure by its HTTP status. Rate limits,
// server errors and unknown statuses (0) are transient; other client errors
// such as a bad key or an unknown model are fatal.
func ClassifyStatus(backend string, status int, err error) error {
	if status >= 400 && status < 500 && status != 408 && status != 409 && status != 429 {
		return NewFatalError(backend, err)
	}
	return NewTransientError(backend, err)
}
