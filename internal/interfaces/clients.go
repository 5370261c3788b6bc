// Package interfaces defines service contracts for Stance
package interfaces

import (
	"context"

	"github.com/bobmcallan/stance/internal/models"
)

// RawDataProvider returns the raw scraped payload for a symbol. It returns
// common.ErrSymbolNotFound when the source has nothing for the symbol and a
// *common.ProviderDataError for anything else that went wrong.
type RawDataProvider interface {
	Fetch(ctx context.Context, symbol string) ([]byte, error)
	Name() string
}

// LLMBackend generates text from one model provider. Errors should be
// wrapped with common.NewTransientError or common.NewFatalError so the
// resilience policy can decide whether to retry.
type LLMBackend interface {
	Name() string
	Complete(ctx context.Context, req models.CompletionRequest) (string, error)
}
