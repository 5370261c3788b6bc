package provider

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bobmcallan/stance/internal/common"
)

// FileProvider serves payloads from {dir}/{SYMBOL}.json. It backs offline
// mode and the CLI.
type FileProvider struct {
	dir string
}

// NewFileProvider creates a provider reading fixtures from dir
func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{dir: dir}
}

// Name returns the provider name
func (p *FileProvider) Name() string { return "file" }

// Fetch reads the fixture for symbol. Symbols are validated upstream, so
// the name cannot escape dir.
func (p *FileProvider) Fetch(ctx context.Context, symbol string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(p.dir, filepath.Base(symbol)+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", symbol, common.ErrSymbolNotFound)
	}
	if err != nil {
		return nil, &common.ProviderDataError{Symbol: symbol, Reason: "fixture unreadable", Err: err}
	}
	return data, nil
}
