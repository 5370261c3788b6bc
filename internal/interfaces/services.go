package interfaces

import (
	"context"

	"github.com/bobmcallan/stance/internal/models"
)

// AnalysisService runs the analysis pipeline behind the cache
type AnalysisService interface {
	// GetReport returns the numeric report, with insights attached when
	// requested and available within the request deadline
	GetReport(ctx context.Context, symbol string, opts ReportOptions) (*models.AnalysisReport, error)

	// GetInsights blocks until insights are generated or ctx ends
	GetInsights(ctx context.Context, symbol string) (*models.AIInsights, error)

	// Invalidate drops every cached value for the symbol
	Invalidate(ctx context.Context, symbol string) error

	// Warm pre-computes reports for the given symbols
	Warm(ctx context.Context, symbols []string, withInsights bool) int
}

// ReportOptions configures a report request
type ReportOptions struct {
	Include  string
	Insights bool
}

// CompanyLookup resolves a symbol to its registry entry
type CompanyLookup interface {
	Lookup(symbol string) (models.Company, bool)
}

// SearchService searches the company registry
type SearchService interface {
	CompanyLookup
	Search(ctx context.Context, query string, limit int) (*models.SearchResult, error)
}

// ExportService renders reports as documents
type ExportService interface {
	// Render returns the document bytes and its content type
	Render(ctx context.Context, symbol string, opts ExportOptions) ([]byte, string, error)
}

// ExportOptions configures document export
type ExportOptions struct {
	Insights bool
	Format   string // pdf (default) or md
}
