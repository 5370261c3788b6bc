// Package report renders analysis reports as Markdown or PDF documents
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/interfaces"
	"github.com/bobmcallan/stance/internal/models"
)

// Document formats
const (
	FormatPDF      = "pdf"
	FormatMarkdown = "md"
)

// Content types returned alongside the document bytes
const (
	ContentTypePDF      = "application/pdf"
	ContentTypeMarkdown = "text/markdown; charset=utf-8"
)

// ErrUnsupportedFormat is returned for formats other than pdf and md.
var ErrUnsupportedFormat = errors.New("unsupported report format")

// Service implements ExportService
type Service struct {
	analysis interfaces.AnalysisService
	logger   *common.Logger
	now      func() time.Time
}

var _ interfaces.ExportService = (*Service)(nil)

// NewService creates a new report service
func NewService(analysis interfaces.AnalysisService, logger *common.Logger) *Service {
	return &Service{
		analysis: analysis,
		logger:   logger,
		now:      time.Now,
	}
}

// Render builds the full report for symbol and returns it in the requested
// format. With insights requested it waits for generation within ctx.
func (s *Service) Render(ctx context.Context, symbol string, opts interfaces.ExportOptions) ([]byte, string, error) {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = FormatPDF
	}
	if format != FormatPDF && format != FormatMarkdown {
		return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, opts.Format)
	}

	report, err := s.analysis.GetReport(ctx, symbol, interfaces.ReportOptions{Include: "full"})
	if err != nil {
		return nil, "", err
	}

	var insights *models.AIInsights
	if opts.Insights {
		insights, err = s.analysis.GetInsights(ctx, report.Symbol)
		if err != nil {
			// A document without narrative is still useful
			s.logger.Warn().Str("symbol", report.Symbol).Err(err).Msg("Insights unavailable for export")
			insights = &models.AIInsights{Status: models.InsightsUnavailable}
		}
	}

	markdown := formatReport(report, insights, s.now())
	if format == FormatMarkdown {
		return []byte(markdown), ContentTypeMarkdown, nil
	}

	var chartPNG []byte
	if len(report.Price.History) >= minChartPoints {
		chartPNG, err = RenderPriceChart(report.Symbol, report.Price.History)
		if err != nil {
			s.logger.Warn().Str("symbol", report.Symbol).Err(err).Msg("Price chart skipped")
			chartPNG = nil
		}
	}

	pdf, err := markdownToPDF(markdown, report.Symbol, chartPNG)
	if err != nil {
		s.logger.Error().Str("symbol", report.Symbol).Err(err).Msg("Failed to render PDF")
		return nil, "", err
	}
	s.logger.Info().Str("symbol", report.Symbol).Int("bytes", len(pdf)).Bool("chart", chartPNG != nil).Msg("Report exported")
	return pdf, ContentTypePDF, nil
}
