package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bobmcallan/stance/internal/app"
	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/interfaces"
	"github.com/bobmcallan/stance/internal/models"
	"github.com/bobmcallan/stance/internal/resilience"
)

const testSecret = "test-secret"

type stubAnalysis struct {
	mu          sync.Mutex
	err         error
	lastOpts    interfaces.ReportOptions
	invalidated []string
}

func (s *stubAnalysis) GetReport(_ context.Context, symbol string, opts interfaces.ReportOptions) (*models.AnalysisReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastOpts = opts
	if s.err != nil {
		return nil, s.err
	}
	if symbol == "bad symbol!" {
		return nil, common.ErrInvalidSymbol
	}
	return &models.AnalysisReport{
		Symbol:     "TCS",
		CacheTier:  models.TierMemory,
		AIInsights: &models.AIInsights{Status: models.InsightsDisabled},
	}, nil
}

func (s *stubAnalysis) GetInsights(_ context.Context, symbol string) (*models.AIInsights, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.AIInsights{Status: models.InsightsReady, Analyst: "Margins are steady."}, nil
}

func (s *stubAnalysis) Invalidate(_ context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated = append(s.invalidated, symbol)
	return nil
}

func (s *stubAnalysis) Warm(context.Context, []string, bool) int { return 0 }

type stubSearch struct{}

func (stubSearch) Lookup(string) (models.Company, bool) { return models.Company{}, false }

func (stubSearch) Search(_ context.Context, query string, limit int) (*models.SearchResult, error) {
	results := []models.Company{{Symbol: "TCS", Name: "Tata Consultancy Services"}}
	return &models.SearchResult{Query: query, Results: results[:min(limit, 1)], Count: min(limit, 1)}, nil
}

type stubExport struct {
	err error
}

func (s stubExport) Render(_ context.Context, symbol string, opts interfaces.ExportOptions) ([]byte, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	if opts.Format == "md" {
		return []byte("# TCS\n"), "text/markdown; charset=utf-8", nil
	}
	return []byte("%PDF-1.3 stub"), "application/pdf", nil
}

type testServer struct {
	app      *app.App
	analysis *stubAnalysis
	handler  http.Handler
}

func newTestServer(t *testing.T, configure ...func(*app.App)) *testServer {
	t.Helper()
	logger := common.NewSilentLogger()
	config := common.NewDefaultConfig()
	config.Auth.JWTSecret = testSecret
	config.RateLimit = common.RateLimitConfig{RequestsPerMinute: 6000, Burst: 100}

	analysis := &stubAnalysis{}
	a := &app.App{
		Config:          config,
		Logger:          logger,
		Resilience:      resilience.NewRegistry(logger),
		AnalysisService: analysis,
		SearchService:   stubSearch{},
		ExportService:   stubExport{},
		StartupTime:     time.Now().Add(-90 * time.Second),
	}
	for _, fn := range configure {
		fn(a)
	}

	return &testServer{app: a, analysis: analysis, handler: NewServer(a).Handler()}
}

func (ts *testServer) do(method, target string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}
