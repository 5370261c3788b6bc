package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/stance/internal/app"
	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/models"
	"github.com/bobmcallan/stance/internal/resilience"
	"github.com/bobmcallan/stance/internal/services/report"
)

func TestHandleAnalysis_OK(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/analysis/tcs?include=financials,shareholding&insights=true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "memory", rec.Header().Get("X-Cache-Tier"))

	var body models.AnalysisReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "TCS", body.Symbol)
	assert.Equal(t, "financials,shareholding", ts.analysis.lastOpts.Include)
	assert.True(t, ts.analysis.lastOpts.Insights)
}

func TestHandleAnalysis_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", fmt.Errorf("NOPE: %w", common.ErrSymbolNotFound), http.StatusNotFound, CodeNotFound},
		{"invalid", common.ErrInvalidSymbol, http.StatusBadRequest, CodeInvalidSymbol},
		{"provider", &common.ProviderDataError{Symbol: "TCS", Reason: "malformed payload"}, http.StatusServiceUnavailable, CodeUpstream},
		{"breaker open", fmt.Errorf("provider: %w", resilience.ErrCircuitOpen), http.StatusServiceUnavailable, CodeUpstream},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.analysis.err = tt.err

			rec := ts.do(http.MethodGet, "/analysis/TCS")
			assert.Equal(t, tt.status, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Error)
			assert.NotContains(t, body.Error, "boom", "internal causes stay in the logs")
		})
	}
}

func TestHandleAnalysis_Validation(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/analysis/").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, ts.do(http.MethodPost, "/analysis/TCS").Code)
}

func TestHandleInsights(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/insights/TCS")
	require.Equal(t, http.StatusOK, rec.Code)
	var body models.AIInsights
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, models.InsightsReady, body.Status)

	ts.analysis.err = common.ErrSymbolNotFound
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/insights/NOPE").Code)
}

func TestHandleSearch(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/search?q=tata&limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	var body models.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "TCS", body.Results[0].Symbol)

	rec = ts.do(http.MethodGet, "/search?q=")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"query":"","results":[],"count":0}`, rec.Body.String())
}

func TestHandleReport(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/report/tcs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, report.ContentTypePDF, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="TCS-stance.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), "%PDF-")

	rec = ts.do(http.MethodGet, "/report/tcs?format=MD")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, report.ContentTypeMarkdown, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="TCS-stance.md"`, rec.Header().Get("Content-Disposition"))
}

func TestHandleReport_UnsupportedFormat(t *testing.T) {
	ts := newTestServer(t, func(a *app.App) {
		a.ExportService = stubExport{err: fmt.Errorf("%w: %q", report.ErrUnsupportedFormat, "docx")}
	})

	rec := ts.do(http.MethodGet, "/report/TCS?format=docx")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), CodeUnsupportedFormat)
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t)
	policy := ts.app.Resilience.Register("provider", common.NewDefaultConfig().Resilience.Provider)

	rec := ts.do(http.MethodGet, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "1m30s", body.Uptime)
	assert.Equal(t, "closed", body.Breakers["provider"].State)

	policy.Breaker().Trip()

	rec = ts.do(http.MethodGet, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code, "degraded is still served with 200")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "open", body.Breakers["provider"].State)
	assert.NotNil(t, body.Breakers["provider"].OpenedAt)
}

func TestHandleVersion(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/version")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, common.GetVersion(), body["version"])
	assert.Contains(t, body, "commit")
}
