package server

import (
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/resilience"
)

// registerRoutes sets up all API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)

	// Analysis
	mux.HandleFunc("/analysis/", s.handleAnalysis)
	mux.HandleFunc("/insights/", s.handleInsights)
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/report/", s.handleReport)

	// Admin
	mux.HandleFunc("/api/admin/cache/invalidate/", s.handleAdminInvalidate)
	mux.HandleFunc("/api/admin/cache/cleanup", s.handleAdminCleanup)

	// MCP (streamable HTTP, stateless)
	if s.app.MCPServer != nil {
		mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(s.app.MCPServer, mcpserver.WithStateLess(true)))
	}
}

// HealthResponse reports service status and per-dependency breaker state.
type HealthResponse struct {
	Status     string                              `json:"status"`
	Uptime     string                              `json:"uptime"`
	CacheTiers []string                            `json:"cache_tiers,omitempty"`
	Breakers   map[string]resilience.BreakerStatus `json:"breakers"`
}

// handleHealth reports "degraded", still with 200, while any breaker is open.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}

	resp := HealthResponse{
		Status:   "ok",
		Uptime:   time.Since(s.app.StartupTime).Round(time.Second).String(),
		Breakers: map[string]resilience.BreakerStatus{},
	}
	if s.app.Resilience != nil {
		resp.Breakers = s.app.Resilience.Status()
		if s.app.Resilience.AnyOpen() {
			resp.Status = "degraded"
		}
	}
	if s.app.Storage != nil {
		resp.CacheTiers = s.app.Storage.TierNames()
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, common.VersionInfo())
}
