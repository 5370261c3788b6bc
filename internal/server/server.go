package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/bobmcallan/stance/internal/app"
	"github.com/bobmcallan/stance/internal/common"
)

// exportHeadroom is added to the request deadline for responses that
// render a report after the analysis completes.
const exportHeadroom = 60 * time.Second

// Server serves the stance HTTP API and the MCP endpoint.
type Server struct {
	app    *app.App
	http   *http.Server
	logger *common.Logger
}

// NewServer builds the routed, middleware-wrapped API server for a.
func NewServer(a *app.App) *Server {
	s := &Server{app: a, logger: a.Logger}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	deadline := a.Config.Server.GetRequestTimeout()
	s.http = &http.Server{
		Addr:              net.JoinHostPort(a.Config.Server.Host, strconv.Itoa(a.Config.Server.Port)),
		Handler:           applyMiddleware(mux, a.Logger, a.Config),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       deadline,
		WriteTimeout:      deadline + exportHeadroom,
		IdleTimeout:       2 * deadline,
	}
	return s
}

// Handler exposes the wrapped mux, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start listens until Shutdown is called; it returns http.ErrServerClosed then.
func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.http.Addr).
		Dur("write_timeout", s.http.WriteTimeout).
		Msg("HTTP server listening")
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
