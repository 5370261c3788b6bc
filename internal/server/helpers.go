package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/resilience"
	"github.com/bobmcallan/stance/internal/services/report"
)

// ErrorResponse is the standard error format for REST API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Machine-readable error codes
const (
	CodeInvalidSymbol     = "invalid_symbol"
	CodeNotFound          = "not_found"
	CodeUpstream          = "upstream_unavailable"
	CodeTimeout           = "timeout"
	CodeUnsupportedFormat = "unsupported_format"
	CodeRateLimited       = "rate_limited"
	CodeInternal          = "internal"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteErrorWithCode writes a JSON error response with an error code.
func WriteErrorWithCode(w http.ResponseWriter, statusCode int, message, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// statusForError maps the service error taxonomy onto HTTP responses.
func statusForError(err error) (int, string, string) {
	var providerErr *common.ProviderDataError
	switch {
	case errors.Is(err, common.ErrInvalidSymbol):
		return http.StatusBadRequest, err.Error(), CodeInvalidSymbol
	case errors.Is(err, report.ErrUnsupportedFormat):
		return http.StatusBadRequest, err.Error(), CodeUnsupportedFormat
	case errors.Is(err, common.ErrSymbolNotFound):
		return http.StatusNotFound, err.Error(), CodeNotFound
	case errors.Is(err, resilience.ErrCircuitOpen), errors.As(err, &providerErr):
		return http.StatusServiceUnavailable, "data source unavailable, try again later", CodeUpstream
	case errors.Is(err, common.ErrRateLimitExceeded):
		return http.StatusTooManyRequests, "rate limit exceeded", CodeRateLimited
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "analysis timed out, try again later", CodeTimeout
	default:
		return http.StatusInternalServerError, "internal server error", CodeInternal
	}
}

// writeServiceError writes the response for a service-layer error. Server
// faults are logged with their cause; client faults are not.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, message, code := statusForError(err)
	if status >= 500 {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("Request failed")
	}
	WriteErrorWithCode(w, status, message, code)
}

// RequireMethod validates the HTTP method and returns true if it matches.
// If it doesn't match, it writes a 405 response and returns false.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// PathParam extracts a path parameter from the URL path.
// For a pattern like /analysis/{symbol}, calling PathParam(r, "/analysis/", "")
// extracts the {symbol} part.
func PathParam(r *http.Request, prefix, suffix string) string {
	path := r.URL.Path
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := path[len(prefix):]
	if suffix != "" {
		idx := strings.Index(rest, suffix)
		if idx < 0 {
			return rest
		}
		return rest[:idx]
	}
	// No suffix, return up to the next /
	if idx := strings.Index(rest, "/"); idx >= 0 {
		return rest[:idx]
	}
	return rest
}

// queryBool reads a boolean query parameter; anything unparseable is false.
func queryBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

// queryInt reads an integer query parameter with a default.
func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}
