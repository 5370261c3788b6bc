package server

import (
	"net/http"
	"strings"

	"github.com/bobmcallan/stance/internal/common"
)

// requireAdmin checks for a Bearer token carrying the admin role.
// Writes 401/403 and returns false when the caller is not an admin.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		w.Header().Set("WWW-Authenticate", "Bearer")
		WriteError(w, http.StatusUnauthorized, "Authentication required")
		return false
	}

	claims, err := parseAdminToken(strings.TrimPrefix(authHeader, "Bearer "), []byte(s.app.Config.Auth.JWTSecret))
	if err != nil {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		WriteError(w, http.StatusUnauthorized, "invalid or expired token")
		return false
	}

	if claims.Role != RoleAdmin {
		WriteError(w, http.StatusForbidden, "Admin access required")
		return false
	}

	s.logger.Info().Str("subject", claims.Subject).Str("path", r.URL.Path).Msg("Admin request")
	return true
}

// handleAdminInvalidate handles POST /api/admin/cache/invalidate/{symbol}.
func (s *Server) handleAdminInvalidate(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}

	symbol, err := common.NormalizeSymbol(PathParam(r, "/api/admin/cache/invalidate/", ""))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := s.app.AnalysisService.Invalidate(r.Context(), symbol); err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Cache invalidation incomplete")
		WriteError(w, http.StatusInternalServerError, "cache invalidation incomplete: "+err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"symbol": symbol, "status": "invalidated"})
}

// handleAdminCleanup handles POST /api/admin/cache/cleanup.
func (s *Server) handleAdminCleanup(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}
	if s.app.Storage == nil {
		WriteError(w, http.StatusServiceUnavailable, "cache storage not initialized")
		return
	}

	counts := s.app.Storage.Cleanup(r.Context())
	WriteJSON(w, http.StatusOK, map[string]interface{}{"removed": counts})
}
