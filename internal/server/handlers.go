package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/bobmcallan/stance/internal/interfaces"
	"github.com/bobmcallan/stance/internal/models"
	"github.com/bobmcallan/stance/internal/services/report"
)

// handleAnalysis handles GET /analysis/{symbol}?include=&insights=
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	symbol := PathParam(r, "/analysis/", "")
	if symbol == "" {
		WriteErrorWithCode(w, http.StatusBadRequest, "symbol is required", CodeInvalidSymbol)
		return
	}

	rep, err := s.app.AnalysisService.GetReport(r.Context(), symbol, interfaces.ReportOptions{
		Include:  r.URL.Query().Get("include"),
		Insights: queryBool(r, "insights"),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("X-Cache-Tier", string(rep.CacheTier))
	WriteJSON(w, http.StatusOK, rep)
}

// handleInsights handles GET /insights/{symbol}. It blocks until generation
// completes or the request is cancelled.
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	symbol := PathParam(r, "/insights/", "")
	if symbol == "" {
		WriteErrorWithCode(w, http.StatusBadRequest, "symbol is required", CodeInvalidSymbol)
		return
	}

	insights, err := s.app.AnalysisService.GetInsights(r.Context(), symbol)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, insights)
}

// handleSearch handles GET /search?q=&limit=
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		WriteJSON(w, http.StatusOK, &models.SearchResult{Results: []models.Company{}})
		return
	}

	result, err := s.app.SearchService.Search(r.Context(), query, queryInt(r, "limit", 10))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// handleReport handles GET /report/{symbol}?insights=&format=
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	symbol := PathParam(r, "/report/", "")
	if symbol == "" {
		WriteErrorWithCode(w, http.StatusBadRequest, "symbol is required", CodeInvalidSymbol)
		return
	}

	format := strings.ToLower(r.URL.Query().Get("format"))
	doc, contentType, err := s.app.ExportService.Render(r.Context(), symbol, interfaces.ExportOptions{
		Insights: queryBool(r, "insights"),
		Format:   format,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	ext := report.FormatPDF
	if contentType == report.ContentTypeMarkdown {
		ext = report.FormatMarkdown
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-stance.%s"`, strings.ToUpper(symbol), ext))
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}
