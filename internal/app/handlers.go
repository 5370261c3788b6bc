package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/interfaces"
	"github.com/bobmcallan/stance/internal/models"
)

// handleGetVersion implements the get_version tool
func handleGetVersion() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := fmt.Sprintf("Stance Server\nVersion: %s\nBuild: %s\nCommit: %s\nStatus: OK",
			common.GetVersion(), common.GetBuild(), common.GetGitCommit())
		return textResult(result), nil
	}
}

// handleAnalyzeCompany implements the analyze_company tool
func handleAnalyzeCompany(svc interfaces.AnalysisService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, err := request.RequireString("symbol")
		if err != nil || symbol == "" {
			return errorResult("Error: symbol parameter is required"), nil
		}

		report, err := svc.GetReport(ctx, symbol, interfaces.ReportOptions{
			Include:  request.GetString("include", ""),
			Insights: request.GetBool("insights", false),
		})
		if err != nil {
			logger.Error().Err(err).Str("symbol", symbol).Msg("Analysis failed")
			return errorResult(fmt.Sprintf("Analysis error: %v", err)), nil
		}
		return jsonResult(report)
	}
}

// handleGetInsights implements the get_insights tool
func handleGetInsights(svc interfaces.AnalysisService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, err := request.RequireString("symbol")
		if err != nil || symbol == "" {
			return errorResult("Error: symbol parameter is required"), nil
		}

		insights, err := svc.GetInsights(ctx, symbol)
		if err != nil {
			logger.Error().Err(err).Str("symbol", symbol).Msg("Insights failed")
			return errorResult(fmt.Sprintf("Insights error: %v", err)), nil
		}
		return textResult(formatInsights(strings.ToUpper(strings.TrimSpace(symbol)), insights)), nil
	}
}

// handleSearchCompanies implements the search_companies tool
func handleSearchCompanies(svc interfaces.SearchService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || strings.TrimSpace(query) == "" {
			return errorResult("Error: query parameter is required"), nil
		}

		result, err := svc.Search(ctx, query, request.GetInt("limit", 10))
		if err != nil {
			logger.Error().Err(err).Str("query", query).Msg("Search failed")
			return errorResult(fmt.Sprintf("Search error: %v", err)), nil
		}
		return textResult(formatSearch(result)), nil
	}
}

func formatInsights(symbol string, ai *models.AIInsights) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# AI Insights: %s\n\n", symbol))
	sb.WriteString(fmt.Sprintf("**Status:** %s\n\n", ai.Status))
	for _, s := range []struct{ title, text string }{
		{"Analyst", ai.Analyst},
		{"Contrarian", ai.Contrarian},
		{"Educator", ai.Educator},
		{"Verdict", ai.FinalVerdict},
	} {
		if s.text == "" {
			continue
		}
		sb.WriteString("## " + s.title + "\n\n" + s.text + "\n\n")
	}
	if len(ai.Failed) > 0 {
		sb.WriteString("*Unavailable perspectives: " + strings.Join(ai.Failed, ", ") + "*\n")
	}
	return sb.String()
}

func formatSearch(r *models.SearchResult) string {
	if r.Count == 0 {
		return fmt.Sprintf("No companies match %q.", r.Query)
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Search: %s (%d)\n\n", r.Query, r.Count))
	sb.WriteString("| Symbol | Name | Sector | Industry |\n")
	sb.WriteString("|--------|------|--------|----------|\n")
	for _, c := range r.Results {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", c.Symbol, c.Name, c.Sector, c.Industry))
	}
	return sb.String()
}

// Helper functions

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("Error encoding result: %v", err)), nil
	}
	return textResult(string(data)), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}
