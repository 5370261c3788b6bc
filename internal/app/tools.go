package app

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// registerTools registers all MCP tools on the App's MCPServer.
func (a *App) registerTools() {
	s := a.MCPServer
	logger := a.Logger

	s.AddTool(createGetVersionTool(), handleGetVersion())
	s.AddTool(createAnalyzeCompanyTool(), handleAnalyzeCompany(a.AnalysisService, logger))
	s.AddTool(createGetInsightsTool(), handleGetInsights(a.AnalysisService, logger))
	s.AddTool(createSearchCompaniesTool(), handleSearchCompanies(a.SearchService, logger))
}

func createGetVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the Stance server version and status. Use this to verify connectivity."),
	)
}

func createAnalyzeCompanyTool() mcp.Tool {
	return mcp.NewTool("analyze_company",
		mcp.WithDescription("Run the fundamental analysis pipeline for a listed company. Returns computed ratios, the three-pillar stance score, red flags, sector benchmarks and a data integrity audit as JSON. Educational output only, never a recommendation."),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("Exchange ticker symbol (e.g., 'TCS', 'INFY', 'M&M')"),
		),
		mcp.WithString("include",
			mcp.Description("Sections to return: 'basic', 'financials', 'history', 'full', or a comma list such as 'financials,shareholding'. Default: core sections only."),
		),
		mcp.WithBoolean("insights",
			mcp.Description("Attach AI narrative insights if they are ready within the request deadline (default: false)"),
		),
	)
}

func createGetInsightsTool() mcp.Tool {
	return mcp.NewTool("get_insights",
		mcp.WithDescription("Generate AI narrative insights (analyst, contrarian and educator perspectives plus a balanced verdict) for a company. Blocks until generation completes."),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("Exchange ticker symbol"),
		),
	)
}

func createSearchCompaniesTool() mcp.Tool {
	return mcp.NewTool("search_companies",
		mcp.WithDescription("Search the company registry by symbol or name."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search text, matched against symbols and company names"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results to return (default: 10)"),
		),
	)
}
