package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/interfaces"
	"github.com/bobmcallan/stance/internal/models"
)

const infyFixture = `{
	"name": "Infosys",
	"sector": "Technology",
	"current_price": 1500,
	"price_date": "2024-06-28",
	"financials": {
		"income_statement": {
			"Mar 2024": {"Total Revenue": 153670, "Net Income": 26233},
			"Mar 2023": {"Total Revenue": 146767, "Net Income": 24095}
		},
		"balance_sheet": {
			"Mar 2024": {"Total Assets": 137814, "Stockholders Equity": 88461, "Total Debt": 0}
		}
	}
}`

const registryCSV = `symbol,name,sector,industry
INFY,Infosys,Technology,IT Services
TCS,Tata Consultancy Services,Technology,IT Services
ITC,ITC Limited,Consumer Staples,Tobacco
`

// TestNewApp_InitializesAllServices verifies that NewApp creates an App with
// all services and the MCP server initialized and non-nil.
func TestNewApp_InitializesAllServices(t *testing.T) {
	a := newTestApp(t)

	assert.NotNil(t, a.Config)
	assert.NotNil(t, a.Logger)
	assert.NotNil(t, a.Storage)
	assert.NotNil(t, a.Provider)
	assert.NotNil(t, a.Resilience)
	assert.NotNil(t, a.AnalysisService)
	assert.NotNil(t, a.SearchService)
	assert.NotNil(t, a.ExportService)
	assert.NotNil(t, a.MCPServer)
	assert.False(t, a.StartupTime.IsZero())

	assert.Equal(t, "file", a.Provider.Name())
	assert.False(t, a.Orchestrator.Enabled(), "no API keys in the test environment")
	assert.Contains(t, a.Resilience.Names(), "provider")
}

// TestNewApp_RegistersAllTools verifies that NewApp registers all expected MCP tools.
func TestNewApp_RegistersAllTools(t *testing.T) {
	a := newTestApp(t)
	c := newInProcessClient(t, a.MCPServer)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	toolsResult, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)

	names := make([]string, 0, len(toolsResult.Tools))
	for _, tool := range toolsResult.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"get_version", "analyze_company", "get_insights", "search_companies"}, names)
}

func TestTools_GetVersion(t *testing.T) {
	a := newTestApp(t)
	c := newInProcessClient(t, a.MCPServer)

	text, isErr := callTool(t, c, "get_version", nil)
	assert.False(t, isErr)
	assert.Contains(t, text, "Stance Server")
	assert.Contains(t, text, "Status: OK")
}

func TestTools_AnalyzeCompany(t *testing.T) {
	a := newTestApp(t)
	c := newInProcessClient(t, a.MCPServer)

	text, isErr := callTool(t, c, "analyze_company", map[string]any{"symbol": "infy", "include": "financials"})
	require.False(t, isErr, text)
	assert.Contains(t, text, `"symbol": "INFY"`)
	assert.Contains(t, text, `"financials"`)
	assert.Contains(t, text, `"status": "disabled"`)
	assert.Contains(t, text, `"disclaimer"`)

	text, isErr = callTool(t, c, "analyze_company", map[string]any{"symbol": "NOPE"})
	assert.True(t, isErr)
	assert.Contains(t, text, "symbol not found")

	_, isErr = callTool(t, c, "analyze_company", map[string]any{})
	assert.True(t, isErr)
}

func TestTools_GetInsightsDisabled(t *testing.T) {
	a := newTestApp(t)
	c := newInProcessClient(t, a.MCPServer)

	text, isErr := callTool(t, c, "get_insights", map[string]any{"symbol": "INFY"})
	require.False(t, isErr, text)
	assert.Contains(t, text, "# AI Insights: INFY")
	assert.Contains(t, text, "**Status:** disabled")
}

func TestTools_SearchCompanies(t *testing.T) {
	a := newTestApp(t)
	c := newInProcessClient(t, a.MCPServer)

	text, isErr := callTool(t, c, "search_companies", map[string]any{"query": "tata", "limit": 5})
	require.False(t, isErr, text)
	assert.Contains(t, text, "| TCS | Tata Consultancy Services | Technology | IT Services |")

	text, isErr = callTool(t, c, "search_companies", map[string]any{"query": "zzz"})
	assert.False(t, isErr)
	assert.Contains(t, text, "No companies match")
}

func TestScheduler_RejectsBadSchedule(t *testing.T) {
	a := newTestApp(t)

	cfg := a.Config.Scheduler
	cfg.CleanupSchedule = "every tuesday"
	_, err := newScheduler(a.Storage, a.AnalysisService, cfg, a.Logger)
	assert.ErrorContains(t, err, "invalid cleanup schedule")

	require.NoError(t, a.StartScheduler())
	assert.Len(t, a.scheduler.Entries(), 1, "warm job needs symbols")
}

func TestWarmCache_ComputesConfiguredSymbols(t *testing.T) {
	a := newTestApp(t)

	warmCache(context.Background(), a.AnalysisService, common.SchedulerConfig{WarmSymbols: []string{"INFY", "NOPE"}}, a.Logger)

	// A warmed report is served from the cache tiers
	report, err := a.AnalysisService.GetReport(context.Background(), "INFY", interfaces.ReportOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.TierMemory, report.CacheTier)
}

// TestNewApp_CloseIsIdempotent verifies that calling Close multiple times
// does not panic.
func TestNewApp_CloseIsIdempotent(t *testing.T) {
	a, err := NewApp(writeTestConfig(t))
	require.NoError(t, err)
	require.NoError(t, a.StartScheduler())

	a.Close()
	a.Close()
}

// TestNewApp_InvalidConfigReturnsError verifies that an invalid config file
// returns a meaningful error.
func TestNewApp_InvalidConfigReturnsError(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("{{{{invalid toml"), 0644))

	_, err := NewApp(configPath)
	assert.Error(t, err)
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("STANCE_CONFIG", "/etc/stance/stance.toml")
	assert.Equal(t, "/explicit.toml", ResolveConfigPath("/explicit.toml"))
	assert.Equal(t, "/etc/stance/stance.toml", ResolveConfigPath(""))
}

// --- test helpers ---

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := NewApp(writeTestConfig(t))
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

// writeTestConfig creates a minimal stance.toml in a temp directory with a
// fixture provider and a small registry. LLM keys are cleared so insights
// are disabled.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	for _, env := range []string{"GEMINI_API_KEY", "STANCE_GEMINI_API_KEY", "GOOGLE_API_KEY", "ANTHROPIC_API_KEY", "STANCE_CLAUDE_API_KEY", "OPENAI_API_KEY", "STANCE_OPENAI_API_KEY", "GROQ_API_KEY", "STANCE_PROVIDER_URL", "STANCE_SURREAL_ADDRESS", "STANCE_DATA_PATH", "STANCE_WARM_SYMBOLS"} {
		t.Setenv(env, "")
	}

	dir := t.TempDir()
	fixtures := filepath.Join(dir, "fixtures")
	require.NoError(t, os.MkdirAll(fixtures, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(fixtures, "INFY.json"), []byte(infyFixture), 0644))
	registryPath := filepath.Join(dir, "companies.csv")
	require.NoError(t, os.WriteFile(registryPath, []byte(registryCSV), 0644))

	config := `
[provider]
type = "file"
fixtures_dir = "` + fixtures + `"

[registry]
file = "` + registryPath + `"

[cache.disk]
path = "` + filepath.Join(dir, "cache") + `"

[logging]
level = "error"
outputs = ["console"]
`
	configPath := filepath.Join(dir, "stance.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0644))
	return configPath
}

// newInProcessClient creates an mcp-go in-process client connected to the given
// MCP server. Handles initialization handshake.
func newInProcessClient(t *testing.T, mcpServer *server.MCPServer) *client.Client {
	t.Helper()

	c, err := client.NewInProcessClient(mcpServer)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}
	_, err = c.Initialize(ctx, initReq)
	require.NoError(t, err)

	t.Cleanup(func() { c.Close() })
	return c
}

func callTool(t *testing.T, c *client.Client, name string, args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	result, err := c.CallTool(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)

	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", result.Content[0])
	return strings.TrimSpace(tc.Text), result.IsError
}
