package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tcsFixture = `{
	"name": "Tata Consultancy Services",
	"sector": "Technology",
	"current_price": 3900,
	"price_date": "2024-06-28",
	"financials": {
		"income_statement": {
			"Mar 2024": {"Total Revenue": 240893, "Net Income": 45908},
			"Mar 2023": {"Total Revenue": 225458, "Net Income": 42147}
		},
		"balance_sheet": {
			"Mar 2024": {"Total Assets": 146449, "Stockholders Equity": 90489, "Total Debt": 8021}
		}
	}
}`

// execute runs the root command with args and returns stdout. Package flag
// state is reset first since cobra keeps parsed values between runs.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	analyzeInclude, analyzeInsights = "", false
	searchLimit = 10
	reportFormat, reportOutput, reportInsights = "pdf", "", false
	tokenSubject, tokenTTL = "operator", 0
	logLevel, timeout = "error", time.Minute

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeTestConfig(t *testing.T) (string, string) {
	t.Helper()
	for _, env := range []string{"GEMINI_API_KEY", "STANCE_GEMINI_API_KEY", "GOOGLE_API_KEY", "ANTHROPIC_API_KEY", "STANCE_CLAUDE_API_KEY", "OPENAI_API_KEY", "STANCE_OPENAI_API_KEY", "GROQ_API_KEY", "STANCE_PROVIDER_URL", "STANCE_SURREAL_ADDRESS", "STANCE_DATA_PATH", "STANCE_JWT_SECRET"} {
		t.Setenv(env, "")
	}

	dir := t.TempDir()
	fixtures := filepath.Join(dir, "fixtures")
	require.NoError(t, os.MkdirAll(fixtures, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(fixtures, "TCS.json"), []byte(tcsFixture), 0644))
	registry := filepath.Join(dir, "companies.csv")
	require.NoError(t, os.WriteFile(registry, []byte("symbol,name,sector,industry\nTCS,Tata Consultancy Services,Technology,IT Services\nTATAMOTORS,Tata Motors,Automobile,Automobiles\n"), 0644))

	config := `
[provider]
type = "file"
fixtures_dir = "` + fixtures + `"

[registry]
file = "` + registry + `"

[cache.disk]
path = "` + filepath.Join(dir, "cache") + `"

[auth]
jwt_secret = "cli-secret"
token_expiry = "30m"
`
	configPath := filepath.Join(dir, "stance.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0644))
	return configPath, dir
}

func TestAnalyzeCommand(t *testing.T) {
	cfg, _ := writeTestConfig(t)

	out, err := execute(t, "analyze", "tcs", "--config", cfg, "--include", "financials")
	require.NoError(t, err)

	var report map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.JSONEq(t, `"TCS"`, string(report["symbol"]))
	assert.Contains(t, report, "financials")
	assert.Contains(t, report, "stance")
}

func TestAnalyzeCommand_Errors(t *testing.T) {
	cfg, _ := writeTestConfig(t)

	_, err := execute(t, "analyze", "NOPE", "--config", cfg)
	assert.Error(t, err)

	_, err = execute(t, "analyze", "bad symbol!", "--config", cfg)
	assert.Error(t, err)

	_, err = execute(t, "analyze", "--config", cfg)
	assert.Error(t, err, "symbol argument is required")
}

func TestInsightsCommand_Disabled(t *testing.T) {
	cfg, _ := writeTestConfig(t)

	out, err := execute(t, "insights", "TCS", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "TCS insights: disabled")
}

func TestSearchCommand(t *testing.T) {
	cfg, _ := writeTestConfig(t)

	out, err := execute(t, "search", "tata", "--config", cfg, "--limit", "1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "SYMBOL"))

	out, err = execute(t, "search", "zzz", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "No companies match \"zzz\".\n", out)
}

func TestReportCommand(t *testing.T) {
	cfg, dir := writeTestConfig(t)

	out, err := execute(t, "report", "TCS", "--config", cfg, "--format", "md", "-o", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "# Tata Consultancy Services (TCS)")

	target := filepath.Join(dir, "tcs.pdf")
	out, err = execute(t, "report", "TCS", "--config", cfg, "-o", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+target)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	_, err = execute(t, "report", "TCS", "--config", cfg, "--format", "docx", "-o", "-")
	assert.Error(t, err)
}

func TestCacheCommands(t *testing.T) {
	cfg, _ := writeTestConfig(t)

	_, err := execute(t, "analyze", "TCS", "--config", cfg)
	require.NoError(t, err)

	out, err := execute(t, "cache", "invalidate", "tcs", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "TCS invalidated\n", out)

	out, err = execute(t, "cache", "cleanup", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "disk: 0 removed")
	assert.Contains(t, out, "memory: 0 removed")
}

func TestTokenCommand(t *testing.T) {
	cfg, _ := writeTestConfig(t)

	out, err := execute(t, "token", "--config", cfg, "--subject", "ops")
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(strings.TrimSpace(out), claims, func(*jwt.Token) (any, error) {
		return []byte("cli-secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	assert.Equal(t, "ops", claims["sub"])
	assert.Equal(t, "admin", claims["role"])

	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), exp.Time, time.Minute)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Stance version "))
}
