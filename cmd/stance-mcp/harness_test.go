package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/stance/internal/app"
)

const itcFixture = `{
	"name": "ITC Limited",
	"sector": "Consumer Staples",
	"current_price": 430,
	"price_date": "2024-06-28",
	"financials": {
		"income_statement": {
			"Mar 2024": {"Total Revenue": 70919, "Net Income": 20422},
			"Mar 2023": {"Total Revenue": 69446, "Net Income": 18753}
		},
		"balance_sheet": {
			"Mar 2024": {"Total Assets": 90658, "Stockholders Equity": 74569, "Total Debt": 300}
		}
	}
}`

// newTestApp builds an App over a temp fixture directory and registry.
func newTestApp(t *testing.T) *app.App {
	t.Helper()
	for _, env := range []string{"GEMINI_API_KEY", "STANCE_GEMINI_API_KEY", "GOOGLE_API_KEY", "ANTHROPIC_API_KEY", "STANCE_CLAUDE_API_KEY", "OPENAI_API_KEY", "STANCE_OPENAI_API_KEY", "GROQ_API_KEY", "STANCE_PROVIDER_URL", "STANCE_SURREAL_ADDRESS", "STANCE_DATA_PATH"} {
		t.Setenv(env, "")
	}

	dir := t.TempDir()
	fixtures := filepath.Join(dir, "fixtures")
	require.NoError(t, os.MkdirAll(fixtures, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(fixtures, "ITC.json"), []byte(itcFixture), 0644))
	registry := filepath.Join(dir, "companies.csv")
	require.NoError(t, os.WriteFile(registry, []byte("symbol,name,sector,industry\nITC,ITC Limited,Consumer Staples,Tobacco\n"), 0644))

	config := `
[provider]
type = "file"
fixtures_dir = "` + fixtures + `"

[registry]
file = "` + registry + `"

[cache.disk]
path = "` + filepath.Join(dir, "cache") + `"

[logging]
level = "error"
outputs = ["console"]
`
	configPath := filepath.Join(dir, "stance.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0644))

	a, err := app.NewApp(configPath)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}
