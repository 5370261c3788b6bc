package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/interfaces"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [symbol]",
	Short: "Print the analysis report for a company as JSON",
	Long: `Fetch, merge and score a company. --include takes a preset (basic,
financials, history, full) or a comma list of sections.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var (
	analyzeInclude  string
	analyzeInsights bool
)

func init() {
	analyzeCmd.Flags().StringVar(&analyzeInclude, "include", "", "Optional sections to include")
	analyzeCmd.Flags().BoolVar(&analyzeInsights, "insights", false, "Attach AI insights when ready within the deadline")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	symbol, err := common.NormalizeSymbol(args[0])
	if err != nil {
		return err
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	report, err := a.AnalysisService.GetReport(ctx, symbol, interfaces.ReportOptions{
		Include:  analyzeInclude,
		Insights: analyzeInsights,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
