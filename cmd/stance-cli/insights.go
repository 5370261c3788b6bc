package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/models"
)

var insightsCmd = &cobra.Command{
	Use:   "insights [symbol]",
	Short: "Generate the four AI perspectives for a company",
	Args:  cobra.ExactArgs(1),
	RunE:  runInsights,
}

func runInsights(cmd *cobra.Command, args []string) error {
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

	ai, err := a.AnalysisService.GetInsights(ctx, symbol)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s insights: %s\n", symbol, ai.Status)
	if ai.Status == models.InsightsDisabled {
		fmt.Fprintln(out, "No LLM backends are configured.")
		return nil
	}
	for _, section := range []struct{ title, body string }{
		{"Analyst", ai.Analyst},
		{"Contrarian", ai.Contrarian},
		{"Educator", ai.Educator},
		{"Verdict", ai.FinalVerdict},
	} {
		if section.body == "" {
			continue
		}
		fmt.Fprintf(out, "\n== %s ==\n%s\n", section.title, section.body)
	}
	return nil
}
