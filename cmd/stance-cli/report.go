package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/interfaces"
)

var reportCmd = &cobra.Command{
	Use:   "report [symbol]",
	Short: "Export a PDF or Markdown report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

var (
	reportFormat   string
	reportOutput   string
	reportInsights bool
)

func init() {
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "pdf", "Report format: pdf or md")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Output file (default: SYMBOL-stance.FORMAT, - for stdout)")
	reportCmd.Flags().BoolVar(&reportInsights, "insights", false, "Include AI insights when available")
}

func runReport(cmd *cobra.Command, args []string) error {
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

	data, _, err := a.ExportService.Render(ctx, symbol, interfaces.ExportOptions{
		Format:   reportFormat,
		Insights: reportInsights,
	})
	if err != nil {
		return err
	}

	if reportOutput == "-" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	path := reportOutput
	if path == "" {
		path = fmt.Sprintf("%s-stance.%s", symbol, reportFormat)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", path, len(data))
	return nil
}
