package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the company registry by symbol or name",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var searchLimit int

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Maximum results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	result, err := a.SearchService.Search(ctx, args[0], searchLimit)
	if err != nil {
		return err
	}

	if result.Count == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No companies match %q.\n", result.Query)
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tNAME\tSECTOR\tINDUSTRY")
	for _, c := range result.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Symbol, c.Name, c.Sector, c.Industry)
	}
	return tw.Flush()
}
