package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/stance/internal/common"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Maintain the analysis cache",
}

var cacheCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove expired entries from every cache tier",
	Args:  cobra.NoArgs,
	RunE:  runCacheCleanup,
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate [symbol]",
	Short: "Drop every cached value for a symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheInvalidate,
}

func init() {
	cacheCmd.AddCommand(cacheCleanupCmd, cacheInvalidateCmd)
}

func runCacheCleanup(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	removed := a.Storage.Cleanup(ctx)
	tiers := make([]string, 0, len(removed))
	for tier := range removed {
		tiers = append(tiers, tier)
	}
	sort.Strings(tiers)
	for _, tier := range tiers {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d removed\n", tier, removed[tier])
	}
	return nil
}

func runCacheInvalidate(cmd *cobra.Command, args []string) error {
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

	if err := a.AnalysisService.Invalidate(ctx, symbol); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s invalidated\n", symbol)
	return nil
}
