package app

import (
	"context"
	"os"
	"time"

	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/interfaces"
)

// warmCache pre-computes reports for the configured symbols so the first
// user query is fast.
func warmCache(ctx context.Context, svc interfaces.AnalysisService, cfg common.SchedulerConfig, logger *common.Logger) {
	// Check env var override
	if os.Getenv("STANCE_WARM_CACHE") == "off" {
		logger.Info().Msg("Warm cache: disabled via STANCE_WARM_CACHE=off")
		return
	}

	if len(cfg.WarmSymbols) == 0 {
		logger.Debug().Msg("Warm cache: no symbols configured, skipping")
		return
	}

	start := time.Now()
	logger.Info().Strs("symbols", cfg.WarmSymbols).Bool("insights", cfg.WarmInsights).Msg("Warm cache: starting")

	warmed := svc.Warm(ctx, cfg.WarmSymbols, cfg.WarmInsights)

	logger.Info().
		Int("warmed", warmed).
		Int("requested", len(cfg.WarmSymbols)).
		Dur("elapsed", time.Since(start)).
		Msg("Warm cache: complete")
}
