package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/interfaces"
	"github.com/bobmcallan/stance/internal/storage"
)

// StartScheduler registers the maintenance jobs and starts the cron runner.
// Schedules use the six-field form with seconds; an empty schedule skips
// its job.
func (a *App) StartScheduler() error {
	c, err := newScheduler(a.Storage, a.AnalysisService, a.Config.Scheduler, a.Logger)
	if err != nil {
		return err
	}
	a.scheduler = c
	c.Start()
	return nil
}

func newScheduler(sm *storage.Manager, svc interfaces.AnalysisService, cfg common.SchedulerConfig, logger *common.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	if cfg.CleanupSchedule != "" {
		if _, err := c.AddFunc(cfg.CleanupSchedule, func() { runCleanup(sm, logger) }); err != nil {
			return nil, fmt.Errorf("invalid cleanup schedule %q: %w", cfg.CleanupSchedule, err)
		}
		logger.Info().Str("schedule", cfg.CleanupSchedule).Msg("Cache cleanup scheduled")
	}

	if cfg.WarmSchedule != "" && len(cfg.WarmSymbols) > 0 {
		if _, err := c.AddFunc(cfg.WarmSchedule, func() { runWarm(svc, cfg, logger) }); err != nil {
			return nil, fmt.Errorf("invalid warm schedule %q: %w", cfg.WarmSchedule, err)
		}
		logger.Info().Str("schedule", cfg.WarmSchedule).Int("symbols", len(cfg.WarmSymbols)).Msg("Cache warm scheduled")
	}

	return c, nil
}

func runCleanup(sm *storage.Manager, logger *common.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	start := time.Now()
	sm.Cleanup(ctx)
	logger.Debug().Dur("elapsed", time.Since(start)).Msg("Scheduled cache cleanup: complete")
}

func runWarm(svc interfaces.AnalysisService, cfg common.SchedulerConfig, logger *common.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	warmCache(ctx, svc, cfg, logger)
}
