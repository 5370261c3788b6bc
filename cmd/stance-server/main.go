// Command stance-server serves the analysis API and the MCP endpoint over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobmcallan/stance/internal/app"
	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/server"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path (default: STANCE_CONFIG, then stance.toml beside the binary)")
	showVersion := flag.Bool("version", false, "Print version information")
	grace := flag.Duration("shutdown-grace", 10*time.Second, "Time allowed for in-flight requests on shutdown")
	flag.Parse()

	if *showVersion {
		common.LoadVersionFromFile()
		fmt.Println(common.GetFullVersion())
		return
	}

	if err := run(*configPath, *grace); err != nil {
		fmt.Fprintf(os.Stderr, "stance-server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, grace time.Duration) error {
	a, err := app.NewApp(configPath)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer func() {
		a.Close()
		common.PrintShutdownBanner(a.Logger)
	}()

	common.PrintBanner(a.Config, a.Logger, common.NewStartupInfo(a.Config, a.Storage.TierNames(), a.Orchestrator.Backends()))

	a.StartWarmCache()
	if err := a.StartScheduler(); err != nil {
		a.Logger.Error().Err(err).Msg("Maintenance scheduler not started")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(a)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	port := a.Config.Server.Port
	a.Logger.Info().
		Str("api", fmt.Sprintf("http://localhost:%d", port)).
		Str("mcp", fmt.Sprintf("http://localhost:%d/mcp", port)).
		Msg("Server ready")

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		a.Logger.Info().Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error().Err(err).Msg("HTTP server shutdown incomplete")
	}
	return nil
}
