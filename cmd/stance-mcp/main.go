// Command stance-mcp serves the Stance MCP tools over stdio.
//
// With STANCE_SERVER_URL set it forwards every JSON-RPC message to the /mcp
// endpoint of a running stance-server. Otherwise it builds the application
// in-process from the usual config file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/stance/internal/app"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path for in-process mode")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if serverURL := os.Getenv("STANCE_SERVER_URL"); serverURL != "" {
		proxy := NewStdioProxy(serverURL, 120*time.Second)
		if err := proxy.RunWithIO(ctx, os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "proxy error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	a, err := app.NewApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	// Logs go to stderr; stdout carries the protocol.
	stdio := server.NewStdioServer(a.MCPServer)
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		a.Logger.Error().Err(err).Msg("stdio server stopped")
		os.Exit(1)
	}
}
