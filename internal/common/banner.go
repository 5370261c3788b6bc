package common

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ternarybob/banner"
)

var stanceArt = []string{
	`  .d8888b.  88888888888     d8888 888b    888  .d8888b.  8888888888`,
	` d88P  Y88b     888        d88888 8888b   888 d88P  Y88b 888`,
	` Y88b.          888       d88P888 88888b  888 888    888 888`,
	`  "Y888b.       888      d88P 888 888Y88b 888 888        8888888`,
	`     "Y88b.     888     d88P  888 888 Y88b888 888        888`,
	`       "888     888    d88P   888 888  Y88888 888    888 888`,
	` Y88b  d88P     888   d8888888888 888   Y8888 Y88b  d88P 888`,
	`  "Y8888P"      888  d88P     888 888    Y888  "Y8888P"  8888888888`,
}

// StartupInfo is what the startup banner reports about a running server.
type StartupInfo struct {
	ServiceURL string
	Provider   string
	CacheTiers []string
	Backends   []string
}

// NewStartupInfo describes the server built from config.
func NewStartupInfo(config *Config, tiers, backends []string) StartupInfo {
	provider := config.Provider.Type
	if provider == "http" {
		provider += " " + config.Provider.BaseURL
	}
	return StartupInfo{
		ServiceURL: fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port),
		Provider:   provider,
		CacheTiers: tiers,
		Backends:   backends,
	}
}

type bannerWriter struct {
	w     io.Writer
	width int
}

func (b bannerWriter) rule() {
	fmt.Fprintf(b.w, "%s%s%s\n", banner.ColorCyan, strings.Repeat("═", b.width), banner.ColorReset)
}

func (b bannerWriter) line(text string) {
	fmt.Fprintf(b.w, "%s%s%s\n", banner.ColorBold+banner.ColorWhite, text, banner.ColorReset)
}

func (b bannerWriter) field(key, value string) {
	b.line(fmt.Sprintf("  %-16s %s", key, value))
}

// WriteBanner renders the startup banner for info to w.
func WriteBanner(w io.Writer, environment string, info StartupInfo) {
	b := bannerWriter{w: w, width: 70}
	backends := "none (insights disabled)"
	if len(info.Backends) > 0 {
		backends = strings.Join(info.Backends, ", ")
	}

	fmt.Fprintln(w)
	b.rule()
	fmt.Fprintln(w)
	for _, l := range stanceArt {
		b.line(l)
	}
	fmt.Fprintln(w)
	b.line("  Fundamental Analysis Pipeline")
	fmt.Fprintln(w)
	b.rule()
	fmt.Fprintln(w)
	b.field("Version", GetVersion())
	b.field("Build", GetBuild())
	b.field("Commit", GetGitCommit())
	b.field("Environment", environment)
	b.field("Service URL", info.ServiceURL)
	b.field("Provider", info.Provider)
	b.field("Cache tiers", strings.Join(info.CacheTiers, " > "))
	b.field("LLM backends", backends)
	fmt.Fprintln(w)
	b.rule()
	fmt.Fprintln(w)
}

// PrintBanner writes the startup banner to stderr and logs the same facts.
func PrintBanner(config *Config, logger *Logger, info StartupInfo) {
	WriteBanner(os.Stderr, config.Environment, info)

	logger.Info().
		Str("version", GetVersion()).
		Str("commit", GetGitCommit()).
		Str("environment", config.Environment).
		Str("service_url", info.ServiceURL).
		Str("provider", info.Provider).
		Strs("cache_tiers", info.CacheTiers).
		Strs("llm_backends", info.Backends).
		Msg("Application started")
}

// PrintShutdownBanner writes the shutdown banner to stderr.
func PrintShutdownBanner(logger *Logger) {
	b := bannerWriter{w: os.Stderr, width: 42}
	fmt.Fprintln(os.Stderr)
	b.rule()
	b.line("  STANCE: SHUTTING DOWN")
	b.rule()
	fmt.Fprintln(os.Stderr)

	logger.Info().Msg("Application shutting down")
}
