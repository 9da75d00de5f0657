package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aluiziolira/go-collect-feeds/collector"
	"github.com/aluiziolira/go-collect-feeds/config"
	"github.com/aluiziolira/go-collect-feeds/discovery"
	"github.com/aluiziolira/go-collect-feeds/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exit codes. Partial and total fetch failures are distinct so a cron wrapper
// can page on the latter and merely warn on the former.
const (
	exitOK             = 0
	exitInfrastructure = 1
	exitPartialFailure = 2
	exitDiscoveryError = 3
	exitTotalFailure   = 4
	exitTooFewFeeds    = 5
)

func main() {
	os.Exit(run())
}

func run() int {
	defaultCfg := config.DefaultConfig()
	outputDefault := defaultCfg.OutputRoot
	if value, ok := config.EnvString("COLLECTOR_OUTPUT_ROOT"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("COLLECTOR_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	outputRoot := flag.String("output-root", outputDefault, "Directory for run output")
	timeoutSec := flag.Int("timeout", int(defaultCfg.Timeout/time.Second), "Per-attempt HTTP timeout (seconds)")
	maxAttempts := flag.Int("max-attempts", defaultCfg.MaxAttempts, "Maximum fetch attempts per source")
	retryDelaySec := flag.Int("retry-delay", int(defaultCfg.RetryDelay/time.Second), "Base delay between attempts (seconds)")
	retryDelayMaxSec := flag.Int("retry-delay-max", int(defaultCfg.RetryDelayMax/time.Second), "Maximum delay between attempts (seconds)")
	sourcesFile := flag.String("sources", "", "YAML file with an ordered name/url source list")
	dashboardURL := flag.String("dashboard-url", "", "Discover sources from this dashboard page instead of a fixed list")
	minFeeds := flag.Int("min-feeds", defaultCfg.MinFeeds, "Minimum number of feeds expected on the dashboard")
	userAgent := flag.String("user-agent", defaultCfg.UserAgent, "User-Agent header for all requests")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	cfg.OutputRoot = *outputRoot
	cfg.Timeout = time.Duration(*timeoutSec) * time.Second
	cfg.MaxAttempts = *maxAttempts
	cfg.RetryDelay = time.Duration(*retryDelaySec) * time.Second
	cfg.RetryDelayMax = time.Duration(*retryDelayMaxSec) * time.Second
	cfg.SourcesFile = *sourcesFile
	cfg.DashboardURL = *dashboardURL
	cfg.MinFeeds = *minFeeds
	cfg.UserAgent = *userAgent
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return exitInfrastructure
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sources, code := resolveSources(ctx, cfg)
	if code != exitOK {
		return code
	}

	c := collector.New(cfg)

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(c.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	result, err := c.Run(ctx, sources)

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if serr := metricsServer.Shutdown(shutdownCtx); serr != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", serr))
		}
		cancel()
	}

	if err != nil {
		slog.Error("run failed", slog.Any("error", err))
		return exitInfrastructure
	}

	printSummary(result)

	switch {
	case result.Failed == 0:
		return exitOK
	case result.Succeeded == 0:
		return exitTotalFailure
	default:
		return exitPartialFailure
	}
}

// resolveSources picks the source list: explicit file, dashboard discovery,
// or the built-in defaults, in that order of preference.
func resolveSources(ctx context.Context, cfg *config.Config) ([]models.Source, int) {
	if cfg.SourcesFile != "" {
		sources, err := config.LoadSources(cfg.SourcesFile)
		if err != nil {
			slog.Error("loading sources", slog.Any("error", err))
			return nil, exitInfrastructure
		}
		return sources, exitOK
	}

	if cfg.DashboardURL != "" {
		finder := discovery.NewFinder(cfg)
		sources, err := finder.Discover(ctx)
		if err != nil {
			var tooFew discovery.ErrTooFewFeeds
			if errors.As(err, &tooFew) {
				slog.Error("too few feeds discovered", slog.Any("error", err))
				return nil, exitTooFewFeeds
			}
			slog.Error("dashboard discovery failed", slog.Any("error", err))
			return nil, exitDiscoveryError
		}
		return sources, exitOK
	}

	return config.DefaultSources(), exitOK
}

func printSummary(result *models.RunResult) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Collection complete")
	fmt.Printf("  Run directory: %s\n", result.Dir)
	fmt.Printf("  Sources:       %d\n", len(result.Results))
	fmt.Printf("  Succeeded:     %d\n", result.Succeeded)
	fmt.Printf("  Failed:        %d\n", result.Failed)
	fmt.Printf("  Retries:       %d\n", result.RetryCount)
	fmt.Printf("  Bytes stored:  %d\n", result.BytesTotal)
	fmt.Printf("  Duration:      %v\n", result.EndTime.Sub(result.StartTime))
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
