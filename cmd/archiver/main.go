package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aluiziolira/go-collect-feeds/archiver"
	"github.com/aluiziolira/go-collect-feeds/config"
)

// The archiver is meant to run from cron next to other shell tooling, so it
// is configured environment-first; flags exist for ad hoc invocations and
// override the environment.
func main() {
	os.Exit(run())
}

func run() int {
	defaultCfg := config.DefaultArchiverConfig()

	rootDefault := defaultCfg.Root
	if value, ok := config.EnvString("ARCHIVER_ROOT"); ok {
		rootDefault = value
	}
	// Age filtering is opt-in: an unset or empty ARCHIVER_MAX_AGE_DAYS means
	// every subdirectory is synced. Passing -max-age-days enables it too.
	maxAgeDefault, ageFilterDefault, err := config.AgeDaysFromEnv("ARCHIVER_MAX_AGE_DAYS", defaultCfg.MaxAgeDays)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid ARCHIVER_MAX_AGE_DAYS: %v\n", err)
		return 1
	}
	bucketDefault := ""
	if value, ok := config.EnvString("ARCHIVER_BUCKET_URI"); ok {
		bucketDefault = value
	}
	dryRunDefault := false
	if value, set, err := config.EnvBool("ARCHIVER_DRY_RUN"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid ARCHIVER_DRY_RUN: %v\n", err)
		return 1
	} else if set {
		dryRunDefault = value
	}
	syncDefault := defaultCfg.SyncCommand
	if value, ok := config.EnvString("ARCHIVER_SYNC_COMMAND"); ok {
		syncDefault = value
	}

	root := flag.String("root", rootDefault, "Directory of run subdirectories to scan")
	maxAgeDays := flag.Int("max-age-days", maxAgeDefault, "Sync only directories modified within this many days (enables age filtering)")
	noAgeFilter := flag.Bool("no-age-filter", false, "Disable age filtering and sync every directory")
	bucketURI := flag.String("bucket", bucketDefault, "Remote destination prefix, e.g. s3://my-bucket/feeds")
	dryRun := flag.Bool("dry-run", dryRunDefault, "Report intended sync operations without executing them")
	syncCommand := flag.String("sync-command", syncDefault, "External sync utility to invoke")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	ageFilter := ageFilterDefault
	flag.Visit(func(fl *flag.Flag) {
		if fl.Name == "max-age-days" {
			ageFilter = true
		}
	})
	if *noAgeFilter {
		ageFilter = false
	}

	cfg := config.DefaultArchiverConfig()
	cfg.Root = *root
	cfg.MaxAgeDays = *maxAgeDays
	cfg.AgeFilter = ageFilter
	cfg.BucketURI = *bucketURI
	cfg.DryRun = *dryRun
	cfg.SyncCommand = *syncCommand

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := archiver.New(cfg, nil)
	report, err := a.Run(ctx)
	if err != nil {
		slog.Error("archive pass failed", slog.Any("error", err))
		return 1
	}

	if report.Selected > 0 && report.Synced == 0 && !cfg.DryRun {
		// Every selected directory failed to sync; nothing was mirrored.
		return 1
	}
	return 0
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
