package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ipwatch/internal/checker"
	"ipwatch/internal/config"
	"ipwatch/internal/logger"
	"ipwatch/internal/state"
	"ipwatch/internal/version"

	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so that deferred cleanup executes
// before the process exits
func run() int {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	mode := flag.String("mode", "", "Check mode: dns or change (overrides config)")
	watch := flag.Bool("watch", false, "Keep running and re-check on an interval")
	interval := flag.Duration("interval", 5*time.Minute, "Check interval in watch mode")
	history := flag.Int("history", 0, "Print the N most recent recorded IP changes and exit (sqlite backend)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	// Show version if requested
	if *showVersion {
		fmt.Println(version.GetInfo().String())
		return 0
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	// Apply flag overrides
	if *mode != "" {
		cfg.Mode = *mode
		if err := cfg.Validate(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
	}
	if *debug {
		cfg.Log.Level = "debug"
	}

	// Initialize logger
	log, err := logger.New(&cfg.Log)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer func(log *zap.Logger) {
		_ = log.Sync()
	}(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *history > 0 {
		return printHistory(ctx, cfg, log, *history)
	}

	// Build checker
	c, err := checker.Build(cfg, log)
	if err != nil {
		log.Error("Failed to initialize checker", zap.Error(err))
		return 1
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Error("Failed to close state store", zap.Error(err))
		}
	}()

	if !*watch {
		if err := runOnce(ctx, c, log); err != nil {
			return 1
		}
		return 0
	}

	log.Info("Starting watch mode",
		zap.String("mode", cfg.Mode),
		zap.Duration("interval", *interval))

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// First check immediately, then on each tick. Failed runs are not
	// retried; the next tick is the retry mechanism.
	_ = runOnce(ctx, c, log)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case sig := <-sigChan:
			log.Info("Received signal", zap.String("signal", sig.String()))
			return 0
		case <-ticker.C:
			_ = runOnce(ctx, c, log)
		}
	}
}

// runOnce performs a single check pass and logs the outcome
func runOnce(ctx context.Context, c *checker.Checker, log *zap.Logger) error {
	start := time.Now()

	result, err := c.Run(ctx)
	if err != nil {
		log.Error("Check failed", zap.Error(err))
		return err
	}

	log.Debug("Check completed",
		zap.String("mode", result.Mode),
		zap.String("ip", result.CurrentIP),
		zap.Bool("in_sync", result.InSync),
		zap.Duration("duration", time.Since(start)))

	return nil
}

// printHistory prints recorded IP changes from the sqlite state store
func printHistory(ctx context.Context, cfg *config.Config, log *zap.Logger, limit int) int {
	store, err := state.New(&cfg.State, log)
	if err != nil {
		log.Error("Failed to open state store", zap.Error(err))
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Failed to close state store", zap.Error(err))
		}
	}()

	s, ok := store.(*state.SQLiteStore)
	if !ok {
		_, _ = fmt.Fprintln(os.Stderr, "change history requires the sqlite state backend")
		return 1
	}

	changes, err := s.RecentChanges(ctx, limit)
	if err != nil {
		log.Error("Failed to read change history", zap.Error(err))
		return 1
	}

	for _, c := range changes {
		fmt.Printf("%s  %s -> %s\n", c.ChangedAt.Format(time.RFC3339), c.OldIP, c.NewIP)
	}

	return 0
}
