// Package main runs the daily mission reset service: a scheduler that fires
// once a day and a coordinator that clears every user's completion flags.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"

	"daily-mission-tracker/internal/app"
	"daily-mission-tracker/internal/config"
	"daily-mission-tracker/internal/ops"
	"daily-mission-tracker/internal/reset"
)

func main() {
	configDir := flag.String("config", "configs", "directory containing config.yaml")
	once := flag.Bool("once", false, "run a single reset cycle now and exit")
	flag.Parse()

	app.SetupLogging("info")

	// Load configuration
	cfg, err := config.Load(*configDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	app.SetupLogging(cfg.Log.Level)
	log.Info().Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer a.Close()

	if users, err := a.Users.Count(ctx); err == nil {
		log.Info().Int64("users", users).Msg("Database ready")
	}

	coordinator := reset.NewCoordinator(a.ResetStore(), reset.CoordinatorConfig{
		Concurrency: cfg.Reset.Concurrency,
		TxTimeout:   cfg.Reset.TxTimeout,
	})

	if *once {
		code := runOnce(ctx, coordinator)
		a.Close()
		os.Exit(code)
	}

	at, err := config.ParseTimeOfDay(cfg.Reset.Time)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid reset time")
	}

	triggers := make(chan reset.Trigger, max(cfg.Reset.TriggerBuffer, 1))
	scheduler := reset.NewScheduler(reset.SchedulerConfig{
		At:         at,
		Location:   cfg.ResetLocation(),
		RetryDelay: cfg.Reset.RetryDelay,
	}, triggers)

	var wg sync.WaitGroup

	if cfg.Ops.Addr != "" {
		server := ops.NewServer(cfg.Ops.Addr, a.Pool)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.Run(ctx); err != nil {
				log.Error().Err(err).Msg("Ops server failed")
			}
		}()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = scheduler.Run(ctx)
		log.Info().Msg("Scheduler stopped")
	}()
	go func() {
		defer wg.Done()
		_ = coordinator.Run(ctx, triggers)
		log.Info().Msg("Coordinator stopped")
	}()

	log.Info().
		Str("reset_time", cfg.Reset.Time).
		Str("utc_offset", cfg.Reset.UTCOffset).
		Int("concurrency", cfg.Reset.Concurrency).
		Msg("Resetter is running")

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	cancel()
	wg.Wait()
	log.Info().Msg("Resetter stopped gracefully")
}

// runOnce runs a single reset cycle and returns the process exit code.
func runOnce(ctx context.Context, coordinator *reset.Coordinator) int {
	report, err := coordinator.OnTrigger(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Reset cycle failed")
		return 1
	}
	if len(report.Failed) > 0 {
		log.Error().Int("failed", len(report.Failed)).Msg("Some users were not reset")
		return 1
	}
	return 0
}
