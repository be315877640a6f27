package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/okdriver/backend/internal/config"
	"github.com/okdriver/backend/internal/database"
	"github.com/okdriver/backend/internal/logger"
	"github.com/okdriver/backend/internal/repository"
	"github.com/okdriver/backend/internal/service"
	"github.com/okdriver/backend/internal/sweeper"
)

func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Env, cfg.LogLevel).With(slog.String("process", "sweeper"))
	slog.SetDefault(log)

	log.Info("starting subscription sweeper", "env", cfg.Env)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := database.New(ctx, database.DefaultConfig(cfg.DatabaseURL), log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	subs := service.NewSubscriptionService(
		repository.NewPlanRepository(db),
		repository.NewSubscriptionRepository(db),
		nil, // cached answers re-check expiry on read
		log,
	)

	scheduler := sweeper.NewScheduler(subs, cfg.SweepInterval, log)

	if *once {
		scheduler.RunOnce(ctx)
		stats := scheduler.GetStats()
		log.Info("sweep finished", "expired", stats.LastExpired, "errors", stats.ErrorCount)
		if stats.ErrorCount > 0 {
			os.Exit(1)
		}
		return
	}

	scheduler.Start(ctx)

	stats := scheduler.GetStats()
	log.Info("sweeper stopped", "runs", stats.RunCount, "expired", stats.TotalExpired, "errors", stats.ErrorCount)
}
