package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"dingbot/internal/platform/config"
	"dingbot/internal/platform/database"
	"dingbot/internal/platform/repositories"
	"dingbot/internal/pkg/logger"
	"dingbot/internal/workers"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	once := flag.Bool("once", false, "Prune once and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logr := logger.Init(cfg.Logging)

	db, err := database.Open(cfg.Database)
	if err != nil {
		logr.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if _, err := database.Migrate(db); err != nil {
		logr.Fatal().Err(err).Msg("failed to migrate database")
	}

	repo := repositories.NewDeliveryRepository(db)

	if *once {
		deleted, err := workers.PruneDeliveries(repo, cfg.Retention.Deliveries, time.Now())
		if err != nil {
			logr.Fatal().Err(err).Msg("failed to prune deliveries")
		}
		logr.Info().Int64("deleted", deleted).Msg("pruned deliveries")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logr.Info().
		Dur("retention", cfg.Retention.Deliveries).
		Dur("interval", cfg.Retention.PruneInterval).
		Msg("starting delivery pruner")
	workers.RunPruner(ctx, repo, cfg.Retention.Deliveries, cfg.Retention.PruneInterval, logr)
}
