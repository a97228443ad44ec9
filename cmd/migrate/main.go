package main

import (
	"flag"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"dingbot/internal/platform/config"
	"dingbot/internal/platform/database"
	"dingbot/internal/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.Logging)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	applied, err := database.Migrate(db)
	if err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	fmt.Printf("Migration completed successfully (%d applied)\n", len(applied))
}
