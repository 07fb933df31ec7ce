package main

import (
	"context"
	"flag"
	"time"

	"github.com/rs/zerolog/log"

	"punchcard/internal/pkg/logger"
	"punchcard/internal/platform/config"
	"punchcard/internal/platform/database"
	"punchcard/internal/platform/repositories"
	"punchcard/internal/workers"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger.Init(cfg.Logging)

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	tokenRepo := repositories.NewTokenRepository(db)

	log.Info().Msg("starting background workers")

	runTokenSweep(tokenRepo)
}

func runTokenSweep(store *repositories.TokenRepository) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := workers.SweepExpiredTokens(ctx, store); err != nil {
			log.Error().Err(err).Msg("token sweep failed")
		}
		cancel()
	}
}
