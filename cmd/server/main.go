package main

import (
	"flag"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"punchcard/internal/api"
	"punchcard/internal/api/handlers"
	"punchcard/internal/api/middleware"
	"punchcard/internal/pkg/logger"
	"punchcard/internal/platform/audit"
	"punchcard/internal/platform/auth"
	"punchcard/internal/platform/config"
	"punchcard/internal/platform/database"
	"punchcard/internal/platform/repositories"
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

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	tokenRepo := repositories.NewTokenRepository(db)

	// Services
	codec, err := auth.NewCodec(cfg.JWT)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid jwt configuration")
	}
	authService := auth.NewService(codec, userRepo, tokenRepo, cfg.JWT.RefreshRotation)
	auditLogger := audit.NewLogger(db)

	invitationExpiry, err := auth.ParseExpiry(cfg.Invitation.Expiry)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid invitation expiry")
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, auditLogger)
	employeeHandler := handlers.NewEmployeeHandler(userRepo, tokenRepo, auditLogger, invitationExpiry, cfg.Server.FrontendURL)
	healthHandler := handlers.NewHealthHandler(db)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(codec, userRepo, tokenRepo)
	rateLimiter := middleware.NewRateLimiter()

	router := api.NewRouter(&api.Dependencies{
		AuthHandler:     authHandler,
		EmployeeHandler: employeeHandler,
		HealthHandler:   healthHandler,
		AuthMiddleware:  authMiddleware,
		RateLimiter:     rateLimiter,
		AuthPerMinute:   cfg.RateLimit.AuthPerMinute,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	log.Info().Str("addr", addr).Msg("server starting")
	if err := server.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
