package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"dingbot/internal/api"
	"dingbot/internal/api/handlers"
	"dingbot/internal/api/middleware"
	"dingbot/internal/engine/relay"
	"dingbot/internal/engine/robot"
	"dingbot/internal/platform/auth"
	"dingbot/internal/platform/config"
	"dingbot/internal/platform/database"
	"dingbot/internal/platform/repositories"
	"dingbot/internal/pkg/logger"
	"dingbot/internal/workers"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		log.Error().Err(err).Msg("fatal error")
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logr := logger.Init(cfg.Logging)

	if cfg.JWT.Secret == "" && len(cfg.APIKeys) == 0 {
		return errors.New("jwt.secret or api_keys is required to serve the API")
	}
	if len(cfg.Robots) == 0 {
		logr.Warn().Msg("no robots configured")
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	applied, err := database.Migrate(db)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	logr.Info().Strs("applied", applied).Msg("database ready")

	// Repositories
	deliveryRepo := repositories.NewDeliveryRepository(db)

	// Services
	robots := newDispatchers(cfg, logr)
	relaySvc := relay.New(robots, deliveryRepo, relay.WithLogger(logr))
	tokenSvc := auth.NewTokenService(cfg.JWT)
	apiKeys := auth.NewAPIKeyStore(cfg.APIKeys)

	// Middleware
	rateLimiter := middleware.NewRateLimiter(cfg.Robot.RatePerMinute)

	router := api.NewRouter(&api.Dependencies{
		MessageHandler:  handlers.NewMessageHandler(relaySvc, rateLimiter),
		DeliveryHandler: handlers.NewDeliveryHandler(deliveryRepo),
		HealthHandler:   handlers.NewHealthHandler(deliveryRepo, len(robots)),
		MetricsHandler:  handlers.NewMetricsHandler(deliveryRepo, cfg.RobotNames()),
		AuthMiddleware:  middleware.NewAuthMiddleware(tokenSvc, apiKeys),
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      middleware.RequestLogging(logr)(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logr.Info().Str("addr", httpServer.Addr).Strs("robots", cfg.RobotNames()).Msg("server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		rateLimiter.CleanupLoop(gctx.Done())
		return nil
	})
	g.Go(func() error {
		workers.RunPruner(gctx, deliveryRepo, cfg.Retention.Deliveries, cfg.Retention.PruneInterval, logr)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logr.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newDispatchers(cfg *config.Config, logr zerolog.Logger) map[string]*robot.Dispatcher {
	robots := make(map[string]*robot.Dispatcher, len(cfg.Robots))
	for _, name := range cfg.RobotNames() {
		creds := cfg.Robots[name]
		robots[name] = robot.New(creds.AccessToken, creds.Secret,
			robot.WithEndpoint(cfg.Robot.Endpoint),
			robot.WithConnectTimeout(cfg.Robot.ConnectTimeout),
			robot.WithTimeout(cfg.Robot.RequestTimeout),
			robot.WithLogger(logr.With().Str("robot", name).Logger()),
		)
	}
	return robots
}
