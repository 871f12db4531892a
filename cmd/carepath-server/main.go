package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/carepath/carepath/internal/config"
	"github.com/carepath/carepath/internal/domain/booking"
	"github.com/carepath/carepath/internal/domain/chat"
	"github.com/carepath/carepath/internal/domain/identity"
	"github.com/carepath/carepath/internal/domain/pathway"
	"github.com/carepath/carepath/internal/platform/auth"
	"github.com/carepath/carepath/internal/platform/db"
	"github.com/carepath/carepath/internal/platform/middleware"
	"github.com/carepath/carepath/internal/upstream"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "carepath-server",
		Short: "Care pathway orchestration API server",
	}

	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the orchestration server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()

	// Chat transcript storage: Postgres when configured, memory otherwise.
	var chatRepo chat.Repository
	var pool *pgxpool.Pool
	if cfg.ChatPersistenceEnabled() {
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool, chat.MigrationChatSessions); err != nil {
			logger.Fatal().Err(err).Msg("failed to apply migrations")
		}
		chatRepo = chat.NewPGRepositoryFromPool(pool)
		logger.Info().Msg("chat transcripts persisted to database")
	} else {
		chatRepo = chat.NewMemoryRepository()
		logger.Warn().Msg("DATABASE_URL not set; chat transcripts are in-memory only")
	}

	// Upstream client shared by every domain service.
	client := upstream.New(cfg.UpstreamBaseURL, cfg.UpstreamTimeout, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(auth.Middleware([]byte(cfg.AuthSecret)))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	// API group
	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	if pool != nil {
		e.GET("/health/db", db.HealthHandler(pool))
	}

	// -- Register domain handlers --

	identitySvc := identity.NewService(client, []byte(cfg.AuthSecret), logger)
	identity.NewHandler(identitySvc).RegisterRoutes(apiV1)

	pathwaySvc := pathway.NewService(client, logger)
	pathway.NewHandler(pathwaySvc).RegisterRoutes(apiV1)

	bookingSvc := booking.NewService(client, logger)
	booking.NewHandler(bookingSvc).RegisterRoutes(apiV1)

	chatSvc := chat.NewService(client, chatRepo, logger)
	chat.NewHandler(chatSvc).RegisterRoutes(apiV1)

	// Start server
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
