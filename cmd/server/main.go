package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/tradevine/journal-api/internal/auth"
	"github.com/tradevine/journal-api/internal/config"
	"github.com/tradevine/journal-api/internal/database"
	"github.com/tradevine/journal-api/internal/ratelimit"
	"github.com/tradevine/journal-api/internal/trades"
	"github.com/tradevine/journal-api/internal/webhook"
	"github.com/tradevine/journal-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the webhook ingestion server with graceful
// shutdown support
func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Initialize router with panic recovery that preserves the
	// response envelope
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(middleware.Recovery())

	// Initialize services and handlers
	authService := auth.NewService(cfg.Auth.JWTSecret)
	authHandlers := auth.NewGinHandlers(authService)
	// Register test credentials
	authService.RegisterAPICredentials(auth.TestAPIKey, auth.TestAPISecret)

	tradesService := trades.NewService(db)
	tradesHandlers := trades.NewGinHandlers(tradesService)

	credentialTTL, _ := cfg.CredentialCacheTTL()
	credentialCache := auth.NewCredentialCache(credentialTTL)
	verifier := auth.NewVerifier(credentialCache, tradesService.Database(), nil)
	secretHandlers := auth.NewSecretHandlers(verifier)

	limiter := ratelimit.New(cfg.Webhook.RatePerMinute, cfg.Webhook.RateBurst)
	janitorCtx, janitorCancel := context.WithCancel(context.Background())
	defer janitorCancel()
	go limiter.Start(janitorCtx)

	responseTTL, _ := cfg.ResponseCacheTTL()
	webhookService := webhook.NewService(webhook.Config{
		Store:       tradesService.Database(),
		Credentials: verifier,
		RateLimiter: limiter,
		Cache:       webhook.NewResponseCache(responseTTL, cfg.Webhook.SweepThreshold),
		CredentialStats: func() interface{} {
			return verifier.CacheStats()
		},
	})
	webhookHandlers := webhook.NewGinHandlers(webhookService)

	// Setup API routes
	setupRoutes(router, cfg.Auth.JWTSecret, authHandlers, webhookHandlers, tradesHandlers, secretHandlers)

	// Create server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	zlog.Info().Str("port", cfg.Server.Port).Msg("Webhook server started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// It groups routes by functionality and applies appropriate middleware:
// - Webhook routes: Public, authenticated per-request by webhook secret
// - Auth routes: Public endpoints for token issuance
// - Journal routes: Protected by JWT authentication
func setupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authHandlers *auth.GinHandlers,
	webhookHandlers *webhook.GinHandlers,
	tradesHandlers *trades.GinHandlers,
	secretHandlers *auth.SecretHandlers,
) {
	// TradingView alert receiver and its diagnostics surface
	router.POST("/webhook", webhookHandlers.ReceiveHandler())
	router.GET("/webhook", webhookHandlers.HealthHandler())

	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Journal routes
		journal := v1.Group("")
		journal.Use(middleware.JWTAuth(jwtSecret))
		{
			journal.GET("/trades", tradesHandlers.ListTradesHandler())
			journal.POST("/webhook-secret", secretHandlers.RotateSecretHandler())
			journal.GET("/webhook-secret", secretHandlers.GetSecretHandler())
		}
	}
}
