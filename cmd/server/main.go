package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"taskchat/internal/api"
	"taskchat/internal/auth"
	"taskchat/internal/chat"
	"taskchat/internal/config"
	"taskchat/internal/db"
	"taskchat/internal/provider"
	"taskchat/internal/tools"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yml", "path to the config file")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err), zap.String("path", *configPath))
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		logger.Fatal("failed to initialize database",
			zap.Error(err),
			zap.String("dbPath", cfg.Database.Path))
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers := buildProviders(ctx, cfg, logger)
	if len(providers) == 0 {
		logger.Fatal("no AI providers could be initialized")
	}

	fallback := provider.NewFallback(providers, cfg.Providers.Timeout, logger)
	toolset := tools.New(database, logger)
	orchestrator := chat.New(database, toolset, fallback, cfg.Chat, logger)

	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.ExpireHours)
	authService := auth.NewService(database, jwtService, logger)

	handler := api.NewHandler(database, authService, toolset, orchestrator, logger)
	router := api.NewRouter(handler, jwtService, logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	go func() {
		logger.Info("starting server", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}

// buildProviders constructs an adapter for each configured credential, in
// fallback priority order.
func buildProviders(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) []provider.Provider {
	var providers []provider.Provider

	if cfg.Providers.OpenAI.APIKey != "" {
		p, err := provider.NewOpenAI(
			cfg.Providers.OpenAI.APIKey,
			cfg.Providers.OpenAI.BaseURL,
			cfg.Providers.OpenAI.Model,
			logger,
		)
		if err != nil {
			logger.Warn("failed to initialize openai provider", zap.Error(err))
		} else {
			providers = append(providers, p)
			logger.Info("openai provider initialized", zap.String("model", cfg.Providers.OpenAI.Model))
		}
	}

	if cfg.Providers.GoogleAI.APIKey != "" {
		p, err := provider.NewGoogleAI(ctx,
			cfg.Providers.GoogleAI.APIKey,
			cfg.Providers.GoogleAI.Model,
			cfg.Providers.GoogleAI.MaxAttempts,
			cfg.Providers.GoogleAI.BaseDelay,
			logger,
		)
		if err != nil {
			logger.Warn("failed to initialize googleai provider", zap.Error(err))
		} else {
			providers = append(providers, p)
			logger.Info("googleai provider initialized", zap.String("model", cfg.Providers.GoogleAI.Model))
		}
	}

	return providers
}
