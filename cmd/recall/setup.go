package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/sandevgo/recall/internal/config"
	"github.com/sandevgo/recall/internal/providers/embedding"
	"github.com/sandevgo/recall/internal/providers/llm"
	"github.com/sandevgo/recall/internal/service/chat"
	"github.com/sandevgo/recall/internal/storage"
	"github.com/sandevgo/recall/internal/transport/cli"
	"github.com/sandevgo/recall/internal/transport/httpapi"
	"github.com/sandevgo/recall/internal/transport/telegram"
	"github.com/sandevgo/recall/pkg/log"
	"github.com/sandevgo/recall/pkg/srv"
)

func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	// init env
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)
	pgCfg := config.NewPostgresConfig(ctx)

	// 2. Storage
	stores, closeStores, err := storage.New(ctx, appCfg, pgCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	services = append(services, srv.NewCleanup(closeStores))

	// 3. Providers
	llmProvider := llm.NewOpenRouter(config.NewOpenRouterConfig(ctx))
	embedder := embedding.NewClient(config.NewEmbeddingConfig(ctx))

	// 4. Token estimator and system prompt
	estimator, err := chat.NewTokenEstimator(appCfg.TokenEstimator)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize token estimator")
	}
	prompt := chat.LoadSysPrompt(appCfg.GetSystemPromptPath())

	// 5. Chat service
	svc := chat.NewService(appCfg, llmProvider, embedder, stores, estimator, prompt)

	// 6. Background workers
	services = append(services, chat.NewJanitor(stores.Conversations, appCfg.ConversationRetentionDays))

	// 7. Transports
	transports, err := initTransports(ctx, appCfg, svc)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize transports")
	}
	services = append(services, transports...)

	return services
}

func initTransports(ctx context.Context, cfg *config.AppConfig, svc *chat.Service) ([]srv.Service, error) {
	var services []srv.Service

	if cfg.EnableHTTP {
		services = append(services, httpapi.New(config.NewServerConfig(ctx), svc))
	}

	if cfg.EnableTelegram {
		bot, err := telegram.NewBot(ctx, config.NewTelegramConfig(ctx), svc)
		if err != nil {
			return nil, err
		}
		services = append(services, bot)
	}

	if cfg.EnableCLI {
		rl, err := cli.NewReadLine(svc, cfg)
		if err != nil {
			return nil, err
		}
		services = append(services, rl)
	}

	return services, nil
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
