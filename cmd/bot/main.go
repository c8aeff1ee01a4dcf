package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fleetdesk/internal/backend"
	"fleetdesk/internal/bot"
	"fleetdesk/internal/config"
	"fleetdesk/internal/events"
	"fleetdesk/internal/logging"
	"fleetdesk/internal/metrics"
	"fleetdesk/internal/ops"
	"fleetdesk/internal/repository"
	"fleetdesk/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, loadErr := loadConfigAndLogger()
	if loadErr != nil {
		return loadErr
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	redisClient, stateService := initStateService(ctx, cfg, &logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	apiClient := backend.NewClient(cfg.Backend, &logger)
	if redisClient != nil {
		apiClient.UseRedisCache(redisClient, cfg.Backend.CacheTTL)
	}

	eventBus := events.NewEventBus()
	events.SubscribeAudit(eventBus, &logger)

	botMetrics := bot.NewMetrics(prometheus.DefaultRegisterer)

	if cfg.Monitoring.PrometheusEnabled {
		opsServer := startOps(cfg, redisClient, &logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = opsServer.Shutdown(shutdownCtx)
		}()
	}

	return startBot(ctx, cfg, stateService, apiClient, eventBus, botMetrics, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "bot-main").Logger()

	return cfg, logger, closer, nil
}

func initStateService(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, *service.StateService) {
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if errPing := repository.Ping(ctx, redisClient); errPing != nil {
			logger.Warn().Err(errPing).Msg("Redis unavailable")
		}
	}

	primaryRepo := repository.NewRedisChatStateRepository(redisClient, cfg.Redis.StateTTL)
	fallbackRepo := repository.NewMemoryChatStateRepository(cfg.Redis.StateTTL)
	stateRepo := repository.NewFailoverChatStateRepository(primaryRepo, fallbackRepo, logger)
	return redisClient, service.NewStateService(stateRepo, logger)
}

func startOps(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) *ops.Server {
	checks := map[string]ops.Check{}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return repository.Ping(ctx, redisClient)
		}
	}

	opsServer := ops.NewServer(cfg.Monitoring.Port, prometheus.DefaultGatherer, checks, logger)
	go func() {
		if err := opsServer.Start(); err != nil {
			logger.Error().Err(err).Msg("Ops server error")
		}
	}()
	return opsServer
}

func startBot(
	ctx context.Context,
	cfg *config.Config,
	stateService *service.StateService,
	apiClient *backend.Client,
	eventBus *events.EventBus,
	botMetrics *bot.Metrics,
	logger *zerolog.Logger,
) error {
	if cfg.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		logger.Error().Msg("Set the bot token in config.yaml")
		return errors.New("telegram bot token is not configured")
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create BotAPI")
		return err
	}
	botAPI.Debug = cfg.Telegram.Debug

	botWrapper := bot.NewBotWrapper(botAPI)
	tgService := service.NewTelegramService(botWrapper)

	telegramBot, err := bot.NewBot(tgService, cfg, stateService, apiClient, apiClient, eventBus, botMetrics, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create bot")
		return err
	}

	go func() {
		<-ctx.Done()
		telegramBot.Stop()
	}()

	logger.Info().Str("backend", cfg.Backend.BaseURL).Msg("Bot started")
	telegramBot.Start(ctx)

	logger.Info().Msg("Shutdown complete.")
	return nil
}
