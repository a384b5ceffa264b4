package cmd

import (
	"context"
	"fmt"

	"prism/config"
	"prism/internal/event"
	"prism/internal/llm"
	"prism/internal/vault"
	"prism/pkg/cache"
	"prism/pkg/logger"
	"prism/pkg/postgres"
	"prism/pkg/telegram"
	"prism/pkg/utils"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type AppDependency struct {
	db        *postgres.DB
	cfg       *config.Config
	log       *logger.Logger
	validator *goValidator.Validate
	echo      *echo.Echo
	cache     cache.Cache
	vault     vault.Vault
	factory   llm.Factory
	bus       event.Bus
	publisher event.Publisher
}

func NewAppDependency(ctx context.Context) (*AppDependency, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}

	var sender *telegram.RateLimitedSender
	if cfg.Telegram.Enabled {
		bot, err := telegram.NewBot(&cfg.Telegram)
		if err != nil {
			log.Error("Failed to create telegram bot", zap.Error(err))
			return nil, fmt.Errorf("failed to create telegram bot: %w", err)
		}
		sender = telegram.NewRateLimitedSender(&cfg.Telegram, log, bot)
		log = log.WithAlerts(zapcore.WarnLevel, func(message string) {
			sender.SendMarkdownAsync(context.Background(), cfg.Telegram.ChatID, utils.EscapeMarkdownV2(message))
		})
	}

	credentialVault, err := vault.New(cfg.Encryption.Key, cfg.Encryption.IsProduction(), log)
	if err != nil {
		log.Error("Failed to initialise credential vault", zap.Error(err))
		return nil, err
	}

	db, err := postgres.NewDB(cfg.DB, log)
	if err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestID())

	return &AppDependency{
		cfg:       cfg,
		log:       log,
		validator: goValidator.New(),
		db:        db,
		echo:      e,
		cache:     cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval),
		vault:     credentialVault,
		factory:   llm.NewFactory(cfg.Provider, log),
		bus:       event.NewBus(log.Named("sse"), cfg.SSE.HeartbeatInterval, cfg.SSE.BufferSize),
		publisher: newPublisher(cfg, log, sender),
	}, nil
}

// newPublisher picks the durable sink and adds the Telegram notifier when a sender is configured.
func newPublisher(cfg *config.Config, log *logger.Logger, sender *telegram.RateLimitedSender) event.Publisher {
	var durable event.Publisher
	if cfg.Kafka.Enabled {
		durable = event.NewKafkaPublisher(cfg.Kafka, log.Named("kafka"))
	} else {
		durable = event.NewNopPublisher(log)
	}

	if sender == nil {
		return durable
	}
	return event.NewFanout(durable, event.NewTelegramPublisher(log.Named("telegram"), sender, cfg.Telegram.ChatID))
}

func (d *AppDependency) Close() error {
	d.log.Info("Closing app dependency")
	if err := d.publisher.Close(); err != nil {
		d.log.Warn("Failed to close event publisher", zap.Error(err))
	}
	d.bus.Close()
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
