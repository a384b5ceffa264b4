package telegram

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"prism/config"
	"prism/pkg/logger"
	"prism/pkg/utils"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"
)

type sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// NewBot builds an offline bot: it only sends, it never polls for updates.
func NewBot(cfg *config.TelegramConfig) (*telebot.Bot, error) {
	bot, err := telebot.NewBot(telebot.Settings{
		Token:   cfg.BotToken,
		Offline: true,
		Client:  &http.Client{Timeout: cfg.TimeoutDuration},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return bot, nil
}

// RateLimitedSender sends chat messages under a global request budget.
type RateLimitedSender struct {
	log           *logger.Logger
	bot           sender
	globalLimiter *rate.Limiter
	wg            sync.WaitGroup
}

func NewRateLimitedSender(cfg *config.TelegramConfig, log *logger.Logger, bot sender) *RateLimitedSender {
	limit := cfg.MaxGlobalRequestPerSecond
	if limit <= 0 {
		limit = 1
	}
	return &RateLimitedSender{
		log:           log,
		bot:           bot,
		globalLimiter: rate.NewLimiter(rate.Limit(limit), limit),
	}
}

func (t *RateLimitedSender) SendMessage(ctx context.Context, chatID int64, message string, opts ...interface{}) error {
	if err := t.globalLimiter.Wait(ctx); err != nil {
		t.log.ErrorContext(ctx, "Failed to wait for global rate limit", logger.ErrorField(err))
		return err
	}
	if _, err := t.bot.Send(&telebot.Chat{ID: chatID}, message, opts...); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// SendMarkdownAsync sends in the background; errors are logged only.
func (t *RateLimitedSender) SendMarkdownAsync(ctx context.Context, chatID int64, message string) {
	sendCtx := context.WithoutCancel(ctx)
	t.wg.Add(1)
	utils.GoSafe(func() {
		defer t.wg.Done()
		if err := t.SendMessage(sendCtx, chatID, message, telebot.ModeMarkdownV2); err != nil {
			t.log.ErrorContext(sendCtx, "Failed to send notification", logger.ErrorField(err))
		}
	}, func(err error) {
		t.log.Error("Panic while sending notification", logger.ErrorField(err))
	})
}

// Wait blocks until every async send has returned.
func (t *RateLimitedSender) Wait() {
	t.wg.Wait()
}
