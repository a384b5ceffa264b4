package event

import (
	"context"
	"errors"
	"time"

	"prism/pkg/logger"
	"prism/pkg/telegram"
	"prism/pkg/utils"
)

type markdownSender interface {
	SendMarkdownAsync(ctx context.Context, chatID int64, message string)
	Wait()
}

// telegramPublisher mirrors terminal events into a chat.
type telegramPublisher struct {
	log    *logger.Logger
	sender markdownSender
	chatID int64
}

func NewTelegramPublisher(log *logger.Logger, sender markdownSender, chatID int64) Publisher {
	return &telegramPublisher{log: log, sender: sender, chatID: chatID}
}

func (t *telegramPublisher) Start(ctx context.Context) {
	t.log.InfoContext(ctx, "Telegram notifier enabled", logger.Field("chat_id", t.chatID))
}

func (t *telegramPublisher) Send(ctx context.Context, _ string, evt TaskEvent) {
	at := time.UnixMilli(evt.Timestamp)
	agent := utils.Deref(evt.AgentName)

	var msg string
	if evt.Status == StatusFailed {
		msg = telegram.FormatTaskFailed(evt.Title, agent, utils.Deref(evt.ErrorMessage), evt.TaskID, at)
	} else {
		msg = telegram.FormatTaskCompleted(evt.Title, agent, evt.TaskID, at)
	}
	t.sender.SendMarkdownAsync(ctx, t.chatID, msg)
}

func (t *telegramPublisher) PublishTaskCompleted(ctx context.Context, evt TaskEvent) {
	t.Send(ctx, "", evt)
}

func (t *telegramPublisher) PublishTaskFailed(ctx context.Context, evt TaskEvent) {
	t.Send(ctx, "", evt)
}

func (t *telegramPublisher) Close() error {
	t.sender.Wait()
	return nil
}

type fanout []Publisher

// NewFanout forwards every call to each publisher in order.
func NewFanout(publishers ...Publisher) Publisher {
	return fanout(publishers)
}

func (f fanout) Start(ctx context.Context) {
	for _, p := range f {
		p.Start(ctx)
	}
}

func (f fanout) Send(ctx context.Context, topic string, evt TaskEvent) {
	for _, p := range f {
		p.Send(ctx, topic, evt)
	}
}

func (f fanout) PublishTaskCompleted(ctx context.Context, evt TaskEvent) {
	for _, p := range f {
		p.PublishTaskCompleted(ctx, evt)
	}
}

func (f fanout) PublishTaskFailed(ctx context.Context, evt TaskEvent) {
	for _, p := range f {
		p.PublishTaskFailed(ctx, evt)
	}
}

func (f fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
