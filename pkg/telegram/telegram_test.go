package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"prism/config"
	"prism/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

type fakeBot struct {
	mu   sync.Mutex
	sent []string
	to   []string
	opts [][]interface{}
	err  error
}

func (b *fakeBot) Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	b.to = append(b.to, to.Recipient())
	b.sent = append(b.sent, what.(string))
	b.opts = append(b.opts, opts)
	return &telebot.Message{}, nil
}

func TestSendMessage(t *testing.T) {
	bot := &fakeBot{}
	s := NewRateLimitedSender(&config.TelegramConfig{MaxGlobalRequestPerSecond: 10}, logger.NewNop(), bot)

	require.NoError(t, s.SendMessage(context.Background(), 99, "hello"))
	assert.Equal(t, []string{"hello"}, bot.sent)
	assert.Equal(t, []string{"99"}, bot.to)
}

func TestSendMessage_Error(t *testing.T) {
	bot := &fakeBot{err: errors.New("forbidden")}
	s := NewRateLimitedSender(&config.TelegramConfig{MaxGlobalRequestPerSecond: 10}, logger.NewNop(), bot)

	err := s.SendMessage(context.Background(), 99, "hello")
	assert.ErrorContains(t, err, "forbidden")
}

func TestSendMessage_CancelledContext(t *testing.T) {
	bot := &fakeBot{}
	s := NewRateLimitedSender(&config.TelegramConfig{MaxGlobalRequestPerSecond: 1}, logger.NewNop(), bot)
	require.NoError(t, s.SendMessage(context.Background(), 1, "first"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, s.SendMessage(ctx, 1, "second"))
	assert.Len(t, bot.sent, 1)
}

func TestSendMarkdownAsync(t *testing.T) {
	bot := &fakeBot{}
	s := NewRateLimitedSender(&config.TelegramConfig{MaxGlobalRequestPerSecond: 10}, logger.NewNop(), bot)

	s.SendMarkdownAsync(context.Background(), 5, "*bold*")
	s.Wait()

	require.Len(t, bot.sent, 1)
	assert.Equal(t, []interface{}{telebot.ModeMarkdownV2}, bot.opts[0])
}

func TestFormatTaskCompleted(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	msg := FormatTaskCompleted("Fix bug (urgent)", "coder.v2", 12, at)

	assert.Contains(t, msg, "\\#12")
	assert.Contains(t, msg, "Fix bug \\(urgent\\)")
	assert.Contains(t, msg, "coder\\.v2")
	assert.Contains(t, msg, "2024\\-05\\-01T10:00:00Z")
}

func TestFormatTaskFailed(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	msg := FormatTaskFailed("Docs", "", "rate limited!", 3, at)

	assert.Contains(t, msg, "Execution failed")
	assert.Contains(t, msg, "rate limited\\!")
	assert.NotContains(t, msg, "🤖")
}
