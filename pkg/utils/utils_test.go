package utils

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"prism/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		limit int
		want  string
	}{
		{name: "shorter than limit", input: "abc", limit: 5, want: "abc"},
		{name: "exact limit", input: "abcde", limit: 5, want: "abcde"},
		{name: "ascii cut", input: "abcdef", limit: 3, want: "abc"},
		{name: "multibyte cut keeps whole runes", input: "héllo wörld", limit: 4, want: "héll"},
		{name: "non positive limit disables", input: "abc", limit: 0, want: "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateRunes(tt.input, tt.limit))
		})
	}

	long := strings.Repeat("x", 5000)
	assert.Len(t, TruncateRunes(long, 3000), 3000)
}

func TestGoSafe_RecoversPanic(t *testing.T) {
	var (
		mu  sync.Mutex
		got error
	)
	done := make(chan struct{})

	GoSafe(func() {
		panic("boom")
	}, func(err error) {
		mu.Lock()
		got = err
		mu.Unlock()
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("panic callback was not invoked")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Error(t, got)
	assert.Contains(t, got.Error(), "boom")
}

func TestElapsedMillis(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 1500, ElapsedMillis(start, start.Add(1500*time.Millisecond)))
	assert.Equal(t, 0, ElapsedMillis(start, start.Add(-time.Second)))
}

func TestDeref(t *testing.T) {
	assert.Equal(t, "", Deref[string](nil))
	assert.Equal(t, 7, Deref(ToPointer(7)))
}

func TestCleanToValidUTF8(t *testing.T) {
	assert.Equal(t, "ok 한국어", CleanToValidUTF8("ok \xff한국어\xfe"))
	assert.Equal(t, "plain", CleanToValidUTF8("plain"))
}

func TestEscapeMarkdownV2(t *testing.T) {
	assert.Equal(t, `v1\.2 \(beta\) \- done\!`, EscapeMarkdownV2("v1.2 (beta) - done!"))
}

func TestShouldContinue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	assert.True(t, ShouldContinue(ctx, logger.NewNop()))
	cancel()
	assert.False(t, ShouldContinue(ctx, logger.NewNop()))
}
