package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetFromCache(t *testing.T) {
	c := NewCache(time.Minute, time.Minute)
	c.Set("models:1", []string{"gpt-4o", "gpt-4o-mini"}, time.Minute)
	c.Set("wrong-type", 42, time.Minute)

	models, ok := GetFromCache[[]string](c, "models:1")
	assert.True(t, ok)
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, models)

	_, ok = GetFromCache[[]string](c, "wrong-type")
	assert.False(t, ok)

	_, ok = GetFromCache[[]string](c, "missing")
	assert.False(t, ok)

	c.Delete("models:1")
	_, ok = GetFromCache[[]string](c, "models:1")
	assert.False(t, ok)
}

func TestNewCache_Independent(t *testing.T) {
	a := NewCache(time.Minute, time.Minute)
	b := NewCache(time.Minute, time.Minute)
	a.Set("k", "v", time.Minute)

	_, ok := b.Get("k")
	assert.False(t, ok)
}
