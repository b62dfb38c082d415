package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bd "github.com/bjaus/botdispatch"
)

func TestLoadFrom(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadFrom(map[string]string{})
		require.NoError(t, err)

		assert.Equal(t, 16, cfg.MaxConcurrency)
		assert.True(t, cfg.ExclusiveAwaiting)
		assert.Equal(t, 30*time.Second, cfg.PollTimeout)
		assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
		assert.Empty(t, cfg.Token)
		assert.Empty(t, cfg.HandlersFile)
	})

	t.Run("overrides", func(t *testing.T) {
		cfg, err := LoadFrom(map[string]string{
			"BOT_TOKEN":                   "123:abc",
			"DISPATCH_MAX_CONCURRENCY":    "4",
			"DISPATCH_EXCLUSIVE_AWAITING": "false",
			"DISPATCH_POLL_TIMEOUT":       "5s",
			"DISPATCH_HANDLERS_FILE":      "handlers.yaml",
			"DISPATCH_ALLOWED_CHATS":      "10,-100",
			"LOG_LEVEL":                   "debug",
		})
		require.NoError(t, err)

		assert.Equal(t, "123:abc", cfg.Token)
		assert.Equal(t, 4, cfg.MaxConcurrency)
		assert.False(t, cfg.ExclusiveAwaiting)
		assert.Equal(t, 5*time.Second, cfg.PollTimeout)
		assert.Equal(t, "handlers.yaml", cfg.HandlersFile)
		assert.Equal(t, []int64{10, -100}, cfg.AllowedChats)
		assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	})

	t.Run("malformed number", func(t *testing.T) {
		_, err := LoadFrom(map[string]string{"DISPATCH_MAX_CONCURRENCY": "many"})
		require.Error(t, err)
	})

	t.Run("zero concurrency", func(t *testing.T) {
		_, err := LoadFrom(map[string]string{"DISPATCH_MAX_CONCURRENCY": "0"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DISPATCH_MAX_CONCURRENCY")
	})
}

func TestRouterOptions(t *testing.T) {
	cfg := Config{MaxConcurrency: 3, ExclusiveAwaiting: true}

	r := bd.New(bd.NewCollection(), cfg.RouterOptions()...)
	assert.Equal(t, 3, r.Pool().Limit())
}

func TestAccept(t *testing.T) {
	raw := map[string]string{
		"message in 10": `{"update_id": 1, "message": {"chat": {"id": 10}}}`,
		"message in 11": `{"update_id": 2, "message": {"chat": {"id": 11}}}`,
		"chosen result": `{"update_id": 3, "chosen_inline_result": {"result_id": "r"}}`,
		"poll answer":   `{"update_id": 4, "poll_answer": {"poll_id": "p"}}`,
	}
	match := func(d bd.Discriminator, name string) bool {
		v, err := bd.JSONInspector().Inspect([]byte(raw[name]))
		require.NoError(t, err)
		return d.Match(v)
	}

	t.Run("kinds only", func(t *testing.T) {
		accept := Config{}.Accept(bd.KindMessage, bd.KindInlineQuery)
		assert.True(t, match(accept, "message in 11"))
		assert.True(t, match(accept, "chosen result"), "chosen results follow inline queries")
		assert.False(t, match(accept, "poll answer"))
	})

	t.Run("allowed chats", func(t *testing.T) {
		accept := Config{AllowedChats: []int64{10}}.Accept(bd.KindMessage)
		assert.True(t, match(accept, "message in 10"))
		assert.False(t, match(accept, "message in 11"))
	})
}
