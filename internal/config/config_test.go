package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "test-key", cfg.OpenAIAPIKey)
	assert.Equal(t, "https://api.allorigins.win/raw?url=", cfg.ProxyBase)
	assert.Equal(t, "output", cfg.OutputDir)
	assert.Equal(t, 6, cfg.MaxLinesPerChunk)
	assert.Equal(t, 3, cfg.MaxValidFeeds)
	assert.Equal(t, 8, cfg.MaxNewsItems)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("FEED_PROXY_BASE", "https://proxy.example/fetch?u=")
	t.Setenv("MAX_LINES_PER_CHUNK", "4")
	t.Setenv("OUTPUT_DIR", "/tmp/episodes")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://proxy.example/fetch?u=", cfg.ProxyBase)
	assert.Equal(t, 4, cfg.MaxLinesPerChunk)
	assert.Equal(t, "/tmp/episodes", cfg.OutputDir)
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("MAX_LINES_PER_CHUNK", "not-a-number")
	t.Setenv("MAX_VALID_FEEDS", "-2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.MaxLinesPerChunk)
	assert.Equal(t, 3, cfg.MaxValidFeeds)
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}
