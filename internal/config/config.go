// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the application configuration.
type Config struct {
	OpenAIAPIKey     string
	APIBaseURL       string // empty targets the public API
	ProxyBase        string // CORS proxy prefix for feed fetches
	OutputDir        string
	MaxLinesPerChunk int
	MaxValidFeeds    int
	MaxNewsItems     int
}

// Load reads configuration from the environment. A missing .env file is not
// an error; a missing API key is.
func Load() (Config, error) {
	// .env is a local convenience, environment variables win
	_ = godotenv.Load()

	cfg := Config{
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		APIBaseURL:       os.Getenv("OPENAI_BASE_URL"),
		ProxyBase:        getEnv("FEED_PROXY_BASE", "https://api.allorigins.win/raw?url="),
		OutputDir:        getEnv("OUTPUT_DIR", "output"),
		MaxLinesPerChunk: getEnvInt("MAX_LINES_PER_CHUNK", 6),
		MaxValidFeeds:    getEnvInt("MAX_VALID_FEEDS", 3),
		MaxNewsItems:     getEnvInt("MAX_NEWS_ITEMS", 8),
	}

	if cfg.OpenAIAPIKey == "" {
		return Config{}, fmt.Errorf("OPENAI_API_KEY is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
