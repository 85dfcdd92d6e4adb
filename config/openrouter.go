package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	openRouterOnce   sync.Once
	openRouterConfig *OpenRouterConfig
)

type OpenRouterConfig struct {
	BaseURL        string
	APIKey         string
	EmbeddingModel string
	EmbeddingDim   int
	ChatModel      string
	VisionModel    string
	ProviderOrder  []string
	Timeout        time.Duration
}

func GetOpenRouterConfig() *OpenRouterConfig {
	openRouterOnce.Do(func() {
		loadEnv()

		openRouterConfig = &OpenRouterConfig{
			BaseURL:        getEnvDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			APIKey:         os.Getenv("OPENROUTER_API_KEY"),
			EmbeddingModel: getEnvDefault("EMBEDDING_MODEL", "qwen/qwen3-embedding-8b"),
			EmbeddingDim:   getEnvInt("EMBEDDING_DIM", 1536),
			ChatModel:      getEnvDefault("CHAT_MODEL", "google/gemini-3-flash-preview"),
			VisionModel:    getEnvDefault("VISION_MODEL", "google/gemini-3-flash-preview"),
			Timeout:        time.Duration(getEnvInt("OPENROUTER_TIMEOUT_SECONDS", 120)) * time.Second,
		}

		if order := os.Getenv("EMBEDDING_PROVIDER_ORDER"); order != "" {
			openRouterConfig.ProviderOrder = strings.Split(order, ",")
		} else {
			openRouterConfig.ProviderOrder = []string{"nebius"}
		}
	})
	return openRouterConfig
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
