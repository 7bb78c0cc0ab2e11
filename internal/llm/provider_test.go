package llm

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"meal-planner-agent/internal/config"
)

func TestNewFromConfig_DecoratesGroq(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = config.ProviderGroq
	cfg.LLM.GroqAPIKey = "k"
	cfg.LLM.RequestsPerMinute = 30
	cfg.LLM.CachePath = filepath.Join(t.TempDir(), "cache.json")

	gen, closer, err := NewFromConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}

	cached, ok := gen.(*CachedTextGenerator)
	if !ok {
		t.Fatalf("Expected cache as outermost decorator, got %T", gen)
	}
	if _, ok := cached.realGen.(*RateLimitedGenerator); !ok {
		t.Errorf("Expected rate limiter under the cache, got %T", cached.realGen)
	}

	if err := closer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := os.Stat(cfg.LLM.CachePath); err != nil {
		t.Errorf("Expected cache file to be written on close: %v", err)
	}
}

func TestNewFromConfig_UnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = "mistral"

	if _, _, err := NewFromConfig(context.Background(), cfg); err == nil {
		t.Fatal("Expected an error, got nil")
	}
}
