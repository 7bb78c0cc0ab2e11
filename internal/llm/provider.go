package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"meal-planner-agent/internal/config"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// NewFromConfig builds the configured provider client and decorates it
// with rate limiting and the response cache when those are enabled. The
// returned closer releases the client and saves the cache; it is never nil.
func NewFromConfig(ctx context.Context, cfg *config.Config) (TextGenerator, io.Closer, error) {
	var (
		gen     TextGenerator
		closers []io.Closer
	)

	switch cfg.LLM.Provider {
	case config.ProviderAnthropic:
		c, err := NewAnthropicClient(cfg.LLM)
		if err != nil {
			return nil, nil, err
		}
		gen = c
	case config.ProviderOpenAI:
		c, err := NewOpenAIClient(cfg.LLM)
		if err != nil {
			return nil, nil, err
		}
		gen = c
	case config.ProviderGemini:
		c, err := NewGeminiClient(ctx, cfg.LLM)
		if err != nil {
			return nil, nil, err
		}
		gen = c
		closers = append(closers, c)
	case config.ProviderGroq:
		gen = NewGroqClient(cfg.LLM)
	default:
		return nil, nil, fmt.Errorf("unsupported llm provider %q", cfg.LLM.Provider)
	}

	if cfg.LLM.RequestsPerMinute > 0 {
		gen = NewRateLimitedGenerator(gen, cfg.LLM.RequestsPerMinute)
	}

	if cfg.LLM.CachePath != "" {
		cached, err := NewCachedTextGenerator(gen, cfg.LLM.CachePath, cfg.LLM.Provider+"/"+cfg.LLM.Model)
		if err != nil {
			closeAll(closers)
			return nil, nil, err
		}
		gen = cached
		// Saved before the client is closed.
		closers = append([]io.Closer{cached}, closers...)
	}

	return gen, closerFunc(func() error { return closeAll(closers) }), nil
}

func closeAll(closers []io.Closer) error {
	var errs []error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
