package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitedGenerator spaces out calls to the wrapped generator so that
// at most the configured number of requests start per minute.
type RateLimitedGenerator struct {
	next    TextGenerator
	limiter *rate.Limiter
}

// NewRateLimitedGenerator allows perMinute calls a minute with no burst.
func NewRateLimitedGenerator(next TextGenerator, perMinute int) *RateLimitedGenerator {
	if perMinute < 1 {
		perMinute = 1
	}
	return &RateLimitedGenerator{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

func (g *RateLimitedGenerator) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return ContentResponse{}, serviceError("", fmt.Errorf("rate limiter: %w", err))
	}
	return g.next.GenerateContent(ctx, prompt)
}
