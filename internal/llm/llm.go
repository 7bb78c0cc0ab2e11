// Package llm holds the language model clients and the decorators used to
// rate limit and cache them.
package llm

import (
	"context"

	"meal-planner-agent/internal/shared"
)

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator is an interface for generating text from a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (ContentResponse, error)
}

// GeneratorFunc adapts a function to TextGenerator.
type GeneratorFunc func(ctx context.Context, prompt string) (ContentResponse, error)

func (f GeneratorFunc) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	return f(ctx, prompt)
}

func serviceError(provider string, err error) error {
	return &shared.ServiceError{Provider: provider, Err: err}
}
