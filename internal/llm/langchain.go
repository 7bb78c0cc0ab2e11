package llm

import (
	"context"
	"fmt"

	"meal-planner-agent/internal/config"
	"meal-planner-agent/internal/shared"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChainClient adapts a langchaingo model to TextGenerator.
type LangChainClient struct {
	provider    string
	model       llms.Model
	modelName   string
	temperature float64
	maxTokens   int
}

// NewLangChainClient wraps model. The model name, temperature and token
// limit from cfg are sent with every call.
func NewLangChainClient(provider string, model llms.Model, cfg config.LLM) *LangChainClient {
	name := cfg.Model
	if name == "" {
		name = config.DefaultModel(provider)
	}
	return &LangChainClient{
		provider:    provider,
		model:       model,
		modelName:   name,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// NewAnthropicClient creates a Claude client.
func NewAnthropicClient(cfg config.LLM) (*LangChainClient, error) {
	opts := []anthropic.Option{anthropic.WithToken(cfg.AnthropicAPIKey)}
	if cfg.Model != "" {
		opts = append(opts, anthropic.WithModel(cfg.Model))
	} else {
		opts = append(opts, anthropic.WithModel(config.DefaultModel(config.ProviderAnthropic)))
	}

	model, err := anthropic.New(opts...)
	if err != nil {
		return nil, serviceError(config.ProviderAnthropic, fmt.Errorf("failed to create Anthropic client: %w", err))
	}
	return NewLangChainClient(config.ProviderAnthropic, model, cfg), nil
}

// NewOpenAIClient creates a client for OpenAI or any OpenAI-compatible
// endpoint set through OpenAIBaseURL.
func NewOpenAIClient(cfg config.LLM) (*LangChainClient, error) {
	opts := []openai.Option{openai.WithToken(cfg.OpenAIAPIKey)}
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.OpenAIBaseURL))
	}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	} else {
		opts = append(opts, openai.WithModel(config.DefaultModel(config.ProviderOpenAI)))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, serviceError(config.ProviderOpenAI, fmt.Errorf("failed to create OpenAI client: %w", err))
	}
	return NewLangChainClient(config.ProviderOpenAI, model, cfg), nil
}

// GenerateContent sends prompt as a single human message.
func (c *LangChainClient) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	opts := []llms.CallOption{
		llms.WithModel(c.modelName),
		llms.WithTemperature(c.temperature),
	}
	if c.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.maxTokens))
	}

	resp, err := c.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, opts...)
	if err != nil {
		return ContentResponse{}, serviceError(c.provider, fmt.Errorf("failed to generate content: %w", err))
	}

	if resp == nil || len(resp.Choices) == 0 {
		return ContentResponse{}, serviceError(c.provider, fmt.Errorf("no content generated"))
	}

	choice := resp.Choices[0]
	return ContentResponse{
		Content: choice.Content,
		Usage:   usageFromInfo(choice.GenerationInfo, c.modelName),
	}, nil
}

// usageFromInfo reads token counts from a langchaingo generation info map.
// OpenAI reports Prompt/Completion/TotalTokens, Anthropic Input/OutputTokens.
func usageFromInfo(info map[string]any, model string) shared.TokenUsage {
	u := shared.TokenUsage{Model: model}
	u.PromptTokens = firstInt(info, "PromptTokens", "InputTokens")
	u.CompletionTokens = firstInt(info, "CompletionTokens", "OutputTokens")
	u.TotalTokens = firstInt(info, "TotalTokens")
	if u.TotalTokens == 0 {
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
	}
	return u
}

func firstInt(info map[string]any, keys ...string) int {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return v
		case int32:
			return int(v)
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}
