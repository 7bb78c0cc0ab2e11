package llm

import (
	"context"
	"errors"
	"testing"

	"meal-planner-agent/internal/config"
	"meal-planner-agent/internal/shared"

	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	resp     *llms.ContentResponse
	err      error
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	for _, o := range options {
		o(&m.opts)
	}
	return m.resp, m.err
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestLangChainClient_GenerateContent(t *testing.T) {
	model := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content:        "{}",
		GenerationInfo: map[string]any{"InputTokens": 100, "OutputTokens": 20},
	}}}}

	client := NewLangChainClient(config.ProviderAnthropic, model, config.LLM{Temperature: 0.7, MaxTokens: 4096})
	resp, err := client.GenerateContent(context.Background(), "hello")
	if err != nil {
		t.Fatalf("GenerateContent failed: %v", err)
	}

	if resp.Content != "{}" {
		t.Errorf("Unexpected content: %s", resp.Content)
	}
	if resp.Usage.PromptTokens != 100 || resp.Usage.CompletionTokens != 20 || resp.Usage.TotalTokens != 120 {
		t.Errorf("Unexpected usage: %+v", resp.Usage)
	}
	if resp.Usage.Model != "claude-sonnet-4-20250514" {
		t.Errorf("Expected default model, got '%s'", resp.Usage.Model)
	}
	if model.opts.Temperature != 0.7 || model.opts.MaxTokens != 4096 {
		t.Errorf("Call options not forwarded: %+v", model.opts)
	}
	if len(model.messages) != 1 || model.messages[0].Role != llms.ChatMessageTypeHuman {
		t.Errorf("Expected a single human message, got %+v", model.messages)
	}
}

func TestLangChainClient_Failures(t *testing.T) {
	t.Run("provider error", func(t *testing.T) {
		client := NewLangChainClient(config.ProviderOpenAI, &fakeModel{err: errors.New("401 unauthorized")}, config.LLM{})
		_, err := client.GenerateContent(context.Background(), "hello")

		var svc *shared.ServiceError
		if !errors.As(err, &svc) {
			t.Fatalf("Expected service error, got %v", err)
		}
		if svc.Provider != config.ProviderOpenAI {
			t.Errorf("Expected provider 'openai', got '%s'", svc.Provider)
		}
	})

	t.Run("empty response", func(t *testing.T) {
		client := NewLangChainClient(config.ProviderOpenAI, &fakeModel{resp: &llms.ContentResponse{}}, config.LLM{})
		_, err := client.GenerateContent(context.Background(), "hello")
		if !shared.IsService(err) {
			t.Fatalf("Expected service error, got %v", err)
		}
	})
}

func TestUsageFromInfo_OpenAIKeys(t *testing.T) {
	u := usageFromInfo(map[string]any{"PromptTokens": 7, "CompletionTokens": 3, "TotalTokens": 10}, "gpt-4o-mini")
	if u.PromptTokens != 7 || u.CompletionTokens != 3 || u.TotalTokens != 10 {
		t.Errorf("Unexpected usage: %+v", u)
	}
}
