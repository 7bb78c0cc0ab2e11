package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"meal-planner-agent/internal/config"
	"meal-planner-agent/internal/shared"
)

func TestGroqClient_GenerateContent(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer groq_key" {
			t.Errorf("Expected bearer token, got '%s'", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"model": "llama-3.3-70b-versatile",
			"choices": [{"message": {"content": "{\"ok\": true}"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
		}`))
	}))
	defer server.Close()

	client := NewGroqClient(config.LLM{
		GroqAPIKey:  "groq_key",
		GroqBaseURL: server.URL,
		Temperature: 0.3,
		MaxTokens:   256,
	})

	resp, err := client.GenerateContent(context.Background(), "plan my week")
	if err != nil {
		t.Fatalf("GenerateContent failed: %v", err)
	}
	if resp.Content != `{"ok": true}` {
		t.Errorf("Unexpected content: %s", resp.Content)
	}
	if resp.Usage.TotalTokens != 17 || resp.Usage.PromptTokens != 12 || resp.Usage.Model != "llama-3.3-70b-versatile" {
		t.Errorf("Unexpected usage: %+v", resp.Usage)
	}

	if gotBody["model"] != "llama-3.3-70b-versatile" {
		t.Errorf("Expected default model in request, got %v", gotBody["model"])
	}
	if gotBody["temperature"] != 0.3 {
		t.Errorf("Expected temperature 0.3, got %v", gotBody["temperature"])
	}
	if gotBody["max_tokens"] != float64(256) {
		t.Errorf("Expected max_tokens 256, got %v", gotBody["max_tokens"])
	}
	messages := gotBody["messages"].([]any)
	if messages[0].(map[string]any)["content"] != "plan my week" {
		t.Errorf("Prompt not forwarded: %v", messages)
	}
}

func TestGroqClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":"slow down"}`, "status=429"},
		{"no choices", http.StatusOK, `{"choices": []}`, "no content generated"},
		{"bad json", http.StatusOK, `not json`, "failed to decode response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewGroqClient(config.LLM{GroqAPIKey: "k", GroqBaseURL: server.URL})
			_, err := client.GenerateContent(context.Background(), "hi")
			if err == nil {
				t.Fatal("Expected an error, got nil")
			}
			if !shared.IsService(err) {
				t.Errorf("Expected a service error, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Expected error containing '%s', got '%s'", tt.wantMsg, err.Error())
			}
		})
	}
}
