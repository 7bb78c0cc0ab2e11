package llm

import (
	"context"
	"testing"
	"time"

	"meal-planner-agent/internal/shared"
)

func TestRateLimitedGenerator(t *testing.T) {
	real := &countingGenerator{}
	limited := NewRateLimitedGenerator(real, 60)

	if _, err := limited.GenerateContent(context.Background(), "first"); err != nil {
		t.Fatalf("first call should pass immediately: %v", err)
	}

	// The next token is a second away; a shorter deadline must fail fast.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := limited.GenerateContent(ctx, "second")
	if err == nil {
		t.Fatal("Expected the limiter to reject the call, got nil")
	}
	if !shared.IsService(err) {
		t.Errorf("Expected a service error, got %T", err)
	}
	if real.calls != 1 {
		t.Errorf("Expected 1 call to reach the model, got %d", real.calls)
	}
}
