package main

import (
	"context"
	"testing"

	"meal-planner-agent/internal/app"
	"meal-planner-agent/internal/config"
	"meal-planner-agent/internal/llm"
	"meal-planner-agent/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type unreadableModel struct{}

func (unreadableModel) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	return llm.ContentResponse{Content: "I cannot plan that."}, nil
}

func fakeSetup(t *testing.T, closed *bool) {
	t.Helper()
	orig := setupApp
	t.Cleanup(func() { setupApp = orig })
	setupApp = func(ctx context.Context, settingsPath string) (*app.App, func(), error) {
		return app.NewApp(config.Default(), unreadableModel{}, nil), func() { *closed = true }, nil
	}
}

func TestRunDemo_ClosesAppOnFailure(t *testing.T) {
	var closed bool
	fakeSetup(t, &closed)

	err := runDemo(context.Background(), []string{"-verbose=false"})
	require.Error(t, err)
	assert.True(t, shared.IsResponseParse(err))
	assert.True(t, closed, "model client should be closed so the cache is saved")
}

func TestRunPlan_ClosesAppOnBadRequest(t *testing.T) {
	var closed bool
	fakeSetup(t, &closed)

	err := runPlan(context.Background(), []string{"-request", "does-not-exist.yaml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid request")
	assert.True(t, closed)
}

func TestRunDemo_UnknownScenario(t *testing.T) {
	var closed bool
	fakeSetup(t, &closed)

	err := runDemo(context.Background(), []string{"-scenario", "nope"})
	require.Error(t, err)
	assert.False(t, closed)
}
