package planner

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"meal-planner-agent/internal/llm"
	"meal-planner-agent/internal/scoring"
	"meal-planner-agent/internal/shared"
)

// StageGenerator tags errors and metadata produced while drafting a plan.
const StageGenerator = "generator"

//go:embed generator_prompt.md
var generatorPrompt string

//go:embed revision_prompt.md
var revisionPrompt string

// Revision is the context handed to the generator when it has to improve
// on an earlier attempt.
type Revision struct {
	Iteration  int
	Plan       MealPlan
	Evaluation scoring.EvalResult
	Threshold  float64
}

type GeneratorResult struct {
	Plan MealPlan
	Meta shared.AgentMeta
}

// Generator drafts meal plans with a language model.
type Generator struct {
	textGen llm.TextGenerator
}

func NewGenerator(textGen llm.TextGenerator) *Generator {
	return &Generator{textGen: textGen}
}

type generatorPromptData struct {
	Request   PlanRequest
	Scheduled []scheduledMeal
}

type criterionFeedback struct {
	Title       string
	Score       float64
	Weight      float64
	Feedback    string
	Suggestions []string
}

type revisionPromptData struct {
	generatorPromptData
	Iteration        int
	Overall          float64
	Threshold        float64
	PreviousPlan     string
	Scores           []criterionFeedback
	ImprovementNotes string
}

// Generate asks the model for a plan. With a nil prior it drafts from
// scratch; otherwise it revises prior.Plan using the reviewer's feedback.
func (g *Generator) Generate(ctx context.Context, req PlanRequest, prior *Revision) (GeneratorResult, error) {
	start := time.Now()

	prompt, err := buildGeneratorPrompt(req, prior)
	if err != nil {
		return GeneratorResult{}, err
	}

	resp, err := g.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return GeneratorResult{}, asServiceError(err)
	}

	meta := shared.AgentMeta{
		AgentName: "Generator",
		Usage:     resp.Usage,
		Latency:   time.Since(start),
	}
	if prior != nil {
		meta.Iteration = prior.Iteration + 1
	}

	plan, err := DecodePlan(resp.Content)
	if err != nil {
		return GeneratorResult{Meta: meta}, err
	}

	return GeneratorResult{Plan: plan, Meta: meta}, nil
}

func buildGeneratorPrompt(req PlanRequest, prior *Revision) (string, error) {
	base := generatorPromptData{Request: req, Scheduled: scheduledMeals(req)}
	if prior == nil {
		return renderPrompt("generator", generatorPrompt, base)
	}

	previous, err := json.MarshalIndent(prior.Plan, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode previous plan: %w", err)
	}

	data := revisionPromptData{
		generatorPromptData: base,
		Iteration:           prior.Iteration + 1,
		Overall:             prior.Evaluation.Overall(),
		Threshold:           prior.Threshold,
		PreviousPlan:        string(previous),
		ImprovementNotes:    prior.Evaluation.ImprovementNotes(),
	}
	for _, s := range prior.Evaluation.Scores() {
		data.Scores = append(data.Scores, criterionFeedback{
			Title:       s.Criterion.Title(),
			Score:       s.Score,
			Weight:      s.Weight,
			Feedback:    s.Feedback,
			Suggestions: s.Suggestions,
		})
	}
	return renderPrompt("revision", revisionPrompt, data)
}

// asServiceError makes sure a failed model call surfaces as a
// *shared.ServiceError. Provider clients already wrap their own failures.
func asServiceError(err error) error {
	if shared.IsService(err) {
		return err
	}
	return &shared.ServiceError{Err: err}
}
