package planner

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"meal-planner-agent/internal/llm"
	"meal-planner-agent/internal/scoring"
	"meal-planner-agent/internal/shared"
)

// StageEvaluator tags errors and metadata produced while scoring a plan.
const StageEvaluator = "evaluator"

//go:embed evaluator_prompt.md
var evaluatorPrompt string

type EvaluatorResult struct {
	Evaluation scoring.EvalResult
	Meta       shared.AgentMeta
}

// Evaluator asks a language model to grade a plan against the weighted
// criteria and aggregates the answer locally.
type Evaluator struct {
	textGen llm.TextGenerator
	weights scoring.Weights
}

// NewEvaluator builds an Evaluator. The weights are copied.
func NewEvaluator(textGen llm.TextGenerator, weights scoring.Weights) *Evaluator {
	return &Evaluator{textGen: textGen, weights: weights.Clone()}
}

type evaluatorCriterion struct {
	Name        scoring.Criterion
	Weight      float64
	Description string
}

type evaluatorPromptData struct {
	Request   PlanRequest
	Scheduled []scheduledMeal
	Plan      string
	Criteria  []evaluatorCriterion
}

type wireCriterionScore struct {
	Score       *scoreNumber `json:"score"`
	Feedback    flexText     `json:"feedback"`
	Suggestions flexList     `json:"suggestions"`
}

// scoreNumber is a criterion score: a JSON number, or a string that is
// entirely a number with an optional "/100" suffix ("85", "-20", "85/100").
type scoreNumber float64

func (n *scoreNumber) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = scoreNumber(f)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("score is not a number: %s", data)
	}
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(str), "/100"))
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return fmt.Errorf("score %q is not a number", str)
	}
	*n = scoreNumber(f)
	return nil
}

// Evaluate scores plan for req. A reply that omits a criterion or scores
// one outside [0,100] is a *shared.ResponseParseError.
func (e *Evaluator) Evaluate(ctx context.Context, plan MealPlan, req PlanRequest) (EvaluatorResult, error) {
	start := time.Now()

	prompt, err := e.buildPrompt(plan, req)
	if err != nil {
		return EvaluatorResult{}, err
	}

	resp, err := e.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return EvaluatorResult{}, asServiceError(err)
	}

	meta := shared.AgentMeta{
		AgentName: "Evaluator",
		Usage:     resp.Usage,
		Latency:   time.Since(start),
	}

	eval, err := e.parse(resp.Content)
	if err != nil {
		return EvaluatorResult{Meta: meta}, err
	}

	return EvaluatorResult{Evaluation: eval, Meta: meta}, nil
}

func (e *Evaluator) parse(content string) (scoring.EvalResult, error) {
	var raw map[string]json.RawMessage
	if err := DecodePayload(StageEvaluator, content, &raw); err != nil {
		return scoring.EvalResult{}, err
	}

	fail := func(format string, args ...any) error {
		return &shared.ResponseParseError{
			Stage:  StageEvaluator,
			Reason: fmt.Sprintf(format, args...),
			Raw:    content,
		}
	}

	var notes string
	if msg, ok := raw["improvement_notes"]; ok {
		var text flexText
		if err := json.Unmarshal(msg, &text); err != nil {
			return scoring.EvalResult{}, fail("improvement_notes is not text")
		}
		notes = string(text)
	}

	scores := make([]scoring.CriterionScore, 0, len(scoring.AllCriteria()))
	for _, c := range scoring.AllCriteria() {
		msg, ok := lookupCriterion(raw, c)
		if !ok {
			return scoring.EvalResult{}, fail("missing score for %s", c)
		}

		var w wireCriterionScore
		if err := json.Unmarshal(msg, &w); err != nil {
			// Some models answer with a bare number.
			var n scoreNumber
			if numErr := json.Unmarshal(msg, &n); numErr != nil {
				return scoring.EvalResult{}, fail("malformed entry for %s: %v", c, err)
			}
			w.Score = &n
		}
		if w.Score == nil {
			return scoring.EvalResult{}, fail("missing score for %s", c)
		}

		score := float64(*w.Score)
		if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 || score > 100 {
			return scoring.EvalResult{}, fail("score for %s out of range: %v", c, score)
		}

		scores = append(scores, scoring.CriterionScore{
			Criterion:   c,
			Score:       score,
			Feedback:    strings.TrimSpace(string(w.Feedback)),
			Suggestions: []string(w.Suggestions),
		})
	}

	return scoring.NewEvalResult(scores, e.weights, notes)
}

// lookupCriterion finds c in the reply, also accepting the title form
// ("Inventory Optimization") some models echo back.
func lookupCriterion(raw map[string]json.RawMessage, c scoring.Criterion) (json.RawMessage, bool) {
	if msg, ok := raw[string(c)]; ok {
		return msg, true
	}
	for key, msg := range raw {
		norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), " ", "_")
		if norm == string(c) {
			return msg, true
		}
	}
	return nil, false
}

func (e *Evaluator) buildPrompt(plan MealPlan, req PlanRequest) (string, error) {
	encoded, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode plan: %w", err)
	}

	data := evaluatorPromptData{
		Request:   req,
		Scheduled: scheduledMeals(req),
		Plan:      string(encoded),
	}
	for _, c := range scoring.AllCriteria() {
		data.Criteria = append(data.Criteria, evaluatorCriterion{
			Name:        c,
			Weight:      e.weights[c],
			Description: c.Description(),
		})
	}
	return renderPrompt("evaluator", evaluatorPrompt, data)
}
