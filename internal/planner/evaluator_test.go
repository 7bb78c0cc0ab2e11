package planner

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"meal-planner-agent/internal/scoring"
	"meal-planner-agent/internal/shared"
)

func samplePlan(t *testing.T) MealPlan {
	t.Helper()
	plan, err := DecodePlan(planJSON("Fried rice"))
	if err != nil {
		t.Fatalf("DecodePlan failed: %v", err)
	}
	return plan
}

func TestEvaluator_Evaluate(t *testing.T) {
	gen := &scriptedGenerator{replies: []scriptedReply{reply("```json\n" + `{
		"inventory_optimization": {"score": 78, "feedback": "good use of rice", "suggestions": ["use eggs too"]},
		"nutritional_variety": {"score": 72, "feedback": "needs greens"},
		"practicality": {"score": 85, "feedback": "fine"},
		"cost_efficiency": {"score": 80, "feedback": "cheap", "suggestions": "buy in bulk"},
		"preference_alignment": {"score": "90", "feedback": "kid friendly"},
		"improvement_notes": "More vegetables."
	}` + "\n```")}}

	res, err := NewEvaluator(gen, scoring.DefaultWeights()).Evaluate(context.Background(), samplePlan(t), sampleRequest())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if got := res.Evaluation.Overall(); got < 79.7-1e-9 || got > 79.7+1e-9 {
		t.Errorf("Expected overall 79.7, got %v", got)
	}
	if res.Evaluation.ImprovementNotes() != "More vegetables." {
		t.Errorf("Unexpected notes: %q", res.Evaluation.ImprovementNotes())
	}
	cost, _ := res.Evaluation.Score(scoring.CostEfficiency)
	if len(cost.Suggestions) != 1 || cost.Suggestions[0] != "buy in bulk" {
		t.Errorf("Expected single string suggestion to be accepted, got %v", cost.Suggestions)
	}
	if res.Meta.AgentName != "Evaluator" {
		t.Errorf("Unexpected agent name %s", res.Meta.AgentName)
	}

	prompt := gen.prompts[0]
	for _, want := range []string{"Fried rice", "inventory_optimization", "(weight 35%)", "no shellfish"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Prompt missing %q", want)
		}
	}
}

func TestEvaluator_AcceptsNumericStrings(t *testing.T) {
	gen := &scriptedGenerator{replies: []scriptedReply{reply(`{
		"inventory_optimization": {"score": "60/100"},
		"nutritional_variety": {"score": " 60 "},
		"practicality": "60",
		"cost_efficiency": {"score": 60.0},
		"preference_alignment": {"score": "60"}
	}`)}}

	res, err := NewEvaluator(gen, scoring.DefaultWeights()).Evaluate(context.Background(), samplePlan(t), sampleRequest())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if got := res.Evaluation.Overall(); got < 60-1e-9 || got > 60+1e-9 {
		t.Errorf("Expected overall 60, got %v", got)
	}
}

func TestEvaluator_AcceptsTitleKeysAndBareNumbers(t *testing.T) {
	gen := &scriptedGenerator{replies: []scriptedReply{reply(`{
		"Inventory Optimization": 50,
		"Nutritional Variety": {"score": 50},
		"practicality": 50,
		"cost_efficiency": 50,
		"preference_alignment": 50
	}`)}}

	res, err := NewEvaluator(gen, scoring.DefaultWeights()).Evaluate(context.Background(), samplePlan(t), sampleRequest())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if got := res.Evaluation.Overall(); got < 50-1e-9 || got > 50+1e-9 {
		t.Errorf("Expected overall 50, got %v", got)
	}
}

func TestEvaluator_RejectsMalformedReplies(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"not json", "Looks great to me!"},
		{"missing criterion", `{
			"inventory_optimization": {"score": 80},
			"nutritional_variety": {"score": 80},
			"practicality": {"score": 80},
			"cost_efficiency": {"score": 80}
		}`},
		{"missing score", `{
			"inventory_optimization": {"feedback": "no number"},
			"nutritional_variety": {"score": 80},
			"practicality": {"score": 80},
			"cost_efficiency": {"score": 80},
			"preference_alignment": {"score": 80}
		}`},
		{"out of range", `{
			"inventory_optimization": {"score": 180},
			"nutritional_variety": {"score": 80},
			"practicality": {"score": 80},
			"cost_efficiency": {"score": 80},
			"preference_alignment": {"score": 80}
		}`},
		{"wrong type", `{
			"inventory_optimization": ["high"],
			"nutritional_variety": {"score": 80},
			"practicality": {"score": 80},
			"cost_efficiency": {"score": 80},
			"preference_alignment": {"score": 80}
		}`},
	}

	for _, score := range []string{`"N/A"`, `"-20"`, `"unscored"`, `"85 points"`, `true`} {
		tests = append(tests, struct {
			name  string
			reply string
		}{"score " + score, fmt.Sprintf(`{
			"inventory_optimization": {"score": %s},
			"nutritional_variety": {"score": 80},
			"practicality": {"score": 80},
			"cost_efficiency": {"score": 80},
			"preference_alignment": {"score": 80}
		}`, score)})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &scriptedGenerator{replies: []scriptedReply{reply(tt.reply)}}
			_, err := NewEvaluator(gen, scoring.DefaultWeights()).Evaluate(context.Background(), samplePlan(t), sampleRequest())
			if !shared.IsResponseParse(err) {
				t.Fatalf("Expected parse error, got %v", err)
			}
		})
	}
}
