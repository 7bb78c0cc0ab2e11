package planner

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"meal-planner-agent/internal/llm"
	"meal-planner-agent/internal/shared"
)

// scriptedGenerator replays canned replies in order and records prompts.
type scriptedGenerator struct {
	mu      sync.Mutex
	replies []scriptedReply
	prompts []string
}

type scriptedReply struct {
	content string
	err     error
}

func (s *scriptedGenerator) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompts = append(s.prompts, prompt)
	if len(s.replies) == 0 {
		return llm.ContentResponse{}, fmt.Errorf("scripted generator: no reply left for call %d", len(s.prompts))
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	if r.err != nil {
		return llm.ContentResponse{}, r.err
	}
	return llm.ContentResponse{
		Content: r.content,
		Usage:   shared.TokenUsage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150, Model: "scripted"},
	}, nil
}

func (s *scriptedGenerator) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func reply(content string) scriptedReply { return scriptedReply{content: content} }

// planReply is a generator answer whose Monday meal is named name.
func planReply(name string) scriptedReply {
	return reply(fmt.Sprintf("Here is your plan:\n```json\n%s\n```\nEnjoy!", planJSON(name)))
}

func planJSON(name string) string {
	var days []string
	for i, d := range Week() {
		meal := "Leftover " + name
		if i == 0 {
			meal = name
		}
		days = append(days, fmt.Sprintf(`"%s": {
			"name": %q,
			"ingredients_owned": ["rice", "eggs"],
			"ingredients_needed": ["spinach"],
			"prep_time_minutes": 25,
			"instructions": "Cook it.",
			"estimated_cost": 4.5
		}`, d, meal))
	}
	return fmt.Sprintf(`{
		"daily_meals": {%s},
		"shopping_list": {"produce": ["spinach"]},
		"inventory_usage_percent": 66,
		"variety_score": 7,
		"total_estimated_cost": 31.5,
		"reasoning": "Uses the rice and eggs."
	}`, strings.Join(days, ","))
}

// evalReply scores every criterion with score, which makes the overall
// score equal to score under any valid weights.
func evalReply(score float64) scriptedReply {
	return reply(fmt.Sprintf(`{
		"inventory_optimization": {"score": %[1]v, "feedback": "rice is underused", "suggestions": ["use rice twice"]},
		"nutritional_variety": {"score": %[1]v, "feedback": "ok"},
		"practicality": {"score": %[1]v, "feedback": "ok"},
		"cost_efficiency": {"score": %[1]v, "feedback": "ok"},
		"preference_alignment": {"score": %[1]v, "feedback": "ok"},
		"improvement_notes": "Add a fish night."
	}`, score))
}

func sampleRequest() PlanRequest {
	return PlanRequest{
		Preferences:    []string{"quick meals", "kid-friendly"},
		Restrictions:   []string{"no shellfish"},
		Inventory:      []string{"rice", "eggs", "chicken breast"},
		ScheduledMeals: map[Day]string{Friday: "pizza night"},
		Budget:         60,
		Skill:          SkillIntermediate,
	}
}
