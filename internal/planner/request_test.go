package planner

import (
	"testing"

	"meal-planner-agent/internal/shared"
)

func TestPlanRequest_Normalize(t *testing.T) {
	req := PlanRequest{
		Preferences:    []string{" Italian ", "italian", "", "spicy"},
		Inventory:      []string{"Eggs", "eggs ", "rice"},
		ScheduledMeals: map[Day]string{"friday": " pizza night "},
	}

	got, err := req.Normalize()
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if len(got.Preferences) != 2 || got.Preferences[0] != "Italian" {
		t.Errorf("Unexpected preferences: %v", got.Preferences)
	}
	if len(got.Inventory) != 2 {
		t.Errorf("Unexpected inventory: %v", got.Inventory)
	}
	if got.Skill != SkillIntermediate {
		t.Errorf("Expected default skill intermediate, got %s", got.Skill)
	}
	if got.ScheduledMeals[Friday] != "pizza night" {
		t.Errorf("Expected canonical Friday entry, got %v", got.ScheduledMeals)
	}
	if got.HasBudget() {
		t.Error("Zero budget should mean no budget")
	}
	// The input is left untouched.
	if req.Preferences[0] != " Italian " {
		t.Error("Normalize modified its receiver")
	}
}

func TestPlanRequest_NormalizeErrors(t *testing.T) {
	tests := []struct {
		name string
		req  PlanRequest
	}{
		{"negative budget", PlanRequest{Budget: -1}},
		{"unknown skill", PlanRequest{Skill: "chef"}},
		{"unknown day", PlanRequest{ScheduledMeals: map[Day]string{"Someday": "tacos"}}},
		{"empty scheduled meal", PlanRequest{ScheduledMeals: map[Day]string{Monday: " "}}},
		{"day twice", PlanRequest{ScheduledMeals: map[Day]string{"monday": "a", "Monday": "b"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.req.Normalize()
			if !shared.IsValidation(err) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
}

func TestScheduledDays_WeekOrder(t *testing.T) {
	req := PlanRequest{ScheduledMeals: map[Day]string{Sunday: "roast", Wednesday: "friends", Monday: "soup"}}
	days := req.ScheduledDays()
	want := []Day{Monday, Wednesday, Sunday}
	for i := range want {
		if days[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, days)
		}
	}
}
