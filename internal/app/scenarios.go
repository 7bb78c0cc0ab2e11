package app

import (
	"meal-planner-agent/internal/planner"
)

// Scenario is a canned request used for demos.
type Scenario struct {
	Name        string
	Title       string
	Description string
	Request     planner.PlanRequest
}

// DefaultScenario is run by the demo command when no scenario is named.
const DefaultScenario = "demo"

// Scenarios returns the built-in scenarios, the demo first.
func Scenarios() []Scenario {
	return []Scenario{
		{
			Name:        "demo",
			Title:       "Meal Planner Demo",
			Description: "A family with a reasonably stocked kitchen.",
			Request: planner.PlanRequest{
				Preferences: []string{"balanced", "family-friendly"},
				Inventory: []string{
					"chicken breast", "ground beef", "rice", "pasta", "canned tomatoes", "onions",
					"garlic", "olive oil", "eggs", "cheese", "potatoes", "carrots",
				},
				ScheduledMeals: map[planner.Day]string{planner.Friday: "Pizza night (family tradition)"},
				Budget:         60,
				Skill:          planner.SkillIntermediate,
			},
		},
		{
			Name:        "basic-family",
			Title:       "Basic Family Meal Planning",
			Description: "A family with a well-stocked pantry wants a healthy, varied week on a moderate budget.",
			Request: planner.PlanRequest{
				Preferences: []string{"balanced", "family-friendly"},
				Inventory: []string{
					"chicken breast", "ground beef", "rice", "pasta", "canned tomatoes", "onions",
					"garlic", "olive oil", "chicken broth", "eggs", "milk", "cheese",
					"potatoes", "carrots", "bell peppers", "frozen peas",
				},
				ScheduledMeals: map[planner.Day]string{planner.Friday: "Pizza night (family tradition)"},
				Budget:         60,
				Skill:          planner.SkillIntermediate,
			},
		},
		{
			Name:        "budget-vegetarian",
			Title:       "Budget Vegetarian Meal Planning",
			Description: "A vegetarian on a tight budget with minimal inventory.",
			Request: planner.PlanRequest{
				Preferences:  []string{"vegetarian", "high-protein"},
				Restrictions: []string{"no meat", "no fish"},
				Inventory: []string{
					"lentils", "chickpeas", "rice", "onions", "canned tomatoes", "olive oil",
					"garlic", "cumin", "paprika",
				},
				Budget: 35,
				Skill:  planner.SkillBeginner,
			},
		},
		{
			Name:        "multiple-restrictions",
			Title:       "Multiple Dietary Restrictions",
			Description: "Gluten-free, dairy-free and nut-free in a well-stocked kitchen with advanced skills.",
			Request: planner.PlanRequest{
				Preferences:  []string{"gluten-free", "dairy-free", "high-protein"},
				Restrictions: []string{"gluten-free", "dairy-free", "nut-free"},
				Inventory: []string{
					"salmon", "chicken thighs", "quinoa", "sweet potatoes", "broccoli", "spinach",
					"eggs", "coconut milk", "olive oil", "garlic", "ginger", "soy sauce",
					"rice vinegar", "sesame oil", "avocados",
				},
				ScheduledMeals: map[planner.Day]string{planner.Wednesday: "Dinner with friends (make something impressive)"},
				Budget:         80,
				Skill:          planner.SkillAdvanced,
			},
		},
		{
			Name:        "nearly-empty-kitchen",
			Title:       "Nearly Empty Kitchen",
			Description: "Minimal inventory. Buying ingredients is unavoidable.",
			Request: planner.PlanRequest{
				Preferences: []string{"quick and easy"},
				Inventory:   []string{"eggs", "butter", "salt", "pepper", "olive oil"},
				Budget:      50,
				Skill:       planner.SkillBeginner,
			},
		},
	}
}

// ScenarioByName looks up a built-in scenario.
func ScenarioByName(name string) (Scenario, bool) {
	for _, s := range Scenarios() {
		if s.Name == name {
			return s, true
		}
	}
	return Scenario{}, false
}
