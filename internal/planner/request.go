package planner

import (
	"math"
	"sort"
	"strings"

	"meal-planner-agent/internal/shared"
)

// SkillLevel is the cook's experience, used to pitch recipe complexity.
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
)

// Valid reports whether s is a known skill level.
func (s SkillLevel) Valid() bool {
	switch s {
	case SkillBeginner, SkillIntermediate, SkillAdvanced:
		return true
	}
	return false
}

// Day is a day of the planning week.
type Day string

const (
	Monday    Day = "Monday"
	Tuesday   Day = "Tuesday"
	Wednesday Day = "Wednesday"
	Thursday  Day = "Thursday"
	Friday    Day = "Friday"
	Saturday  Day = "Saturday"
	Sunday    Day = "Sunday"
)

var week = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Week returns the seven days in order, starting on Monday.
func Week() []Day {
	out := make([]Day, len(week))
	copy(out, week)
	return out
}

// ParseDay matches s against the week days, ignoring case and surrounding
// whitespace.
func ParseDay(s string) (Day, bool) {
	s = strings.TrimSpace(s)
	for _, d := range week {
		if strings.EqualFold(s, string(d)) {
			return d, true
		}
	}
	return "", false
}

func dayIndex(d Day) int {
	for i, w := range week {
		if w == d {
			return i
		}
	}
	return len(week)
}

// PlanRequest carries everything the user tells us about the week.
type PlanRequest struct {
	Preferences    []string       `yaml:"preferences" json:"preferences"`
	Restrictions   []string       `yaml:"restrictions" json:"restrictions"`
	Inventory      []string       `yaml:"inventory" json:"inventory"`
	ScheduledMeals map[Day]string `yaml:"scheduled_meals" json:"scheduled_meals,omitempty"`
	// Budget is the weekly grocery budget. Zero means no budget was given.
	Budget float64    `yaml:"budget" json:"budget,omitempty"`
	Skill  SkillLevel `yaml:"cooking_skill" json:"cooking_skill,omitempty"`
}

// Normalize returns a cleaned copy of r: list entries are trimmed and
// deduplicated case-insensitively, scheduled meal days are canonicalised and
// the skill level defaults to intermediate. It fails with a
// *shared.ValidationError when r cannot describe a week to plan.
func (r PlanRequest) Normalize() (PlanRequest, error) {
	out := PlanRequest{
		Preferences:  dedupe(r.Preferences),
		Restrictions: dedupe(r.Restrictions),
		Inventory:    dedupe(r.Inventory),
		Budget:       r.Budget,
		Skill:        SkillLevel(strings.ToLower(strings.TrimSpace(string(r.Skill)))),
	}

	if out.Skill == "" {
		out.Skill = SkillIntermediate
	}
	if !out.Skill.Valid() {
		return PlanRequest{}, shared.NewValidationError("cooking_skill", "unknown skill level %q", r.Skill)
	}

	if math.IsNaN(out.Budget) || math.IsInf(out.Budget, 0) || out.Budget < 0 {
		return PlanRequest{}, shared.NewValidationError("budget", "must be a positive amount, got %v", r.Budget)
	}

	if len(r.ScheduledMeals) > 0 {
		out.ScheduledMeals = make(map[Day]string, len(r.ScheduledMeals))
		for raw, desc := range r.ScheduledMeals {
			d, ok := ParseDay(string(raw))
			if !ok {
				return PlanRequest{}, shared.NewValidationError("scheduled_meals", "%q is not a day of the week", raw)
			}
			desc = strings.TrimSpace(desc)
			if desc == "" {
				return PlanRequest{}, shared.NewValidationError("scheduled_meals", "empty description for %s", d)
			}
			if _, dup := out.ScheduledMeals[d]; dup {
				return PlanRequest{}, shared.NewValidationError("scheduled_meals", "%s is scheduled twice", d)
			}
			out.ScheduledMeals[d] = desc
		}
	}

	return out, nil
}

// HasBudget reports whether a budget was given.
func (r PlanRequest) HasBudget() bool { return r.Budget > 0 }

// ScheduledDays returns the days with a fixed meal, in week order.
func (r PlanRequest) ScheduledDays() []Day {
	days := make([]Day, 0, len(r.ScheduledMeals))
	for d := range r.ScheduledMeals {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return dayIndex(days[i]) < dayIndex(days[j]) })
	return days
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		key := strings.ToLower(item)
		if item == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}
