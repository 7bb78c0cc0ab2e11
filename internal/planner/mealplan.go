package planner

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// IngredientStatus tells whether an ingredient comes from the pantry or
// has to be bought.
type IngredientStatus string

const (
	Owned  IngredientStatus = "owned"
	Needed IngredientStatus = "needed"
)

// Ingredient is one item used by a meal.
type Ingredient struct {
	Name   string           `json:"name"`
	Status IngredientStatus `json:"status"`
}

// Meal is the dinner planned for a day.
type Meal struct {
	Name            string       `json:"name"`
	Description     string       `json:"description,omitempty"`
	Ingredients     []Ingredient `json:"ingredients"`
	PrepTimeMinutes int          `json:"prep_time_minutes"`
	EstimatedCost   float64      `json:"estimated_cost"`
	Instructions    string       `json:"instructions"`
}

// Owned returns the names of the ingredients taken from the pantry.
func (m Meal) Owned() []string { return m.names(Owned) }

// Needed returns the names of the ingredients that must be bought.
func (m Meal) Needed() []string { return m.names(Needed) }

func (m Meal) names(status IngredientStatus) []string {
	var out []string
	for _, i := range m.Ingredients {
		if i.Status == status {
			out = append(out, i.Name)
		}
	}
	return out
}

// DayMeal pairs a day with its meal.
type DayMeal struct {
	Day  Day  `json:"day"`
	Meal Meal `json:"meal"`
}

// MealPlan is one candidate week produced by the generator. The loop never
// changes a plan after it is built; each iteration produces a new one.
type MealPlan struct {
	Days []DayMeal
	// ShoppingList is the categorised list reported by the model, if any.
	ShoppingList map[string][]string
	// Figures as reported by the model. The locally derived ones are
	// TotalEstimatedCost and InventoryUsagePercent.
	ReportedInventoryUsage float64
	ReportedTotalCost      float64
	VarietyScore           float64
	Reasoning              string
	// Raw is the JSON payload the plan was decoded from.
	Raw string
}

// Meal returns the meal planned for d.
func (p MealPlan) Meal(d Day) (Meal, bool) {
	for _, dm := range p.Days {
		if dm.Day == d {
			return dm.Meal, true
		}
	}
	return Meal{}, false
}

// TotalEstimatedCost sums the per-meal cost estimates.
func (p MealPlan) TotalEstimatedCost() float64 {
	var total float64
	for _, dm := range p.Days {
		total += dm.Meal.EstimatedCost
	}
	return total
}

// InventoryUsagePercent is the share of all ingredient uses across the week
// that come from the pantry, in [0,100].
func (p MealPlan) InventoryUsagePercent() float64 {
	var owned, total int
	for _, dm := range p.Days {
		for _, i := range dm.Meal.Ingredients {
			total++
			if i.Status == Owned {
				owned++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(owned) / float64(total) * 100
}

// NeededIngredients lists every ingredient to buy, deduplicated
// case-insensitively, in order of first use.
func (p MealPlan) NeededIngredients() []string {
	var all []string
	for _, dm := range p.Days {
		all = append(all, dm.Meal.Needed()...)
	}
	return dedupe(all)
}

// wireMeal is the per-day shape the model is asked to return.
type wireMeal struct {
	Name              string     `json:"name"`
	Description       string     `json:"description,omitempty"`
	IngredientsOwned  flexList   `json:"ingredients_owned"`
	IngredientsNeeded flexList   `json:"ingredients_needed"`
	PrepTimeMinutes   flexNumber `json:"prep_time_minutes"`
	Instructions      flexText   `json:"instructions"`
	EstimatedCost     flexNumber `json:"estimated_cost"`
}

type wirePlan struct {
	DailyMeals            map[string]wireMeal `json:"daily_meals"`
	ShoppingList          map[string]flexList `json:"shopping_list,omitempty"`
	InventoryUsagePercent flexNumber          `json:"inventory_usage_percent"`
	VarietyScore          flexNumber          `json:"variety_score"`
	TotalEstimatedCost    flexNumber          `json:"total_estimated_cost"`
	Reasoning             string              `json:"reasoning,omitempty"`
}

// MarshalJSON writes the plan in the same shape the model produces, so a
// plan can be fed back into a revision prompt or saved for audit.
func (p MealPlan) MarshalJSON() ([]byte, error) {
	w := wirePlan{
		DailyMeals:            make(map[string]wireMeal, len(p.Days)),
		InventoryUsagePercent: flexNumber(p.ReportedInventoryUsage),
		VarietyScore:          flexNumber(p.VarietyScore),
		TotalEstimatedCost:    flexNumber(p.ReportedTotalCost),
		Reasoning:             p.Reasoning,
	}
	for _, dm := range p.Days {
		w.DailyMeals[string(dm.Day)] = wireMeal{
			Name:              dm.Meal.Name,
			Description:       dm.Meal.Description,
			IngredientsOwned:  nonNil(dm.Meal.Owned()),
			IngredientsNeeded: nonNil(dm.Meal.Needed()),
			PrepTimeMinutes:   flexNumber(dm.Meal.PrepTimeMinutes),
			Instructions:      flexText(dm.Meal.Instructions),
			EstimatedCost:     flexNumber(dm.Meal.EstimatedCost),
		}
	}
	if len(p.ShoppingList) > 0 {
		w.ShoppingList = make(map[string]flexList, len(p.ShoppingList))
		for k, v := range p.ShoppingList {
			w.ShoppingList[k] = flexList(v)
		}
	}
	return json.Marshal(w)
}

// toMealPlan converts the wire form. It fails when two keys name the same
// day, e.g. "monday" and "Monday".
func (w wirePlan) toMealPlan(raw string) (MealPlan, error) {
	plan := MealPlan{
		ReportedInventoryUsage: float64(w.InventoryUsagePercent),
		ReportedTotalCost:      float64(w.TotalEstimatedCost),
		VarietyScore:           float64(w.VarietyScore),
		Reasoning:              strings.TrimSpace(w.Reasoning),
		Raw:                    raw,
	}

	seen := make(map[Day]string, len(w.DailyMeals))
	for key, m := range w.DailyMeals {
		day, ok := ParseDay(key)
		if !ok {
			day = Day(strings.TrimSpace(key))
		}
		if prev, dup := seen[day]; dup {
			first, second := prev, key
			if second < first {
				first, second = second, first
			}
			return MealPlan{}, fmt.Errorf("daily_meals has %q and %q for %s", first, second, day)
		}
		seen[day] = key
		meal := Meal{
			Name:            strings.TrimSpace(m.Name),
			Description:     strings.TrimSpace(m.Description),
			PrepTimeMinutes: int(float64(m.PrepTimeMinutes) + 0.5),
			EstimatedCost:   float64(m.EstimatedCost),
			Instructions:    strings.TrimSpace(string(m.Instructions)),
		}
		for _, name := range m.IngredientsOwned {
			meal.Ingredients = append(meal.Ingredients, Ingredient{Name: name, Status: Owned})
		}
		for _, name := range m.IngredientsNeeded {
			meal.Ingredients = append(meal.Ingredients, Ingredient{Name: name, Status: Needed})
		}
		plan.Days = append(plan.Days, DayMeal{Day: day, Meal: meal})
	}

	// Week days first in order, anything unrecognised after them by name.
	sort.SliceStable(plan.Days, func(i, j int) bool {
		a, b := dayIndex(plan.Days[i].Day), dayIndex(plan.Days[j].Day)
		if a != b {
			return a < b
		}
		return plan.Days[i].Day < plan.Days[j].Day
	})

	if len(w.ShoppingList) > 0 {
		plan.ShoppingList = make(map[string][]string, len(w.ShoppingList))
		for category, items := range w.ShoppingList {
			if cleaned := dedupe(items); len(cleaned) > 0 {
				plan.ShoppingList[strings.TrimSpace(category)] = cleaned
			}
		}
	}
	return plan, nil
}

func nonNil(items []string) flexList {
	if items == nil {
		return flexList{}
	}
	return flexList(items)
}

// flexNumber accepts 12, 12.5, "12", "$12.50" or "30 minutes".
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == "" {
		*n = 0
		return nil
	}
	if s[0] != '"' {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*n = flexNumber(f)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*n = flexNumber(leadingNumber(str))
	return nil
}

func leadingNumber(s string) float64 {
	start := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
	if start < 0 {
		return 0
	}
	end := start
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.') {
		end++
	}
	f, err := strconv.ParseFloat(strings.TrimRight(s[start:end], "."), 64)
	if err != nil {
		return 0
	}
	return f
}

// flexList accepts a list of strings or a single comma separated string.
type flexList []string

func (l *flexList) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err == nil {
		*l = dedupe(items)
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*l = dedupe(strings.Split(single, ","))
	return nil
}

// flexText accepts a string or a list of steps.
type flexText string

func (t *flexText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = flexText(s)
		return nil
	}
	var steps []string
	if err := json.Unmarshal(data, &steps); err != nil {
		return err
	}
	*t = flexText(strings.Join(steps, "\n"))
	return nil
}
