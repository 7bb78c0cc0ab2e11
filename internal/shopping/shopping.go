// Package shopping derives a categorised shopping list from a meal plan.
package shopping

import (
	"sort"
	"strings"

	"meal-planner-agent/internal/planner"
)

// OtherCategory collects needed ingredients the model did not categorise.
const OtherCategory = "other"

// Category is a named group of items, e.g. produce.
type Category struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

// List is a shopping list grouped by category.
type List struct {
	Categories []Category `json:"categories"`
}

// Build merges the model's categorised list with every ingredient the plan
// marks as needed. Items are compared case-insensitively; needed items not
// found in any category go to OtherCategory. Categories are sorted by name
// with OtherCategory last.
func Build(plan planner.MealPlan) List {
	seen := make(map[string]bool)
	groups := make(map[string][]string)

	add := func(category, item string) {
		item = strings.TrimSpace(item)
		key := strings.ToLower(item)
		if item == "" || seen[key] {
			return
		}
		seen[key] = true
		groups[category] = append(groups[category], item)
	}

	names := make([]string, 0, len(plan.ShoppingList))
	for category := range plan.ShoppingList {
		names = append(names, category)
	}
	sort.Strings(names)
	for _, category := range names {
		name := strings.ToLower(strings.TrimSpace(category))
		if name == "" {
			name = OtherCategory
		}
		for _, item := range plan.ShoppingList[category] {
			add(name, item)
		}
	}

	for _, item := range plan.NeededIngredients() {
		add(OtherCategory, item)
	}

	var list List
	for name, items := range groups {
		list.Categories = append(list.Categories, Category{Name: name, Items: items})
	}
	sort.Slice(list.Categories, func(i, j int) bool {
		a, b := list.Categories[i].Name, list.Categories[j].Name
		if (a == OtherCategory) != (b == OtherCategory) {
			return b == OtherCategory
		}
		return a < b
	})
	return list
}

// Items returns every item, sorted case-insensitively.
func (l List) Items() []string {
	var out []string
	for _, c := range l.Categories {
		out = append(out, c.Items...)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out
}

// Len is the number of items across categories.
func (l List) Len() int {
	n := 0
	for _, c := range l.Categories {
		n += len(c.Items)
	}
	return n
}
