// Package scoring defines the weighted evaluation criteria used to grade a
// meal plan and aggregates per-criterion sub-scores into an overall score.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"meal-planner-agent/internal/shared"
)

// WeightTolerance is how far the sum of all weights may drift from 1.0.
const WeightTolerance = 1e-6

// Criterion is one of the fixed evaluation dimensions.
type Criterion string

const (
	InventoryOptimization Criterion = "inventory_optimization"
	NutritionalVariety    Criterion = "nutritional_variety"
	Practicality          Criterion = "practicality"
	CostEfficiency        Criterion = "cost_efficiency"
	PreferenceAlignment   Criterion = "preference_alignment"
)

var allCriteria = []Criterion{
	InventoryOptimization,
	NutritionalVariety,
	Practicality,
	CostEfficiency,
	PreferenceAlignment,
}

// AllCriteria returns the criteria in their canonical order.
func AllCriteria() []Criterion {
	out := make([]Criterion, len(allCriteria))
	copy(out, allCriteria)
	return out
}

// Valid reports whether c is one of the known criteria.
func (c Criterion) Valid() bool {
	for _, known := range allCriteria {
		if c == known {
			return true
		}
	}
	return false
}

// Title returns a human readable label, e.g. "Inventory Optimization".
func (c Criterion) Title() string {
	words := strings.Split(string(c), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Description is the grading guidance given to the evaluator for c.
func (c Criterion) Description() string {
	switch c {
	case InventoryOptimization:
		return "How well does the plan use existing ingredients? Are there creative ways to use what's available?"
	case NutritionalVariety:
		return "Is there good nutritional balance across the week? Variety of proteins, vegetables, grains?"
	case Practicality:
		return "Are the recipes realistic for the skill level? Reasonable prep times? Clear instructions?"
	case CostEfficiency:
		return "Does it stay within budget? Minimize waste? Smart ingredient purchases?"
	case PreferenceAlignment:
		return "Does it match stated preferences and respect all restrictions?"
	}
	return ""
}

// Weights maps every criterion to its share of the overall score.
type Weights map[Criterion]float64

// DefaultWeights returns the stock weighting, favouring inventory use.
func DefaultWeights() Weights {
	return Weights{
		InventoryOptimization: 0.35,
		NutritionalVariety:    0.20,
		Practicality:          0.20,
		CostEfficiency:        0.15,
		PreferenceAlignment:   0.10,
	}
}

// WeightsFromNames converts a name keyed mapping (as read from config files)
// into Weights. Unknown names are rejected.
func WeightsFromNames(m map[string]float64) (Weights, error) {
	w := make(Weights, len(m))
	for name, v := range m {
		c := Criterion(strings.TrimSpace(name))
		if !c.Valid() {
			return nil, shared.NewValidationError("criterion_weights", "unknown criterion %q", name)
		}
		w[c] = v
	}
	return w, nil
}

// Sum adds up all weights.
func (w Weights) Sum() float64 {
	var total float64
	for _, v := range w {
		total += v
	}
	return total
}

// Clone returns an independent copy.
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Validate checks that w covers exactly the fixed criteria with
// non-negative values summing to 1.
func (w Weights) Validate() error {
	for c := range w {
		if !c.Valid() {
			return shared.NewValidationError("criterion_weights", "unknown criterion %q", c)
		}
	}
	var missing []string
	for _, c := range allCriteria {
		v, ok := w[c]
		if !ok {
			missing = append(missing, string(c))
			continue
		}
		if math.IsNaN(v) || v < 0 {
			return shared.NewValidationError("criterion_weights", "weight for %s must be a non-negative number, got %v", c, v)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return shared.NewValidationError("criterion_weights", "missing weights for %s", strings.Join(missing, ", "))
	}
	if sum := w.Sum(); math.Abs(sum-1.0) > WeightTolerance {
		return shared.NewValidationError("criterion_weights", "weights must sum to 1.0, got %.6f", sum)
	}
	return nil
}

// CalculateWeightedScore returns the exact weighted sum of the sub-scores.
// Every criterion must be present with a value in [0,100], and w must be valid.
func CalculateWeightedScore(scores map[Criterion]float64, w Weights) (float64, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}
	for c := range scores {
		if !c.Valid() {
			return 0, shared.NewValidationError("scores", "unknown criterion %q", c)
		}
	}

	var overall float64
	for _, c := range allCriteria {
		s, ok := scores[c]
		if !ok {
			return 0, shared.NewValidationError("scores", "missing score for %s", c)
		}
		if err := checkRange(c, s); err != nil {
			return 0, err
		}
		overall += s * w[c]
	}

	// Weights may sum to 1±tolerance, which can push a perfect score
	// a hair past the bounds.
	return math.Min(100, math.Max(0, overall)), nil
}

func checkRange(c Criterion, s float64) error {
	if math.IsNaN(s) || s < 0 || s > 100 {
		return shared.NewValidationError("scores", "score for %s must be within [0,100], got %v", c, s)
	}
	return nil
}

func describe(c Criterion, s float64) string {
	return fmt.Sprintf("%s: %.1f", c.Title(), s)
}
