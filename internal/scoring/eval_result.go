package scoring

import (
	"encoding/json"
	"strings"

	"meal-planner-agent/internal/shared"
)

// CriterionScore is the evaluator's verdict on a single criterion.
type CriterionScore struct {
	Criterion   Criterion `json:"criterion"`
	Score       float64   `json:"score"`
	Weight      float64   `json:"weight"`
	Feedback    string    `json:"feedback"`
	Suggestions []string  `json:"suggestions,omitempty"`
}

// EvalResult holds one score per criterion in canonical order and the
// weighted overall score derived from them. It cannot be modified after
// construction; accessors return copies.
type EvalResult struct {
	scores  []CriterionScore
	overall float64
	notes   string
}

// NewEvalResult validates scores against w and computes the overall score.
// The weight recorded on each CriterionScore is taken from w.
func NewEvalResult(scores []CriterionScore, w Weights, notes string) (EvalResult, error) {
	if err := w.Validate(); err != nil {
		return EvalResult{}, err
	}

	byCriterion := make(map[Criterion]CriterionScore, len(scores))
	raw := make(map[Criterion]float64, len(scores))
	for _, s := range scores {
		if !s.Criterion.Valid() {
			return EvalResult{}, shared.NewValidationError("scores", "unknown criterion %q", s.Criterion)
		}
		if _, dup := byCriterion[s.Criterion]; dup {
			return EvalResult{}, shared.NewValidationError("scores", "duplicate score for %s", s.Criterion)
		}
		byCriterion[s.Criterion] = s
		raw[s.Criterion] = s.Score
	}

	overall, err := CalculateWeightedScore(raw, w)
	if err != nil {
		return EvalResult{}, err
	}

	ordered := make([]CriterionScore, 0, len(allCriteria))
	for _, c := range allCriteria {
		s := byCriterion[c]
		s.Weight = w[c]
		s.Suggestions = append([]string(nil), s.Suggestions...)
		ordered = append(ordered, s)
	}

	return EvalResult{scores: ordered, overall: overall, notes: strings.TrimSpace(notes)}, nil
}

// Overall is the weighted score in [0,100].
func (r EvalResult) Overall() float64 { return r.overall }

// ImprovementNotes is the evaluator's summary of what to change next.
func (r EvalResult) ImprovementNotes() string { return r.notes }

// Scores returns a copy of the per-criterion scores in canonical order.
func (r EvalResult) Scores() []CriterionScore {
	out := make([]CriterionScore, len(r.scores))
	for i, s := range r.scores {
		s.Suggestions = append([]string(nil), s.Suggestions...)
		out[i] = s
	}
	return out
}

// Score looks up the entry for c.
func (r EvalResult) Score(c Criterion) (CriterionScore, bool) {
	for _, s := range r.scores {
		if s.Criterion == c {
			s.Suggestions = append([]string(nil), s.Suggestions...)
			return s, true
		}
	}
	return CriterionScore{}, false
}

// Lowest returns the weakest criterion. Ties go to the earlier criterion
// in canonical order, which is also the heavier weighted one by default.
func (r EvalResult) Lowest() (CriterionScore, bool) {
	if len(r.scores) == 0 {
		return CriterionScore{}, false
	}
	low := r.scores[0]
	for _, s := range r.scores[1:] {
		if s.Score < low.Score {
			low = s
		}
	}
	low.Suggestions = append([]string(nil), low.Suggestions...)
	return low, true
}

// IsZero reports whether r was never built through NewEvalResult.
func (r EvalResult) IsZero() bool { return len(r.scores) == 0 }

// String is a one-line summary used in logs.
func (r EvalResult) String() string {
	parts := make([]string, 0, len(r.scores))
	for _, s := range r.scores {
		parts = append(parts, describe(s.Criterion, s.Score))
	}
	return describe("overall", r.overall) + " (" + strings.Join(parts, ", ") + ")"
}

type evalResultJSON struct {
	Overall          float64          `json:"overall"`
	Scores           []CriterionScore `json:"scores"`
	ImprovementNotes string           `json:"improvement_notes,omitempty"`
}

// MarshalJSON renders the result for audit output.
func (r EvalResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(evalResultJSON{
		Overall:          r.overall,
		Scores:           r.scores,
		ImprovementNotes: r.notes,
	})
}
