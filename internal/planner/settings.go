package planner

import (
	"math"

	"meal-planner-agent/internal/scoring"
	"meal-planner-agent/internal/shared"
)

const (
	DefaultQualityThreshold = 85.0
	DefaultMaxIterations    = 3
)

// Settings bound the improvement loop. A Controller keeps its own copy, so
// changing a Settings value after construction has no effect on it.
type Settings struct {
	QualityThreshold float64
	MaxIterations    int
	Weights          scoring.Weights
}

func DefaultSettings() Settings {
	return Settings{
		QualityThreshold: DefaultQualityThreshold,
		MaxIterations:    DefaultMaxIterations,
		Weights:          scoring.DefaultWeights(),
	}
}

// Validate returns a *shared.ValidationError for out-of-domain values.
func (s Settings) Validate() error {
	if math.IsNaN(s.QualityThreshold) || s.QualityThreshold < 0 || s.QualityThreshold > 100 {
		return shared.NewValidationError("quality_threshold", "must be within [0,100], got %v", s.QualityThreshold)
	}
	if s.MaxIterations < 1 {
		return shared.NewValidationError("max_iterations", "must be at least 1, got %d", s.MaxIterations)
	}
	return s.Weights.Validate()
}

func (s Settings) clone() Settings {
	s.Weights = s.Weights.Clone()
	return s
}

// Decide is the transition taken after a plan has been evaluated. The
// threshold is checked before the iteration cap.
func (s Settings) Decide(score float64, iteration int) (State, StopReason) {
	if score >= s.QualityThreshold {
		return StateDone, StopThresholdMet
	}
	if iteration >= s.MaxIterations {
		return StateDone, StopMaxIterations
	}
	return StateRevising, ""
}
