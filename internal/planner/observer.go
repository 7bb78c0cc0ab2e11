package planner

import (
	"log"

	"meal-planner-agent/internal/scoring"
)

// Observer receives progress events from a running session. Calls happen
// on the goroutine running the session, in loop order.
type Observer interface {
	IterationStarted(iteration, maxIterations int)
	PlanGenerated(iteration int, plan MealPlan)
	PlanEvaluated(iteration int, eval scoring.EvalResult, threshold float64)
	Finished(res *Result)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) IterationStarted(int, int)                      {}
func (NopObserver) PlanGenerated(int, MealPlan)                    {}
func (NopObserver) PlanEvaluated(int, scoring.EvalResult, float64) {}
func (NopObserver) Finished(*Result)                               {}

// LogObserver writes one line per event to Logger, or the standard logger
// when Logger is nil.
type LogObserver struct {
	Logger *log.Logger
}

func (o LogObserver) printf(format string, args ...any) {
	if o.Logger != nil {
		o.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

func (o LogObserver) IterationStarted(iteration, maxIterations int) {
	o.printf("planner: iteration %d/%d started", iteration, maxIterations)
}

func (o LogObserver) PlanGenerated(iteration int, plan MealPlan) {
	o.printf("planner: iteration %d generated %d days, est. cost $%.2f", iteration, len(plan.Days), plan.TotalEstimatedCost())
}

func (o LogObserver) PlanEvaluated(iteration int, eval scoring.EvalResult, threshold float64) {
	o.printf("planner: iteration %d scored %.1f (target %.1f)", iteration, eval.Overall(), threshold)
}

func (o LogObserver) Finished(res *Result) {
	o.printf("planner: session %s finished after %d iterations (%s), final score %.1f",
		res.SessionID, len(res.History), res.StopReason, res.FinalScore())
}
