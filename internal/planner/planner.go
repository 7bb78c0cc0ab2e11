// Package planner drafts, critiques and revises weekly meal plans with a
// language model until a plan scores well enough or the iteration budget
// runs out.
package planner

import (
	"context"
	"fmt"
	"time"

	"meal-planner-agent/internal/llm"
	"meal-planner-agent/internal/scoring"
	"meal-planner-agent/internal/shared"

	"github.com/google/uuid"
)

// State is a step of the improvement loop.
type State int

const (
	StateInit State = iota
	StateGenerating
	StateEvaluating
	StateRevising
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateGenerating:
		return "generating"
	case StateEvaluating:
		return "evaluating"
	case StateRevising:
		return "revising"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// StopReason explains why a session ended.
type StopReason string

const (
	StopThresholdMet  StopReason = "threshold_met"
	StopMaxIterations StopReason = "max_iterations"
)

// IterationRecord pairs the plan of one iteration with its evaluation.
type IterationRecord struct {
	Iteration  int                `json:"iteration"`
	Plan       MealPlan           `json:"plan"`
	Evaluation scoring.EvalResult `json:"evaluation"`
}

// Result is the outcome of a finished session. Plan is always the plan of
// the last iteration.
type Result struct {
	SessionID  string
	Request    PlanRequest
	Settings   Settings
	Plan       MealPlan
	History    []IterationRecord
	StopReason StopReason
	Metas      []shared.AgentMeta
	Duration   time.Duration
}

// Evaluations returns the evaluation of every iteration in order.
func (r *Result) Evaluations() []scoring.EvalResult {
	out := make([]scoring.EvalResult, len(r.History))
	for i, rec := range r.History {
		out[i] = rec.Evaluation
	}
	return out
}

// FinalScore is the overall score of the returned plan.
func (r *Result) FinalScore() float64 {
	if len(r.History) == 0 {
		return 0
	}
	return r.History[len(r.History)-1].Evaluation.Overall()
}

// Best returns the highest scoring iteration. It is informational only;
// the session's answer is the last plan. Ties go to the later iteration.
func (r *Result) Best() (IterationRecord, bool) {
	if len(r.History) == 0 {
		return IterationRecord{}, false
	}
	best := r.History[0]
	for _, rec := range r.History[1:] {
		if rec.Evaluation.Overall() >= best.Evaluation.Overall() {
			best = rec
		}
	}
	return best, true
}

// Improvement is the last overall score minus the first. It can be negative.
func (r *Result) Improvement() float64 {
	if len(r.History) == 0 {
		return 0
	}
	return r.FinalScore() - r.History[0].Evaluation.Overall()
}

// Usage totals the token usage of every model call in the session.
func (r *Result) Usage() shared.TokenUsage {
	var total shared.TokenUsage
	for _, m := range r.Metas {
		total = total.Add(m.Usage)
	}
	return total
}

// Controller runs the generate, evaluate, revise loop. It holds no state
// between sessions.
type Controller struct {
	generator *Generator
	evaluator *Evaluator
	settings  Settings
	observer  Observer
	newID     func() string
	onUsage   func(shared.AgentMeta)
}

type Option func(*Controller)

// WithObserver sets the observer used by Run and by verbose PlanMeals calls.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithUsageRecorder calls fn after every model call of a session,
// including calls made by sessions that end in an error.
func WithUsageRecorder(fn func(shared.AgentMeta)) Option {
	return func(c *Controller) {
		if fn != nil {
			c.onUsage = fn
		}
	}
}

// WithEvaluatorModel grades plans with a different model than the one
// drafting them.
func WithEvaluatorModel(textGen llm.TextGenerator) Option {
	return func(c *Controller) {
		c.evaluator = NewEvaluator(textGen, c.settings.Weights)
	}
}

// NewController validates settings and wires a generator and evaluator
// around textGen.
func NewController(textGen llm.TextGenerator, settings Settings, opts ...Option) (*Controller, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	settings = settings.clone()

	c := &Controller{
		generator: NewGenerator(textGen),
		evaluator: NewEvaluator(textGen, settings.Weights),
		settings:  settings,
		observer:  NopObserver{},
		newID:     func() string { return uuid.NewString() },
		onUsage:   func(shared.AgentMeta) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Settings returns a copy of the controller's settings.
func (c *Controller) Settings() Settings { return c.settings.clone() }

// Decide is the transition taken after evaluating iteration with score.
func (c *Controller) Decide(score float64, iteration int) (State, StopReason) {
	return c.settings.Decide(score, iteration)
}

// PlanMeals runs a session and returns the final plan together with the
// evaluation of each iteration. Progress goes to the observer only when
// verbose is set.
func (c *Controller) PlanMeals(ctx context.Context, req PlanRequest, verbose bool) (MealPlan, []scoring.EvalResult, error) {
	obs := Observer(NopObserver{})
	if verbose {
		obs = c.observer
	}
	res, err := c.run(ctx, req, obs)
	if err != nil {
		return MealPlan{}, nil, err
	}
	return res.Plan, res.Evaluations(), nil
}

// Run executes one planning session. Any generator or evaluator error
// aborts the session and no partial result is returned.
func (c *Controller) Run(ctx context.Context, req PlanRequest) (*Result, error) {
	return c.run(ctx, req, c.observer)
}

func (c *Controller) run(ctx context.Context, req PlanRequest, obs Observer) (*Result, error) {
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res := &Result{
		SessionID: c.newID(),
		Request:   req,
		Settings:  c.settings.clone(),
	}

	var (
		state     = StateInit
		iteration int
		plan      MealPlan
		prior     *Revision
	)

	for state != StateDone {
		switch state {
		case StateInit:
			iteration = 1
			state = StateGenerating

		case StateGenerating:
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			obs.IterationStarted(iteration, c.settings.MaxIterations)

			gen, err := c.generator.Generate(ctx, req, prior)
			gen.Meta.Iteration = iteration
			res.Metas = append(res.Metas, gen.Meta)
			c.onUsage(gen.Meta)
			if err != nil {
				return nil, fmt.Errorf("iteration %d: %w", iteration, err)
			}
			plan = gen.Plan
			obs.PlanGenerated(iteration, plan)
			state = StateEvaluating

		case StateEvaluating:
			ev, err := c.evaluator.Evaluate(ctx, plan, req)
			ev.Meta.Iteration = iteration
			res.Metas = append(res.Metas, ev.Meta)
			c.onUsage(ev.Meta)
			if err != nil {
				return nil, fmt.Errorf("iteration %d: %w", iteration, err)
			}
			res.History = append(res.History, IterationRecord{
				Iteration:  iteration,
				Plan:       plan,
				Evaluation: ev.Evaluation,
			})
			obs.PlanEvaluated(iteration, ev.Evaluation, c.settings.QualityThreshold)

			state, res.StopReason = c.Decide(ev.Evaluation.Overall(), iteration)
			if state == StateRevising {
				prior = &Revision{
					Iteration:  iteration,
					Plan:       plan,
					Evaluation: ev.Evaluation,
					Threshold:  c.settings.QualityThreshold,
				}
			}

		case StateRevising:
			iteration++
			state = StateGenerating
		}
	}

	res.Plan = plan
	res.Duration = time.Since(start)
	obs.Finished(res)
	return res, nil
}
