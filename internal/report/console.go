package report

import (
	"fmt"
	"io"

	"meal-planner-agent/internal/planner"
	"meal-planner-agent/internal/scoring"

	"github.com/charmbracelet/lipgloss"
)

// Score bands used to colour scores.
const (
	GoodScore = 85.0
	FairScore = 70.0
)

// ConsoleObserver prints session progress to a terminal.
type ConsoleObserver struct {
	out     io.Writer
	heading lipgloss.Style
	dim     lipgloss.Style
	good    lipgloss.Style
	fair    lipgloss.Style
	poor    lipgloss.Style
}

// NewConsoleObserver writes progress to w. Colours are dropped when w is
// not a terminal.
func NewConsoleObserver(w io.Writer) *ConsoleObserver {
	r := lipgloss.NewRenderer(w)
	return &ConsoleObserver{
		out:     w,
		heading: r.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		dim:     r.NewStyle().Faint(true),
		good:    r.NewStyle().Foreground(lipgloss.Color("42")),
		fair:    r.NewStyle().Foreground(lipgloss.Color("214")),
		poor:    r.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

func (o *ConsoleObserver) band(score float64) lipgloss.Style {
	switch {
	case score >= GoodScore:
		return o.good
	case score >= FairScore:
		return o.fair
	}
	return o.poor
}

func (o *ConsoleObserver) IterationStarted(iteration, maxIterations int) {
	verb := "Generating"
	if iteration > 1 {
		verb = "Revising"
	}
	fmt.Fprintln(o.out, o.heading.Render(fmt.Sprintf("Iteration %d/%d: %s meal plan", iteration, maxIterations, verb)))
}

func (o *ConsoleObserver) PlanGenerated(iteration int, plan planner.MealPlan) {
	fmt.Fprintln(o.out, o.dim.Render(fmt.Sprintf("  %d days planned, est. cost $%.2f, inventory usage %.0f%%",
		len(plan.Days), plan.TotalEstimatedCost(), plan.InventoryUsagePercent())))
}

func (o *ConsoleObserver) PlanEvaluated(iteration int, eval scoring.EvalResult, threshold float64) {
	for _, s := range eval.Scores() {
		line := fmt.Sprintf("  %-22s %s %5.1f", s.Criterion.Title(), ScoreBar(s.Score, 20), s.Score)
		fmt.Fprintln(o.out, o.band(s.Score).Render(line))
	}
	overall := fmt.Sprintf("  Overall: %.1f/100 (target %.1f)", eval.Overall(), threshold)
	fmt.Fprintln(o.out, o.band(eval.Overall()).Bold(true).Render(overall))
}

func (o *ConsoleObserver) Finished(res *planner.Result) {
	msg := "Target score reached"
	if res.StopReason == planner.StopMaxIterations {
		msg = "Iteration limit reached"
	}
	fmt.Fprintln(o.out, o.heading.Render(fmt.Sprintf("%s after %d iteration(s)", msg, len(res.History))))
	fmt.Fprint(o.out, ProgressionSummary(res.Evaluations()))
}

var _ planner.Observer = (*ConsoleObserver)(nil)
