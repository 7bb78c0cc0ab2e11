// Package report renders finished planning sessions for people: Markdown
// for files and chat, HTML for publishing and styled text for terminals.
package report

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"meal-planner-agent/internal/planner"
	"meal-planner-agent/internal/scoring"
	"meal-planner-agent/internal/shopping"

	"github.com/charmbracelet/glamour"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Markdown renders the plan of res with its shopping list, the final
// evaluation and the score progression.
func Markdown(res *planner.Result) string {
	var b strings.Builder
	plan := res.Plan

	b.WriteString("# Weekly Meal Plan\n\n")
	fmt.Fprintf(&b, "Final score **%.1f/100** after %d iteration(s), stopped on `%s`.\n\n",
		res.FinalScore(), len(res.History), res.StopReason)
	fmt.Fprintf(&b, "Estimated cost: $%.2f. Inventory usage: %.0f%%.\n\n",
		plan.TotalEstimatedCost(), plan.InventoryUsagePercent())

	for _, dm := range plan.Days {
		m := dm.Meal
		fmt.Fprintf(&b, "## %s: %s\n\n", dm.Day, m.Name)
		if m.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", m.Description)
		}
		fmt.Fprintf(&b, "- Prep time: %d min\n", m.PrepTimeMinutes)
		fmt.Fprintf(&b, "- Estimated cost: $%.2f\n", m.EstimatedCost)
		if owned := m.Owned(); len(owned) > 0 {
			fmt.Fprintf(&b, "- From the pantry: %s\n", strings.Join(owned, ", "))
		}
		if needed := m.Needed(); len(needed) > 0 {
			fmt.Fprintf(&b, "- To buy: %s\n", strings.Join(needed, ", "))
		}
		if m.Instructions != "" {
			fmt.Fprintf(&b, "\n%s\n", m.Instructions)
		}
		b.WriteString("\n")
	}

	if list := shopping.Build(plan); list.Len() > 0 {
		b.WriteString("## Shopping List\n\n")
		for _, c := range list.Categories {
			fmt.Fprintf(&b, "### %s\n\n", title(c.Name))
			for _, item := range c.Items {
				fmt.Fprintf(&b, "- %s\n", item)
			}
			b.WriteString("\n")
		}
	}

	if n := len(res.History); n > 0 {
		eval := res.History[n-1].Evaluation
		b.WriteString("## Evaluation\n\n")
		b.WriteString("| Criterion | Score | Weight |\n|---|---:|---:|\n")
		for _, s := range eval.Scores() {
			fmt.Fprintf(&b, "| %s | %.0f | %.0f%% |\n", s.Criterion.Title(), s.Score, s.Weight*100)
		}
		b.WriteString("\n")
		if notes := eval.ImprovementNotes(); notes != "" {
			fmt.Fprintf(&b, "%s\n\n", notes)
		}
	}

	if len(res.History) > 1 {
		b.WriteString("## Score Progression\n\n```\n")
		b.WriteString(ProgressionSummary(res.Evaluations()))
		b.WriteString("```\n\n")
	}

	if plan.Reasoning != "" {
		fmt.Fprintf(&b, "## Reasoning\n\n%s\n", plan.Reasoning)
	}
	return b.String()
}

// HTML converts Markdown to HTML, tables included.
func HTML(md string) (string, error) {
	var buf bytes.Buffer
	gm := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := gm.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("failed to render html: %w", err)
	}
	return buf.String(), nil
}

// RenderTerminal styles Markdown for a terminal. It returns md unchanged
// when rendering fails.
func RenderTerminal(md string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// ScoreBar draws score out of 100 as a bar of width cells.
func ScoreBar(score float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(math.Round(math.Max(0, math.Min(100, score)) / 100 * float64(width)))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// ProgressionSummary lists the overall score of every iteration followed by
// the total change from the first to the last.
func ProgressionSummary(evals []scoring.EvalResult) string {
	if len(evals) == 0 {
		return ""
	}
	var b strings.Builder
	for i, e := range evals {
		fmt.Fprintf(&b, "Iteration %d: %5.1f/100 %s\n", i+1, e.Overall(), ScoreBar(e.Overall(), 20))
	}
	delta := evals[len(evals)-1].Overall() - evals[0].Overall()
	fmt.Fprintf(&b, "Total improvement: %+.1f points\n", delta)
	return b.String()
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
