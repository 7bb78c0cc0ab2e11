package planner

import (
	"bytes"
	"strings"
	"text/template"
)

var promptFuncs = template.FuncMap{
	"join": func(items []string) string {
		if len(items) == 0 {
			return "none"
		}
		return strings.Join(items, ", ")
	},
	"percent": func(w float64) float64 { return w * 100 },
}

type scheduledMeal struct {
	Day         Day
	Description string
}

func scheduledMeals(req PlanRequest) []scheduledMeal {
	var out []scheduledMeal
	for _, d := range req.ScheduledDays() {
		out = append(out, scheduledMeal{Day: d, Description: req.ScheduledMeals[d]})
	}
	return out
}

func renderPrompt(name, text string, data any) (string, error) {
	tmpl, err := template.New(name).Funcs(promptFuncs).Parse(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
