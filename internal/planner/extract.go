package planner

import (
	"encoding/json"
	"regexp"
	"strings"

	"meal-planner-agent/internal/shared"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json|JSON)?[ \t]*\r?\n?(.*?)```")

// ExtractJSON pulls the structured payload out of a free-form model reply.
// A fenced code block holding an object wins; otherwise the first balanced
// top-level object in the text is used.
func ExtractJSON(text string) (string, error) {
	for _, m := range fencedBlock.FindAllStringSubmatch(text, -1) {
		body := strings.TrimSpace(m[1])
		if strings.HasPrefix(body, "{") {
			if obj, ok := firstObject(body); ok {
				return obj, nil
			}
		}
	}

	if obj, ok := firstObject(text); ok {
		return obj, nil
	}

	reason := "no JSON object found"
	if strings.Contains(text, "{") {
		reason = "unterminated JSON object"
	}
	return "", &shared.ResponseParseError{Reason: reason, Raw: text}
}

// firstObject scans for the first '{' whose matching '}' closes a balanced
// object, honouring string literals and escapes.
func firstObject(text string) (string, bool) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		depth := 0
		inString, escaped := false, false
		for i := start; i < len(text); i++ {
			c := text[i]
			switch {
			case escaped:
				escaped = false
			case inString && c == '\\':
				escaped = true
			case c == '"':
				inString = !inString
			case inString:
			case c == '{':
				depth++
			case c == '}':
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			return "", false
		}
		start += next + 1
	}
	return "", false
}

// DecodePayload extracts the JSON object from text and decodes it into v.
// Every failure is reported as a *shared.ResponseParseError tagged with
// stage.
func DecodePayload(stage, text string, v any) error {
	payload, err := ExtractJSON(text)
	if err != nil {
		perr := err.(*shared.ResponseParseError)
		perr.Stage = stage
		return perr
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return &shared.ResponseParseError{
			Stage:  stage,
			Reason: "invalid JSON payload",
			Raw:    text,
			Err:    err,
		}
	}
	return nil
}

// DecodePlan turns a generator reply into a MealPlan. A reply without any
// daily meals is rejected rather than treated as an empty week.
func DecodePlan(text string) (MealPlan, error) {
	var w wirePlan
	if err := DecodePayload(StageGenerator, text, &w); err != nil {
		return MealPlan{}, err
	}
	if len(w.DailyMeals) == 0 {
		return MealPlan{}, &shared.ResponseParseError{
			Stage:  StageGenerator,
			Reason: "payload has no daily_meals",
			Raw:    text,
		}
	}
	payload, _ := ExtractJSON(text)
	plan, err := w.toMealPlan(payload)
	if err != nil {
		return MealPlan{}, &shared.ResponseParseError{
			Stage:  StageGenerator,
			Reason: err.Error(),
			Raw:    text,
		}
	}
	return plan, nil
}
