package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"triage-assist/pkg"
)

const parseSnippetLimit = 200

// ExtractStructuredPayload decodes raw generator text into a generic JSON
// value.  Text that is not JSON as a whole is retried on the span from the
// first '{' to the last '}', which tolerates prose around a single object.
// The result has not been validated.
func ExtractStructuredPayload(rawText string) (any, error) {
	var direct any
	directErr := json.Unmarshal([]byte(rawText), &direct)
	if directErr == nil {
		return direct, nil
	}

	start := strings.Index(rawText, "{")
	end := strings.LastIndex(rawText, "}")
	if start < 0 || end < start {
		return nil, &ParseError{Snippet: truncate(rawText, parseSnippetLimit), Err: directErr}
	}

	var block any
	if err := json.Unmarshal([]byte(rawText[start:end+1]), &block); err != nil {
		return nil, &ParseError{Snippet: truncate(rawText, parseSnippetLimit), Err: err}
	}
	return block, nil
}

// DecodeTriageResponse converts a generic value into the typed response.
// It fails only where ValidateTriageResponse fails.  Everything beyond those
// checks is read leniently: scalar fields of another JSON type are rendered
// as text, steps that are not objects are skipped, and an unrecognised
// urgencyAtThisStep is dropped.
func DecodeTriageResponse(payload any) (*pkg.TriageResponse, error) {
	if err := ValidateTriageResponse(payload); err != nil {
		return nil, err
	}
	root := payload.(map[string]any)
	result := root["result"].(map[string]any)
	protocol, _ := root["protocol"].(map[string]any)
	input, _ := root["input"].(map[string]any)

	resp := &pkg.TriageResponse{
		Version: pkg.SchemaVersion,
		Protocol: pkg.Protocol{
			Name: textField(protocol, "name"),
			Note: textField(protocol, "note"),
		},
		Input: pkg.ReportInput{ReportText: textField(input, "reportText")},
		Result: pkg.TriageResult{
			Urgency:           pkg.UrgencyLevel(result["urgency"].(string)),
			RecommendedAction: textField(result, "recommendedAction"),
			Summary:           textField(result, "summary"),
			Steps:             decodeSteps(result["steps"].([]any)),
			Cautions:          decodeCautions(result["cautions"]),
		},
	}
	return resp, nil
}

func decodeSteps(raw []any) []pkg.DecisionStep {
	steps := make([]pkg.DecisionStep, 0, len(raw))
	for _, v := range raw {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		step := pkg.DecisionStep{
			ID:       textField(m, "id"),
			Question: textField(m, "question"),
			Evidence: textField(m, "evidence"),
			Decision: textField(m, "decision"),
		}
		if next, ok := m["next"]; ok && next != nil {
			label := text(next)
			step.Next = &label
		}
		if s, ok := m["urgencyAtThisStep"].(string); ok {
			if u, ok := pkg.ParseUrgency(s); ok {
				step.UrgencyAtThisStep = &u
			}
		}
		steps = append(steps, step)
	}
	return steps
}

// decodeCautions accepts an array (null entries dropped) or a single value.
// Absent cautions stay nil.
func decodeCautions(raw any) []string {
	switch v := raw.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, c := range v {
			if c != nil {
				out = append(out, text(c))
			}
		}
		return out
	case nil:
		return nil
	default:
		return []string{text(v)}
	}
}

func textField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	return text(m[key])
}

// text renders a decoded JSON value for display.  Strings are returned as
// is, null as "", anything else as compact JSON.
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// ParseModelOutput takes raw generator text through extraction, validation
// and typed decoding.  The only rejections are a *ParseError or a
// *SchemaValidationError from the shallow checks.
func ParseModelOutput(rawText string) (*pkg.TriageResponse, error) {
	payload, err := ExtractStructuredPayload(rawText)
	if err != nil {
		return nil, err
	}
	return DecodeTriageResponse(payload)
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "…"
}
