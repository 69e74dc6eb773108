package core

import (
	"triage-assist/pkg"
)

// IsValidTriageResponse is the minimum gate a decoded value must pass before
// it is displayed as a triage response.  It only checks version, result,
// result.urgency and that result.steps is an array; step contents, cautions
// and the other string fields are not inspected.  It never panics.
func IsValidTriageResponse(value any) bool {
	return ValidateTriageResponse(value) == nil
}

// ValidateTriageResponse applies the same checks as IsValidTriageResponse and
// returns a *SchemaValidationError describing the first failure.
func ValidateTriageResponse(value any) error {
	root, ok := value.(map[string]any)
	if !ok || root == nil {
		return &SchemaValidationError{Field: "(root)", Reason: "is not an object"}
	}
	if version, ok := root["version"].(string); !ok || version != pkg.SchemaVersion {
		return &SchemaValidationError{Field: "version", Reason: "must be \"" + pkg.SchemaVersion + "\""}
	}
	result, ok := root["result"].(map[string]any)
	if !ok || result == nil {
		return &SchemaValidationError{Field: "result", Reason: "is not an object"}
	}
	urgency, ok := result["urgency"].(string)
	if !ok {
		return &SchemaValidationError{Field: "result.urgency", Reason: "is not a string"}
	}
	if _, ok := pkg.ParseUrgency(urgency); !ok {
		return &SchemaValidationError{Field: "result.urgency", Reason: "is not a recognised level: " + urgency}
	}
	if _, ok := result["steps"].([]any); !ok {
		return &SchemaValidationError{Field: "result.steps", Reason: "is not an array"}
	}
	return nil
}
