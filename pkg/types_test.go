package pkg

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUrgencyLevels_LabelAndActionAreTotal(t *testing.T) {
	require.Len(t, UrgencyLevels, 5)
	seen := map[string]bool{}
	for _, u := range UrgencyLevels {
		assert.True(t, u.Valid(), "level %s", u)
		assert.NotEmpty(t, u.Label(), "label for %s", u)
		assert.NotEmpty(t, u.Action(), "action for %s", u)
		assert.False(t, seen[u.Action()], "action for %s is shared", u)
		seen[u.Action()] = true
	}
}

func TestUrgencyLevel_Rank(t *testing.T) {
	for i := 1; i < len(UrgencyLevels); i++ {
		assert.Greater(t, UrgencyLevels[i-1].Rank(), UrgencyLevels[i].Rank())
	}
	assert.Equal(t, -1, UrgencyLevel("purple").Rank())
}

func TestParseUrgency(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"red", true},
		{"white", true},
		{"Red", false},
		{"purple", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			u, ok := ParseUrgency(tt.in)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, UrgencyLevel(tt.in), u)
		})
	}
}

func TestUrgencyLevel_UnknownFallsBack(t *testing.T) {
	u := UrgencyLevel("purple")
	assert.Empty(t, u.Label())
	assert.Empty(t, u.Action())
	assert.Equal(t, UrgencyWhite.Color(), u.Color())
}

func TestDecisionStep_JSONFieldNames(t *testing.T) {
	next := "END"
	red := UrgencyRed
	data, err := json.Marshal([]DecisionStep{
		{ID: "a", Question: "q", Evidence: "e", Decision: "d"},
		{ID: "b", Question: "q", Evidence: "e", Decision: "d", Next: &next, UrgencyAtThisStep: &red},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"id":"a","question":"q","evidence":"e","decision":"d","next":null},
		{"id":"b","question":"q","evidence":"e","decision":"d","next":"END","urgencyAtThisStep":"red"}
	]`, string(data))
}

func TestTriageResponse_JSONFieldNames(t *testing.T) {
	resp := TriageResponse{
		Version:  SchemaVersion,
		Protocol: Protocol{Name: "n", Note: "o"},
		Input:    ReportInput{ReportText: "r"},
		Result: TriageResult{
			Urgency:           UrgencyGreen,
			RecommendedAction: UrgencyGreen.Action(),
			Summary:           "s",
			Steps:             []DecisionStep{},
			Cautions:          []string{"c"},
		},
	}
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))
	assert.Equal(t, "0.1", generic["version"])
	assert.Equal(t, map[string]any{"name": "n", "note": "o"}, generic["protocol"])
	assert.Equal(t, map[string]any{"reportText": "r"}, generic["input"])
	result := generic["result"].(map[string]any)
	for _, key := range []string{"urgency", "recommendedAction", "summary", "steps", "cautions"} {
		assert.Contains(t, result, key)
	}
}
