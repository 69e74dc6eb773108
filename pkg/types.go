package pkg

import "time"

// SchemaVersion is the only version tag a triage response may carry.
const SchemaVersion = "0.1"

// UrgencyLevel is one of the five triage tiers.  Severity runs
// red > orange > yellow > green > white, but the type itself is just a token.
type UrgencyLevel string

const (
	UrgencyRed    UrgencyLevel = "red"
	UrgencyOrange UrgencyLevel = "orange"
	UrgencyYellow UrgencyLevel = "yellow"
	UrgencyGreen  UrgencyLevel = "green"
	UrgencyWhite  UrgencyLevel = "white"
)

// UrgencyLevels lists every level from most to least severe.
var UrgencyLevels = []UrgencyLevel{UrgencyRed, UrgencyOrange, UrgencyYellow, UrgencyGreen, UrgencyWhite}

var urgencyLabels = map[UrgencyLevel]string{
	UrgencyRed:    "赤：緊急",
	UrgencyOrange: "橙：至急",
	UrgencyYellow: "黄：注意",
	UrgencyGreen:  "緑：経過観察",
	UrgencyWhite:  "白：判定保留",
}

var urgencyActions = map[UrgencyLevel]string{
	UrgencyRed:    "119通報・転送",
	UrgencyOrange: "いますぐ受診（救急車以外で）",
	UrgencyYellow: "これから受診（通常の受付時間を待たず自力受診）",
	UrgencyGreen:  "通常の受付時間に受診",
	UrgencyWhite:  "受診不要・経過観察（不安なら相談）",
}

// Valid reports whether u is one of the five recognised tokens.
func (u UrgencyLevel) Valid() bool {
	_, ok := urgencyActions[u]
	return ok
}

// Label returns the display label, or "" for an unknown level.
func (u UrgencyLevel) Label() string { return urgencyLabels[u] }

// Action returns the canonical recommended action, or "" for an unknown level.
func (u UrgencyLevel) Action() string { return urgencyActions[u] }

// Rank orders levels by severity (red highest, white 0).  Unknown levels
// rank below white.
func (u UrgencyLevel) Rank() int {
	switch u {
	case UrgencyRed:
		return 4
	case UrgencyOrange:
		return 3
	case UrgencyYellow:
		return 2
	case UrgencyGreen:
		return 1
	case UrgencyWhite:
		return 0
	}
	return -1
}

// ParseUrgency converts a token into an UrgencyLevel.
func ParseUrgency(s string) (UrgencyLevel, bool) {
	u := UrgencyLevel(s)
	return u, u.Valid()
}

// DecisionStep is one node of the visible reasoning trail.  Next is nil once
// the flow has no further node; UrgencyAtThisStep is nil when this step did
// not settle an urgency.
type DecisionStep struct {
	ID                string        `json:"id"`
	Question          string        `json:"question"`
	Evidence          string        `json:"evidence"`
	Decision          string        `json:"decision"`
	Next              *string       `json:"next"`
	UrgencyAtThisStep *UrgencyLevel `json:"urgencyAtThisStep,omitempty"`
}

// TriageResult is the verdict part of a response.  Steps are in traversal
// order.
type TriageResult struct {
	Urgency           UrgencyLevel   `json:"urgency"`
	RecommendedAction string         `json:"recommendedAction"`
	Summary           string         `json:"summary"`
	Steps             []DecisionStep `json:"steps"`
	Cautions          []string       `json:"cautions"`
}

// Protocol names the decision protocol a response was produced under.
type Protocol struct {
	Name string `json:"name"`
	Note string `json:"note"`
}

// ReportInput echoes the caller's report.
type ReportInput struct {
	ReportText string `json:"reportText"`
}

// TriageResponse is the full envelope produced by either evaluator.  It is
// built in one go and never mutated afterwards.
type TriageResponse struct {
	Version  string       `json:"version"`
	Protocol Protocol     `json:"protocol"`
	Input    ReportInput  `json:"input"`
	Result   TriageResult `json:"result"`
}

// TriageRequest is the body accepted by POST /api/triage.
type TriageRequest struct {
	ReportText string `json:"reportText"`
	Mode       string `json:"mode"`
}

// UrgencyInfo describes one level for presentation.
type UrgencyInfo struct {
	Urgency UrgencyLevel `json:"urgency"`
	Label   string       `json:"label"`
	Action  string       `json:"action"`
	Color   Color        `json:"color"`
}

// Color is the badge palette for an urgency level.
type Color struct {
	Background string `json:"bg"`
	Foreground string `json:"fg"`
	Border     string `json:"border"`
}

var urgencyColors = map[UrgencyLevel]Color{
	UrgencyRed:    {Background: "#B00020", Foreground: "#FFFFFF", Border: "#7F0016"},
	UrgencyOrange: {Background: "#C2410C", Foreground: "#FFFFFF", Border: "#7C2D12"},
	UrgencyYellow: {Background: "#B45309", Foreground: "#111827", Border: "#92400E"},
	UrgencyGreen:  {Background: "#065F46", Foreground: "#ECFDF5", Border: "#064E3B"},
	UrgencyWhite:  {Background: "#F3F4F6", Foreground: "#111827", Border: "#D1D5DB"},
}

// Color returns the badge palette for u.  Unknown levels get the white palette.
func (u UrgencyLevel) Color() Color {
	if c, ok := urgencyColors[u]; ok {
		return c
	}
	return urgencyColors[UrgencyWhite]
}

// Info bundles the label, action and colour of u.
func (u UrgencyLevel) Info() UrgencyInfo {
	return UrgencyInfo{Urgency: u, Label: u.Label(), Action: u.Action(), Color: u.Color()}
}

// RunRecord is a stored evaluation as returned by the history API.
type RunRecord struct {
	ID        string          `json:"id"`
	Mode      string          `json:"mode"`
	Provider  string          `json:"provider,omitempty"`
	Urgency   UrgencyLevel    `json:"urgency"`
	Summary   string          `json:"summary"`
	CreatedAt time.Time       `json:"created_at"`
	Response  *TriageResponse `json:"response,omitempty"`
}

// UrgencyCount is the number of stored runs that ended at one level.
type UrgencyCount struct {
	Urgency UrgencyLevel `json:"urgency"`
	Label   string       `json:"label"`
	Count   int          `json:"count"`
}
