package core

import (
	"fmt"
	"sync"

	"triage-assist/pkg"
)

// EndMarker is the next label of the step that ends an evaluation.
const EndMarker = "END"

// Engine walks a Protocol's gates over a report.  It holds no mutable state
// and may be shared between goroutines.
type Engine struct {
	protocol *Protocol
}

var defaultEngine = sync.OnceValue(func() *Engine {
	return &Engine{protocol: DefaultProtocol()}
})

// NewEngine returns an engine for p.  A nil p selects DefaultProtocol.  p is
// validated and copied; later changes to it do not reach the engine.
func NewEngine(p *Protocol) (*Engine, error) {
	if p == nil {
		return defaultEngine(), nil
	}
	prepared, err := p.prepare()
	if err != nil {
		return nil, fmt.Errorf("invalid protocol %q: %w", p.Name, err)
	}
	return &Engine{protocol: prepared}, nil
}

// Protocol returns the protocol the engine evaluates.
func (e *Engine) Protocol() *Protocol { return e.protocol }

// RunHeuristicTriage evaluates reportText against the default protocol.
func RunHeuristicTriage(reportText string) *pkg.TriageResponse {
	return defaultEngine().Evaluate(reportText)
}

// Evaluate classifies reportText.  Gates run in declared order and the first
// one that fires ends the evaluation; the terminal gate always ends it.  Any
// input, including "", yields a complete response.
func (e *Engine) Evaluate(reportText string) *pkg.TriageResponse {
	normalized := stripSpace(reportText)
	steps := make([]pkg.DecisionStep, 0, len(e.protocol.Gates))

	for i := range e.protocol.Gates {
		g := &e.protocol.Gates[i]
		keyword, fired := g.match(reportText, normalized)

		branch := g.OnMiss
		if fired {
			branch = g.OnMatch
		}
		step := pkg.DecisionStep{
			ID:       g.ID,
			Question: g.Question,
			Evidence: branch.evidence(keyword),
			Decision: branch.Decision,
		}
		if !fired && !g.Terminal {
			step.Next = strPtr(branch.Next)
			steps = append(steps, step)
			continue
		}

		urgency := branch.Urgency
		step.Next = strPtr(EndMarker)
		step.UrgencyAtThisStep = &urgency
		steps = append(steps, step)
		return e.response(reportText, urgency, branch, steps)
	}
	panic(fmt.Sprintf("core: protocol %q has no terminal gate", e.protocol.Name))
}

func (e *Engine) response(reportText string, urgency pkg.UrgencyLevel, b Branch, steps []pkg.DecisionStep) *pkg.TriageResponse {
	cautions := make([]string, len(b.Cautions))
	copy(cautions, b.Cautions)
	return &pkg.TriageResponse{
		Version: pkg.SchemaVersion,
		Protocol: pkg.Protocol{
			Name: e.protocol.Name,
			Note: e.protocol.Note,
		},
		Input: pkg.ReportInput{ReportText: reportText},
		Result: pkg.TriageResult{
			Urgency:           urgency,
			RecommendedAction: urgency.Action(),
			Summary:           b.Summary,
			Steps:             steps,
			Cautions:          cautions,
		},
	}
}

func strPtr(s string) *string { return &s }
