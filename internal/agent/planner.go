package agent

import (
	"context"

	"github.com/mohamedsaligh/mcp-server-client/internal/llm"
)

// Planner asks the oracle for a plan and parses it.
type Planner struct {
	Oracle llm.Completer
}

// Acquire returns the oracle's raw text and the plan parsed from it. Both the
// oracle call and the parse fail as planning errors; nothing is retried.
func (p *Planner) Acquire(ctx context.Context, instruction, prompt string, capabilities []CapabilitySummary) (string, []PlanStep, error) {
	raw, err := p.Oracle.Complete(ctx, prompt, llm.Context{
		System:       instruction,
		Capabilities: capabilities,
	})
	if err != nil {
		return "", nil, newError(KindPlanning, err, "failed to acquire plan")
	}
	steps, err := ParsePlan(raw)
	if err != nil {
		return raw, nil, err
	}
	return raw, steps, nil
}
