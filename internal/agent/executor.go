package agent

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/mohamedsaligh/mcp-server-client/internal/governance"
	"github.com/mohamedsaligh/mcp-server-client/internal/llm"
	"github.com/mohamedsaligh/mcp-server-client/internal/observability"
	"github.com/mohamedsaligh/mcp-server-client/internal/store"
	"github.com/mohamedsaligh/mcp-server-client/internal/tools"
)

// ExecutionStep records one executed PlanStep: the payload actually sent and
// the provider's response, or the error-shaped value standing in for it.
type ExecutionStep struct {
	ServerName string          `json:"server_name"`
	Request    *Payload        `json:"request"`
	Response   json.RawMessage `json:"response"`

	providerFailed bool
}

// ProviderFailed reports whether Response is a captured provider failure or
// a policy denial.
func (s ExecutionStep) ProviderFailed() bool { return s.providerFailed }

// Executor runs single plan steps against their providers.
type Executor struct {
	Registry   CapabilityRegistry
	Provider   Provider
	Summarizer llm.Completer
	Policy     governance.Policy
	Logger     *observability.Logger
	Metrics    *observability.Metrics
}

// Execute runs step given the steps already executed in this run. Provider
// failures are folded into the response; an unresolved server, a malformed
// step or a failed refinement is returned as an error.
func (x *Executor) Execute(ctx context.Context, sessionID string, index int, step PlanStep, prior []ExecutionStep) (ExecutionStep, error) {
	if step.ServerName == "" {
		return ExecutionStep{}, newError(KindPlanStep, nil, "plan step %d has no server_name", index)
	}
	if step.Payload == nil {
		return ExecutionStep{}, newError(KindPlanStep, nil, "plan step %d (%s) has no payload", index, step.ServerName)
	}

	payload := step.Payload.Clone()
	if step.RefinePrevious && len(prior) > 0 {
		payload.Set(PreviousResultField, prior[len(prior)-1].Response)
	}

	srv, err := x.Registry.GetServerByName(ctx, step.ServerName)
	if errors.Is(err, store.ErrNotFound) {
		return ExecutionStep{}, newError(KindPlanStep, nil, "MCP Server '%s' not found", step.ServerName)
	}
	if err != nil {
		return ExecutionStep{}, newError(KindPlanStep, err, "failed to resolve MCP Server '%s'", step.ServerName)
	}

	out := ExecutionStep{ServerName: step.ServerName, Request: payload}
	denied, err := x.check(ctx, sessionID, srv, payload)
	if err != nil {
		return ExecutionStep{}, newError(KindPlanStep, err, "failed to evaluate policy for MCP Server '%s'", step.ServerName)
	}

	var response json.RawMessage
	if denied != "" {
		log.Printf("[EXECUTOR] Step %d: denied: %s", index, denied)
		x.Metrics.StepFinished("denied")
		response, _ = json.Marshal(map[string]string{"error": denied})
		out.providerFailed = true
	} else if response, err = x.Provider.Process(ctx, srv.EndpointURL, payload); err != nil {
		var pe *tools.ProviderError
		if !errors.As(err, &pe) {
			pe = &tools.ProviderError{Endpoint: srv.EndpointURL, Err: err}
		}
		log.Printf("[EXECUTOR] Step %d: %v", index, pe)
		x.Logger.LogProviderError(sessionID, index, srv.EndpointURL, pe)
		x.Metrics.StepFinished("provider_error")
		response = pe.Response()
		out.providerFailed = true
	} else {
		x.Metrics.StepFinished("ok")
	}

	if step.RefineLLM {
		refined, err := x.Summarizer.Complete(ctx, string(response), llm.Context{System: step.RefineInstruction})
		if err != nil {
			return ExecutionStep{}, newError(KindRefinement, err, "failed to refine response of step %d (%s)", index, step.ServerName)
		}
		response, _ = json.Marshal(refined)
	}

	out.Response = response
	return out, nil
}

// check returns the denial reason, or "" when the step may be dispatched.
func (x *Executor) check(ctx context.Context, sessionID string, srv store.Server, payload *Payload) (string, error) {
	if x.Policy == nil {
		return "", nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	d, err := x.Policy.Evaluate(ctx, governance.Request{
		SessionID:  sessionID,
		ServerName: srv.Name,
		Endpoint:   srv.EndpointURL,
		Payload:    string(body),
	})
	if err != nil {
		return "", err
	}
	if d.Allowed() {
		return "", nil
	}
	return d.Reason, nil
}
