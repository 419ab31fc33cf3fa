// Package agent is the orchestration core: it turns a request into a plan,
// runs the plan against capability providers and streams progress.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mohamedsaligh/mcp-server-client/internal/governance"
	"github.com/mohamedsaligh/mcp-server-client/internal/llm"
	"github.com/mohamedsaligh/mcp-server-client/internal/observability"
	"github.com/mohamedsaligh/mcp-server-client/internal/store"
)

type CapabilityRegistry interface {
	ListServers(ctx context.Context) ([]store.Server, error)
	GetServerByName(ctx context.Context, name string) (store.Server, error)
}

type CredentialRegistry interface {
	ActiveCredential(ctx context.Context) (store.Credential, bool, error)
}

type HistoryStore interface {
	SessionTitle(ctx context.Context, sessionID string) (string, bool, error)
	SaveRun(ctx context.Context, rec store.ChatRecord) (store.ChatRecord, error)
}

// Store is everything the pipeline reads and writes. *store.Store satisfies it.
type Store interface {
	CapabilityRegistry
	CredentialRegistry
	HistoryStore
}

// Provider is the capability provider protocol.
type Provider interface {
	Manifest(ctx context.Context, endpoint string) (json.RawMessage, error)
	Process(ctx context.Context, endpoint string, payload any) (json.RawMessage, error)
}

// OracleFactory builds the planning oracle and summarizer from a credential.
type OracleFactory func(store.Credential) (llm.Completer, error)

const (
	DefaultEventBuffer   = 16
	DefaultOracleTimeout = 60 * time.Second
)

type Request struct {
	SessionID string
	UserID    string
	Prompt    string
}

// Pipeline runs requests. It holds no per-run state, so one Pipeline serves
// concurrent runs.
type Pipeline struct {
	Store         Store
	Provider      Provider
	NewOracle     OracleFactory
	Prompts       *PromptManager
	Policy        governance.Policy
	Logger        *observability.Logger
	Metrics       *observability.Metrics
	EventBuffer   int
	OracleTimeout time.Duration
	Now           func() time.Time
}

func NewPipeline(st Store, provider Provider, newOracle OracleFactory, prompts *PromptManager, logger *observability.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		Store:         st,
		Provider:      provider,
		NewOracle:     newOracle,
		Prompts:       prompts,
		Logger:        logger,
		Metrics:       metrics,
		EventBuffer:   DefaultEventBuffer,
		OracleTimeout: DefaultOracleTimeout,
		Now:           time.Now,
	}
}

// Run starts one invocation and returns its progress stream. The stream is
// closed after the terminal event, or once ctx is cancelled; a cancelled run
// emits nothing further and is not persisted.
func (p *Pipeline) Run(ctx context.Context, req Request) <-chan Event {
	buf := p.EventBuffer
	if buf <= 0 {
		buf = DefaultEventBuffer
	}
	events := make(chan Event, buf)
	go func() {
		defer close(events)
		r := &run{p: p, ctx: ctx, req: req, events: events, started: time.Now()}
		r.execute()
	}()
	return events
}

var errCancelled = errors.New("run cancelled")

// run is the per-invocation state, built at INIT and dropped at the end.
type run struct {
	p       *Pipeline
	ctx     context.Context
	req     Request
	events  chan<- Event
	state   State
	step    int
	started time.Time

	oracle        llm.Completer
	plannerPrompt string
	finalPrompt   string
	capabilities  []CapabilitySummary
	planText      string
	plan          []PlanStep
	steps         []ExecutionStep
	finalAnswer   string
}

func (r *run) execute() {
	err := r.pipeline()

	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, errCancelled) || r.ctx.Err() != nil:
		outcome = "cancelled"
		log.Printf("[PIPELINE] session=%s cancelled in %s", r.req.SessionID, r.state)
	default:
		outcome = "error"
		from := r.state
		r.advance(StateErrored)
		msg := "Orchestration failed: " + err.Error()
		log.Printf("[PIPELINE] session=%s failed in %s: %v", r.req.SessionID, from, err)
		_ = r.emit(EventError, Message{Message: msg})
	}
	r.p.Metrics.RunFinished(outcome)
	r.p.Logger.LogRun(r.req.SessionID, outcome, len(r.steps), time.Since(r.started))
}

func (r *run) pipeline() error {
	if err := r.initialize(); err != nil {
		return err
	}
	if err := r.gather(); err != nil {
		return err
	}
	if err := r.acquirePlan(); err != nil {
		return err
	}
	if err := r.executeSteps(); err != nil {
		return err
	}
	if err := r.summarize(); err != nil {
		return err
	}
	return r.persistAndReport()
}

// INIT → REFINER_READY
func (r *run) initialize() error {
	if err := r.status("Initializing LLM refiner"); err != nil {
		return err
	}
	cred, ok, err := r.p.Store.ActiveCredential(r.ctx)
	if err != nil {
		return newError(KindConfiguration, err, "failed to read credential registry")
	}
	if !ok {
		return newError(KindConfiguration, nil, "no planning credential configured")
	}
	oracle, err := r.p.NewOracle(cred)
	if err != nil {
		return newError(KindConfiguration, err, "failed to initialize planning oracle %q", cred.Name)
	}
	r.oracle = oracle

	if r.plannerPrompt, err = r.p.Prompts.GetPlannerPrompt(); err != nil {
		return newError(KindConfiguration, err, "missing planner instruction")
	}
	if r.finalPrompt, err = r.p.Prompts.GetFinalAnswerPrompt(); err != nil {
		return newError(KindConfiguration, err, "missing final answer instruction")
	}
	r.advance(StateRefinerReady)
	return nil
}

// → CAPABILITIES_GATHERED
func (r *run) gather() error {
	if err := r.status("Gathering MCP server information"); err != nil {
		return err
	}
	g := &Gatherer{Registry: r.p.Store, Provider: r.p.Provider, Logger: r.p.Logger, Metrics: r.p.Metrics}
	start := time.Now()
	caps, err := g.Gather(r.ctx, r.req.SessionID)
	r.p.Metrics.ObserveStage("discovery", start)
	if err := r.cancelled(); err != nil {
		return err
	}
	if err != nil {
		return err
	}
	if len(caps) == 0 {
		return newError(KindConfiguration, nil, "no capability providers available")
	}
	r.capabilities = caps
	r.advance(StateCapabilitiesGathered)
	return nil
}

// → PLAN_ACQUIRED
func (r *run) acquirePlan() error {
	if err := r.status("Generating execution plan"); err != nil {
		return err
	}
	planner := &Planner{Oracle: r.completer("planning")}
	raw, plan, err := planner.Acquire(r.ctx, r.plannerPrompt, r.req.Prompt, r.capabilities)
	if err := r.cancelled(); err != nil {
		return err
	}
	if err != nil {
		return err
	}
	r.planText, r.plan = raw, plan
	r.p.Logger.LogPlan(r.req.SessionID, plan)
	r.advance(StatePlanAcquired)
	return r.emit(EventPlan, plan)
}

// EXECUTING[i] → STEPS_DONE
func (r *run) executeSteps() error {
	x := &Executor{
		Registry:   r.p.Store,
		Provider:   r.p.Provider,
		Summarizer: r.completer("refinement"),
		Policy:     r.p.Policy,
		Logger:     r.p.Logger,
		Metrics:    r.p.Metrics,
	}
	total := len(r.plan)
	for i, step := range r.plan {
		r.step = i
		r.advance(StateExecuting)
		err := r.emit(EventTaskStart, TaskStart{
			Index:      i + 1,
			Total:      total,
			ServerName: step.ServerName,
			Message:    fmt.Sprintf("Executing task %d/%d: %s", i+1, total, step.ServerName),
		})
		if err != nil {
			return err
		}

		start := time.Now()
		done, err := x.Execute(r.ctx, r.req.SessionID, i+1, step, r.steps)
		r.p.Metrics.ObserveStage("step", start)
		if err := r.cancelled(); err != nil {
			return err
		}
		if err != nil {
			return err
		}
		r.steps = append(r.steps, done)
		r.p.Logger.LogStep(r.req.SessionID, i+1, done)
		if err := r.emit(EventTaskComplete, done); err != nil {
			return err
		}
	}
	r.advance(StateStepsDone)
	return nil
}

// STEPS_DONE → SUMMARIZED
func (r *run) summarize() error {
	if err := r.status("Formatting final response"); err != nil {
		return err
	}
	answer, err := Summarize(r.ctx, r.completer("summarization"), r.finalPrompt, r.steps)
	if err := r.cancelled(); err != nil {
		return err
	}
	if err != nil {
		return err
	}
	r.finalAnswer = answer
	r.advance(StateSummarized)
	return nil
}

// → PERSISTED → DONE. A persistence failure is reported after the result.
func (r *run) persistAndReport() error {
	if err := r.cancelled(); err != nil {
		return err
	}
	rec := &Recorder{History: r.p.Store, Now: r.p.Now}
	start := time.Now()
	saved, perr := rec.Record(r.ctx, Run{
		SessionID:      r.req.SessionID,
		UserID:         r.req.UserID,
		OriginalPrompt: r.req.Prompt,
		PlanText:       r.planText,
		Plan:           r.plan,
		Steps:          r.steps,
		FinalAnswer:    r.finalAnswer,
	})
	r.p.Metrics.ObserveStage("persistence", start)
	r.p.Logger.LogPersist(r.req.SessionID, saved.ID, perr)
	if perr != nil {
		log.Printf("[PIPELINE] session=%s: %v", r.req.SessionID, perr)
	}
	r.advance(StatePersisted)

	err := r.emit(EventResult, Result{
		SessionID:   r.req.SessionID,
		Steps:       r.steps,
		FinalAnswer: r.finalAnswer,
	})
	if err != nil {
		return err
	}
	if perr != nil {
		if err := r.emit(EventWarning, Message{Message: perr.Error()}); err != nil {
			return err
		}
	}
	r.advance(StateDone)
	return nil
}

// completer wraps the run's oracle with its own timeout and an llm log entry.
func (r *run) completer(stage string) llm.Completer {
	return llm.CompleterFunc(func(ctx context.Context, prompt string, c llm.Context) (string, error) {
		if r.p.OracleTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.p.OracleTimeout)
			defer cancel()
		}
		start := time.Now()
		out, err := r.oracle.Complete(ctx, prompt, c)
		r.p.Metrics.ObserveStage(stage, start)
		r.p.Logger.LogLLM(r.req.SessionID, stage, prompt, c.System, out, err)
		return out, err
	})
}

func (r *run) status(msg string) error {
	return r.emit(EventStatus, Message{Message: msg})
}

// emit delivers one event unless the caller has gone away.
func (r *run) emit(kind EventKind, data any) error {
	if r.ctx.Err() != nil {
		return errCancelled
	}
	select {
	case r.events <- Event{Kind: kind, Data: data}:
		return nil
	case <-r.ctx.Done():
		return errCancelled
	}
}

func (r *run) cancelled() error {
	if r.ctx.Err() != nil {
		return errCancelled
	}
	return nil
}

func (r *run) advance(to State) {
	if to == StateExecuting {
		log.Printf("[PIPELINE] session=%s %s -> %s[%d]", r.req.SessionID, r.state, to, r.step)
	} else {
		log.Printf("[PIPELINE] session=%s %s -> %s", r.req.SessionID, r.state, to)
	}
	r.state = to
}
