package agent

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mohamedsaligh/mcp-server-client/internal/store"
)

const (
	newSessionTitleLen      = 25
	existingSessionTitleLen = 40
)

// Run is everything one invocation produced, handed to the Recorder once.
type Run struct {
	SessionID      string
	UserID         string
	OriginalPrompt string
	PlanText       string
	Plan           []PlanStep
	Steps          []ExecutionStep
	FinalAnswer    string
}

// Recorder writes completed runs to the session history.
type Recorder struct {
	History HistoryStore
	Now     func() time.Time
}

// Title returns the session's existing title, or derives one from prompt:
// 25 characters for a new session, 40 for one with untitled history.
func (r *Recorder) Title(ctx context.Context, sessionID, prompt string) (string, error) {
	title, exists, err := r.History.SessionTitle(ctx, sessionID)
	if err != nil {
		return "", err
	}
	switch {
	case exists && title != "":
		return title, nil
	case exists:
		return truncate(prompt, existingSessionTitleLen), nil
	default:
		return truncate(prompt, newSessionTitleLen), nil
	}
}

// Record inserts run as a fresh history row.
func (r *Recorder) Record(ctx context.Context, run Run) (store.ChatRecord, error) {
	title, err := r.Title(ctx, run.SessionID, run.OriginalPrompt)
	if err != nil {
		return store.ChatRecord{}, newError(KindPersistence, err, "failed to resolve session title")
	}

	steps, err := json.Marshal(run.Steps)
	if err != nil {
		return store.ChatRecord{}, newError(KindPersistence, err, "failed to encode steps")
	}
	plan, err := json.Marshal(run.Plan)
	if err != nil {
		return store.ChatRecord{}, newError(KindPersistence, err, "failed to encode plan")
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	rec, err := r.History.SaveRun(ctx, store.ChatRecord{
		SessionID:      run.SessionID,
		SessionTitle:   title,
		UserID:         run.UserID,
		OriginalPrompt: run.OriginalPrompt,
		RefinedPrompt:  run.PlanText,
		FinalResponse:  run.FinalAnswer,
		Steps:          steps,
		Requests:       plan,
		CreatedAt:      now(),
	})
	if err != nil {
		return store.ChatRecord{}, newError(KindPersistence, err, "failed to save chat history")
	}
	return rec, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
