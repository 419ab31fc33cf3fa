package agent

// EventKind names a progress event. The values double as SSE event names.
type EventKind string

const (
	EventStatus       EventKind = "status"
	EventPlan         EventKind = "plan"
	EventTaskStart    EventKind = "task_start"
	EventTaskComplete EventKind = "task_complete"
	EventResult       EventKind = "result"
	EventWarning      EventKind = "warning"
	EventError        EventKind = "error"
)

// Event is one entry of a run's progress stream. Data is one of Message,
// []PlanStep, TaskStart, ExecutionStep or Result depending on Kind.
type Event struct {
	Kind EventKind `json:"type"`
	Data any       `json:"data"`
}

// Terminal reports whether no further events follow e.
func (e Event) Terminal() bool {
	return e.Kind == EventError
}

type Message struct {
	Message string `json:"message"`
}

type TaskStart struct {
	Index      int    `json:"index"`
	Total      int    `json:"total"`
	ServerName string `json:"server_name"`
	Message    string `json:"message"`
}

type Result struct {
	SessionID   string          `json:"session_id"`
	Steps       []ExecutionStep `json:"steps"`
	FinalAnswer string          `json:"final_answer"`
}

// Outcome is what a drained stream ended with. Result is nil when the run
// failed or was cancelled.
type Outcome struct {
	Result   *Result
	Warnings []string
	Error    string
}

// Drain reads events until the stream closes or a terminal event arrives,
// passing each to fn if set.
func Drain(events <-chan Event, fn func(Event)) Outcome {
	var out Outcome
	for evt := range events {
		if fn != nil {
			fn(evt)
		}
		switch evt.Kind {
		case EventResult:
			if res, ok := evt.Data.(Result); ok {
				out.Result = &res
			}
		case EventWarning:
			if m, ok := evt.Data.(Message); ok {
				out.Warnings = append(out.Warnings, m.Message)
			}
		case EventError:
			if m, ok := evt.Data.(Message); ok {
				out.Error = m.Message
			}
		}
		if evt.Terminal() {
			break
		}
	}
	return out
}
