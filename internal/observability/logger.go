package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypePlan          EventType = "plan"
	EventTypeStep          EventType = "step"
	EventTypeProviderError EventType = "provider_error"
	EventTypeLLM           EventType = "llm"
	EventTypePersist       EventType = "persist"
	EventTypeRun           EventType = "run"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Step      int       `json:"step,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger handles structured logging.
type Logger struct {
	out        io.Writer
	llmLogPath string
	maxSize    int64
	mu         sync.Mutex
}

// NewLogger writes events to out. When logDir is set, llm events are also
// appended to logDir/llm.jsonl.
func NewLogger(out io.Writer, logDir string) *Logger {
	if out == nil {
		out = os.Stdout
	}
	l := &Logger{
		out:     out,
		maxSize: 10 * 1024 * 1024, // 10MB
	}
	if logDir != "" {
		l.llmLogPath = filepath.Join(logDir, "llm.jsonl")
	}
	return l
}

// Log emits a structured JSON event.
func (l *Logger) Log(evt Event) {
	if l == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"error": %q}`, "failed to marshal event: "+err.Error()))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.out, string(data))

	if evt.Type == EventTypeLLM && l.llmLogPath != "" {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

// Keep one .old file.
func (l *Logger) rotateLogs() {
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

func (l *Logger) LogPlan(sessionID string, plan any) {
	l.Log(Event{Type: EventTypePlan, SessionID: sessionID, Data: plan})
}

func (l *Logger) LogStep(sessionID string, index int, step any) {
	l.Log(Event{Type: EventTypeStep, SessionID: sessionID, Step: index, Data: step})
}

func (l *Logger) LogProviderError(sessionID string, index int, endpoint string, err error) {
	l.Log(Event{
		Type:      EventTypeProviderError,
		SessionID: sessionID,
		Step:      index,
		Data: map[string]string{
			"endpoint": endpoint,
			"error":    err.Error(),
		},
	})
}

func (l *Logger) LogLLM(sessionID, stage, prompt, system, response string, err error) {
	data := map[string]any{
		"stage":    stage,
		"prompt":   prompt,
		"system":   system,
		"response": response,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	l.Log(Event{Type: EventTypeLLM, SessionID: sessionID, Data: data})
}

func (l *Logger) LogPersist(sessionID, recordID string, err error) {
	data := map[string]string{"record_id": recordID}
	if err != nil {
		data["error"] = err.Error()
	}
	l.Log(Event{Type: EventTypePersist, SessionID: sessionID, Data: data})
}

func (l *Logger) LogRun(sessionID, outcome string, steps int, elapsed time.Duration) {
	l.Log(Event{
		Type:      EventTypeRun,
		SessionID: sessionID,
		Data: map[string]any{
			"outcome":    outcome,
			"steps":      steps,
			"elapsed_ms": elapsed.Milliseconds(),
		},
	})
}
