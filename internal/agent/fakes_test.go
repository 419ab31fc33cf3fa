package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mohamedsaligh/mcp-server-client/internal/llm"
	"github.com/mohamedsaligh/mcp-server-client/internal/observability"
	"github.com/mohamedsaligh/mcp-server-client/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

var _ Store = (*store.Store)(nil)

// memStore is an in-memory Store.
type memStore struct {
	mu      sync.Mutex
	servers []store.Server
	creds   []store.Credential
	runs    []store.ChatRecord
	saveErr error
}

func (m *memStore) ListServers(context.Context) ([]store.Server, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.Server(nil), m.servers...), nil
}

func (m *memStore) GetServerByName(_ context.Context, name string) (store.Server, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.servers {
		if s.Name == name {
			return s, nil
		}
	}
	return store.Server{}, store.ErrNotFound
}

func (m *memStore) ActiveCredential(context.Context) (store.Credential, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.creds) == 0 {
		return store.Credential{}, false, nil
	}
	return m.creds[0], true, nil
}

func (m *memStore) SessionTitle(_ context.Context, sessionID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if r.SessionID == sessionID {
			return r.SessionTitle, true, nil
		}
	}
	return "", false, nil
}

func (m *memStore) SaveRun(_ context.Context, rec store.ChatRecord) (store.ChatRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return store.ChatRecord{}, m.saveErr
	}
	rec.ID = "rec-" + rec.SessionID
	m.runs = append(m.runs, rec)
	return rec, nil
}

func (m *memStore) savedRuns() []store.ChatRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.ChatRecord(nil), m.runs...)
}

type providerCall struct {
	Endpoint string
	Payload  string
}

// fakeProvider answers manifests from a map and process calls through handle.
type fakeProvider struct {
	mu        sync.Mutex
	manifests map[string]json.RawMessage
	handle    func(ctx context.Context, endpoint string, payload json.RawMessage) (json.RawMessage, error)
	calls     []providerCall
	discovery int
}

func (f *fakeProvider) Manifest(_ context.Context, endpoint string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discovery++
	if m, ok := f.manifests[endpoint]; ok {
		return m, nil
	}
	return nil, errors.New("connection refused")
}

func (f *fakeProvider) Process(ctx context.Context, endpoint string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls = append(f.calls, providerCall{Endpoint: endpoint, Payload: string(body)})
	f.mu.Unlock()
	return f.handle(ctx, endpoint, body)
}

func (f *fakeProvider) processCalls() []providerCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]providerCall(nil), f.calls...)
}

// scriptedOracle plays planner, refiner and summarizer depending on the
// shape of the request.
type scriptedOracle struct {
	plan       string
	planErr    error
	summary    string
	summaryErr error
	refineErr  error

	mu      sync.Mutex
	prompts []string
}

func (o *scriptedOracle) Complete(_ context.Context, prompt string, c llm.Context) (string, error) {
	o.mu.Lock()
	o.prompts = append(o.prompts, prompt)
	o.mu.Unlock()
	switch {
	case c.Capabilities != nil:
		return o.plan, o.planErr
	case strings.HasPrefix(prompt, "Given the following steps"):
		if o.summaryErr != nil {
			return "", o.summaryErr
		}
		if o.summary == "" {
			return "done", nil
		}
		return o.summary, nil
	default:
		if o.refineErr != nil {
			return "", o.refineErr
		}
		return "refined[" + c.System + "]: " + prompt, nil
	}
}

func (o *scriptedOracle) factory() OracleFactory {
	return func(store.Credential) (llm.Completer, error) { return o, nil }
}

func writePrompts(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "planner.md"), []byte("Return a JSON array of steps."), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func newTestPipeline(t *testing.T, st Store, provider Provider, oracle *scriptedOracle) *Pipeline {
	t.Helper()
	p := NewPipeline(st, provider, oracle.factory(), NewPromptManager(writePrompts(t)),
		observability.NewLogger(io.Discard, ""), observability.NewMetrics(prometheus.NewRegistry()))
	p.Now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	return p
}

func defaultStore(servers ...store.Server) *memStore {
	return &memStore{
		servers: servers,
		creds:   []store.Credential{{ID: "c1", Name: "primary", Provider: "openai", APIKey: "sk-test"}},
	}
}

// collect drains events, failing the test if the stream does not close.
func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, evt)
		case <-timeout:
			t.Fatalf("event stream did not close; got %d events", len(out))
			return out
		}
	}
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}
