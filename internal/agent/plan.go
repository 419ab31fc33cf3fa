package agent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// PreviousResultField is the payload key a chained step receives the
// preceding step's response under.
const PreviousResultField = "previous_result"

// PlanStep is one planned provider call. Payload is nil when the oracle
// omitted it; the executor rejects such steps.
type PlanStep struct {
	ServerName        string   `json:"server_name"`
	Payload           *Payload `json:"payload"`
	RefinePrevious    bool     `json:"refine_previous"`
	RefineLLM         bool     `json:"refine_llm"`
	RefineInstruction string   `json:"refine_instruction,omitempty"`
}

// ParsePlan decodes oracle output into an ordered plan. Anything other than a
// non-empty JSON array of step objects is a planning error carrying raw.
func ParsePlan(raw string) ([]PlanStep, error) {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "[") {
		return nil, &Error{Kind: KindPlanning, Message: "planner output is not a JSON array", Raw: raw}
	}
	var steps []PlanStep
	if err := json.Unmarshal([]byte(text), &steps); err != nil {
		return nil, &Error{Kind: KindPlanning, Message: "failed to parse planner output", Raw: raw, Err: err}
	}
	if len(steps) == 0 {
		return nil, &Error{Kind: KindPlanning, Message: "planner returned an empty plan", Raw: raw}
	}
	return steps, nil
}

// Payload is a JSON object that keeps its keys in the order they arrived.
// Values stay raw so numbers and nested documents pass through untouched.
type Payload struct {
	keys   []string
	values map[string]json.RawMessage
}

func NewPayload() *Payload {
	return &Payload{values: map[string]json.RawMessage{}}
}

func (p *Payload) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

func (p *Payload) Keys() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.keys...)
}

func (p *Payload) Get(key string) (json.RawMessage, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p.values[key]
	return v, ok
}

// Set replaces the value of an existing key in place or appends a new one.
func (p *Payload) Set(key string, value json.RawMessage) {
	if p.values == nil {
		p.values = map[string]json.RawMessage{}
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Clone is a shallow copy: the key order is copied, values are shared.
func (p *Payload) Clone() *Payload {
	out := NewPayload()
	if p == nil {
		return out
	}
	out.keys = append(out.keys, p.keys...)
	for k, v := range p.values {
		out.values[k] = v
	}
	return out
}

func (p Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		v := p.values[k]
		if len(v) == 0 {
			v = json.RawMessage("null")
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("payload must be a JSON object")
	}

	p.keys = nil
	p.values = map[string]json.RawMessage{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected payload key %v", tok)
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("payload field %q: %w", key, err)
		}
		p.Set(key, v)
	}
	_, err = dec.Token()
	return err
}
