package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrainStopsAtTerminalEvent(t *testing.T) {
	events := make(chan Event, 3)
	events <- Event{Kind: EventStatus, Data: Message{Message: "Generating execution plan"}}
	events <- Event{Kind: EventError, Data: Message{Message: "Orchestration failed: empty plan"}}
	events <- Event{Kind: EventStatus, Data: Message{Message: "late"}}

	var seen []EventKind
	out := Drain(events, func(e Event) { seen = append(seen, e.Kind) })
	assert.Equal(t, []EventKind{EventStatus, EventError}, seen)
	assert.Equal(t, "Orchestration failed: empty plan", out.Error)
	assert.Nil(t, out.Result)
}

func TestDrainCollectsResultAndWarnings(t *testing.T) {
	events := make(chan Event, 2)
	events <- Event{Kind: EventResult, Data: Result{SessionID: "s1", FinalAnswer: "16"}}
	events <- Event{Kind: EventWarning, Data: Message{Message: "failed to save chat history"}}
	close(events)

	out := Drain(events, nil)
	require.NotNil(t, out.Result)
	assert.Equal(t, "16", out.Result.FinalAnswer)
	assert.Equal(t, []string{"failed to save chat history"}, out.Warnings)
	assert.False(t, Event{Kind: EventResult}.Terminal())
}
