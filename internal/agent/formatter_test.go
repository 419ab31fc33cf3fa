package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mohamedsaligh/mcp-server-client/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAnswer(t *testing.T) {
	assert.Equal(t, "", FormatAnswer("   "))
	assert.Equal(t, "Area is 16 & it's done", FormatAnswer("  Area is 16 & it's done\n"))
	assert.Equal(t, "The square's area is 16 and x<y holds for the circle (28.27).",
		FormatAnswer("The square's area is 16 and x<y holds for the circle (28.27).\n"))
	assert.Equal(t, "Use the <shape> field: square area is 16.", FormatAnswer("Use the <shape> field: square area is 16."))
}

func TestSummarizeSendsAllSteps(t *testing.T) {
	var prompt, system string
	summarizer := llm.CompleterFunc(func(_ context.Context, p string, c llm.Context) (string, error) {
		prompt, system = p, c.System
		return "  Both areas computed, 9 < 16.\n", nil
	})
	steps := []ExecutionStep{
		{ServerName: "shape-area", Response: []byte(`{"area":16}`)},
		{ServerName: "math", Response: []byte(`{"error":"Failed to call MCP server http://math: refused"}`)},
	}

	answer, err := Summarize(context.Background(), summarizer, "be brief", steps)
	require.NoError(t, err)
	assert.Equal(t, "Both areas computed, 9 < 16.", answer)
	assert.Equal(t, "be brief", system)
	assert.True(t, strings.HasPrefix(prompt, "Given the following steps:\n"))
	assert.Contains(t, prompt, `"area": 16`)
	assert.Contains(t, prompt, "Failed to call MCP server http://math")
}

func TestSummarizeFailure(t *testing.T) {
	summarizer := llm.CompleterFunc(func(context.Context, string, llm.Context) (string, error) {
		return "", llm.ErrTransport
	})
	_, err := Summarize(context.Background(), summarizer, "", nil)
	assert.True(t, errors.Is(err, ErrRefinement))
	assert.True(t, errors.Is(err, llm.ErrTransport))
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("outer: %w", newError(KindPlanStep, nil, "MCP Server '%s' not found", "ghost"))
	assert.True(t, errors.Is(err, ErrPlanStep))
	assert.False(t, errors.Is(err, ErrPlanning))
	assert.Equal(t, KindPlanStep, KindOf(err))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, "outer: MCP Server 'ghost' not found", err.Error())

	wrapped := newError(KindConfiguration, errors.New("no such file"), "missing planner instruction")
	assert.Equal(t, "missing planner instruction: no such file", wrapped.Error())
}
