package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mohamedsaligh/mcp-server-client/internal/llm"
)

// FormatAnswer trims summarizer output. The text is otherwise kept as the
// summarizer wrote it.
func FormatAnswer(s string) string {
	return strings.TrimSpace(s)
}

// Summarize renders the final answer from the full ordered step list.
func Summarize(ctx context.Context, summarizer llm.Completer, instruction string, steps []ExecutionStep) (string, error) {
	data, err := json.MarshalIndent(steps, "", "  ")
	if err != nil {
		return "", newError(KindRefinement, err, "failed to encode steps for summarization")
	}
	text, err := summarizer.Complete(ctx, fmt.Sprintf("Given the following steps:\n%s", data), llm.Context{System: instruction})
	if err != nil {
		return "", newError(KindRefinement, err, "failed to summarize results")
	}
	return FormatAnswer(text), nil
}
