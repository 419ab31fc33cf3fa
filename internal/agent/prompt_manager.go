package agent

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	plannerPromptFile     = "planner.md"
	finalAnswerPromptFile = "final_answer.md"
)

// DefaultFinalAnswerPrompt is used when final_answer.md is absent.
const DefaultFinalAnswerPrompt = `You are given the ordered list of steps an assistant executed to answer a user request.
Each step names the server that was called, the request it was sent and the response it returned.
Write a short, plain-text answer for the user based on those responses.
If a step failed, say so briefly instead of inventing a result.`

type PromptManager struct {
	Directory string
}

func NewPromptManager(dir string) *PromptManager {
	return &PromptManager{Directory: dir}
}

// GetPlannerPrompt reads the fixed planning instruction. It is read on every
// call so edits take effect on the next run.
func (pm *PromptManager) GetPlannerPrompt() (string, error) {
	path := filepath.Join(pm.Directory, plannerPromptFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read planner prompt: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("planner prompt %s is empty", path)
	}
	return text, nil
}

// GetFinalAnswerPrompt returns final_answer.md, or the built-in default when
// the file does not exist.
func (pm *PromptManager) GetFinalAnswerPrompt() (string, error) {
	data, err := os.ReadFile(filepath.Join(pm.Directory, finalAnswerPromptFile))
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultFinalAnswerPrompt, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read final answer prompt: %w", err)
	}
	if text := strings.TrimSpace(string(data)); text != "" {
		return text, nil
	}
	return DefaultFinalAnswerPrompt, nil
}
