// Package llm provides the planning oracle and summarizer used by the
// orchestration pipeline. Both are the same capability: text plus context in,
// text out.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrAuth is returned when the back-end rejects or lacks a credential.
	ErrAuth = errors.New("llm: authentication failed")
	// ErrTransport wraps any failure to reach the back-end or decode its reply.
	ErrTransport = errors.New("llm: transport failure")
	// ErrEmptyCompletion is returned when the back-end answers with no text.
	ErrEmptyCompletion = errors.New("llm: empty completion")
	// ErrUnsupportedProvider is returned by New for unknown back-end names.
	ErrUnsupportedProvider = errors.New("llm: unsupported provider")
)

// Context is the structured half of a completion request.
type Context struct {
	// System is the fixed instruction sent as the system message.
	System string
	// Capabilities, when non-nil, is marshalled to JSON and appended to the
	// system message under a heading.
	Capabilities any
}

// Completer turns a prompt and its context into text.
type Completer interface {
	Complete(ctx context.Context, prompt string, c Context) (string, error)
}

// CompleterFunc adapts a plain function to Completer.
type CompleterFunc func(ctx context.Context, prompt string, c Context) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string, c Context) (string, error) {
	return f(ctx, prompt, c)
}
