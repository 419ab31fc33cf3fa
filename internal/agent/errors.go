package agent

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindPlanning      Kind = "planning"
	KindPlanStep      Kind = "plan_step"
	KindRefinement    Kind = "refinement"
	KindPersistence   Kind = "persistence"
)

// Sentinels for errors.Is. Every *Error matches the sentinel of its Kind.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrPlanning      = &Error{Kind: KindPlanning}
	ErrPlanStep      = &Error{Kind: KindPlanStep}
	ErrRefinement    = &Error{Kind: KindRefinement}
	ErrPersistence   = &Error{Kind: KindPersistence}
)

// Error is a classified pipeline failure. Raw holds the oracle output a
// planning error was raised on.
type Error struct {
	Kind    Kind
	Message string
	Raw     string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message == "" && e.Err == nil:
		return string(e.Kind) + " error"
	case e.Err == nil:
		return e.Message
	case e.Message == "":
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the Kind of err, or "" for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
