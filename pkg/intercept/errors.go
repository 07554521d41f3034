package intercept

import (
	"errors"

	"github.com/getmockd/intercept/pkg/engine"
)

var (
	// ErrScopeInactive is returned when an intercepting client sends a
	// request while its scope is closed, or when no scope is in effect.
	ErrScopeInactive = errors.New("interception scope inactive")

	// ErrInterceptedRequestUnmatched is what code under test observes when
	// no mock matches and passthrough is disabled.
	ErrInterceptedRequestUnmatched = errors.New("intercepted request unmatched")

	errNilPool = errors.New("intercept: pool is required")
)

// UnmatchedError wraps the pool's diagnostics for an unmatched request.
// errors.Is matches both ErrInterceptedRequestUnmatched and
// engine.ErrNoMatch.
type UnmatchedError struct {
	NoMatch *engine.NoMatchError
}

func (e *UnmatchedError) Error() string {
	return ErrInterceptedRequestUnmatched.Error() + ": " + e.NoMatch.Report()
}

func (e *UnmatchedError) Is(target error) bool { return target == ErrInterceptedRequestUnmatched }

func (e *UnmatchedError) Unwrap() error { return e.NoMatch }
