package cli

import "errors"

// Common CLI errors
var (
	ErrNoFixtures     = errors.New("no fixture files matched")
	ErrInvalidFixture = errors.New("one or more fixtures are invalid")
	ErrNoMatch        = errors.New("no mock matched the request")
)

// exitError ends a command with a status after the command has already
// reported the failure on its own output.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func exitWith(code int, err error) error {
	return &exitError{code: code, err: err}
}
