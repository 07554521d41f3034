package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/getmockd/intercept/internal/matching"
	"github.com/getmockd/intercept/pkg/mock"
)

// Sentinel errors. The structured errors below match them with errors.Is.
var (
	ErrMalformedDefinition = errors.New("malformed mock definition")
	ErrNoMatch             = errors.New("no mock matched")
	ErrUnconsumedMocks     = errors.New("unconsumed mocks")
	ErrOutOfOrder          = errors.New("mocks consumed out of order")
)

// MalformedDefinitionError reports a definition rejected by Build.
type MalformedDefinitionError struct {
	Provider string
	// Index is the position within the provider's supply.
	Index int
	ID    string
	Cause error
}

func (e *MalformedDefinitionError) Error() string {
	label := fmt.Sprintf("%s[%d]", e.Provider, e.Index)
	if e.ID != "" {
		label += " (" + e.ID + ")"
	}
	return fmt.Sprintf("%s: %s: %v", ErrMalformedDefinition, label, e.Cause)
}

func (e *MalformedDefinitionError) Is(target error) bool { return target == ErrMalformedDefinition }

func (e *MalformedDefinitionError) Unwrap() error { return e.Cause }

// NoMatchError is returned by Resolve when no eligible definition accepts
// the request.
type NoMatchError struct {
	Request *mock.Request
	// NearMisses is ordered best first.
	NearMisses []*matching.NearMiss
	// Seq is the request's arrival position in the pool.
	Seq int64
	// EntryID identifies the journal entry recorded for the request.
	EntryID string
}

func (e *NoMatchError) Error() string {
	msg := ErrNoMatch.Error() + " " + e.Request.String()
	if len(e.NearMisses) > 0 {
		top := e.NearMisses[0]
		msg += fmt.Sprintf(" (closest: %s: %s)", label(top.DefinitionName, top.DefinitionID), top.Reason)
	}
	return msg
}

func (e *NoMatchError) Is(target error) bool { return target == ErrNoMatch }

// Report renders the full diagnostic report with every near-miss condition.
func (e *NoMatchError) Report() string {
	return matching.FormatReport(e.Request, e.NearMisses)
}

// UnconsumedMocksError lists definitions that had to be consumed but were not.
type UnconsumedMocksError struct {
	Definitions []*mock.Definition
}

func (e *UnconsumedMocksError) Error() string {
	names := make([]string, len(e.Definitions))
	for i, d := range e.Definitions {
		names[i] = fmt.Sprintf("%s [%s]", d.DisplayName(), d.Describe())
	}
	return fmt.Sprintf("%s: %d definition(s) never matched: %s",
		ErrUnconsumedMocks, len(e.Definitions), strings.Join(names, ", "))
}

func (e *UnconsumedMocksError) Is(target error) bool { return target == ErrUnconsumedMocks }

// OrderViolation describes a definition first consumed before an earlier
// registered one.
type OrderViolation struct {
	DefinitionID string
	Index        int
	// Seq is the request that first consumed the definition.
	Seq int64
	// After is the ID of the earlier-registered definition consumed later.
	After    string
	AfterSeq int64
}

// OutOfOrderError is returned by AssertOrdered.
type OutOfOrderError struct {
	Violations []OrderViolation
}

func (e *OutOfOrderError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s (index %d) fetched by request %d, before %s (request %d)",
			v.DefinitionID, v.Index, v.Seq, v.After, v.AfterSeq)
	}
	return fmt.Sprintf("%s: %s", ErrOutOfOrder, strings.Join(parts, "; "))
}

func (e *OutOfOrderError) Is(target error) bool { return target == ErrOutOfOrder }

func label(name, id string) string {
	if name != "" {
		return name
	}
	return id
}
