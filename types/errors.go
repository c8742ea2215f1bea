package types

import (
	"errors"
	"fmt"
)

// ErrNotFound marks lookups for records that do not exist
var ErrNotFound = errors.New("not found")

// ValidationError rejects malformed input before any work is started
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// StateConflictError rejects an operation invalid for the current state,
// including stale-version mutation attempts. Never coerced, always surfaced.
type StateConflictError struct {
	Current   string
	Attempted string
	Detail    string
}

func (e *StateConflictError) Error() string {
	msg := fmt.Sprintf("state conflict: cannot %s while %s", e.Attempted, e.Current)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// StaleVersionError is a mutation based on an outdated article version
type StaleVersionError struct {
	Expected int
	Actual   int
}

func (e *StaleVersionError) Error() string {
	return fmt.Sprintf("stale version: caller expected %d but article is at %d", e.Expected, e.Actual)
}

// ForbiddenError rejects an action the user lacks authorization for
type ForbiddenError struct {
	Action string
}

func (e *ForbiddenError) Error() string {
	return "forbidden: " + e.Action
}

// AnalysisError is a terminal task failure reported by the analyzer.
// Callers may resubmit; the analyzer never retries on its own.
type AnalysisError struct {
	Kind    string // unreachable, parse, rate_limited
	Message string
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed (%s): %s", e.Kind, e.Message)
}

// PollTimeoutError is raised client-side when a task stays non-terminal past
// the poll deadline. The task may still complete server-side afterward, so
// this is distinct from AnalysisError and must never be recorded as one.
type PollTimeoutError struct {
	TaskID  string
	Elapsed string
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("poll timed out after %s waiting for task %s", e.Elapsed, e.TaskID)
}

// PublishError is an upstream content-store failure. The article stays ready
// and the publish is safe to retry.
type PublishError struct {
	Message string
	Err     error
}

func (e *PublishError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("publish failed: %s: %v", e.Message, e.Err)
	}
	return "publish failed: " + e.Message
}

func (e *PublishError) Unwrap() error { return e.Err }
