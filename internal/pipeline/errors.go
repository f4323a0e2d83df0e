package pipeline

import (
	"fmt"
	"strings"
)

// ValidationError reports that a stage's output never satisfied its schema
// within the retry budget.
type ValidationError struct {
	Stage string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("stage %s output failed validation: %v", e.Stage, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// DependencyError reports that a stage was skipped because a required
// predecessor did not succeed.
type DependencyError struct {
	Stage  string
	Failed []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("stage %s skipped: dependency failed (%s)", e.Stage, strings.Join(e.Failed, ", "))
}

// RunError is the caller-visible failure of a run: the failing required
// stage and its underlying cause.
type RunError struct {
	Stage string
	Cause error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("pipeline failed at stage %s: %v", e.Stage, e.Cause)
}

func (e *RunError) Unwrap() error { return e.Cause }
