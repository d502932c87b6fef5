package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrUndeclaredOutput is returned when a stage writes a field it did not declare.
	ErrUndeclaredOutput = errors.New("pipeline: undeclared output field")

	// ErrRunInProgress is returned when Run is called on a Scheduler that is
	// already executing a graph.
	ErrRunInProgress = errors.New("pipeline: a run is already in progress")
)

// GraphValidationError reports a graph that cannot be built: a cycle, an
// unknown dependency, or a duplicate stage or output declaration.
type GraphValidationError struct {
	Reason string
	// Cycle holds the offending stage path when Reason describes a cycle.
	Cycle []string
}

func (e *GraphValidationError) Error() string {
	return "pipeline: invalid graph: " + e.Reason
}

func invalidf(format string, args ...any) error {
	return &GraphValidationError{Reason: fmt.Sprintf(format, args...)}
}

// StageExecutionError identifies the stage that aborted a run.
type StageExecutionError struct {
	StageID string
	Err     error
}

func (e *StageExecutionError) Error() string {
	return fmt.Sprintf("pipeline: stage %q failed: %v", e.StageID, e.Err)
}

func (e *StageExecutionError) Unwrap() error {
	return e.Err
}

// SingleWriterError is returned when a field that already holds a value is
// written a second time within one run. It is a programming error and is
// never retried.
type SingleWriterError struct {
	Field string
	// Writer is the stage (or the run input) that set the field first.
	Writer string
	// Attempt is the stage that tried to overwrite it.
	Attempt string
}

func (e *SingleWriterError) Error() string {
	return fmt.Sprintf("pipeline: field %q already written by %q, rejected write from %q", e.Field, e.Writer, e.Attempt)
}
