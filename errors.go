package actsched

import "fmt"

// ErrInvalidAction is returned by Scheduler.Create when given a nil action.
var ErrInvalidAction = fmt.Errorf("actsched: invalid action")

// ErrCancelled is surfaced by a pass that observed cancellation of its
// context while jobs were in flight.
var ErrCancelled = fmt.Errorf("actsched: pass cancelled")

// CyclicDependenciesError is returned when a pass's topological sort finds
// a cycle; the pass is aborted before any task runs.
type CyclicDependenciesError struct {
	Vertex string
}

func (e *CyclicDependenciesError) Error() string {
	return fmt.Sprintf("actsched: cyclic dependency detected at %q", e.Vertex)
}

// TaskFailedError wraps a non-cancellation error raised during collection
// of a parallel pass's futures, naming the task whose job produced it.
type TaskFailedError struct {
	TaskName string
	Err      error
}

func (e *TaskFailedError) Error() string {
	return fmt.Sprintf("actsched: task %q failed: %v", e.TaskName, e.Err)
}

func (e *TaskFailedError) Unwrap() error {
	return e.Err
}
