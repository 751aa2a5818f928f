package actsched

import "context"

// Outcome is the result of an action's Perform call, reported through the
// owning Task's execute step.
type Outcome int

const (
	// Success means the action completed normally.
	Success Outcome = iota
	// Failure means the action raised an error or returned one; triggers
	// the task's retry loop if the action reports CanRetry.
	Failure
	// Disable means the action asked to be permanently disabled; the
	// enabled flag stays false for the remainder of the process.
	Disable
	// DisableOnce disables the task for the rest of the current pass
	// only; enabled is restored at the start of the next pass.
	DisableOnce
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "SUCCESS"
	case Failure:
		return "FAILURE"
	case Disable:
		return "DISABLE"
	case DisableOnce:
		return "DISABLE_ONCE"
	default:
		return "UNKNOWN"
	}
}

// Action is the caller-supplied unit of work a Task wraps. Implementations
// are external collaborators: the scheduler never constructs one itself.
type Action interface {
	// Perform runs the action's work. ctx carries best-effort cancellation;
	// a well-behaved implementation checks ctx.Err and returns it promptly
	// if it cannot complete its work.
	Perform(ctx context.Context) (Outcome, error)

	// CanRetry reports whether a Failure outcome should be retried.
	CanRetry() bool

	// Name identifies the action for diagnostics and DOT dumps.
	Name() string

	// Tags lists the tags this action should be indexed under when its
	// task is added to a scheduler.
	Tags() []string

	// Enabled reports the action's own enablement, independent of the
	// task wrapper's enabled flag; both must be true for the task to run.
	Enabled() bool
}
