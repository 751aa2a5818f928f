package actsched

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

// Task wraps a user-supplied Action with the scheduler's execution
// contract: at most one concurrent Execute, a retry loop on Failure, and
// an enable/disable flag that a failing task sets for its remaining
// transitive dependents to observe.
type Task struct {
	sched *Scheduler
	action Action

	maxRetries int
	breaker    *gobreaker.CircuitBreaker

	mu          sync.Mutex
	executing   bool
	enabled     bool
	disableOnce bool
	tags        map[string]Tag
}

func newTask(sched *Scheduler, action Action, maxRetries int) *Task {
	t := &Task{
		sched:      sched,
		action:     action,
		maxRetries: maxRetries,
		enabled:    true,
		tags:       make(map[string]Tag),
	}
	t.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        action.Name(),
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(maxRetries+1)
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})
	return t
}

// GetAction returns the wrapped action.
func (t *Task) GetAction() Action { return t.action }

// GetActionName returns the wrapped action's name.
func (t *Task) GetActionName() string { return t.action.Name() }

// GetActionTags returns the tag names the wrapped action declared.
func (t *Task) GetActionTags() []string { return t.action.Tags() }

// IsExecuting reports whether Execute is currently running on this task.
func (t *Task) IsExecuting() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.executing
}

// IsEnabled reports the combined enablement of the task wrapper and its
// action: both must be true.
func (t *Task) IsEnabled() bool {
	t.mu.Lock()
	enabled := t.enabled && !t.disableOnce
	t.mu.Unlock()
	return enabled && t.action.Enabled()
}

// Disable sets enabled false unless the task is currently executing, and
// reports the resulting enablement.
func (t *Task) Disable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.executing {
		return t.enabled
	}
	t.enabled = false
	return false
}

func (t *Task) resetDisableOnce() {
	t.mu.Lock()
	t.disableOnce = false
	t.mu.Unlock()
}

// Before declares edges from this task to each of successors.
func (t *Task) Before(successors ...*Task) error {
	return t.sched.Before(t, successors...)
}

// After declares edges from each of predecessors to this task.
func (t *Task) After(predecessors ...*Task) error {
	return t.sched.After(t, predecessors...)
}

// RemoveAllDependencies removes this task from the scheduler's graph,
// re-stitching its predecessors directly to its successors.
func (t *Task) RemoveAllDependencies() bool {
	return t.sched.Remove(t)
}

// Tag attaches tags to this task, indexing it in the scheduler's tag
// lookup tables.
func (t *Task) Tag(tags ...Tag) {
	t.sched.Tag(t, tags...)
}

// Untag removes tags from this task.
func (t *Task) Untag(tags ...Tag) {
	t.sched.Untag(t, tags...)
}

var errAlreadyExecuting = errors.New("actsched: task execute called while already executing")

// Execute runs the task's execute-once-at-a-time contract: it checks
// enablement, invokes the action (retrying on Failure per CanRetry, up to
// maxRetries), and persists a Failure or Disable outcome as enabled=false.
// DisableOnce only holds for the remainder of the current pass.
func (t *Task) Execute(ctx context.Context) (Outcome, error) {
	t.mu.Lock()
	if t.executing {
		t.mu.Unlock()
		return Failure, errAlreadyExecuting
	}
	if !(t.enabled && !t.disableOnce) || !t.action.Enabled() {
		t.mu.Unlock()
		return Disable, nil
	}
	t.executing = true
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.executing = false
		t.mu.Unlock()
	}()

	outcome, err := t.runWithRetry(ctx)

	if outcome == Failure || outcome == Disable {
		t.mu.Lock()
		t.enabled = false
		t.mu.Unlock()
	} else if outcome == DisableOnce {
		t.mu.Lock()
		t.disableOnce = true
		t.mu.Unlock()
	}

	return outcome, err
}

// runWithRetry invokes the action, retrying Failure outcomes through the
// task's circuit breaker and an exponential backoff policy bounded to
// maxRetries re-invocations after the first attempt, as long as the
// action reports CanRetry.
func (t *Task) runWithRetry(ctx context.Context) (Outcome, error) {
	var (
		outcome Outcome
		lastErr error
	)

	operation := func() error {
		res, err := t.breaker.Execute(func() (interface{}, error) {
			o, perr := t.perform(ctx)
			if perr != nil {
				if isCancellation(perr) {
					return o, perr
				}
				return Failure, perr
			}
			if o == Failure {
				return o, fmt.Errorf("actsched: action %q reported failure", t.action.Name())
			}
			return o, nil
		})

		if res != nil {
			outcome = res.(Outcome)
		}
		lastErr = err

		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}
		if outcome != Failure || !t.action.CanRetry() {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(t.maxRetries)), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return outcome, err
		}
		if outcome == 0 && lastErr != nil {
			outcome = Failure
		}
	}

	if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
		return outcome, lastErr
	}
	return outcome, nil
}

// perform invokes the action once, converting a panic into a Failure
// outcome so a misbehaving action cannot take down the pass.
func (t *Task) perform(ctx context.Context) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Failure
			err = fmt.Errorf("actsched: action %q panicked: %v", t.action.Name(), r)
		}
	}()
	return t.action.Perform(ctx)
}
