package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rkallberg/actsched"
)

// demoAction simulates a coarse-grained unit of work: it sleeps for a
// configured duration, then fails a configured number of times before
// succeeding, to exercise the scheduler's retry loop and disable cascade.
type demoAction struct {
	name      string
	work      time.Duration
	failTimes int
	tags      []string

	mu       sync.Mutex
	attempts int
}

func (a *demoAction) Perform(ctx context.Context) (actsched.Outcome, error) {
	select {
	case <-time.After(a.work):
	case <-ctx.Done():
		return actsched.Failure, ctx.Err()
	}

	a.mu.Lock()
	a.attempts++
	attempt := a.attempts
	a.mu.Unlock()

	if attempt <= a.failTimes {
		return actsched.Failure, fmt.Errorf("%s: simulated failure on attempt %d", a.name, attempt)
	}
	return actsched.Success, nil
}

func (a *demoAction) CanRetry() bool { return true }
func (a *demoAction) Name() string   { return a.name }
func (a *demoAction) Tags() []string { return a.tags }
func (a *demoAction) Enabled() bool  { return true }
