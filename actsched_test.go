package actsched

import (
	"context"
	"sync"
	"sync/atomic"
)

// scriptedAction is a test Action whose behavior is fully controlled by
// the test: a scripted sequence of outcomes/errors, a run counter, and an
// optional hook invoked from Perform for synchronization.
type scriptedAction struct {
	name    string
	tags    []string
	retry   bool
	enabled int32 // defaults to 1 (true) via init

	mu      sync.Mutex
	script  []scriptedResult
	runs    int
	onPerf  func()
}

type scriptedResult struct {
	outcome Outcome
	err     error
}

func newScriptedAction(name string, results ...scriptedResult) *scriptedAction {
	return &scriptedAction{name: name, script: results, enabled: 1}
}

func (a *scriptedAction) Perform(ctx context.Context) (Outcome, error) {
	if a.onPerf != nil {
		a.onPerf()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	idx := a.runs
	a.runs++
	if idx >= len(a.script) {
		return Success, nil
	}
	r := a.script[idx]
	return r.outcome, r.err
}

func (a *scriptedAction) runCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runs
}

func (a *scriptedAction) CanRetry() bool  { return a.retry }
func (a *scriptedAction) Name() string    { return a.name }
func (a *scriptedAction) Tags() []string  { return a.tags }
func (a *scriptedAction) Enabled() bool   { return atomic.LoadInt32(&a.enabled) != 0 }
func (a *scriptedAction) setEnabled(v bool) {
	val := int32(0)
	if v {
		val = 1
	}
	atomic.StoreInt32(&a.enabled, val)
}
