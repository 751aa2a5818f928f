package actsched

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLinearChainParallel(t *testing.T) {
	s := New(Config{MaxPoolSize: 4})

	var mu sync.Mutex
	var order []string
	record := func(name string) {
		mu.Lock()
		order = append(order, name)
		mu.Unlock()
	}

	a := newScriptedAction("A", scriptedResult{Success, nil})
	b := newScriptedAction("B", scriptedResult{Success, nil})
	c := newScriptedAction("C", scriptedResult{Success, nil})
	a.onPerf = func() { record("A") }
	b.onPerf = func() { record("B") }
	c.onPerf = func() { record("C") }

	ta, _ := s.Create(a)
	tb, _ := s.Create(b)
	tc, _ := s.Create(c)
	must(t, ta.Before(tb))
	must(t, tb.Before(tc))

	if err := s.ExecuteAll(context.Background(), true); err != nil {
		t.Fatalf("ExecuteAll: %v", err)
	}

	if len(order) != 3 || order[0] != "A" || order[1] != "B" || order[2] != "C" {
		t.Fatalf("expected order [A B C], got %v", order)
	}
	if !ta.IsEnabled() || !tb.IsEnabled() || !tc.IsEnabled() {
		t.Fatalf("expected all tasks to remain enabled")
	}
}

func TestDiamondParallel(t *testing.T) {
	s := New(Config{MaxPoolSize: 4})

	var mu sync.Mutex
	var aDone, bStart, cStart time.Time
	release := make(chan struct{})

	a := newScriptedAction("A", scriptedResult{Success, nil})
	b := newScriptedAction("B", scriptedResult{Success, nil})
	c := newScriptedAction("C", scriptedResult{Success, nil})
	d := newScriptedAction("D", scriptedResult{Success, nil})

	a.onPerf = func() {
		mu.Lock()
		aDone = time.Now()
		mu.Unlock()
		close(release)
	}
	b.onPerf = func() {
		<-release
		mu.Lock()
		bStart = time.Now()
		mu.Unlock()
	}
	c.onPerf = func() {
		<-release
		mu.Lock()
		cStart = time.Now()
		mu.Unlock()
	}

	ta, _ := s.Create(a)
	tb, _ := s.Create(b)
	tc, _ := s.Create(c)
	td, _ := s.Create(d)
	must(t, ta.Before(tb))
	must(t, ta.Before(tc))
	must(t, tb.Before(td))
	must(t, tc.Before(td))

	if err := s.ExecuteAll(context.Background(), true); err != nil {
		t.Fatalf("ExecuteAll: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if aDone.After(bStart) || aDone.After(cStart) {
		t.Fatalf("A must complete before B and C start")
	}
	if d.runCount() != 1 {
		t.Fatalf("expected D to run once, got %d", d.runCount())
	}
}

func TestCycleAbortsBeforeAnyPerform(t *testing.T) {
	s := New(Config{})

	a := newScriptedAction("A", scriptedResult{Success, nil})
	b := newScriptedAction("B", scriptedResult{Success, nil})
	c := newScriptedAction("C", scriptedResult{Success, nil})

	ta, _ := s.Create(a)
	tb, _ := s.Create(b)
	tc, _ := s.Create(c)
	must(t, ta.Before(tb))
	must(t, tb.Before(tc))
	must(t, tc.Before(ta))

	err := s.ExecuteAll(context.Background(), true)
	var cycleErr *CyclicDependenciesError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CyclicDependenciesError, got %v", err)
	}
	if a.runCount() != 0 || b.runCount() != 0 || c.runCount() != 0 {
		t.Fatalf("no task should have run: a=%d b=%d c=%d", a.runCount(), b.runCount(), c.runCount())
	}
}

func TestFailureCascadeDisablesDependents(t *testing.T) {
	s := New(Config{})

	a := newScriptedAction("A", scriptedResult{Failure, errors.New("boom")})
	b := newScriptedAction("B", scriptedResult{Success, nil})
	c := newScriptedAction("C", scriptedResult{Success, nil})
	d := newScriptedAction("D", scriptedResult{Success, nil})

	ta, _ := s.Create(a)
	tb, _ := s.Create(b)
	tc, _ := s.Create(c)
	td, _ := s.Create(d)
	must(t, ta.Before(tb))
	must(t, tb.Before(tc))
	must(t, ta.Before(td))

	if err := s.ExecuteAll(context.Background(), false); err != nil {
		t.Fatalf("ExecuteAll: %v", err)
	}

	if a.runCount() != 1 {
		t.Fatalf("expected A to run exactly once, got %d", a.runCount())
	}
	if ta.IsEnabled() {
		t.Fatalf("expected A to be disabled after failure")
	}
	if b.runCount() != 0 || c.runCount() != 0 || d.runCount() != 0 {
		t.Fatalf("expected B, C, D never to run: b=%d c=%d d=%d", b.runCount(), c.runCount(), d.runCount())
	}
	if tb.IsEnabled() || tc.IsEnabled() || td.IsEnabled() {
		t.Fatalf("expected B, C, D to be disabled")
	}
}

func TestRetryThenSuccess(t *testing.T) {
	s := New(Config{MaxRetries: 5})

	a := newScriptedAction("A",
		scriptedResult{Failure, errors.New("transient")},
		scriptedResult{Success, nil},
	)
	a.retry = true

	ta, _ := s.Create(a)

	if err := s.ExecuteAll(context.Background(), false); err != nil {
		t.Fatalf("ExecuteAll: %v", err)
	}
	if a.runCount() != 2 {
		t.Fatalf("expected exactly 2 perform invocations, got %d", a.runCount())
	}
	if !ta.IsEnabled() {
		t.Fatalf("expected A to remain enabled after eventual success")
	}
}

func TestFilteredPassIgnoresOutOfFilterEdges(t *testing.T) {
	s := New(Config{})

	var mu sync.Mutex
	var ran []string
	mkAction := func(name string) *scriptedAction {
		a := newScriptedAction(name, scriptedResult{Success, nil})
		a.onPerf = func() {
			mu.Lock()
			ran = append(ran, name)
			mu.Unlock()
		}
		return a
	}

	names := []string{"T1", "T2", "T3", "T4", "T5", "T6"}
	tasks := make(map[string]*Task, len(names))
	for _, n := range names {
		tsk, _ := s.Create(mkAction(n))
		tasks[n] = tsk
	}
	must(t, tasks["T1"].Before(tasks["T2"]))
	must(t, tasks["T2"].Before(tasks["T4"]))
	must(t, tasks["T3"].Before(tasks["T4"]))
	must(t, tasks["T4"].Before(tasks["T5"]))
	must(t, tasks["T5"].Before(tasks["T6"]))

	filtered := []*Task{tasks["T2"], tasks["T4"], tasks["T5"]}
	if err := s.ExecuteFiltered(context.Background(), filtered, true); err != nil {
		t.Fatalf("ExecuteFiltered: %v", err)
	}

	if len(ran) != 3 {
		t.Fatalf("expected exactly 3 tasks to run, got %v", ran)
	}
	for _, n := range []string{"T1", "T3", "T6"} {
		if tasks[n].GetAction().(*scriptedAction).runCount() != 0 {
			t.Fatalf("task %s outside the filter should not have run", n)
		}
	}
}

func TestPriorityOrderingAcrossIndependentChains(t *testing.T) {
	// A deep chain (depth 3) and a shallow chain (depth 1) share a
	// single-worker pool. The deep chain's tasks occupy the higher
	// priority levels (closer to 0 depth gets higher priority) and the
	// scheduler's level barrier ensures every task sharing the shallow
	// chain's level completes before the deep chain's lower levels start.
	s := New(Config{MaxPoolSize: 1, CorePoolSize: 1})

	var mu sync.Mutex
	var finished []string
	record := func(name string) {
		mu.Lock()
		finished = append(finished, name)
		mu.Unlock()
	}

	mk := func(name string) *scriptedAction {
		a := newScriptedAction(name, scriptedResult{Success, nil})
		a.onPerf = func() { record(name) }
		return a
	}

	a1, _ := s.Create(mk("deep-0"))
	a2, _ := s.Create(mk("deep-1"))
	a3, _ := s.Create(mk("deep-2"))
	must(t, a1.Before(a2))
	must(t, a2.Before(a3))

	shallow, _ := s.Create(mk("shallow-0"))

	if err := s.ExecuteAll(context.Background(), true); err != nil {
		t.Fatalf("ExecuteAll: %v", err)
	}

	if len(finished) != 4 {
		t.Fatalf("expected 4 completions, got %v", finished)
	}
	// deep-0 and shallow-0 share the highest priority level; both must
	// finish before deep-1 (the next level) starts.
	idx := func(name string) int {
		for i, n := range finished {
			if n == name {
				return i
			}
		}
		return -1
	}
	if idx("deep-1") < idx("deep-0") || idx("deep-1") < idx("shallow-0") {
		t.Fatalf("expected deep-0 and shallow-0 to finish before deep-1: %v", finished)
	}
	if idx("deep-2") < idx("deep-1") {
		t.Fatalf("expected deep-1 before deep-2: %v", finished)
	}
	_ = shallow
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
