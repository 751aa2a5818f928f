package actsched

import (
	"context"
	"testing"
)

func TestExecuteOnceAtATimeRejectsReentry(t *testing.T) {
	s := New(Config{})
	a := newScriptedAction("A", scriptedResult{Success, nil})
	ta, _ := s.Create(a)

	ta.mu.Lock()
	ta.executing = true
	ta.mu.Unlock()

	outcome, err := ta.Execute(context.Background())
	if err == nil {
		t.Fatalf("expected an error re-entering execute while already executing")
	}
	if outcome != Failure {
		t.Fatalf("expected Failure outcome, got %v", outcome)
	}
}

func TestDisableSkipsPerformWithoutInvokingAction(t *testing.T) {
	s := New(Config{})
	a := newScriptedAction("A", scriptedResult{Success, nil})
	ta, _ := s.Create(a)

	if got := ta.Disable(); got {
		t.Fatalf("expected Disable to report disabled (false), got %v", got)
	}

	outcome, err := ta.Execute(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != Disable {
		t.Fatalf("expected Disable outcome, got %v", outcome)
	}
	if a.runCount() != 0 {
		t.Fatalf("expected action never to be performed")
	}
}

func TestActionOwnEnablementGatesExecution(t *testing.T) {
	s := New(Config{})
	a := newScriptedAction("A", scriptedResult{Success, nil})
	a.setEnabled(false)
	ta, _ := s.Create(a)

	if ta.IsEnabled() {
		t.Fatalf("expected IsEnabled to combine the action's own enablement")
	}
	outcome, _ := ta.Execute(context.Background())
	if outcome != Disable {
		t.Fatalf("expected Disable outcome when the action reports disabled, got %v", outcome)
	}
}

func TestCreateTagReturnsCanonicalIdentity(t *testing.T) {
	s := New(Config{})
	if !s.CreateTag("x").Equal(s.CreateTag("x")) {
		t.Fatalf("expected createTag(\"x\") == createTag(\"x\")")
	}
}

func TestResetReturnsToEmptyState(t *testing.T) {
	s := New(Config{})
	a := newScriptedAction("A", scriptedResult{Success, nil})
	ta, _ := s.Create(a)
	s.Tag(ta, s.CreateTag("x"))

	s.Reset()

	if got := s.GetActivities(false); len(got) != 0 {
		t.Fatalf("expected an empty scheduler after Reset, got %v", got)
	}
	if got := s.GetActivities(true, s.CreateTag("x")); len(got) != 0 {
		t.Fatalf("expected no tagged tasks after Reset, got %v", got)
	}
}

func TestAddTaskTwiceCreatesOneVertex(t *testing.T) {
	s := New(Config{})
	a := newScriptedAction("A", scriptedResult{Success, nil})
	ta, _ := s.Create(a)

	s.Add(ta)
	s.Add(ta)

	if got := s.GetActivities(false); len(got) != 1 {
		t.Fatalf("expected exactly one task, got %d", len(got))
	}
}
