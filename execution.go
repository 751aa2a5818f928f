package actsched

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rkallberg/actsched/internal/events"
	"github.com/rkallberg/actsched/internal/graph"
	"github.com/rkallberg/actsched/internal/pool"
)

// passProgress tracks how a pass's tasks are settling so a DAGProgressEvent
// can be published after each one completes, fails, or is disabled.
type passProgress struct {
	total     int
	completed int32
	failed    int32
	disabled  int32
	running   int32
}

func (p *passProgress) publish(s *Scheduler) {
	completed := atomic.LoadInt32(&p.completed)
	failed := atomic.LoadInt32(&p.failed)
	disabled := atomic.LoadInt32(&p.disabled)
	running := atomic.LoadInt32(&p.running)
	pending := p.total - int(completed) - int(failed) - int(disabled) - int(running)
	s.events.Publish(events.TopicDAG, events.DAGProgressEvent{
		Total:     p.total,
		Completed: int(completed),
		Running:   int(running),
		Failed:    int(failed),
		Disabled:  int(disabled),
		Pending:   pending,
		Timestamp: now(),
	})
}

// runTask executes t, publishing task lifecycle events and updating the
// pass's progress counters around the call.
func (s *Scheduler) runTask(ctx context.Context, t *Task, progress *passProgress) (Outcome, error) {
	atomic.AddInt32(&progress.running, 1)
	name := t.GetActionName()
	s.events.Publish(events.TopicTask, events.TaskStartedEvent{Name: name, Timestamp: now()})

	start := now()
	outcome, err := t.Execute(ctx)

	atomic.AddInt32(&progress.running, -1)
	switch outcome {
	case Success:
		atomic.AddInt32(&progress.completed, 1)
		s.events.Publish(events.TopicTask, events.TaskCompletedEvent{Name: name, Duration: now().Sub(start), Timestamp: now()})
	case Failure:
		atomic.AddInt32(&progress.failed, 1)
		s.events.Publish(events.TopicTask, events.TaskFailedEvent{Name: name, Err: err, Duration: now().Sub(start), Timestamp: now()})
	case Disable:
		atomic.AddInt32(&progress.disabled, 1)
		s.events.Publish(events.TopicTask, events.TaskDisabledEvent{Name: name, Cascaded: false, Timestamp: now()})
	case DisableOnce:
		atomic.AddInt32(&progress.disabled, 1)
		s.events.Publish(events.TopicTask, events.TaskDisabledEvent{Name: name, Cascaded: false, Timestamp: now()})
	}
	progress.publish(s)

	return outcome, err
}

func now() time.Time { return time.Now() }

// ExecuteAll runs every task currently in the scheduler's graph. In
// sequential mode tasks run one at a time in topological order. In
// parallel mode tasks are partitioned into priority levels by dependency
// depth and run through the scheduler's worker pool with per-task
// barriers. Only one ExecuteAll/ExecuteFiltered call may run at a time on
// a given Scheduler.
func (s *Scheduler) ExecuteAll(ctx context.Context, parallel bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executeLocked(ctx, s.g.Keys(), parallel)
}

// ExecuteFiltered runs only the named tasks, restricted to edges whose
// other endpoint also appears in tasks.
func (s *Scheduler) ExecuteFiltered(ctx context.Context, tasks []*Task, parallel bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executeLocked(ctx, tasks, parallel)
}

func (s *Scheduler) executeLocked(ctx context.Context, selected []*Task, parallel bool) error {
	if s.cfg.Debug {
		log.Printf("actsched: pass starting\n%s", DumpDOT(selected, s.g))
	}

	for _, t := range selected {
		t.resetDisableOnce()
	}

	order, err := s.g.TopoSort(selected)
	if err != nil {
		var cycleErr *graph.CycleError[*Task]
		if errors.As(err, &cycleErr) {
			return &CyclicDependenciesError{Vertex: cycleErr.Vertex.GetActionName()}
		}
		return err
	}

	progress := &passProgress{total: len(selected)}

	if !parallel {
		return s.executeSequential(ctx, order, progress)
	}
	return s.executeParallel(ctx, order, progress)
}

func (s *Scheduler) executeSequential(ctx context.Context, order []*Task, progress *passProgress) error {
	for _, t := range order {
		if err := ctx.Err(); err != nil {
			return ErrCancelled
		}
		outcome, err := s.runTask(ctx, t, progress)
		if err != nil && isCancellation(err) {
			return ErrCancelled
		}
		if outcome == Failure || outcome == Disable {
			s.propagateDisable(t)
		}
	}
	return nil
}

func (s *Scheduler) executeParallel(ctx context.Context, order []*Task, progress *passProgress) error {
	inSet := make(map[*Task]struct{}, len(order))
	for _, t := range order {
		inSet[t] = struct{}{}
	}

	depsEntries := s.g.DependsOn(order)
	depsMap := make(map[*Task][]*Task, len(order))
	for _, e := range depsEntries {
		filtered := make([]*Task, 0, len(e.Deps))
		for _, p := range e.Deps {
			if _, ok := inSet[p]; ok {
				filtered = append(filtered, p)
			}
		}
		depsMap[e.Key] = filtered
	}

	depth := make(map[*Task]int, len(order))
	maxDepth := 0
	for _, t := range order {
		d := 0
		for _, p := range depsMap[t] {
			if depth[p]+1 > d {
				d = depth[p] + 1
			}
		}
		depth[t] = d
		if d > maxDepth {
			maxDepth = d
		}
	}

	levels := make([][]*Task, maxDepth+1)
	for _, t := range order {
		levels[depth[t]] = append(levels[depth[t]], t)
	}

	latches := make(map[*Task]chan struct{}, len(order))
	for _, t := range order {
		latches[t] = make(chan struct{})
	}

	for d := 0; d <= maxDepth; d++ {
		levelTasks := levels[d]
		if len(levelTasks) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			openRemainingLatches(levels[d:], latches)
			return ErrCancelled
		}

		priority := maxDepth - d
		g, gctx := errgroup.WithContext(ctx)

		futures := make([]*pool.Future, len(levelTasks))
		for i, t := range levelTasks {
			t := t
			preds := depsMap[t]
			futures[i] = s.pool.Submit(gctx, priority, func(jctx context.Context) error {
				defer close(latches[t])
				for _, p := range preds {
					select {
					case <-latches[p]:
					case <-jctx.Done():
						return jctx.Err()
					}
				}
				outcome, err := s.runTask(jctx, t, progress)
				if outcome == Failure || outcome == Disable {
					s.propagateDisable(t)
				}
				if err != nil && isCancellation(err) {
					return err
				}
				if outcome == Failure && err != nil {
					return &TaskFailedError{TaskName: t.GetActionName(), Err: err}
				}
				return nil
			})
		}

		// The scheduler's level barrier: wait for every task's latch in
		// this level before moving to the next. errgroup's shared context
		// cancels the remaining in-flight jobs as soon as one reports an
		// error, satisfying the "cancel all still-pending futures" rule.
		for _, fut := range futures {
			fut := fut
			g.Go(func() error { return fut.Wait(gctx) })
		}

		if err := g.Wait(); err != nil {
			for _, fut := range futures {
				fut.Cancel()
			}
			openRemainingLatches(levels[d+1:], latches)
			if isCancellation(err) {
				return ErrCancelled
			}
			var tfe *TaskFailedError
			if errors.As(err, &tfe) {
				return tfe
			}
			return err
		}
	}

	return nil
}

// openRemainingLatches guarantees every latch in the not-yet-run levels is
// opened so a predecessor wait elsewhere can never block forever after a
// pass aborts.
func openRemainingLatches(remainingLevels [][]*Task, latches map[*Task]chan struct{}) {
	for _, level := range remainingLevels {
		for _, t := range level {
			select {
			case <-latches[t]:
			default:
				close(latches[t])
			}
		}
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// propagateDisable walks the transitive dependents of t breadth-first,
// disabling each still-enabled dependent and recursing into its own
// dependents only when the disable succeeds.
func (s *Scheduler) propagateDisable(t *Task) {
	queue := []*Task{t}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		deps := s.g.Dependents([]*Task{cur})[cur]
		for _, d := range deps {
			if !d.IsEnabled() {
				continue
			}
			if !d.Disable() {
				s.events.Publish(events.TopicTask, events.TaskDisabledEvent{
					Name:      d.GetActionName(),
					Cascaded:  true,
					Timestamp: now(),
				})
				queue = append(queue, d)
			}
		}
	}
}
