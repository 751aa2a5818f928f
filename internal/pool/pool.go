// Package pool implements the priority-aware, eager-spawning worker pool
// described in the scheduler's parallel execution mode: on submission, a
// new worker is spawned whenever the pool is under its cap -- even if idle
// workers exist -- and only falls back to a priority queue once the cap is
// reached.
package pool

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

const defaultKeepAlive = 30 * time.Second

// Future is the handle returned by Submit. It resolves once the
// submitted job has run (or been cancelled before it could run).
type Future struct {
	done   chan struct{}
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

// Wait blocks until the job completes or ctx is done, whichever comes
// first, and returns the job's error (nil on success).
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel best-effort-interrupts the job: if it hasn't started, fn is never
// called and the future resolves with context.Canceled once a worker
// dequeues the job; if it's running, its context is cancelled so a
// well-behaved callable can observe it.
func (f *Future) Cancel() {
	f.cancel()
}

func (f *Future) resolve(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
	close(f.done)
}

// Config configures a Pool.
type Config struct {
	MaxSize   int           // cap on live workers; default 20
	CoreSize  int           // workers kept warm indefinitely; default min(MaxSize, 2)
	KeepAlive time.Duration // idle duration before a worker above CoreSize retires; default 30s
}

// Pool is a bounded worker pool that prefers spawning a new worker over
// queuing, up to Config.MaxSize live workers, then falls back to a
// priority queue ordered by (priority desc, submission order asc). Workers
// pull from the queue themselves once idle, rather than having a central
// dispatcher pre-assign jobs, so a higher-priority submission that arrives
// while every worker is busy is never preempted by one popped too early.
type Pool struct {
	cfg Config

	mu     sync.Mutex
	queue  priorityQueue
	live   int
	seq    uint64
	closed bool
	wake   chan struct{} // closed and replaced to broadcast "queue or state changed"
}

// New creates a pool and starts its CoreSize warm workers.
func New(cfg Config) *Pool {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 20
	}
	if cfg.CoreSize <= 0 {
		cfg.CoreSize = min(2, cfg.MaxSize)
	}
	if cfg.CoreSize > cfg.MaxSize {
		cfg.CoreSize = cfg.MaxSize
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = defaultKeepAlive
	}

	p := &Pool{
		cfg:  cfg,
		wake: make(chan struct{}),
	}
	heap.Init(&p.queue)

	for i := 0; i < cfg.CoreSize; i++ {
		p.live++
		go p.idleLoop()
	}

	return p
}

// Submit enqueues fn for execution under priority (higher runs first). If
// the pool has room under MaxSize, a new worker is spawned and handed the
// job directly, bypassing the queue even if idle workers are waiting on it.
func (p *Pool) Submit(ctx context.Context, priority int, fn func(ctx context.Context) error) *Future {
	jobCtx, cancel := context.WithCancel(ctx)
	fut := &Future{done: make(chan struct{}), cancel: cancel}

	run := func() error {
		if err := jobCtx.Err(); err != nil {
			return err
		}
		return fn(jobCtx)
	}

	p.mu.Lock()
	seq := p.seq
	p.seq++
	j := &job{seq: seq, priority: priority, run: run, fut: fut}

	if p.live < p.cfg.MaxSize {
		p.live++
		p.mu.Unlock()
		go p.runEagerWorker(j)
		return fut
	}

	heap.Push(&p.queue, j)
	p.broadcastLocked()
	p.mu.Unlock()
	return fut
}

// broadcastLocked wakes every worker blocked in idleLoop's select. Must be
// called with p.mu held.
func (p *Pool) broadcastLocked() {
	close(p.wake)
	p.wake = make(chan struct{})
}

// Live returns the current number of live workers.
func (p *Pool) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

// Close marks the pool closed so idle workers retire once their current
// wait ends. In-flight and already-queued jobs still run to completion.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.broadcastLocked()
	p.mu.Unlock()
}

// runEagerWorker executes the job it was spawned for, then joins the idle
// pool to pick up queued work while it stays warm.
func (p *Pool) runEagerWorker(first *job) {
	p.execute(first)
	p.idleLoop()
}

// idleLoop is the body of every pool worker once it has no directly
// assigned job: pull the highest-priority queued job as soon as one is
// available, or retire after KeepAlive idle time if above CoreSize.
func (p *Pool) idleLoop() {
	idleSince := time.Now()
	for {
		p.mu.Lock()
		if p.queue.Len() > 0 {
			j := heap.Pop(&p.queue).(*job)
			p.mu.Unlock()
			p.execute(j)
			idleSince = time.Now()
			continue
		}
		if p.closed {
			p.live--
			p.mu.Unlock()
			return
		}
		wake := p.wake
		p.mu.Unlock()

		remaining := time.Until(idleSince.Add(p.cfg.KeepAlive))
		if remaining <= 0 {
			remaining = 0
		}
		select {
		case <-wake:
			// queue changed or pool closed; loop around and re-check.
		case <-time.After(remaining):
			p.mu.Lock()
			if p.queue.Len() == 0 && p.live > p.cfg.CoreSize {
				p.live--
				p.mu.Unlock()
				return
			}
			p.mu.Unlock()
			idleSince = time.Now()
		}
	}
}

func (p *Pool) execute(j *job) {
	err := j.run()
	j.fut.resolve(err)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
