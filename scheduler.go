package actsched

import (
	"sync"

	"github.com/rkallberg/actsched/internal/config"
	"github.com/rkallberg/actsched/internal/events"
	"github.com/rkallberg/actsched/internal/graph"
	"github.com/rkallberg/actsched/internal/pool"
	"github.com/rkallberg/actsched/internal/tag"
)

// Config configures a Scheduler. Zero values fall back to the documented
// defaults, mirroring the process-wide options a deployment would read at
// startup: maxActivityPoolSize, maxActivityRetry, debugOperations.enabled.
type Config struct {
	// MaxPoolSize caps parallel workers. Default 20.
	MaxPoolSize int
	// CorePoolSize is the number of workers kept warm between passes.
	// Default min(MaxPoolSize, 2).
	CorePoolSize int
	// MaxRetries bounds the task wrapper's retry loop. Default 5.
	MaxRetries int
	// Debug enables DOT-graph dumps before each pass via DumpDOT.
	Debug bool
}

func (c Config) withDefaults() Config {
	if c.MaxPoolSize <= 0 {
		c.MaxPoolSize = 20
	}
	if c.CorePoolSize <= 0 {
		c.CorePoolSize = min(c.MaxPoolSize, 2)
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	return c
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Scheduler owns the dependency graph and tag index for a set of tasks,
// and drives sequential or parallel execution passes over them. Every
// public method that reads or changes the graph or tag index is
// serialised on a single lock (Events and CreateTag take none); two concurrent
// ExecuteAll/ExecuteFiltered calls on the same Scheduler are disallowed.
type Scheduler struct {
	cfg Config

	mu       sync.Mutex
	g        *graph.Graph[*Task]
	tagIndex map[string]map[*Task]struct{}
	tags     *tag.Registry

	pool   *pool.Pool
	events *events.EventBus
}

// New creates an empty Scheduler.
func New(cfg Config) *Scheduler {
	cfg = cfg.withDefaults()
	return &Scheduler{
		cfg:      cfg,
		g:        graph.New[*Task](),
		tagIndex: make(map[string]map[*Task]struct{}),
		tags:     tag.NewRegistry(),
		pool: pool.New(pool.Config{
			MaxSize:  cfg.MaxPoolSize,
			CoreSize: cfg.CorePoolSize,
		}),
		events: events.NewEventBus(),
	}
}

// NewFromEnvironment loads the recognised settings (maxActivityPoolSize,
// maxActivityRetry, debugOperations.enabled) by merging the conventional
// global (~/.actsched/config.json) and project (.actsched/config.json)
// configuration files over the documented defaults, and constructs a
// Scheduler from the result.
func NewFromEnvironment() (*Scheduler, error) {
	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, err
	}
	return New(Config{
		MaxPoolSize: cfg.MaxActivityPoolSize,
		MaxRetries:  cfg.MaxActivityRetry,
		Debug:       cfg.DebugOperations.Enabled,
	}), nil
}

// Events returns the scheduler's event bus. Subscribers see TaskStarted,
// TaskCompleted, TaskFailed, TaskDisabled and DAGProgress events published
// over the course of ExecuteAll/ExecuteFiltered passes.
func (s *Scheduler) Events() *events.EventBus {
	return s.events
}

// Create wraps action in a new Task, adds it to the graph, and indexes it
// under the tags the action declares. Fails with ErrInvalidAction if
// action is nil.
func (s *Scheduler) Create(action Action) (*Task, error) {
	if action == nil {
		return nil, ErrInvalidAction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := newTask(s, action, s.cfg.MaxRetries)
	s.g.AddVertex(t)

	for _, name := range action.Tags() {
		tg := Tag{t: s.tags.Create(name)}
		s.tagUnlocked(t, tg)
	}

	return t, nil
}

// Add registers already-constructed tasks with the scheduler's graph.
// Idempotent per task.
func (s *Scheduler) Add(tasks ...*Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tasks {
		s.g.AddVertex(t)
	}
}

// Before creates edges from t to each of successors.
func (s *Scheduler) Before(t *Task, successors ...*Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, succ := range successors {
		if err := s.g.Before(t, succ); err != nil {
			return err
		}
	}
	return nil
}

// After creates edges from each of predecessors to t.
func (s *Scheduler) After(t *Task, predecessors ...*Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pred := range predecessors {
		if err := s.g.Before(pred, t); err != nil {
			return err
		}
	}
	return nil
}

// Remove removes t from the graph, re-stitching its predecessors directly
// to its successors, and reports whether t was present.
func (s *Scheduler) Remove(t *Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.g.RemoveVertex(t)
	if ok {
		for name, members := range s.tagIndex {
			delete(members, t)
			if len(members) == 0 {
				delete(s.tagIndex, name)
			}
		}
	}
	return ok
}

// Reset drops the scheduler's graph and tag index, returning it to its
// initial empty state. Equivalent to discarding and recreating the
// scheduler, but keeps the pool and tag registry handle alive.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.g = graph.New[*Task]()
	s.tagIndex = make(map[string]map[*Task]struct{})
}

// CreateTag returns the canonical Tag for name, creating it if necessary.
func (s *Scheduler) CreateTag(name string) Tag {
	return Tag{t: s.tags.Create(name)}
}

// Tag indexes t under each of tags.
func (s *Scheduler) Tag(t *Task, tags ...Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tg := range tags {
		s.tagUnlocked(t, tg)
	}
}

func (s *Scheduler) tagUnlocked(t *Task, tg Tag) {
	name := tg.Name()
	members, ok := s.tagIndex[name]
	if !ok {
		members = make(map[*Task]struct{})
		s.tagIndex[name] = members
	}
	members[t] = struct{}{}

	t.mu.Lock()
	t.tags[name] = tg
	t.mu.Unlock()
}

// Untag removes tags from t's index entries.
func (s *Scheduler) Untag(t *Task, tags ...Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tg := range tags {
		name := tg.Name()
		if members, ok := s.tagIndex[name]; ok {
			delete(members, t)
			if len(members) == 0 {
				delete(s.tagIndex, name)
			}
		}
		t.mu.Lock()
		delete(t.tags, name)
		t.mu.Unlock()
	}
}

// GetActivities returns tasks in the graph. If taggedOnly is true, only
// tasks carrying at least one of tags are returned; otherwise all tasks
// are returned regardless of the tags argument.
func (s *Scheduler) GetActivities(taggedOnly bool, tags ...Tag) []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !taggedOnly {
		return s.g.Keys()
	}

	seen := make(map[*Task]struct{})
	var out []*Task
	for _, tg := range tags {
		for t := range s.tagIndex[tg.Name()] {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
