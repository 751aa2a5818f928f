// Package graph implements the directed acyclic graph primitives the
// scheduler builds task dependencies on top of: a vertex/edge arena,
// dependent/dependency projections, vertex removal with edge re-stitching,
// and two flavors of topological sort.
package graph

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gammazero/toposort"
)

// CycleError reports that a topological sort found a cycle, naming one of
// the vertices participating in it.
type CycleError[K comparable] struct {
	Vertex K
}

func (e *CycleError[K]) Error() string {
	return fmt.Sprintf("graph contains a cycle involving vertex %v", e.Vertex)
}

type edge[K comparable] struct {
	from, to *vertex[K]
	removed  bool
}

type vertex[K comparable] struct {
	key          K
	seq          uint64 // insertion sequence, used as a stable tiebreaker
	predecessors []*edge[K]
	successors   []*edge[K]
}

// Graph is a directed acyclic graph of vertices keyed by K (in practice,
// *actsched.Task pointers -- any comparable identity works). All operations are
// safe for concurrent use.
type Graph[K comparable] struct {
	mu       sync.RWMutex
	vertices map[K]*vertex[K]
	nextSeq  uint64
}

// New creates an empty graph.
func New[K comparable]() *Graph[K] {
	return &Graph[K]{vertices: make(map[K]*vertex[K])}
}

// AddVertex is idempotent: if key is already present, its existing vertex
// and edges are left unchanged.
func (g *Graph[K]) AddVertex(key K) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addVertexLocked(key)
}

func (g *Graph[K]) addVertexLocked(key K) *vertex[K] {
	if v, ok := g.vertices[key]; ok {
		return v
	}
	v := &vertex[K]{key: key, seq: g.nextSeq}
	g.nextSeq++
	g.vertices[key] = v
	return v
}

// edgeExists reports whether an edge already connects a and b in either
// direction. Identical vertices are reported as already connected, which
// short-circuits self-comparisons during RemoveVertex re-stitching so the
// re-stitch never creates a self-loop. (Before rejects self-edges with its
// own check.)
func edgeExists[K comparable](a, b *vertex[K]) bool {
	if a == b {
		return true
	}
	for _, e := range a.successors {
		if e.to == b {
			return true
		}
	}
	for _, e := range a.predecessors {
		if e.from == b {
			return true
		}
	}
	return false
}

// Before creates an edge u -> v. Self-edges fail. Duplicate edges in the
// same direction are permitted (callers are expected to coalesce them).
func (g *Graph[K]) Before(u, v K) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	uv := g.addVertexLocked(u)
	vv := g.addVertexLocked(v)
	if uv == vv {
		return fmt.Errorf("graph: cannot add a self-edge for vertex %v", u)
	}

	e := &edge[K]{from: uv, to: vv}
	uv.successors = append(uv.successors, e)
	vv.predecessors = append(vv.predecessors, e)
	return nil
}

// After creates an edge v -> u, i.e. After(u, v) == Before(v, u).
func (g *Graph[K]) After(u, v K) error {
	return g.Before(v, u)
}

// RemoveVertex removes u and re-stitches edges so that, for every
// predecessor p and successor s of u, an edge p -> s is added iff no edge
// already exists between p and s in either direction. Reports whether u
// was present.
func (g *Graph[K]) RemoveVertex(u K) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	uv, ok := g.vertices[u]
	if !ok {
		return false
	}

	preds := make([]*vertex[K], 0, len(uv.predecessors))
	for _, e := range uv.predecessors {
		preds = append(preds, e.from)
		removeEdgeFrom(e.from.successors, e, &e.from.successors)
	}
	succs := make([]*vertex[K], 0, len(uv.successors))
	for _, e := range uv.successors {
		succs = append(succs, e.to)
		removeEdgeFrom(e.to.predecessors, e, &e.to.predecessors)
	}

	for _, p := range preds {
		for _, s := range succs {
			if edgeExists[K](p, s) {
				continue
			}
			e := &edge[K]{from: p, to: s}
			p.successors = append(p.successors, e)
			s.predecessors = append(s.predecessors, e)
		}
	}

	delete(g.vertices, u)
	return true
}

// removeEdgeFrom deletes e from a slice of edges owned by a vertex,
// writing the shortened slice back through dst.
func removeEdgeFrom[K comparable](edges []*edge[K], e *edge[K], dst *[]*edge[K]) {
	out := edges[:0]
	for _, existing := range edges {
		if existing != e {
			out = append(out, existing)
		}
	}
	*dst = out
}

// Dependents returns, for each key in keys, the set of its direct
// successors (not transitive).
func (g *Graph[K]) Dependents(keys []K) map[K][]K {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[K][]K, len(keys))
	for _, k := range keys {
		v, ok := g.vertices[k]
		if !ok {
			out[k] = nil
			continue
		}
		deps := make([]K, 0, len(v.successors))
		for _, e := range v.successors {
			deps = append(deps, e.to.key)
		}
		out[k] = deps
	}
	return out
}

// DependencyEntry pairs a key with its direct predecessors.
type DependencyEntry[K comparable] struct {
	Key  K
	Deps []K
}

// DependsOn returns each key's direct predecessors, ordered ascending by
// predecessor count and, on ties, ascending by the key's own insertion
// sequence. The scheduler's parallel pass uses the result to look up each
// task's predecessors; it computes depths in topological order, not in
// this order.
func (g *Graph[K]) DependsOn(keys []K) []DependencyEntry[K] {
	g.mu.RLock()
	defer g.mu.RUnlock()

	entries := make([]DependencyEntry[K], 0, len(keys))
	seqOf := make(map[K]uint64, len(keys))
	for _, k := range keys {
		v, ok := g.vertices[k]
		if !ok {
			entries = append(entries, DependencyEntry[K]{Key: k})
			continue
		}
		seqOf[k] = v.seq
		deps := make([]K, 0, len(v.predecessors))
		for _, e := range v.predecessors {
			deps = append(deps, e.from.key)
		}
		entries = append(entries, DependencyEntry[K]{Key: k, Deps: deps})
	}

	sort.Slice(entries, func(i, j int) bool {
		li, lj := len(entries[i].Deps), len(entries[j].Deps)
		if li != lj {
			return li < lj
		}
		return seqOf[entries[i].Key] < seqOf[entries[j].Key]
	})
	return entries
}

// TopoSort runs Kahn's algorithm restricted to the vertices named in vs,
// ignoring edges whose other endpoint lies outside vs. On success it
// returns a permutation of vs in dependency order. On a cycle it returns a
// *CycleError naming one offending vertex. Either way, all edge-removed
// flags touched during the pass (including those on out-of-filter edges)
// are cleared before returning, leaving the graph reusable.
func (g *Graph[K]) TopoSort(vs []K) ([]K, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	inSet := make(map[K]*vertex[K], len(vs))
	for _, k := range vs {
		if v, ok := g.vertices[k]; ok {
			inSet[k] = v
		}
	}

	var touched []*edge[K]
	defer func() {
		for _, e := range touched {
			e.removed = false
		}
	}()

	remaining := make(map[*vertex[K]]int, len(inSet))
	for _, v := range inSet {
		count := 0
		for _, e := range v.predecessors {
			if _, ok := inSet[e.from.key]; ok {
				count++
			}
		}
		remaining[v] = count
	}

	queue := make([]*vertex[K], 0, len(inSet))
	for _, k := range vs {
		if v, ok := inSet[k]; ok && remaining[v] == 0 {
			queue = append(queue, v)
		}
	}

	order := make([]K, 0, len(vs))
	seen := make(map[*vertex[K]]bool, len(inSet))
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		if seen[v] {
			continue
		}
		seen[v] = true
		order = append(order, v.key)

		for _, e := range v.successors {
			sv := e.to
			if _, ok := inSet[sv.key]; !ok {
				continue
			}
			e.removed = true
			touched = append(touched, e)
			remaining[sv]--
			if remaining[sv] == 0 {
				queue = append(queue, sv)
			}
		}
	}

	if len(order) != len(inSet) {
		for _, v := range inSet {
			if !seen[v] {
				return nil, &CycleError[K]{Vertex: v.key}
			}
		}
	}

	return order, nil
}

// Validate runs a whole-graph topological sort using gammazero/toposort, a
// convenience check distinct from the filtered TopoSort above (which alone
// supports subgraphs and cycle-vertex naming). Returns the full vertex set
// in dependency order, or an error on a cycle.
func (g *Graph[K]) Validate() ([]K, error) {
	g.mu.RLock()
	keys := make([]K, 0, len(g.vertices))
	edges := make([]toposort.Edge, 0)
	for k, v := range g.vertices {
		keys = append(keys, k)
		if len(v.predecessors) == 0 {
			edges = append(edges, toposort.Edge{nil, k})
			continue
		}
		for _, e := range v.predecessors {
			edges = append(edges, toposort.Edge{e.from.key, k})
		}
	}
	g.mu.RUnlock()

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, fmt.Errorf("graph contains a cycle: %w", err)
	}

	order := make([]K, 0, len(keys))
	for _, raw := range sorted {
		if raw == nil {
			continue
		}
		order = append(order, raw.(K))
	}
	return order, nil
}

// Keys returns all vertex keys in insertion order, so callers that seed a
// pass or a DOT dump from it see a reproducible order given the same
// sequence of AddVertex/Before/After calls, rather than Go's randomised
// map iteration order.
func (g *Graph[K]) Keys() []K {
	g.mu.RLock()
	defer g.mu.RUnlock()
	verts := make([]*vertex[K], 0, len(g.vertices))
	for _, v := range g.vertices {
		verts = append(verts, v)
	}
	sort.Slice(verts, func(i, j int) bool { return verts[i].seq < verts[j].seq })

	keys := make([]K, len(verts))
	for i, v := range verts {
		keys[i] = v.key
	}
	return keys
}

// Has reports whether key names a vertex currently in the graph.
func (g *Graph[K]) Has(key K) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.vertices[key]
	return ok
}

// Len returns the number of vertices.
func (g *Graph[K]) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.vertices)
}
