package actsched

import (
	"regexp"
	"strings"

	"github.com/rkallberg/actsched/internal/graph"
)

var nonWordRun = regexp.MustCompile(`\W+`)

func dotName(t *Task) string {
	return nonWordRun.ReplaceAllString(t.GetActionName(), "_")
}

// DumpDOT renders the dependency edges among tasks as a DOT/GraphViz
// description, used for diagnostic output when debugOperations.enabled is
// set. Vertex names are normalised by replacing runs of non-word
// characters with "_".
func DumpDOT(tasks []*Task, g *graph.Graph[*Task]) string {
	deps := g.Dependents(tasks)

	var b strings.Builder
	b.WriteString("digraph Activities {\n")
	for _, t := range tasks {
		for _, dep := range deps[t] {
			b.WriteString("  ")
			b.WriteString(dotName(t))
			b.WriteString(" -> ")
			b.WriteString(dotName(dep))
			b.WriteString(";\n")
		}
	}
	b.WriteString("}")
	return b.String()
}
