package catalog

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/floorplan/internal/ir"
)

// CycleWarning reports kinds whose depends_on declarations form a loop.
//
// A loop is legal: dirty propagation stops at the first ancestor that is
// already dirty, so it terminates. It usually means a catalog mistake though.
type CycleWarning struct {
	Path    []string `json:"path"` // ["face", "vertex", "face"]
	Message string   `json:"message"`
}

// AnalyzeCycles finds loops in the kind dependency graph built from every
// class's depends_on list. An acyclic catalog returns no warnings.
func AnalyzeCycles(cat *ir.Catalog) []CycleWarning {
	deps := buildKindGraph(cat.Classes)
	var warnings []CycleWarning
	for _, scc := range tarjanSCC(deps) {
		if len(scc) == 1 && !slices.Contains(deps[scc[0]], scc[0]) {
			continue
		}
		path := cyclePath(scc, deps)
		warnings = append(warnings, CycleWarning{
			Path:    path,
			Message: "kind dependency cycle: " + strings.Join(path, " -> "),
		})
	}
	slices.SortFunc(warnings, func(a, b CycleWarning) int {
		return strings.Compare(a.Path[0], b.Path[0])
	})
	return warnings
}

// kindGraph maps a kind to the kinds it depends on.
type kindGraph map[string][]string

func buildKindGraph(classes []ir.ClassSpec) kindGraph {
	g := make(kindGraph)
	for _, c := range classes {
		if g[c.Kind] == nil {
			g[c.Kind] = []string{}
		}
		for _, dep := range c.DependsOn {
			if !slices.Contains(g[c.Kind], dep) {
				g[c.Kind] = append(g[c.Kind], dep)
			}
		}
	}
	return g
}

// tarjanSCC returns the strongly connected components of g. Nodes are
// visited in sorted order so the output is deterministic.
func tarjanSCC(g kindGraph) [][]string {
	var (
		index   int
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var connect func(string)
	connect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g[v] {
			if _, visited := indices[w]; !visited {
				connect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(g))
	for n := range g {
		nodes = append(nodes, n)
	}
	slices.Sort(nodes)
	for _, n := range nodes {
		if _, visited := indices[n]; !visited {
			connect(n)
		}
	}
	return sccs
}

// cyclePath walks from the smallest member of scc along edges that stay
// inside it until it returns to the start.
func cyclePath(scc []string, g kindGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}
	start := slices.Min(scc)
	if len(scc) == 1 {
		return []string{start, start}
	}

	path := []string{start}
	visited := map[string]bool{start: true}
	cur := start
	for {
		next := ""
		for _, w := range g[cur] {
			if w == start && len(path) == len(scc) {
				return append(path, start)
			}
			if members[w] && !visited[w] {
				next = w
				break
			}
		}
		if next == "" {
			// No simple tour from here; close the loop where we are.
			return append(path, start)
		}
		visited[next] = true
		path = append(path, next)
		cur = next
	}
}

func (w CycleWarning) String() string {
	return fmt.Sprintf("warning: %s", w.Message)
}
