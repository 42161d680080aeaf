package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/modelq/internal/ir"
)

// CycleWarning describes a loop in the model base graph.
//
// Unlike relation back-references, which are normal (Owner.pets and
// Pet.owner), an inheritance loop makes every model on it unresolvable, so
// validation reports these as E121 errors.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["A", "B", "A"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // always "error" for inheritance
}

// AnalyzeInheritance finds every cycle in the base relation of models.
//
// The algorithm:
//  1. Build a model -> base graph (unknown bases are leaves)
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop as a cycle
//
// Results are sorted by their first model name, and each path starts at the
// alphabetically smallest member, so output is deterministic.
func AnalyzeInheritance(models []ir.ModelDefinition) []CycleWarning {
	graph := buildBaseGraph(models)
	if len(graph) == 0 {
		return []CycleWarning{}
	}

	warnings := []CycleWarning{}
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}
	slices.SortFunc(warnings, func(a, b CycleWarning) int {
		return strings.Compare(a.Path[0], b.Path[0])
	})
	return warnings
}

// baseGraph maps model -> models it extends (at most one).
type baseGraph map[string][]string

func buildBaseGraph(models []ir.ModelDefinition) baseGraph {
	graph := make(baseGraph)
	for _, m := range models {
		if graph[m.Name] == nil {
			graph[m.Name] = []string{}
		}
		if m.Base != "" {
			graph[m.Name] = append(graph[m.Name], m.Base)
		}
	}
	return graph
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph baseGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Nodes are visited in sorted order. Single-node SCCs without self-loops are
// NOT cycles.
func tarjanSCC(graph baseGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// root node: pop the SCC
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

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// cycleSCCToWarning converts an SCC to a CycleWarning whose path starts and
// ends at the smallest member.
func cycleSCCToWarning(scc []string, graph baseGraph) CycleWarning {
	start := slices.Min(scc)
	path := []string{start}
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}

	current := start
	for {
		var next string
		for _, w := range graph[current] {
			if members[w] {
				next = w
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start || len(path) > len(scc) {
			break
		}
		current = next
	}

	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("inheritance cycle: %s", strings.Join(path, " -> ")),
		Level:   "error",
	}
}
