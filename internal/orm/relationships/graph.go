package relationships

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ubiquits/ubiquits/internal/orm/schema"
)

// Edge is one declared relation from a class to its target
type Edge struct {
	From  string
	Field string
	Kind  schema.RelationKind
	To    string
}

// Graph represents the relations between the classes of a registry.
// Cycles are legal: relation targets are resolved lazily.
type Graph struct {
	nodes []string
	edges map[string][]Edge
}

// NewGraph resolves every relation target of the registry's concrete classes.
// Call it after all classes are defined.
func NewGraph(registry *schema.Registry) (*Graph, error) {
	g := &Graph{edges: make(map[string][]Edge)}

	for _, class := range registry.Classes() {
		if class.IsAbstract() {
			continue
		}
		g.nodes = append(g.nodes, class.Name())

		md, err := class.Metadata()
		if err != nil {
			return nil, err
		}
		for _, f := range md.Relations() {
			target, err := f.Relation.Resolve()
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", class.Name(), f.Name, err)
			}
			g.edges[class.Name()] = append(g.edges[class.Name()], Edge{
				From:  class.Name(),
				Field: f.Name,
				Kind:  f.Relation.Kind,
				To:    target.Name(),
			})
		}
	}

	return g, nil
}

// Edges returns the outgoing relations of a class
func (g *Graph) Edges(class string) []Edge {
	return g.edges[class]
}

// GetDependents returns the classes with a relation pointing at class
func (g *Graph) GetDependents(class string) []string {
	dependents := []string{}
	for _, node := range g.nodes {
		for _, e := range g.edges[node] {
			if e.To == class {
				dependents = append(dependents, node)
				break
			}
		}
	}
	return dependents
}

// DetectCycles returns the mutually referencing class groups
func (g *Graph) DetectCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	seen := make(map[string]bool)

	var dfs func(node string, path []string)
	dfs = func(node string, path []string) {
		visited[node] = true
		onStack[node] = true
		path = append(path, node)

		for _, e := range g.edges[node] {
			if !visited[e.To] {
				dfs(e.To, path)
				continue
			}
			if !onStack[e.To] {
				continue
			}
			for i, n := range path {
				if n != e.To {
					continue
				}
				cycle := make([]string, len(path)-i)
				copy(cycle, path[i:])
				key := cycleKey(cycle)
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, cycle)
				}
				break
			}
		}

		onStack[node] = false
	}

	for _, node := range g.nodes {
		if !visited[node] {
			dfs(node, nil)
		}
	}

	return cycles
}

func cycleKey(cycle []string) string {
	sorted := make([]string, len(cycle))
	copy(sorted, cycle)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// FormatCycle renders a cycle as "A -> B -> A"
func FormatCycle(cycle []string) string {
	if len(cycle) == 0 {
		return ""
	}
	return strings.Join(append(append([]string{}, cycle...), cycle[0]), " -> ")
}
