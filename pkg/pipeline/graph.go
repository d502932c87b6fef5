package pipeline

import (
	"sort"
	"strings"
)

// Graph is an immutable, validated dependency graph of stages.
//
// It is safe for concurrent read access and may be run any number of times.
type Graph struct {
	stages []Stage
	index  map[string]int

	incoming [][]int // dependencies, by stage index, sorted ascending
	outgoing [][]int // dependents, by stage index, sorted ascending

	order  []int
	owners map[string]string
}

// NewGraph builds and validates a Graph.
//
// Validation runs immediately and rejects:
//   - an empty stage list, nil stages or empty stage IDs
//   - duplicate stage IDs
//   - dependencies on unknown stages, self-dependencies and repeated dependencies
//   - empty or duplicate output field names, across all stages
//   - any cycle (direct or indirect)
func NewGraph(stages ...Stage) (*Graph, error) {
	if len(stages) == 0 {
		return nil, invalidf("no stages")
	}

	g := &Graph{
		stages:   make([]Stage, 0, len(stages)),
		index:    make(map[string]int, len(stages)),
		incoming: make([][]int, len(stages)),
		outgoing: make([][]int, len(stages)),
		owners:   make(map[string]string),
	}

	for i, st := range stages {
		if st == nil {
			return nil, invalidf("stage %d is nil", i)
		}
		id := st.ID()
		if id == "" {
			return nil, invalidf("stage %d has an empty id", i)
		}
		if _, exists := g.index[id]; exists {
			return nil, invalidf("duplicate stage id: %q", id)
		}
		g.index[id] = i
		g.stages = append(g.stages, st)
	}

	for i, st := range g.stages {
		seen := make(map[string]struct{}, len(st.DependsOn()))
		for _, dep := range st.DependsOn() {
			j, ok := g.index[dep]
			if !ok {
				return nil, invalidf("stage %q depends on unknown stage %q", st.ID(), dep)
			}
			if j == i {
				return nil, invalidf("stage %q depends on itself", st.ID())
			}
			if _, dup := seen[dep]; dup {
				return nil, invalidf("stage %q lists dependency %q twice", st.ID(), dep)
			}
			seen[dep] = struct{}{}
			g.incoming[i] = append(g.incoming[i], j)
			g.outgoing[j] = append(g.outgoing[j], i)
		}

		for _, field := range st.Outputs() {
			if field == "" {
				return nil, invalidf("stage %q declares an empty output field", st.ID())
			}
			if owner, taken := g.owners[field]; taken {
				return nil, invalidf("output field %q declared by both %q and %q", field, owner, st.ID())
			}
			g.owners[field] = st.ID()
		}
	}
	for i := range g.stages {
		sort.Ints(g.incoming[i])
		sort.Ints(g.outgoing[i])
	}

	if err := g.validateAcyclic(); err != nil {
		return nil, err
	}
	return g, nil
}

// Len returns the number of stages.
func (g *Graph) Len() int { return len(g.stages) }

// Stage returns a stage by ID.
func (g *Graph) Stage(id string) (Stage, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return g.stages[i], true
}

// Stages returns the stages in declaration order.
func (g *Graph) Stages() []Stage {
	out := make([]Stage, len(g.stages))
	copy(out, g.stages)
	return out
}

// TopologicalOrder returns a deterministic topological ordering of stage IDs.
// Among stages that become ready together, declaration order wins.
func (g *Graph) TopologicalOrder() []string {
	return g.names(g.order)
}

// Entries returns the stages without dependencies, in declaration order.
func (g *Graph) Entries() []string {
	var out []int
	for i := range g.stages {
		if len(g.incoming[i]) == 0 {
			out = append(out, i)
		}
	}
	return g.names(out)
}

// Dependents returns the stages that list id as a dependency.
func (g *Graph) Dependents(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.names(g.outgoing[i])
}

// Owner returns the stage that declared field as an output.
func (g *Graph) Owner(field string) (string, bool) {
	owner, ok := g.owners[field]
	return owner, ok
}

func (g *Graph) names(indices []int) []string {
	out := make([]string, 0, len(indices))
	for _, i := range indices {
		out = append(out, g.stages[i].ID())
	}
	return out
}

// validateAcyclic proves the graph has no cycles using Kahn's algorithm and
// records the resulting order. On failure it extracts one cycle path for the
// error message.
func (g *Graph) validateAcyclic() error {
	indeg := make([]int, len(g.stages))
	for i := range g.stages {
		indeg[i] = len(g.incoming[i])
	}

	var ready []int
	for i, d := range indeg {
		if d == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]int, 0, len(g.stages))
	for len(ready) > 0 {
		sort.Ints(ready)
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)
		for _, m := range g.outgoing[n] {
			indeg[m]--
			if indeg[m] == 0 {
				ready = append(ready, m)
			}
		}
	}

	if len(order) == len(g.stages) {
		g.order = order
		return nil
	}

	cycle := g.names(g.findCycle())
	return &GraphValidationError{
		Reason: "cycle detected: " + strings.Join(cycle, " -> "),
		Cycle:  cycle,
	}
}

// findCycle walks dependency edges depth-first in index order and returns the
// first cycle it meets, closed by repeating its first stage.
func (g *Graph) findCycle() []int {
	const (
		white = iota
		grey
		black
	)
	color := make([]int, len(g.stages))
	var stack []int
	var found []int

	var visit func(n int) bool
	visit = func(n int) bool {
		color[n] = grey
		stack = append(stack, n)
		for _, m := range g.outgoing[n] {
			switch color[m] {
			case grey:
				for k, s := range stack {
					if s == m {
						found = append(append([]int{}, stack[k:]...), m)
						return true
					}
				}
			case white:
				if visit(m) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[n] = black
		return false
	}

	for i := range g.stages {
		if color[i] == white && visit(i) {
			return found
		}
	}
	return nil
}
