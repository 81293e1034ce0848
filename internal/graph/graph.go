package graph

import (
	"fmt"
	"sort"

	"github.com/alexanderramin/stageflow/internal/domain"
)

// Graph is a loaded, validated dependency graph for one template
// version. Immutable after Load; projects pin a version at creation so
// later template edits never alter existing projects.
type Graph struct {
	version string
	nodes   []domain.StageTemplate
	index   map[string]int // code -> index into nodes

	// adjacency by node index; successor/predecessor lists are kept
	// sorted by (sequence, code) for deterministic traversal.
	successors   [][]int
	predecessors [][]int

	topo []int // cached topological order, node indices
}

// Load builds a Graph from the template stages and depends-on edges of
// one version. Fails with domain.ErrConfiguration on dangling or
// version-mismatched edges and with a *domain.CycleError when the edge
// set admits no topological order.
func Load(version string, stages []domain.StageTemplate, edges []domain.StageDependencyTemplate) (*Graph, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("template %s has no stages: %w", version, domain.ErrConfiguration)
	}

	g := &Graph{
		version: version,
		nodes:   make([]domain.StageTemplate, 0, len(stages)),
		index:   make(map[string]int, len(stages)),
	}
	for _, s := range stages {
		if s.Version != version {
			return nil, fmt.Errorf("stage %s belongs to template %s, not %s: %w",
				s.Code, s.Version, version, domain.ErrConfiguration)
		}
		if _, dup := g.index[s.Code]; dup {
			return nil, fmt.Errorf("duplicate stage code %s in template %s: %w",
				s.Code, version, domain.ErrConfiguration)
		}
		g.index[s.Code] = len(g.nodes)
		g.nodes = append(g.nodes, s)
	}

	g.successors = make([][]int, len(g.nodes))
	g.predecessors = make([][]int, len(g.nodes))
	for _, e := range edges {
		if e.Version != version {
			return nil, fmt.Errorf("edge %s->%s belongs to template %s, not %s: %w",
				e.DependsOnStageCode, e.FromStageCode, e.Version, version, domain.ErrConfiguration)
		}
		from, ok := g.index[e.DependsOnStageCode]
		if !ok {
			return nil, fmt.Errorf("edge references unknown stage %s: %w",
				e.DependsOnStageCode, domain.ErrConfiguration)
		}
		to, ok := g.index[e.FromStageCode]
		if !ok {
			return nil, fmt.Errorf("edge references unknown stage %s: %w",
				e.FromStageCode, domain.ErrConfiguration)
		}
		g.successors[from] = append(g.successors[from], to)
		g.predecessors[to] = append(g.predecessors[to], from)
	}
	for i := range g.nodes {
		g.sortByRank(g.successors[i])
		g.sortByRank(g.predecessors[i])
	}

	topo, err := g.topoOrder()
	if err != nil {
		return nil, err
	}
	g.topo = topo
	return g, nil
}

// sortByRank orders node indices by (sequence, code) ascending.
func (g *Graph) sortByRank(idxs []int) {
	sort.Slice(idxs, func(a, b int) bool {
		na, nb := g.nodes[idxs[a]], g.nodes[idxs[b]]
		if na.Sequence != nb.Sequence {
			return na.Sequence < nb.Sequence
		}
		return na.Code < nb.Code
	})
}

// Version returns the template version this graph was loaded from.
func (g *Graph) Version() string { return g.version }

// Node returns the template entry for code.
func (g *Graph) Node(code string) (domain.StageTemplate, bool) {
	i, ok := g.index[code]
	if !ok {
		return domain.StageTemplate{}, false
	}
	return g.nodes[i], true
}

// Codes returns all stage codes in topological order.
func (g *Graph) Codes() []string {
	return g.TopologicalOrder()
}

// TopologicalOrder returns a total order consistent with every edge,
// with ties broken by ascending sequence then code. The order is
// computed once at load time.
func (g *Graph) TopologicalOrder() []string {
	out := make([]string, len(g.topo))
	for i, idx := range g.topo {
		out[i] = g.nodes[idx].Code
	}
	return out
}

// Predecessors returns the codes this stage directly depends on.
func (g *Graph) Predecessors(code string) []string {
	i, ok := g.index[code]
	if !ok {
		return nil
	}
	return g.codesOf(g.predecessors[i])
}

// Successors returns the codes directly depending on this stage.
func (g *Graph) Successors(code string) []string {
	i, ok := g.index[code]
	if !ok {
		return nil
	}
	return g.codesOf(g.successors[i])
}

// DownstreamReachable returns every stage transitively depending on
// code, in topological order, excluding code itself.
func (g *Graph) DownstreamReachable(code string) []string {
	start, ok := g.index[code]
	if !ok {
		return nil
	}
	seen := make([]bool, len(g.nodes))
	stack := []int{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, m := range g.successors[n] {
			if !seen[m] {
				seen[m] = true
				stack = append(stack, m)
			}
		}
	}
	var out []string
	for _, idx := range g.topo {
		if seen[idx] && idx != start {
			out = append(out, g.nodes[idx].Code)
		}
	}
	return out
}

func (g *Graph) codesOf(idxs []int) []string {
	out := make([]string, len(idxs))
	for i, idx := range idxs {
		out[i] = g.nodes[idx].Code
	}
	return out
}
