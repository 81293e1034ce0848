package graph

import (
	"container/heap"

	"github.com/alexanderramin/stageflow/internal/domain"
)

// rankHeap is a min-heap of node indices ordered by (sequence, code).
// Using a heap for the ready queue makes the topological order
// deterministic regardless of input edge order.
type rankHeap struct {
	g    *Graph
	idxs []int
}

func (h *rankHeap) Len() int { return len(h.idxs) }
func (h *rankHeap) Less(i, j int) bool {
	a, b := h.g.nodes[h.idxs[i]], h.g.nodes[h.idxs[j]]
	if a.Sequence != b.Sequence {
		return a.Sequence < b.Sequence
	}
	return a.Code < b.Code
}
func (h *rankHeap) Swap(i, j int) { h.idxs[i], h.idxs[j] = h.idxs[j], h.idxs[i] }
func (h *rankHeap) Push(x any)    { h.idxs = append(h.idxs, x.(int)) }
func (h *rankHeap) Pop() any {
	old := h.idxs
	n := len(old)
	x := old[n-1]
	h.idxs = old[:n-1]
	return x
}

// topoOrder runs Kahn's algorithm. When the output is shorter than the
// node count a cycle exists; a DFS then extracts one stable witness path
// for the error.
func (g *Graph) topoOrder() ([]int, error) {
	indeg := make([]int, len(g.nodes))
	for _, succs := range g.successors {
		for _, m := range succs {
			indeg[m]++
		}
	}

	ready := &rankHeap{g: g}
	heap.Init(ready)
	for i := range indeg {
		if indeg[i] == 0 {
			heap.Push(ready, i)
		}
	}

	out := make([]int, 0, len(g.nodes))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		out = append(out, n)
		for _, m := range g.successors[n] {
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}

	if len(out) != len(g.nodes) {
		return nil, &domain.CycleError{Version: g.version, Path: g.findCycle()}
	}
	return out, nil
}

// findCycle performs a DFS over nodes in canonical order and extracts
// one cycle path. Returns a single stable witness, not all cycles.
func (g *Graph) findCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make([]int, len(g.nodes))
	parent := make([]int, len(g.nodes))
	for i := range parent {
		parent[i] = -1
	}

	var cycle []int
	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range g.successors[u] {
			if color[v] == white {
				parent[v] = u
				if dfs(v) {
					return true
				}
				continue
			}
			if color[v] == gray {
				// Back-edge u -> v: reconstruct v ... u -> v.
				cycle = append(cycle, v)
				for cur := u; cur != -1 && cur != v; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	for i := 0; i < len(g.nodes); i++ {
		if color[i] == white && dfs(i) {
			break
		}
	}

	out := make([]string, 0, len(cycle))
	for i := len(cycle) - 1; i >= 0; i-- {
		out = append(out, g.nodes[cycle[i]].Code)
	}
	return out
}
