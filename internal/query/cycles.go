package query

import (
	"fmt"
	"sort"

	"github.com/dominikbraun/graph"
)

// Cycle is one import cycle. Files walks the cycle starting from the
// lexicographically smallest member; Members is every file of the strongly
// connected component the cycle belongs to.
type Cycle struct {
	Files   []string `json:"files"`
	Members []string `json:"members"`
}

// CycleResult lists cycles ordered by their first file.
type CycleResult struct {
	Cycles    []Cycle `json:"cycles,omitempty"`
	Truncated bool    `json:"truncated,omitempty"`
}

// DependencyCycles reports one shortest cycle per strongly connected group
// of files in the import graph. Budget caps the files visited while
// extracting cycles.
func (e *Engine) DependencyCycles(limits Limits) (CycleResult, error) {
	limits = e.limits(limits)

	g := graph.New(graph.StringHash, graph.Directed())
	for _, file := range e.idx.Files {
		if err := g.AddVertex(file.Path); err != nil {
			return CycleResult{}, fmt.Errorf("failed to add %s to import graph: %w", file.Path, err)
		}
	}
	for _, file := range e.idx.Files {
		for _, dep := range file.Deps {
			if err := g.AddEdge(file.Path, e.idx.Files[dep].Path); err != nil {
				return CycleResult{}, fmt.Errorf("failed to add import %s -> %s: %w", file.Path, e.idx.Files[dep].Path, err)
			}
		}
	}

	components, err := graph.StronglyConnectedComponents(g)
	if err != nil {
		return CycleResult{}, fmt.Errorf("failed to find import cycles: %w", err)
	}

	// Components come back in map order.
	groups := make([][]string, 0, len(components))
	for _, component := range components {
		if len(component) < 2 {
			continue
		}
		members := append([]string(nil), component...)
		sort.Strings(members)
		groups = append(groups, members)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })

	var result CycleResult
	visited := 0
	for _, members := range groups {
		files, cost := e.shortestCycle(members, limits.Budget-visited)
		visited += cost
		if files == nil {
			result.Truncated = true
			break
		}
		result.Cycles = append(result.Cycles, Cycle{Files: files, Members: members})
	}
	return result, nil
}

// shortestCycle runs a breadth-first search from the first member back to
// itself, staying inside the component. It returns nil when budget runs out.
func (e *Engine) shortestCycle(members []string, budget int) ([]string, int) {
	inside := make(map[int]bool, len(members))
	for _, p := range members {
		inside[e.byPath[p]] = true
	}
	start := e.byPath[members[0]]

	prev := map[int]int{}
	queue := []int{start}
	cost := 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		cost++
		if cost > budget {
			return nil, cost
		}
		for _, dep := range e.idx.Files[current].Deps {
			if !inside[dep] {
				continue
			}
			if dep == start {
				var ids []int
				for at := current; at != start; at = prev[at] {
					ids = append(ids, at)
				}
				files := []string{e.idx.Files[start].Path}
				for i := len(ids) - 1; i >= 0; i-- {
					files = append(files, e.idx.Files[ids[i]].Path)
				}
				return files, cost
			}
			if _, seen := prev[dep]; seen {
				continue
			}
			prev[dep] = current
			queue = append(queue, dep)
		}
	}
	return nil, cost
}
