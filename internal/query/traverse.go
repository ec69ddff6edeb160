package query

import "sort"

// Direction names the edge set a traversal follows.
type Direction string

const (
	Callers Direction = "callers"
	Callees Direction = "callees"
)

// Limits bound a traversal. Depth 0 walks to the transitive closure; Budget
// caps how many symbols are collected.
type Limits struct {
	Depth  int
	Budget int
}

// EdgeRecord is one neighbor of a symbol together with how the call edge
// between them was resolved.
type EdgeRecord struct {
	Symbol     SymbolRecord `json:"symbol"`
	Confidence string       `json:"confidence"`
	Candidates int          `json:"candidates,omitempty"`
}

// Neighborhood is the immediate call context of one symbol.
type Neighborhood struct {
	Symbol     SymbolRecord `json:"symbol"`
	Callees    []EdgeRecord `json:"callees,omitempty"`
	Callers    []EdgeRecord `json:"callers,omitempty"`
	Unresolved []string     `json:"unresolved,omitempty"`
}

// Neighbors returns direct callees, direct callers and unresolved calls of id.
func (e *Engine) Neighbors(id int) (Neighborhood, error) {
	if err := e.checkID(id); err != nil {
		return Neighborhood{}, err
	}
	sym := e.idx.Symbols[id]
	out := Neighborhood{
		Symbol:     e.record(id),
		Unresolved: append([]string(nil), sym.Unresolved...),
	}
	for _, call := range sym.Calls {
		out.Callees = append(out.Callees, e.edgeRecord(call.Target, call.Confidence.String(), call.Candidates))
	}
	for _, caller := range sym.Callers {
		calls := e.idx.Symbols[caller].Calls
		i := sort.Search(len(calls), func(i int) bool { return calls[i].Target >= id })
		confidence, candidates := "unknown", 0
		if i < len(calls) && calls[i].Target == id {
			confidence, candidates = calls[i].Confidence.String(), calls[i].Candidates
		}
		out.Callers = append(out.Callers, e.edgeRecord(caller, confidence, candidates))
	}
	return out, nil
}

func (e *Engine) edgeRecord(id int, confidence string, candidates int) EdgeRecord {
	rec := EdgeRecord{Symbol: e.record(id), Confidence: confidence}
	if candidates > 1 {
		rec.Candidates = candidates
	}
	return rec
}

// Reached is a symbol found by a traversal. Via is the neighbor it was
// reached from, one step closer to the root.
type Reached struct {
	Symbol SymbolRecord `json:"symbol"`
	Depth  int          `json:"depth"`
	Via    int          `json:"via"`
}

// Traversal is the result of Impact or Trace, in breadth-first order.
type Traversal struct {
	Root      SymbolRecord `json:"root"`
	Direction Direction    `json:"direction"`
	Depth     int          `json:"depth"`
	Nodes     []Reached    `json:"nodes,omitempty"`
	Truncated bool         `json:"truncated,omitempty"`
}

// Impact walks callers of id: everything that may break when id changes.
func (e *Engine) Impact(id int, limits Limits) (Traversal, error) {
	if err := e.checkID(id); err != nil {
		return Traversal{}, err
	}
	return e.walk(id, Callers, limits), nil
}

// Trace walks callees of id: everything id may run.
func (e *Engine) Trace(id int, limits Limits) (Traversal, error) {
	if err := e.checkID(id); err != nil {
		return Traversal{}, err
	}
	return e.walk(id, Callees, limits), nil
}

func (e *Engine) limits(l Limits) Limits {
	if l.Depth <= 0 {
		l.Depth = e.opts.DefaultDepth
	}
	if l.Budget <= 0 {
		l.Budget = e.opts.DefaultBudget
	}
	return l
}

func (e *Engine) next(id int, dir Direction) []int {
	sym := e.idx.Symbols[id]
	if dir == Callers {
		return sym.Callers
	}
	out := make([]int, 0, len(sym.Calls))
	for _, call := range sym.Calls {
		out = append(out, call.Target)
	}
	return out
}

// walk is a breadth-first search that never revisits a symbol, so call cycles
// terminate. Neighbors are expanded in ascending id order.
func (e *Engine) walk(root int, dir Direction, limits Limits) Traversal {
	limits = e.limits(limits)
	result := Traversal{Root: e.record(root), Direction: dir, Depth: limits.Depth}

	type item struct{ id, depth int }
	visited := map[int]bool{root: true}
	queue := []item{{id: root}}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if limits.Depth > 0 && current.depth >= limits.Depth {
			continue
		}
		for _, n := range e.next(current.id, dir) {
			if visited[n] {
				continue
			}
			if len(result.Nodes) >= limits.Budget {
				result.Truncated = true
				return result
			}
			visited[n] = true
			result.Nodes = append(result.Nodes, Reached{
				Symbol: e.record(n),
				Depth:  current.depth + 1,
				Via:    current.id,
			})
			queue = append(queue, item{id: n, depth: current.depth + 1})
		}
	}
	return result
}

// PathResult is the shortest call chain between two symbols.
type PathResult struct {
	From      SymbolRecord   `json:"from"`
	To        SymbolRecord   `json:"to"`
	Path      []SymbolRecord `json:"path,omitempty"`
	Found     bool           `json:"found"`
	Truncated bool           `json:"truncated,omitempty"`
}

// Path finds a shortest chain of calls leading from one symbol to another.
func (e *Engine) Path(from, to int, limits Limits) (PathResult, error) {
	if err := e.checkID(from); err != nil {
		return PathResult{}, err
	}
	if err := e.checkID(to); err != nil {
		return PathResult{}, err
	}
	return e.path(from, to, e.limits(limits)), nil
}

func (e *Engine) path(from, to int, limits Limits) PathResult {
	result := PathResult{From: e.record(from), To: e.record(to)}
	if from == to {
		result.Found = true
		result.Path = []SymbolRecord{result.From}
		return result
	}

	prev := map[int]int{from: -1}
	depth := map[int]int{from: 0}
	queue := []int{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if limits.Depth > 0 && depth[current] >= limits.Depth {
			continue
		}
		for _, n := range e.next(current, Callees) {
			if _, seen := prev[n]; seen {
				continue
			}
			if len(prev) > limits.Budget {
				result.Truncated = true
				return result
			}
			prev[n] = current
			depth[n] = depth[current] + 1
			if n == to {
				result.Found = true
				result.Path = e.reconstruct(prev, to)
				return result
			}
			queue = append(queue, n)
		}
	}
	return result
}

func (e *Engine) reconstruct(prev map[int]int, to int) []SymbolRecord {
	var ids []int
	for at := to; at != -1; at = prev[at] {
		ids = append(ids, at)
	}
	out := make([]SymbolRecord, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, e.record(ids[i]))
	}
	return out
}
