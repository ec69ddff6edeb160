package index

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/skelly-dev/atlas/internal/parser"
)

// ErrInconsistent reports a build whose derived state failed validation. No
// index is published when it occurs.
var ErrInconsistent = errors.New("index is inconsistent")

// Resolution is the resolver's output, addressed by global symbol number
// (files in scan order, then symbols in extraction order) and by file number.
type Resolution struct {
	Calls         [][]Edge   // per symbol
	Unresolved    [][]string // per symbol
	ImportTargets [][][]int  // per file, per import
}

// Input is everything Build assembles.
type Input struct {
	Files      []parser.FileSymbols // scan order
	Resolution Resolution
	Warnings   []parser.ParseIssue
	Meta       Meta
}

// Build assembles the index, derives caller sets, file dependencies and
// directory summaries, and validates the result.
func Build(in Input) (*Index, error) {
	total := 0
	for _, file := range in.Files {
		total += len(file.Symbols)
	}
	if len(in.Resolution.Calls) != total || len(in.Resolution.Unresolved) != total {
		return nil, fmt.Errorf("%w: resolution covers %d/%d symbols, expected %d",
			ErrInconsistent, len(in.Resolution.Calls), len(in.Resolution.Unresolved), total)
	}
	if len(in.Resolution.ImportTargets) != len(in.Files) {
		return nil, fmt.Errorf("%w: import resolution covers %d files, expected %d",
			ErrInconsistent, len(in.Resolution.ImportTargets), len(in.Files))
	}

	idx := &Index{
		Meta:     in.Meta,
		Files:    make([]File, 0, len(in.Files)),
		Symbols:  make([]Symbol, 0, total),
		Warnings: nilIfEmpty(in.Warnings),
	}
	if idx.Meta.BuiltAt.IsZero() {
		idx.Meta.BuiltAt = time.Now()
	}
	idx.Meta.BuiltAt = idx.Meta.BuiltAt.Truncate(time.Millisecond).UTC()

	for fileID, extracted := range in.Files {
		file := File{
			Path:     extracted.Path,
			Language: extracted.Language,
			Hash:     extracted.Hash,
			Purpose:  InferFilePurpose(extracted.Path),
			Sections: nilIfEmpty(extracted.Sections),
		}

		targets := in.Resolution.ImportTargets[fileID]
		if len(targets) != len(extracted.Imports) {
			return nil, fmt.Errorf("%w: %s has %d imports but %d resolutions",
				ErrInconsistent, extracted.Path, len(extracted.Imports), len(targets))
		}
		deps := make(map[int]bool)
		for i, imp := range extracted.Imports {
			edge := ImportEdge{
				Path:    imp.Path,
				Alias:   imp.Alias,
				Names:   nilIfEmpty(imp.Names),
				Line:    imp.Line,
				Targets: sortedUnique(targets[i]),
			}
			for _, target := range edge.Targets {
				if target != fileID {
					deps[target] = true
				}
			}
			file.Imports = append(file.Imports, edge)
		}
		file.Deps = sortedKeys(deps)

		for _, sym := range extracted.Symbols {
			id := len(idx.Symbols)
			file.Symbols = append(file.Symbols, id)
			idx.Symbols = append(idx.Symbols, Symbol{
				Name:       sym.Name,
				Container:  sym.Container,
				Kind:       sym.Kind,
				File:       fileID,
				Line:       sym.Line,
				Signature:  sym.Signature,
				Params:     nilIfEmpty(sym.Params),
				Returns:    sym.Returns,
				Doc:        sym.Doc,
				Calls:      normalizeEdges(id, in.Resolution.Calls[id]),
				Unresolved: sortedUniqueStrings(in.Resolution.Unresolved[id]),
			})
		}
		idx.Files = append(idx.Files, file)
	}

	deriveCallers(idx)
	idx.Purposes = DirectoryPurposes(idx)
	idx.Tree = DirectoryTree(idx)

	if err := idx.Validate(); err != nil {
		return nil, err
	}
	return idx, nil
}

// deriveCallers rebuilds every caller set by inverting resolved calls.
func deriveCallers(idx *Index) {
	for i := range idx.Symbols {
		idx.Symbols[i].Callers = nil
	}
	for caller, sym := range idx.Symbols {
		for _, call := range sym.Calls {
			if call.Target < 0 || call.Target >= len(idx.Symbols) {
				continue
			}
			idx.Symbols[call.Target].Callers = append(idx.Symbols[call.Target].Callers, caller)
		}
	}
	// Callers are appended in ascending caller order, so they are sorted.
}

// normalizeEdges drops self-edges, collapses duplicate targets keeping the
// strongest confidence, and sorts by target.
func normalizeEdges(self int, edges []Edge) []Edge {
	if len(edges) == 0 {
		return nil
	}
	byTarget := make(map[int]Edge, len(edges))
	for _, edge := range edges {
		if edge.Target == self || edge.Target < 0 {
			continue
		}
		if edge.Candidates < 1 {
			edge.Candidates = 1
		}
		prev, ok := byTarget[edge.Target]
		if !ok || edge.Confidence < prev.Confidence {
			byTarget[edge.Target] = edge
		}
	}
	if len(byTarget) == 0 {
		return nil
	}
	out := make([]Edge, 0, len(byTarget))
	for _, edge := range byTarget {
		out = append(out, edge)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Target < out[j].Target })
	return out
}

func sortedUnique(values []int) []int {
	if len(values) == 0 {
		return nil
	}
	set := make(map[int]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return sortedKeys(set)
}

func sortedKeys(set map[int]bool) []int {
	if len(set) == 0 {
		return nil
	}
	out := make([]int, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

func sortedUniqueStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || set[v] {
			continue
		}
		set[v] = true
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

func nilIfEmpty[T any](values []T) []T {
	if len(values) == 0 {
		return nil
	}
	return values
}

// Dir returns the slash directory of a file path, "." for the root.
func Dir(filePath string) string {
	return path.Dir(filePath)
}
