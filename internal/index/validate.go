package index

import (
	"errors"
	"fmt"
	"sort"
)

// Validate checks the invariants of a built or decoded index: every index is
// in range, files and symbols reference each other consistently, caller sets
// are exactly the transpose of resolved calls, and set-valued lists are
// sorted and unique. Failures wrap ErrInconsistent.
func (idx *Index) Validate() error {
	nFiles, nSymbols := len(idx.Files), len(idx.Symbols)

	seenPaths := make(map[string]bool, nFiles)
	owner := make([]int, nSymbols)
	for i := range owner {
		owner[i] = -1
	}
	for fileID, file := range idx.Files {
		if file.Path == "" {
			return inconsistent("file %d has no path", fileID)
		}
		if seenPaths[file.Path] {
			return inconsistent("duplicate file path %s", file.Path)
		}
		seenPaths[file.Path] = true

		for _, symID := range file.Symbols {
			if symID < 0 || symID >= nSymbols {
				return inconsistent("file %s lists symbol %d out of range", file.Path, symID)
			}
			if owner[symID] != -1 {
				return inconsistent("symbol %d listed by two files", symID)
			}
			owner[symID] = fileID
		}
		if err := checkSortedSet(file.Deps, nFiles); err != nil {
			return inconsistent("file %s deps: %v", file.Path, err)
		}
		for _, dep := range file.Deps {
			if dep == fileID {
				return inconsistent("file %s depends on itself", file.Path)
			}
		}
		for _, imp := range file.Imports {
			if err := checkSortedSet(imp.Targets, nFiles); err != nil {
				return inconsistent("file %s import %s: %v", file.Path, imp.Path, err)
			}
		}
	}

	for symID, sym := range idx.Symbols {
		if sym.File < 0 || sym.File >= nFiles {
			return inconsistent("symbol %d has file %d out of range", symID, sym.File)
		}
		if owner[symID] != sym.File {
			return inconsistent("symbol %d (%s) is not listed by its file", symID, sym.Name)
		}
		prev := -1
		for _, call := range sym.Calls {
			if call.Target < 0 || call.Target >= nSymbols {
				return inconsistent("symbol %d (%s) calls dangling index %d", symID, sym.Name, call.Target)
			}
			if call.Target <= prev {
				return inconsistent("symbol %d (%s) calls are not sorted and unique", symID, sym.Name)
			}
			if call.Target == symID {
				return inconsistent("symbol %d (%s) calls itself", symID, sym.Name)
			}
			prev = call.Target
		}
		if err := checkSortedSet(sym.Callers, nSymbols); err != nil {
			return inconsistent("symbol %d (%s) callers: %v", symID, sym.Name, err)
		}
	}

	// Transpose consistency in both directions.
	forward := 0
	for caller, sym := range idx.Symbols {
		for _, call := range sym.Calls {
			if !containsSorted(idx.Symbols[call.Target].Callers, caller) {
				return inconsistent("edge %d->%d missing from caller set", caller, call.Target)
			}
			forward++
		}
	}
	backward := 0
	for callee, sym := range idx.Symbols {
		for _, caller := range sym.Callers {
			if !hasCall(idx.Symbols[caller].Calls, callee) {
				return inconsistent("caller %d of %d has no matching call", caller, callee)
			}
			backward++
		}
	}
	if forward != backward {
		return inconsistent("%d resolved calls but %d caller entries", forward, backward)
	}
	return nil
}

func inconsistent(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInconsistent, fmt.Sprintf(format, args...))
}

func checkSortedSet(values []int, limit int) error {
	prev := -1
	for _, v := range values {
		if v < 0 || v >= limit {
			return fmt.Errorf("index %d out of range", v)
		}
		if v <= prev {
			return errors.New("not sorted and unique")
		}
		prev = v
	}
	return nil
}

func containsSorted(values []int, target int) bool {
	i := sort.SearchInts(values, target)
	return i < len(values) && values[i] == target
}

func hasCall(calls []Edge, target int) bool {
	i := sort.Search(len(calls), func(i int) bool { return calls[i].Target >= target })
	return i < len(calls) && calls[i].Target == target
}
