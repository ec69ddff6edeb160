package query

import (
	"fmt"
	"sort"
	"time"

	"github.com/skelly-dev/atlas/internal/index"
)

// ImportRecord is one import statement with the files it resolved to.
type ImportRecord struct {
	Path     string   `json:"path"`
	Alias    string   `json:"alias,omitempty"`
	Line     int      `json:"line"`
	External bool     `json:"external,omitempty"`
	Targets  []string `json:"targets,omitempty"`
}

// FileDeps is the dependency view of one file.
type FileDeps struct {
	Path         string         `json:"path"`
	Language     string         `json:"language"`
	Purpose      string         `json:"purpose,omitempty"`
	Symbols      []SymbolRecord `json:"symbols,omitempty"`
	Imports      []ImportRecord `json:"imports,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty"`
	Dependents   []string       `json:"dependents,omitempty"`
}

// FileDeps returns the imports, dependencies and dependents of one file.
func (e *Engine) FileDeps(filePath string) (*FileDeps, error) {
	id, ok := e.byPath[filePath]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFile, filePath)
	}
	file := e.idx.Files[id]
	out := &FileDeps{
		Path:         file.Path,
		Language:     file.Language,
		Purpose:      file.Purpose,
		Symbols:      e.records(file.Symbols),
		Dependencies: e.paths(file.Deps),
		Dependents:   e.paths(e.dependents[id]),
	}
	for _, imp := range file.Imports {
		out.Imports = append(out.Imports, ImportRecord{
			Path:     imp.Path,
			Alias:    imp.Alias,
			Line:     imp.Line,
			External: imp.External(),
			Targets:  e.paths(imp.Targets),
		})
	}
	return out, nil
}

func (e *Engine) paths(ids []int) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.idx.Files[id].Path)
	}
	sort.Strings(out)
	return out
}

// AffectedFiles expands changed paths with every file that transitively
// imports one of them. Paths unknown to the index are kept as given.
func (e *Engine) AffectedFiles(changed []string) []string {
	seen := make(map[string]bool, len(changed))
	var queue []int
	for _, p := range changed {
		if seen[p] {
			continue
		}
		seen[p] = true
		if id, ok := e.byPath[p]; ok {
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, dependent := range e.dependents[current] {
			p := e.idx.Files[dependent].Path
			if seen[p] {
				continue
			}
			seen[p] = true
			queue = append(queue, dependent)
		}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Directory is one entry of the orientation listing.
type Directory struct {
	Path    string `json:"path"`
	Files   int    `json:"files"`
	Purpose string `json:"purpose,omitempty"`
}

// Directories lists indexed directories with their inferred purpose.
func (e *Engine) Directories() []Directory {
	out := make([]Directory, 0, len(e.idx.Tree))
	for _, entry := range e.idx.Tree {
		out = append(out, Directory{
			Path:    entry.Path,
			Files:   entry.Files,
			Purpose: e.idx.Purposes[entry.Path],
		})
	}
	return out
}

// Summary describes the index as a whole.
type Summary struct {
	Root        string      `json:"root"`
	BuiltAt     string      `json:"built_at"`
	BuildID     string      `json:"build_id,omitempty"`
	Revision    string      `json:"revision,omitempty"`
	Fingerprint string      `json:"fingerprint,omitempty"`
	Stats       index.Stats `json:"stats"`
}

// Stats counts files, symbols and edges by confidence.
func (e *Engine) Stats() index.Stats {
	return e.idx.Stats()
}

// Summary returns build metadata and counts.
func (e *Engine) Summary() Summary {
	meta := e.idx.Meta
	s := Summary{
		Root:        meta.Root,
		BuildID:     meta.BuildID,
		Revision:    meta.Revision,
		Fingerprint: meta.Fingerprint,
		Stats:       e.Stats(),
	}
	if !meta.BuiltAt.IsZero() {
		s.BuiltAt = meta.BuiltAt.Format(time.RFC3339)
	}
	return s
}
