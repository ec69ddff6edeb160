// Package index holds the code intelligence index: the file table, symbol
// table, call graph, file dependency graph and directory summaries of one
// build. An Index is an immutable snapshot once Build returns it.
package index

import (
	"time"

	"github.com/skelly-dev/atlas/internal/parser"
)

// Unresolved is the Target of a call that did not resolve to a symbol.
const Unresolved = -1

// Confidence records which resolution rule produced a call edge.
type Confidence uint8

const (
	ConfidenceLocal     Confidence = iota + 1 // same file or same container
	ConfidenceImport                          // bound through an import
	ConfidenceGlobal                          // unique name across the index
	ConfidenceAmbiguous                       // several candidates, first in scan order chosen
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceLocal:
		return "local"
	case ConfidenceImport:
		return "import"
	case ConfidenceGlobal:
		return "global"
	case ConfidenceAmbiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// Letter is the one-character wire form of c.
func (c Confidence) Letter() byte {
	switch c {
	case ConfidenceLocal:
		return 'l'
	case ConfidenceImport:
		return 'i'
	case ConfidenceGlobal:
		return 'g'
	case ConfidenceAmbiguous:
		return 'a'
	default:
		return '?'
	}
}

// ConfidenceFromLetter is the inverse of Confidence.Letter.
func ConfidenceFromLetter(b byte) (Confidence, bool) {
	switch b {
	case 'l':
		return ConfidenceLocal, true
	case 'i':
		return ConfidenceImport, true
	case 'g':
		return ConfidenceGlobal, true
	case 'a':
		return ConfidenceAmbiguous, true
	}
	return 0, false
}

// Edge is a resolved call from a symbol to Target.
type Edge struct {
	Target     int
	Confidence Confidence
	Candidates int // symbols sharing the callee name when ambiguous, otherwise 1
}

// CallEdge is a caller/callee pair. Callee is Unresolved when Name carries the
// raw call token instead.
type CallEdge struct {
	Caller int
	Callee int
	Name   string
}

// Symbol is one function or method definition.
type Symbol struct {
	Name       string
	Container  string
	Kind       parser.SymbolKind
	File       int
	Line       int
	Signature  string
	Params     []parser.Param
	Returns    string
	Doc        string
	Calls      []Edge   // sorted by Target, unique
	Unresolved []string // raw call tokens, sorted, unique
	Callers    []int    // derived from Calls, sorted, unique
}

// QualifiedName returns Container.Name for methods and Name otherwise.
func (s Symbol) QualifiedName() string {
	if s.Container == "" {
		return s.Name
	}
	return s.Container + "." + s.Name
}

// ImportEdge is one import statement of a file. Targets are the indexed files
// it resolved to; an import with no targets is external.
type ImportEdge struct {
	Path    string
	Alias   string
	Names   []parser.ImportedName
	Line    int
	Targets []int
}

// External reports whether the import did not resolve to any indexed file.
func (e ImportEdge) External() bool {
	return len(e.Targets) == 0
}

// File is one indexed source file.
type File struct {
	Path     string
	Language string
	Hash     string
	Purpose  string
	Symbols  []int // symbols defined here, in extraction order
	Imports  []ImportEdge
	Deps     []int // files this one imports, sorted, unique, never itself
	Sections []string
}

// TreeEntry is one directory of the orientation listing.
type TreeEntry struct {
	Path  string // "." for the root
	Files int    // indexed files directly inside
}

// Meta describes the build that produced an index.
type Meta struct {
	Root        string
	BuiltAt     time.Time
	BuildID     string
	Fingerprint string
	Revision    string
}

// Index is the immutable result of one build.
type Index struct {
	Meta     Meta
	Files    []File
	Symbols  []Symbol
	Purposes map[string]string // directory -> short description
	Tree     []TreeEntry       // sorted by Path
	Warnings []parser.ParseIssue
}

// CallEdges lists every call edge, resolved edges first per caller.
func (idx *Index) CallEdges() []CallEdge {
	var edges []CallEdge
	for caller, sym := range idx.Symbols {
		for _, call := range sym.Calls {
			edges = append(edges, CallEdge{Caller: caller, Callee: call.Target})
		}
		for _, name := range sym.Unresolved {
			edges = append(edges, CallEdge{Caller: caller, Callee: Unresolved, Name: name})
		}
	}
	return edges
}

// Stats summarizes the size of an index.
type Stats struct {
	Files       int            `json:"files"`
	Symbols     int            `json:"symbols"`
	Resolved    map[string]int `json:"resolved"`
	Unresolved  int            `json:"unresolved"`
	ImportEdges int            `json:"import_edges"`
	External    int            `json:"external_imports"`
	Languages   map[string]int `json:"languages"`
	Warnings    int            `json:"warnings"`
}

// Stats counts files, symbols and edges by kind.
func (idx *Index) Stats() Stats {
	st := Stats{
		Files:     len(idx.Files),
		Symbols:   len(idx.Symbols),
		Resolved:  make(map[string]int),
		Languages: make(map[string]int),
		Warnings:  len(idx.Warnings),
	}
	for _, sym := range idx.Symbols {
		for _, call := range sym.Calls {
			st.Resolved[call.Confidence.String()]++
		}
		st.Unresolved += len(sym.Unresolved)
	}
	for _, file := range idx.Files {
		if file.Language != "" {
			st.Languages[file.Language]++
		}
		for _, imp := range file.Imports {
			st.ImportEdges++
			if imp.External() {
				st.External++
			}
		}
	}
	return st
}
