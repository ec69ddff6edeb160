// Package query answers read-only questions about a built index: pattern
// search, call neighbors, transitive impact and trace, shortest call paths,
// dead code and import cycles. An Engine never mutates its index and is safe
// for concurrent use.
package query

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hbollon/go-edlib"

	"github.com/skelly-dev/atlas/internal/index"
	"github.com/skelly-dev/atlas/internal/parser"
)

// DefaultBudget caps the nodes a traversal visits when neither the request
// nor the options set a budget.
const DefaultBudget = 50000

const (
	regexCacheSize          = 128
	maxSuggestions          = 3
	minSuggestionSimilarity = 0.5
)

var (
	ErrSymbolNotFound  = errors.New("symbol not found")
	ErrAmbiguousSymbol = errors.New("symbol reference is ambiguous")
	ErrInvalidPattern  = errors.New("invalid pattern")
	ErrUnknownFile     = errors.New("file not in index")
)

// NotFoundError reports a symbol reference that matched nothing, with the
// closest known names.
type NotFoundError struct {
	Ref         string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("symbol %q not found", e.Ref)
	}
	return fmt.Sprintf("symbol %q not found; did you mean %s?", e.Ref, strings.Join(e.Suggestions, ", "))
}

func (e *NotFoundError) Unwrap() error { return ErrSymbolNotFound }

// AmbiguousError reports a reference that matched several symbols.
type AmbiguousError struct {
	Ref        string
	Candidates []SymbolRecord
}

func (e *AmbiguousError) Error() string {
	options := make([]string, 0, len(e.Candidates))
	for _, c := range e.Candidates {
		options = append(options, fmt.Sprintf("#%d %s (%s:%d)", c.ID, c.Qualified, c.File, c.Line))
	}
	return fmt.Sprintf("symbol %q is ambiguous; use one of: %s", e.Ref, strings.Join(options, ", "))
}

func (e *AmbiguousError) Unwrap() error { return ErrAmbiguousSymbol }

// Options tune dead-code detection and traversal defaults.
type Options struct {
	EntryPoints         []string // name globs never reported as dead
	ExportedEntryPoints bool     // treat exported Go names as entry points
	ExcludeFiles        []string // doublestar globs over file paths skipped by dead-code detection
	DefaultBudget       int
	DefaultDepth        int // 0 means until closure
}

// Engine answers queries over one index.
type Engine struct {
	idx  *index.Index
	opts Options

	byName      map[string][]int
	byQualified map[string][]int
	byPath      map[string]int
	dependents  [][]int
	names       []string // distinct names and qualified names, for suggestions

	entryGlobs   []glob.Glob
	unresolvedBy map[string]bool // bare names of unresolved calls
	regexCache   *lru.Cache[string, *regexpEntry]
}

// New prepares lookup tables for idx.
func New(idx *index.Index, opts Options) (*Engine, error) {
	if idx == nil {
		return nil, errors.New("query: nil index")
	}
	if opts.DefaultBudget <= 0 {
		opts.DefaultBudget = DefaultBudget
	}

	e := &Engine{
		idx:          idx,
		opts:         opts,
		byName:       make(map[string][]int),
		byQualified:  make(map[string][]int),
		byPath:       make(map[string]int, len(idx.Files)),
		dependents:   make([][]int, len(idx.Files)),
		unresolvedBy: make(map[string]bool),
	}

	patterns := append(append([]string(nil), defaultEntryPoints...), opts.EntryPoints...)
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, invalidPattern(pattern, err)
		}
		e.entryGlobs = append(e.entryGlobs, g)
	}
	for _, pattern := range opts.ExcludeFiles {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: exclude pattern %q", ErrInvalidPattern, pattern)
		}
	}

	cache, err := lru.New[string, *regexpEntry](regexCacheSize)
	if err != nil {
		return nil, err
	}
	e.regexCache = cache

	for id, file := range idx.Files {
		e.byPath[file.Path] = id
		for _, dep := range file.Deps {
			e.dependents[dep] = append(e.dependents[dep], id)
		}
	}

	seen := make(map[string]bool)
	for id, sym := range idx.Symbols {
		e.byName[sym.Name] = append(e.byName[sym.Name], id)
		if sym.Container != "" {
			qualified := sym.QualifiedName()
			e.byQualified[qualified] = append(e.byQualified[qualified], id)
		}
		for _, name := range []string{sym.Name, sym.QualifiedName()} {
			if !seen[name] {
				seen[name] = true
				e.names = append(e.names, name)
			}
		}
		for _, raw := range sym.Unresolved {
			e.unresolvedBy[bareName(raw)] = true
		}
	}
	sort.Strings(e.names)
	return e, nil
}

// Index returns the snapshot the engine reads.
func (e *Engine) Index() *index.Index {
	return e.idx
}

// SymbolRecord is the stable, printable view of a symbol.
type SymbolRecord struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Qualified string `json:"qualified"`
	Kind      string `json:"kind"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	Signature string `json:"signature,omitempty"`
	Doc       string `json:"doc,omitempty"`
	Key       string `json:"key"` // stable across builds, unlike ID
}

// Record describes symbol id. An id outside the index, for example one kept
// from an earlier build, yields a *NotFoundError.
func (e *Engine) Record(id int) (SymbolRecord, error) {
	if err := e.checkID(id); err != nil {
		return SymbolRecord{}, err
	}
	return e.record(id), nil
}

func (e *Engine) checkID(id int) error {
	if id < 0 || id >= len(e.idx.Symbols) {
		return &NotFoundError{Ref: "#" + strconv.Itoa(id)}
	}
	return nil
}

func (e *Engine) record(id int) SymbolRecord {
	sym := e.idx.Symbols[id]
	file := e.idx.Files[sym.File].Path
	key := parser.StableSymbolKey(file, parser.Symbol{
		Name:      sym.Name,
		Container: sym.Container,
		Line:      sym.Line,
		Signature: sym.Signature,
	})
	return SymbolRecord{
		ID:        id,
		Name:      sym.Name,
		Qualified: sym.QualifiedName(),
		Kind:      sym.Kind.String(),
		File:      file,
		Line:      sym.Line,
		Signature: sym.Signature,
		Doc:       sym.Doc,
		Key:       key,
	}
}

func (e *Engine) records(ids []int) []SymbolRecord {
	if len(ids) == 0 {
		return nil
	}
	out := make([]SymbolRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.record(id))
	}
	return out
}

// Lookup returns every symbol a reference names. Accepted forms are "#12"
// (symbol number), "name", "Container.name", "path:name" and "path:line".
// For path:line the symbol starting on that line wins, else the nearest one
// starting above it.
func (e *Engine) Lookup(ref string) ([]int, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, &NotFoundError{Ref: ref}
	}

	if strings.HasPrefix(ref, "#") {
		id, err := strconv.Atoi(ref[1:])
		if err != nil || id < 0 || id >= len(e.idx.Symbols) {
			return nil, &NotFoundError{Ref: ref}
		}
		return []int{id}, nil
	}

	if ids := e.byQualified[ref]; len(ids) > 0 {
		return append([]int(nil), ids...), nil
	}
	if ids := e.byName[ref]; len(ids) > 0 {
		return append([]int(nil), ids...), nil
	}

	// path:name or path:line; containers may themselves contain "::"
	for i := strings.IndexByte(ref, ':'); i > 0; {
		if fileID, ok := e.byPath[ref[:i]]; ok {
			return e.lookupInFile(ref, fileID, ref[i+1:])
		}
		next := strings.IndexByte(ref[i+1:], ':')
		if next < 0 {
			break
		}
		i += next + 1
	}
	if i := strings.LastIndexByte(ref, ':'); i > 0 && looksLikePath(ref[:i]) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFile, ref[:i])
	}

	return nil, &NotFoundError{Ref: ref, Suggestions: e.suggest(ref)}
}

func (e *Engine) lookupInFile(ref string, fileID int, target string) ([]int, error) {
	file := e.idx.Files[fileID]
	if line, err := strconv.Atoi(target); err == nil {
		best, bestLine := -1, -1
		for _, id := range file.Symbols {
			symLine := e.idx.Symbols[id].Line
			if symLine == line {
				return []int{id}, nil
			}
			if symLine < line && symLine > bestLine {
				best, bestLine = id, symLine
			}
		}
		if best < 0 {
			return nil, &NotFoundError{Ref: ref}
		}
		return []int{best}, nil
	}

	var out []int
	for _, id := range file.Symbols {
		sym := e.idx.Symbols[id]
		if sym.Name == target || sym.QualifiedName() == target {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil, &NotFoundError{Ref: ref, Suggestions: e.suggest(target)}
	}
	return out, nil
}

// Resolve is Lookup narrowed to exactly one symbol.
func (e *Engine) Resolve(ref string) (int, error) {
	ids, err := e.Lookup(ref)
	if err != nil {
		return -1, err
	}
	if len(ids) > 1 {
		return -1, &AmbiguousError{Ref: ref, Candidates: e.records(ids)}
	}
	return ids[0], nil
}

// suggest ranks known names by Levenshtein similarity to ref.
func (e *Engine) suggest(ref string) []string {
	type scored struct {
		name  string
		score float32
	}
	lowered := strings.ToLower(ref)
	var best []scored
	for _, name := range e.names {
		score, err := edlib.StringsSimilarity(lowered, strings.ToLower(name), edlib.Levenshtein)
		if err != nil || score < minSuggestionSimilarity {
			continue
		}
		best = append(best, scored{name: name, score: score})
	}
	sort.SliceStable(best, func(i, j int) bool { return best[i].score > best[j].score })
	if len(best) > maxSuggestions {
		best = best[:maxSuggestions]
	}
	out := make([]string, 0, len(best))
	for _, s := range best {
		out = append(out, s.name)
	}
	return out
}

func looksLikePath(s string) bool {
	return strings.Contains(s, "/") || strings.Contains(s, ".")
}

func invalidPattern(pattern string, err error) error {
	return fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err)
}

// bareName strips any qualifier from a raw call token.
func bareName(raw string) string {
	if i := strings.LastIndexAny(raw, ".:"); i >= 0 {
		return raw[i+1:]
	}
	return raw
}
