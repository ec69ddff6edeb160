// Package resolve maps the raw call sites and import statements of extracted
// files to symbol and file numbers. Resolution is best effort and never
// fails: a call that matches nothing is kept as an unresolved name.
package resolve

import (
	"path"
	"strings"

	"github.com/skelly-dev/atlas/internal/index"
	"github.com/skelly-dev/atlas/internal/parser"
)

// constructorNames are the method names a bare class-name call runs.
var constructorNames = []string{"__init__", "constructor", "initialize"}

type symbolInfo struct {
	file      int
	name      string
	container string
	method    bool
}

// binding is one local name introduced by an import. A binding with no
// targets comes from an external module.
type binding struct {
	name    string // name in the imported module; empty for module aliases
	targets []int
}

type fileScope struct {
	names     map[string]binding // local name -> imported symbol
	aliases   map[string]binding // local name -> imported module
	wildcards [][]int
	peers     []int // files sharing a namespace with this one, itself first
}

// Resolver holds the lookup tables of one build.
type Resolver struct {
	files   []parser.FileSymbols
	imports *importTable
	symbols []symbolInfo
	first   []int            // id of each file's first symbol
	byName  map[string][]int // scan order
	scopes  []fileScope

	importTargets [][][]int
}

// New indexes files, numbered in the given order, and resolves their imports.
func New(files []parser.FileSymbols) *Resolver {
	r := &Resolver{
		files:         files,
		imports:       newImportTable(files),
		first:         make([]int, len(files)),
		byName:        make(map[string][]int),
		scopes:        make([]fileScope, len(files)),
		importTargets: make([][][]int, len(files)),
	}

	for fileID, file := range files {
		r.first[fileID] = len(r.symbols)
		for _, sym := range file.Symbols {
			id := len(r.symbols)
			r.symbols = append(r.symbols, symbolInfo{
				file:      fileID,
				name:      sym.Name,
				container: sym.Container,
				method:    sym.Kind == parser.SymbolMethod,
			})
			r.byName[sym.Name] = append(r.byName[sym.Name], id)
		}
	}

	for fileID, file := range files {
		r.importTargets[fileID] = make([][]int, len(file.Imports))
		scope := fileScope{
			names:   make(map[string]binding),
			aliases: make(map[string]binding),
			peers:   r.peers(fileID),
		}
		for i, imp := range file.Imports {
			targets := r.imports.resolve(fileID, imp)
			r.importTargets[fileID][i] = targets
			if imp.Alias != "" {
				scope.aliases[imp.Alias] = binding{targets: targets}
			}
			for _, name := range imp.Names {
				if name.Name == "*" {
					if len(targets) > 0 {
						scope.wildcards = append(scope.wildcards, targets)
					}
					continue
				}
				local := name.Local
				if local == "" {
					local = name.Name
				}
				scope.names[local] = binding{name: name.Name, targets: targets}
			}
		}
		r.scopes[fileID] = scope
	}
	return r
}

// Resolve resolves files and returns the per-symbol edges and per-import
// targets the index builder expects.
func Resolve(files []parser.FileSymbols) index.Resolution {
	return New(files).Resolve()
}

// Resolve resolves every call site of every symbol.
func (r *Resolver) Resolve() index.Resolution {
	res := index.Resolution{
		Calls:         make([][]index.Edge, len(r.symbols)),
		Unresolved:    make([][]string, len(r.symbols)),
		ImportTargets: r.importTargets,
	}
	for fileID, file := range r.files {
		for i, sym := range file.Symbols {
			id := r.first[fileID] + i
			for _, call := range sym.Calls {
				edge, ok := r.ResolveCall(id, call)
				switch {
				case !ok:
					res.Unresolved[id] = append(res.Unresolved[id], call.QualifiedName())
				case edge.Target != id:
					res.Calls[id] = append(res.Calls[id], edge)
				}
			}
		}
	}
	return res
}

// ResolveCall resolves one call site of symbol caller. A recursive call
// resolves to the caller itself.
func (r *Resolver) ResolveCall(caller int, call parser.CallSite) (index.Edge, bool) {
	name := strings.TrimSpace(call.Name)
	if name == "" {
		return index.Edge{}, false
	}
	self := r.symbols[caller]
	scope := r.scopes[self.file]

	if call.Receiver != "" {
		ids := r.methods(scope.peers, name, func(c string) bool { return c == call.Receiver })
		if len(ids) > 0 {
			return local(ids), true
		}
		return r.global(caller, name, call.Receiver, true)
	}

	if call.Qualifier == "" {
		if ids := r.functions(scope.peers, name); len(ids) > 0 {
			return local(ids), true
		}
		if self.container != "" {
			ids := r.methods(scope.peers, name, func(c string) bool { return c == self.container })
			if len(ids) > 0 {
				return local(ids), true
			}
		}
		if b, ok := scope.names[name]; ok {
			if len(b.targets) == 0 {
				return index.Edge{}, false
			}
			if ids := r.definitions(b.targets, b.name); len(ids) > 0 {
				return imported(ids), true
			}
			// re-exported through a package file
			return r.global(caller, b.name, "", false)
		}
		for _, targets := range scope.wildcards {
			if ids := r.definitions(targets, name); len(ids) > 0 {
				return imported(ids), true
			}
		}
		return r.global(caller, name, "", false)
	}

	qualifier := strings.TrimSpace(call.Qualifier)
	primary := qualifier
	if i := strings.Index(primary, "."); i > 0 {
		primary = primary[:i]
	}

	for _, alias := range []string{qualifier, primary} {
		b, ok := scope.aliases[alias]
		if !ok {
			continue
		}
		if len(b.targets) == 0 {
			return index.Edge{}, false
		}
		if ids := r.definitions(b.targets, name); len(ids) > 0 {
			return imported(ids), true
		}
		if alias != qualifier {
			// pkg.sub.fn() through `import pkg`
			file := r.files[self.file]
			subPath := moduleJoin(file.Language, file.Imports, alias, qualifier[len(alias)+1:])
			sub := r.imports.resolve(self.file, parser.Import{Path: subPath})
			if ids := r.definitions(sub, name); len(ids) > 0 {
				return imported(ids), true
			}
		}
		// re-exported through the module
		return r.global(caller, name, "", false)
	}

	if b, ok := scope.names[primary]; ok {
		if len(b.targets) == 0 {
			return index.Edge{}, false
		}
		ids := r.methods(b.targets, name, func(c string) bool { return containerMatches(c, b.name) })
		if len(ids) > 0 {
			return imported(ids), true
		}
		// `from pkg import mod; mod.fn()`
		if ids := r.functions(submoduleFiles(b.targets, r.imports.paths, b.name), name); len(ids) > 0 {
			return imported(ids), true
		}
		return r.global(caller, name, b.name, true)
	}

	return r.global(caller, name, qualifier, true)
}

// global is the whole-table fallback. Candidates are tried in tiers: a
// container matching the qualifier, then the caller's language family with
// the matching kind (methods for qualified calls, functions otherwise), then
// constructors. When every tier is empty any symbol of the same name is
// taken, tagged ambiguous however many there are.
func (r *Resolver) global(caller int, name, qualifier string, qualified bool) (index.Edge, bool) {
	family := r.imports.family[r.symbols[caller].file]
	var preferred, others, rest []int
	for _, id := range r.byName[name] {
		if id == caller {
			continue
		}
		sym := r.symbols[id]
		if r.imports.family[sym.file] != family || qualified != sym.method {
			rest = append(rest, id)
			continue
		}
		if qualified && qualifier != "" && containerMatches(sym.container, qualifier) {
			preferred = append(preferred, id)
			continue
		}
		others = append(others, id)
	}
	if len(preferred) > 0 {
		return ranked(preferred), true
	}
	if len(others) > 0 {
		return ranked(others), true
	}
	if !qualified {
		if ids := r.constructors(nil, name, caller, family); len(ids) > 0 {
			return ranked(ids), true
		}
	}
	if len(rest) > 0 {
		return loose(rest), true
	}
	return index.Edge{}, false
}

// definitions finds name among the symbols of files: free functions first,
// then constructors of a class called name.
func (r *Resolver) definitions(files []int, name string) []int {
	if ids := r.functions(files, name); len(ids) > 0 {
		return ids
	}
	if ids := r.constructors(files, name, -1, ""); len(ids) > 0 {
		return ids
	}
	return r.methods(files, name, func(string) bool { return true })
}

func (r *Resolver) functions(files []int, name string) []int {
	return r.inFiles(files, name, func(sym symbolInfo) bool { return !sym.method })
}

func (r *Resolver) methods(files []int, name string, container func(string) bool) []int {
	return r.inFiles(files, name, func(sym symbolInfo) bool { return sym.method && container(sym.container) })
}

// constructors returns the constructor methods of class name, restricted to
// files when files is non-nil.
func (r *Resolver) constructors(files []int, name string, exclude int, family string) []int {
	var out []int
	for _, ctor := range constructorNames {
		match := func(sym symbolInfo) bool { return sym.method && containerMatches(sym.container, name) }
		if files != nil {
			out = append(out, r.inFiles(files, ctor, match)...)
			continue
		}
		for _, id := range r.byName[ctor] {
			sym := r.symbols[id]
			if id != exclude && r.imports.family[sym.file] == family && match(sym) {
				out = append(out, id)
			}
		}
	}
	return out
}

func (r *Resolver) inFiles(files []int, name string, keep func(symbolInfo) bool) []int {
	var out []int
	for _, fileID := range files {
		start := r.first[fileID]
		for i := range r.files[fileID].Symbols {
			id := start + i
			if sym := r.symbols[id]; sym.name == name && keep(sym) {
				out = append(out, id)
			}
		}
	}
	return out
}

// peers returns the files whose top-level names a file sees unqualified:
// itself, plus for Go every Go file of the same directory.
func (r *Resolver) peers(fileID int) []int {
	peers := []int{fileID}
	if r.files[fileID].Language != "go" {
		return peers
	}
	dir := path.Dir(r.files[fileID].Path)
	for id, file := range r.files {
		if id != fileID && file.Language == "go" && path.Dir(file.Path) == dir {
			peers = append(peers, id)
		}
	}
	return peers
}

func local(ids []int) index.Edge {
	return index.Edge{Target: ids[0], Confidence: index.ConfidenceLocal, Candidates: 1}
}

func imported(ids []int) index.Edge {
	return index.Edge{Target: ids[0], Confidence: index.ConfidenceImport, Candidates: len(ids)}
}

// ranked applies the scan-order tie-break: the first candidate wins and the
// edge keeps the candidate count.
func ranked(ids []int) index.Edge {
	if len(ids) == 1 {
		return index.Edge{Target: ids[0], Confidence: index.ConfidenceGlobal, Candidates: 1}
	}
	return index.Edge{Target: ids[0], Confidence: index.ConfidenceAmbiguous, Candidates: len(ids)}
}

// loose binds a name match that ignored kind or language family.
func loose(ids []int) index.Edge {
	return index.Edge{Target: ids[0], Confidence: index.ConfidenceAmbiguous, Candidates: len(ids)}
}

// containerMatches reports whether container is qualifier or ends with it as
// a namespace segment ("Admin::User" matches "User").
func containerMatches(container, qualifier string) bool {
	if container == "" || qualifier == "" {
		return false
	}
	return container == qualifier ||
		strings.HasSuffix(container, "::"+qualifier) ||
		strings.HasSuffix(container, "."+qualifier)
}

// submoduleFiles keeps the files whose base name is module.
func submoduleFiles(files []int, paths []string, module string) []int {
	var out []int
	for _, id := range files {
		base := path.Base(paths[id])
		if strings.TrimSuffix(base, path.Ext(base)) == module {
			out = append(out, id)
		}
	}
	return out
}

// moduleJoin builds the import path of a submodule reached through alias.
func moduleJoin(language string, imports []parser.Import, alias, rest string) string {
	for _, imp := range imports {
		if imp.Alias != alias {
			continue
		}
		if language == "python" {
			return imp.Path + "." + rest
		}
		return imp.Path + "/" + strings.ReplaceAll(rest, ".", "/")
	}
	return ""
}
