package resolve

import (
	"path"
	"strings"

	"github.com/skelly-dev/atlas/internal/parser"
)

// importTable maps import paths to indexed files. Lookups only return files
// of the importing file's language family.
type importTable struct {
	paths       []string
	family      []string
	byPath      map[string][]int
	byNoExt     map[string][]int
	byDir       map[string][]int
	suffixNoExt map[string][]int // every trailing segment run of a path without extension
	suffixDir   map[string][]int
}

func newImportTable(files []parser.FileSymbols) *importTable {
	t := &importTable{
		paths:       make([]string, len(files)),
		family:      make([]string, len(files)),
		byPath:      make(map[string][]int, len(files)),
		byNoExt:     make(map[string][]int, len(files)),
		byDir:       make(map[string][]int),
		suffixNoExt: make(map[string][]int),
		suffixDir:   make(map[string][]int),
	}
	for i, file := range files {
		p := file.Path
		noExt := strings.TrimSuffix(p, path.Ext(p))
		dir := path.Dir(p)

		t.paths[i] = p
		t.family[i] = languageFamily(file.Language)
		t.byPath[p] = append(t.byPath[p], i)
		t.byNoExt[noExt] = append(t.byNoExt[noExt], i)
		t.byDir[dir] = append(t.byDir[dir], i)

		addSuffixes(t.suffixNoExt, noExt, i)
		if dir != "." {
			addSuffixes(t.suffixDir, dir, i)
		}
	}
	return t
}

func addSuffixes(m map[string][]int, p string, id int) {
	segments := strings.Split(p, "/")
	for k := range segments {
		key := strings.Join(segments[k:], "/")
		m[key] = append(m[key], id)
	}
}

// languageFamily groups languages that import each other's files.
func languageFamily(language string) string {
	switch language {
	case "typescript", "javascript":
		return "js"
	}
	return language
}

// resolve returns the files an import of file from points at, or nil for an
// external import.
func (t *importTable) resolve(from int, imp parser.Import) []int {
	if strings.TrimSpace(imp.Path) == "" {
		return nil
	}
	if imp.IsRelative() {
		return t.resolveRelative(from, imp)
	}
	return t.resolveAbsolute(from, imp)
}

func (t *importTable) resolveRelative(from int, imp parser.Import) []int {
	family := t.family[from]
	base := path.Dir(t.paths[from])

	if family != "python" {
		return t.probe(t.byNoExtExact, path.Join(base, imp.Path), family, true)
	}

	// n leading dots climb n-1 directories
	rest := strings.TrimLeft(imp.Path, ".")
	for dots := len(imp.Path) - len(rest); dots > 1; dots-- {
		base = path.Dir(base)
	}
	target := base
	if rest != "" {
		target = path.Join(base, strings.ReplaceAll(rest, ".", "/"))
	}
	found := t.probe(t.byNoExtExact, target, family, false)
	return t.withSubmodules(found, target, imp, family, t.byNoExtExact)
}

func (t *importTable) resolveAbsolute(from int, imp parser.Import) []int {
	family := t.family[from]
	norm := strings.Trim(imp.Path, "/")
	if family == "python" {
		norm = strings.ReplaceAll(norm, ".", "/")
	}
	if norm == "" {
		return nil
	}

	if !strings.Contains(norm, "/") {
		// Bare names only match a top-level file or directory so that
		// standard library names do not bind to nested project files.
		found := t.probe(t.byNoExtExact, norm, family, false)
		if len(found) == 0 && family == "ruby" {
			found = t.probe(t.byNoExtExact, "lib/"+norm, family, false)
		}
		return t.withSubmodules(found, norm, imp, family, t.byNoExtExact)
	}

	// Longest suffix first. The final segment alone must name a top-level
	// path, as for bare imports.
	segments := strings.Split(norm, "/")
	for k := range segments {
		lookup := t.bySuffix
		if k == len(segments)-1 {
			lookup = t.byNoExtExact
		}
		candidate := strings.Join(segments[k:], "/")
		if found := t.probe(lookup, candidate, family, false); len(found) > 0 {
			return t.withSubmodules(found, candidate, imp, family, lookup)
		}
	}
	if family == "python" {
		return t.withSubmodules(nil, norm, imp, family, t.bySuffix)
	}
	return nil
}

// withSubmodules adds modules bound by Python's `from pkg import mod`.
func (t *importTable) withSubmodules(found []int, target string, imp parser.Import, family string, lookup lookupFunc) []int {
	if family != "python" {
		return found
	}
	for _, name := range imp.Names {
		if name.Name == "*" {
			continue
		}
		sub := path.Join(target, name.Name)
		if ids := filterFamily(lookup(sub, false), t.family, family); len(ids) > 0 {
			found = append(found, ids...)
		} else if ids := filterFamily(lookup(sub+"/__init__", false), t.family, family); len(ids) > 0 {
			found = append(found, ids...)
		}
	}
	return found
}

type lookupFunc func(key string, dir bool) []int

func (t *importTable) byNoExtExact(key string, dir bool) []int {
	if dir {
		return t.byDir[key]
	}
	return t.byNoExt[key]
}

func (t *importTable) bySuffix(key string, dir bool) []int {
	if dir {
		return t.suffixDir[key]
	}
	return t.suffixNoExt[key]
}

// probe tries the module file, its package index file and finally the whole
// directory. Go imports name directories only.
func (t *importTable) probe(lookup lookupFunc, target, family string, exactPath bool) []int {
	target = path.Clean(target)
	if family != "go" {
		if exactPath {
			if ids := filterFamily(t.byPath[target], t.family, family); len(ids) > 0 {
				return ids
			}
			// "./util.js" may name util.ts
			if ext := path.Ext(target); ext != "" {
				if ids := filterFamily(lookup(strings.TrimSuffix(target, ext), false), t.family, family); len(ids) > 0 {
					return ids
				}
			}
		}
		for _, key := range []string{target, target + "/__init__", target + "/index"} {
			if ids := filterFamily(lookup(key, false), t.family, family); len(ids) > 0 {
				return ids
			}
		}
	}
	return filterFamily(lookup(target, true), t.family, family)
}

func filterFamily(ids []int, families []string, family string) []int {
	var out []int
	for _, id := range ids {
		if families[id] == family {
			out = append(out, id)
		}
	}
	return out
}
