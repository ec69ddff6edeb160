package index

import (
	"path"
	"sort"
	"strings"
	"unicode"

	"github.com/surgebase/porter2"
)

var directoryPurposes = map[string]string{
	"auth":        "Authentication and authorization logic",
	"models":      "Data models and database schemas",
	"views":       "UI views and templates",
	"controllers": "Request handlers and business logic",
	"services":    "Business logic and external service integrations",
	"utils":       "Shared utility functions and helpers",
	"helpers":     "Helper functions and utilities",
	"tests":       "Test files and test utilities",
	"test":        "Test files and test utilities",
	"spec":        "Test specifications",
	"docs":        "Project documentation",
	"api":         "API endpoints and route handlers",
	"components":  "Reusable UI components",
	"lib":         "Library code and shared modules",
	"src":         "Source code root directory",
	"static":      "Static assets (images, CSS, etc.)",
	"public":      "Publicly accessible files",
	"config":      "Configuration files and settings",
	"scripts":     "Build and utility scripts",
	"middleware":  "Middleware functions and handlers",
	"migrations":  "Database migration files",
	"fixtures":    "Test fixtures and sample data",
	"cmd":         "Command entry points",
	"internal":    "Private application packages",
	"pkg":         "Public library packages",
}

// substring matches are tried in this order so results are stable
var purposeKeys = func() []string {
	keys := make([]string, 0, len(directoryPurposes))
	for k := range directoryPurposes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

var tokenStopwords = map[string]bool{
	"index": true, "main": true, "init": true, "mod": true, "the": true,
	"and": true, "test": true, "tests": true, "spec": true,
}

// InferFilePurpose guesses a file's role from its name.
func InferFilePurpose(filePath string) string {
	base := path.Base(filePath)
	name := strings.ToLower(strings.TrimSuffix(base, path.Ext(base)))

	switch {
	case name == "index" || name == "main" || name == "app":
		return "Application entry point"
	case strings.Contains(name, "test") || strings.Contains(name, "spec"):
		return "Test file"
	case strings.Contains(name, "config") || strings.Contains(name, "settings"):
		return "Configuration"
	case strings.Contains(name, "route"):
		return "Route definitions"
	case strings.Contains(name, "model"):
		return "Data model"
	case strings.Contains(name, "util") || strings.Contains(name, "helper"):
		return "Utility functions"
	case strings.Contains(name, "middleware"):
		return "Middleware"
	}
	return ""
}

// InferDirectoryPurpose describes a directory from its name, then from the
// names of the files inside it. It returns "" when nothing fits.
func InferDirectoryPurpose(dir string, files []string) string {
	name := strings.ToLower(path.Base(dir))
	if dir != "." {
		if purpose, ok := directoryPurposes[name]; ok {
			return purpose
		}
		for _, key := range purposeKeys {
			if strings.Contains(name, key) {
				return directoryPurposes[key]
			}
		}
	}

	if len(files) == 0 {
		return ""
	}
	lowered := make([]string, 0, len(files))
	for _, f := range files {
		lowered = append(lowered, strings.ToLower(path.Base(f)))
	}
	switch {
	case anyContains(lowered, "test", "spec"):
		return "Test files and test utilities"
	case anyContains(lowered, "model"):
		return "Data models and schemas"
	case anyContains(lowered, "route", "endpoint"):
		return "API routes and endpoints"
	case anyContains(lowered, "component"):
		return "UI components"
	}

	if tokens := dominantTokens(files, 3); len(tokens) > 0 {
		return "Files about " + strings.Join(tokens, ", ")
	}
	return ""
}

// DirectoryPurposes computes a purpose for every directory of the tree that
// has one.
func DirectoryPurposes(idx *Index) map[string]string {
	filesByDir := make(map[string][]string)
	for _, file := range idx.Files {
		dir := Dir(file.Path)
		filesByDir[dir] = append(filesByDir[dir], file.Path)
	}

	purposes := make(map[string]string)
	for _, dir := range treeDirs(idx) {
		if purpose := InferDirectoryPurpose(dir, filesByDir[dir]); purpose != "" {
			purposes[dir] = purpose
		}
	}
	if len(purposes) == 0 {
		return nil
	}
	return purposes
}

// DirectoryTree lists every directory holding indexed files, plus their
// ancestors, with the number of files directly inside.
func DirectoryTree(idx *Index) []TreeEntry {
	counts := make(map[string]int)
	for _, file := range idx.Files {
		counts[Dir(file.Path)]++
	}
	dirs := treeDirs(idx)
	if len(dirs) == 0 {
		return nil
	}
	tree := make([]TreeEntry, 0, len(dirs))
	for _, dir := range dirs {
		tree = append(tree, TreeEntry{Path: dir, Files: counts[dir]})
	}
	return tree
}

func treeDirs(idx *Index) []string {
	set := make(map[string]bool)
	for _, file := range idx.Files {
		for dir := Dir(file.Path); ; dir = path.Dir(dir) {
			if set[dir] {
				break
			}
			set[dir] = true
			if dir == "." || dir == "/" {
				break
			}
		}
	}
	dirs := make([]string, 0, len(set))
	for dir := range set {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}

func anyContains(values []string, needles ...string) bool {
	for _, v := range values {
		for _, n := range needles {
			if strings.Contains(v, n) {
				return true
			}
		}
	}
	return false
}

// dominantTokens returns the most frequent stemmed name tokens of files,
// reported in their first-seen spelling.
func dominantTokens(files []string, limit int) []string {
	counts := make(map[string]int)
	spelling := make(map[string]string)
	for _, f := range files {
		base := path.Base(f)
		seen := make(map[string]bool)
		for _, token := range splitIdentifier(strings.TrimSuffix(base, path.Ext(base))) {
			if len(token) < 3 || tokenStopwords[token] {
				continue
			}
			stem := porter2.Stem(token)
			if seen[stem] {
				continue
			}
			seen[stem] = true
			counts[stem]++
			if _, ok := spelling[stem]; !ok {
				spelling[stem] = token
			}
		}
	}

	stems := make([]string, 0, len(counts))
	for stem := range counts {
		stems = append(stems, stem)
	}
	sort.Slice(stems, func(i, j int) bool {
		if counts[stems[i]] != counts[stems[j]] {
			return counts[stems[i]] > counts[stems[j]]
		}
		return stems[i] < stems[j]
	})
	if len(stems) > limit {
		stems = stems[:limit]
	}
	out := make([]string, 0, len(stems))
	for _, stem := range stems {
		out = append(out, spelling[stem])
	}
	return out
}

// splitIdentifier breaks snake_case, kebab-case and camelCase names into
// lowercase words.
func splitIdentifier(name string) []string {
	var words []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			words = append(words, strings.ToLower(string(current)))
			current = current[:0]
		}
	}
	runes := []rune(name)
	for i, r := range runes {
		switch {
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			flush()
		case unicode.IsUpper(r) && i > 0 && (unicode.IsLower(runes[i-1]) ||
			(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))):
			flush()
			current = append(current, r)
		default:
			current = append(current, r)
		}
	}
	flush()
	return words
}
