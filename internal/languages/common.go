package languages

import (
	"path"
	"regexp"
	"strings"

	"github.com/skelly-dev/atlas/internal/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

var majorVersionSuffix = regexp.MustCompile(`^v[0-9]+$`)

func nodeLine(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}

func nodeText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	return strings.TrimSpace(node.Content(content))
}

func splitQualifiedName(raw string) (qualifier, name string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}
	if idx := strings.LastIndex(raw, "."); idx != -1 {
		qualifier = strings.TrimSpace(raw[:idx])
		name = strings.TrimSpace(raw[idx+1:])
		return qualifier, name
	}
	return "", raw
}

// defaultImportAlias is the name a path-style import binds when no alias is
// written: the last path segment, skipping Go major-version suffixes.
func defaultImportAlias(importPath string) string {
	importPath = strings.TrimSuffix(strings.TrimSpace(importPath), "/")
	base := path.Base(importPath)
	if majorVersionSuffix.MatchString(base) {
		base = path.Base(path.Dir(importPath))
	}
	if base == "." || base == "/" {
		return ""
	}
	base = strings.TrimPrefix(base, "go-")
	return strings.TrimSpace(base)
}

func splitAliasByAs(raw string) (base string, alias string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}
	parts := strings.Split(raw, " as ")
	if len(parts) == 1 {
		return strings.TrimSpace(parts[0]), ""
	}
	base = strings.TrimSpace(strings.Join(parts[:len(parts)-1], " as "))
	alias = strings.TrimSpace(parts[len(parts)-1])
	return base, alias
}

func unquote(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 {
		first, last := raw[0], raw[len(raw)-1]
		if first == last && (first == '"' || first == '\'' || first == '`') {
			return raw[1 : len(raw)-1]
		}
	}
	return raw
}

// leadingComment returns the first line of the comment block directly above
// node, with the comment markers stripped.
func leadingComment(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	var lines []string
	expectRow := node.StartPoint().Row
	for prev := node.PrevSibling(); prev != nil && prev.Type() == "comment"; prev = prev.PrevSibling() {
		if prev.EndPoint().Row+1 < expectRow {
			break
		}
		lines = append([]string{prev.Content(content)}, lines...)
		expectRow = prev.StartPoint().Row
	}
	for _, line := range lines {
		if text := stripCommentMarkers(line); text != "" {
			return text
		}
	}
	return ""
}

func stripCommentMarkers(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "/**")
	raw = strings.TrimPrefix(raw, "/*")
	raw = strings.TrimSuffix(raw, "*/")
	raw = strings.TrimPrefix(raw, "//")
	raw = strings.TrimPrefix(raw, "#")
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "*"))
		if line != "" {
			return line
		}
	}
	return ""
}

func countNamedChildren(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	count := 0
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if child := node.NamedChild(i); child != nil && child.Type() != "comment" {
			count++
		}
	}
	return count
}

// walkCalls visits every node of the given types below root.
func walkCalls(root *sitter.Node, types map[string]bool, visit func(*sitter.Node)) {
	if root == nil {
		return
	}
	if types[root.Type()] {
		visit(root)
	}
	for i := 0; i < int(root.ChildCount()); i++ {
		walkCalls(root.Child(i), types, visit)
	}
}

func newSymbol(name, container string, line int) parser.Symbol {
	kind := parser.SymbolFunction
	if container != "" {
		kind = parser.SymbolMethod
	}
	return parser.Symbol{
		Name:      name,
		Container: container,
		Kind:      kind,
		Line:      line,
	}
}
