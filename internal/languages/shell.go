package languages

import (
	"context"
	"strings"

	"github.com/skelly-dev/atlas/internal/parser"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
)

var shellCallNodes = map[string]bool{"command": true}

var shellSourceCommands = map[string]bool{"source": true, ".": true}

// Builtins never resolve to a function in the repository.
var shellBuiltins = map[string]bool{
	"cd": true, "echo": true, "printf": true, "export": true, "local": true,
	"declare": true, "readonly": true, "unset": true, "return": true, "exit": true,
	"set": true, "shift": true, "test": true, "[": true, "[[": true, "read": true,
	"eval": true, "exec": true, "trap": true, "true": true, "false": true, ":": true,
}

// ShellParser implements parsing for shell scripts
type ShellParser struct{}

// NewShellParser creates a new shell parser
func NewShellParser() *ShellParser {
	return &ShellParser{}
}

func (s *ShellParser) Language() string {
	return "shell"
}

func (s *ShellParser) Extensions() []string {
	return []string{".sh", ".bash"}
}

func (s *ShellParser) Parse(filename string, content []byte) (*parser.FileSymbols, error) {
	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(bash.GetLanguage())

	tree, err := p.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	result := &parser.FileSymbols{
		Path:     filename,
		Language: "shell",
	}

	s.extract(tree.RootNode(), content, result)
	return result, nil
}

func (s *ShellParser) extract(node *sitter.Node, content []byte, result *parser.FileSymbols) {
	switch node.Type() {
	case "function_definition":
		if sym := s.extractFunction(node, content); sym != nil {
			result.Symbols = append(result.Symbols, *sym)
		}
		return

	case "command":
		if imp, ok := s.readSource(node, content); ok {
			result.Imports = append(result.Imports, imp)
			return
		}
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		s.extract(node.NamedChild(i), content, result)
	}
}

func (s *ShellParser) extractFunction(node *sitter.Node, content []byte) *parser.Symbol {
	name := nodeText(node.ChildByFieldName("name"), content)
	if name == "" {
		return nil
	}

	sym := newSymbol(name, "", nodeLine(node))
	sym.Signature = name + "()"
	sym.Doc = leadingComment(node, content)

	body := node.ChildByFieldName("body")
	if body == nil {
		body = node
	}
	sym.Calls = s.extractCalls(body, content)
	return &sym
}

func (s *ShellParser) extractCalls(body *sitter.Node, content []byte) []parser.CallSite {
	var calls []parser.CallSite
	walkCalls(body, shellCallNodes, func(node *sitter.Node) {
		name := nodeText(node.ChildByFieldName("name"), content)
		if name == "" || shellBuiltins[name] || shellSourceCommands[name] || strings.ContainsAny(name, "$/=") {
			return
		}
		calls = append(calls, parser.CallSite{
			Name:  name,
			Raw:   name,
			Line:  nodeLine(node),
			Arity: countArguments(node),
		})
	})
	return calls
}

// readSource turns `source lib.sh` and `. lib.sh` into a wildcard import.
// Paths built from variables are skipped since they cannot be followed.
func (s *ShellParser) readSource(node *sitter.Node, content []byte) (parser.Import, bool) {
	if !shellSourceCommands[nodeText(node.ChildByFieldName("name"), content)] {
		return parser.Import{}, false
	}
	var arg *sitter.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if child := node.NamedChild(i); child.Type() != "command_name" && child.Type() != "comment" {
			arg = child
			break
		}
	}
	importPath := unquote(nodeText(arg, content))
	if importPath == "" || strings.Contains(importPath, "$") {
		return parser.Import{}, false
	}
	if !strings.HasPrefix(importPath, ".") && !strings.HasPrefix(importPath, "/") {
		importPath = "./" + importPath
	}
	return parser.Import{
		Path:  importPath,
		Names: []parser.ImportedName{{Name: "*"}},
		Line:  nodeLine(node),
	}, true
}

func countArguments(command *sitter.Node) int {
	count := 0
	for i := 0; i < int(command.NamedChildCount()); i++ {
		switch command.NamedChild(i).Type() {
		case "command_name", "comment", "file_redirect", "heredoc_redirect", "herestring_redirect", "variable_assignment":
		default:
			count++
		}
	}
	return count
}
