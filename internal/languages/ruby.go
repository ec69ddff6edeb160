package languages

import (
	"context"
	"strings"

	"github.com/skelly-dev/atlas/internal/parser"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/ruby"
)

var rubyCallNodes = map[string]bool{"call": true, "command": true, "command_call": true, "method_call": true}

var rubyRequireMethods = map[string]bool{"require": true, "require_relative": true, "load": true}

// RubyParser implements parsing for Ruby source files
type RubyParser struct{}

// NewRubyParser creates a new Ruby parser
func NewRubyParser() *RubyParser {
	return &RubyParser{}
}

func (r *RubyParser) Language() string {
	return "ruby"
}

func (r *RubyParser) Extensions() []string {
	return []string{".rb", ".rake", ".gemspec"}
}

func (r *RubyParser) Parse(filename string, content []byte) (*parser.FileSymbols, error) {
	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(ruby.GetLanguage())

	tree, err := p.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	result := &parser.FileSymbols{
		Path:     filename,
		Language: "ruby",
	}

	r.extractSymbols(tree.RootNode(), content, result, "")
	return result, nil
}

func (r *RubyParser) extractSymbols(node *sitter.Node, content []byte, result *parser.FileSymbols, container string) {
	switch node.Type() {
	case "method":
		if sym := r.extractMethod(node, content, container, false); sym != nil {
			result.Symbols = append(result.Symbols, *sym)
		}
		return

	case "singleton_method":
		if sym := r.extractMethod(node, content, container, true); sym != nil {
			result.Symbols = append(result.Symbols, *sym)
		}
		return

	case "class", "module":
		nameNode := node.ChildByFieldName("name")
		if nameNode == nil {
			return
		}
		nested := nameNode.Content(content)
		if container != "" {
			nested = container + "::" + nested
		}
		body := node.ChildByFieldName("body")
		if body == nil {
			body = node
		}
		for i := 0; i < int(body.NamedChildCount()); i++ {
			child := body.NamedChild(i)
			if child == nameNode {
				continue
			}
			r.extractSymbols(child, content, result, nested)
		}
		return

	case "call", "command", "method_call":
		if imp, ok := r.readRequire(node, content); ok {
			result.Imports = append(result.Imports, imp)
			return
		}
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		r.extractSymbols(node.NamedChild(i), content, result, container)
	}
}

func (r *RubyParser) extractMethod(node *sitter.Node, content []byte, container string, singleton bool) *parser.Symbol {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	name := nameNode.Content(content)
	sym := newSymbol(name, container, nodeLine(node))

	paramsNode := node.ChildByFieldName("parameters")
	prefix := "def "
	if singleton {
		prefix = "def self."
	}
	sym.Signature = prefix + name
	if paramsNode != nil {
		sym.Signature += paramsNode.Content(content)
	}
	sym.Params = r.extractParams(paramsNode, content)
	sym.Doc = leadingComment(node, content)

	bodyNode := node.ChildByFieldName("body")
	if bodyNode == nil {
		bodyNode = node
	}
	sym.Calls = r.extractCalls(bodyNode, content, container)
	return &sym
}

func (r *RubyParser) extractParams(node *sitter.Node, content []byte) []parser.Param {
	if node == nil {
		return nil
	}

	var params []parser.Param
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "identifier":
			params = append(params, parser.Param{Name: child.Content(content)})
		case "optional_parameter", "keyword_parameter":
			name := nodeText(child.ChildByFieldName("name"), content)
			if child.Type() == "keyword_parameter" {
				name += ":"
			}
			params = append(params, parser.Param{Name: name})
		case "splat_parameter", "hash_splat_parameter", "block_parameter":
			params = append(params, parser.Param{Name: child.Content(content)})
		}
	}
	return params
}

func (r *RubyParser) readRequire(node *sitter.Node, content []byte) (parser.Import, bool) {
	if node.ChildByFieldName("receiver") != nil {
		return parser.Import{}, false
	}
	methodNode := node.ChildByFieldName("method")
	if methodNode == nil || !rubyRequireMethods[methodNode.Content(content)] {
		return parser.Import{}, false
	}
	args := node.ChildByFieldName("arguments")
	if args == nil {
		return parser.Import{}, false
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg.Type() != "string" {
			continue
		}
		importPath := extractRubyString(arg.Content(content))
		if importPath == "" {
			continue
		}
		if methodNode.Content(content) == "require_relative" && !strings.HasPrefix(importPath, ".") {
			importPath = "./" + importPath
		}
		return parser.Import{Path: importPath, Line: nodeLine(node)}, true
	}
	return parser.Import{}, false
}

func extractRubyString(s string) string {
	s = strings.TrimSpace(s)
	// Handle single and double quoted strings
	if (strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`)) ||
		(strings.HasPrefix(s, `'`) && strings.HasSuffix(s, `'`)) {
		return s[1 : len(s)-1]
	}
	return s
}

func (r *RubyParser) extractCalls(bodyNode *sitter.Node, content []byte, container string) []parser.CallSite {
	var calls []parser.CallSite
	walkCalls(bodyNode, rubyCallNodes, func(node *sitter.Node) {
		callSite := r.extractCallSite(node, content, container)
		if callSite.Name != "" {
			calls = append(calls, callSite)
		}
	})
	return calls
}

func (r *RubyParser) extractCallSite(node *sitter.Node, content []byte, container string) parser.CallSite {
	methodNode := node.ChildByFieldName("method")
	if methodNode == nil {
		methodNode = node.ChildByFieldName("name")
	}

	name := nodeText(methodNode, content)
	qualifier := nodeText(node.ChildByFieldName("receiver"), content)
	if qualifier == "" && rubyRequireMethods[name] {
		return parser.CallSite{}
	}

	// Foo.new runs Foo#initialize
	if name == "new" && qualifier != "" && qualifier != "self" {
		name = "initialize"
	}

	callSite := parser.CallSite{
		Name:      name,
		Qualifier: qualifier,
		Raw:       nodeText(methodNode, content),
		Line:      nodeLine(node),
		Arity:     countNamedChildren(node.ChildByFieldName("arguments")),
	}
	if qualifier != "" {
		callSite.Raw = qualifier + "." + callSite.Raw
	}
	if container != "" && qualifier == "self" {
		callSite.Receiver = container
	}
	return callSite
}
