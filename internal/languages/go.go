package languages

import (
	"context"
	"strings"

	"github.com/skelly-dev/atlas/internal/parser"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

var goCallNodes = map[string]bool{"call_expression": true}

var goBuiltins = map[string]bool{
	"append": true, "cap": true, "clear": true, "close": true, "complex": true,
	"copy": true, "delete": true, "imag": true, "len": true, "make": true,
	"max": true, "min": true, "new": true, "panic": true, "print": true,
	"println": true, "real": true, "recover": true,
}

// GoParser implements parsing for Go source files
type GoParser struct{}

// NewGoParser creates a new Go parser
func NewGoParser() *GoParser {
	return &GoParser{}
}

func (g *GoParser) Language() string {
	return "go"
}

func (g *GoParser) Extensions() []string {
	return []string{".go"}
}

func (g *GoParser) Parse(filename string, content []byte) (*parser.FileSymbols, error) {
	// sitter.Parser is not safe for concurrent use; the extraction pool calls
	// Parse from several goroutines.
	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(golang.GetLanguage())

	tree, err := p.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	result := &parser.FileSymbols{
		Path:     filename,
		Language: "go",
	}

	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "function_declaration":
			if sym := g.extractFunction(child, content); sym != nil {
				result.Symbols = append(result.Symbols, *sym)
			}
		case "method_declaration":
			if sym := g.extractMethod(child, content); sym != nil {
				result.Symbols = append(result.Symbols, *sym)
			}
		case "import_declaration":
			result.Imports = append(result.Imports, g.extractImports(child, content)...)
		}
	}

	return result, nil
}

func (g *GoParser) extractFunction(node *sitter.Node, content []byte) *parser.Symbol {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	sym := newSymbol(nameNode.Content(content), "", nodeLine(node))
	sym.Signature = g.buildFunctionSignature(node, content)
	sym.Params = g.extractParams(node.ChildByFieldName("parameters"), content)
	sym.Returns = nodeText(node.ChildByFieldName("result"), content)
	sym.Doc = leadingComment(node, content)
	sym.Calls = g.extractCalls(node.ChildByFieldName("body"), content, "", "")
	return &sym
}

func (g *GoParser) extractMethod(node *sitter.Node, content []byte) *parser.Symbol {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	receiverNode := node.ChildByFieldName("receiver")
	receiverVar, receiverType := g.readReceiver(receiverNode, content)

	sym := newSymbol(nameNode.Content(content), receiverType, nodeLine(node))
	sig := g.buildFunctionSignature(node, content)
	if receiverNode != nil {
		sig = "func " + receiverNode.Content(content) + strings.TrimPrefix(sig, "func")
	}
	sym.Signature = sig
	sym.Params = g.extractParams(node.ChildByFieldName("parameters"), content)
	sym.Returns = nodeText(node.ChildByFieldName("result"), content)
	sym.Doc = leadingComment(node, content)
	sym.Calls = g.extractCalls(node.ChildByFieldName("body"), content, receiverVar, receiverType)
	return &sym
}

// readReceiver returns the receiver variable and its base type name:
// (s *Server[T]) yields ("s", "Server").
func (g *GoParser) readReceiver(node *sitter.Node, content []byte) (variable, typeName string) {
	if node == nil {
		return "", ""
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		decl := node.NamedChild(i)
		if decl.Type() != "parameter_declaration" {
			continue
		}
		variable = nodeText(decl.ChildByFieldName("name"), content)
		typeName = nodeText(goBaseType(decl.ChildByFieldName("type")), content)
		return variable, typeName
	}
	return "", ""
}

func goBaseType(node *sitter.Node) *sitter.Node {
	for node != nil {
		switch node.Type() {
		case "pointer_type":
			node = node.NamedChild(0)
		case "generic_type":
			node = node.ChildByFieldName("type")
		default:
			return node
		}
	}
	return nil
}

func (g *GoParser) extractParams(node *sitter.Node, content []byte) []parser.Param {
	if node == nil {
		return nil
	}

	var params []parser.Param
	for i := 0; i < int(node.NamedChildCount()); i++ {
		decl := node.NamedChild(i)
		switch decl.Type() {
		case "parameter_declaration", "variadic_parameter_declaration":
		default:
			continue
		}

		typ := nodeText(decl.ChildByFieldName("type"), content)
		if decl.Type() == "variadic_parameter_declaration" {
			typ = "..." + typ
		}

		var names []string
		for j := 0; j < int(decl.ChildCount()); j++ {
			if decl.FieldNameForChild(j) == "name" {
				names = append(names, nodeText(decl.Child(j), content))
			}
		}
		if len(names) == 0 {
			params = append(params, parser.Param{Type: typ})
			continue
		}
		for _, name := range names {
			params = append(params, parser.Param{Name: name, Type: typ})
		}
	}
	return params
}

func (g *GoParser) extractImports(node *sitter.Node, content []byte) []parser.Import {
	var imports []parser.Import

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "import_spec":
			if imp, ok := g.readImportSpec(child, content); ok {
				imports = append(imports, imp)
			}
		case "import_spec_list":
			// Handle grouped imports
			for j := 0; j < int(child.NamedChildCount()); j++ {
				spec := child.NamedChild(j)
				if spec.Type() != "import_spec" {
					continue
				}
				if imp, ok := g.readImportSpec(spec, content); ok {
					imports = append(imports, imp)
				}
			}
		}
	}

	return imports
}

func (g *GoParser) readImportSpec(spec *sitter.Node, content []byte) (parser.Import, bool) {
	pathNode := spec.ChildByFieldName("path")
	if pathNode == nil {
		return parser.Import{}, false
	}

	importPath := unquote(pathNode.Content(content))
	if importPath == "" {
		return parser.Import{}, false
	}

	alias := nodeText(spec.ChildByFieldName("name"), content)
	if alias == "_" || alias == "." {
		alias = ""
	} else if alias == "" {
		alias = defaultImportAlias(importPath)
	}
	return parser.Import{
		Path:  importPath,
		Alias: alias,
		Line:  nodeLine(spec),
	}, true
}

func (g *GoParser) buildFunctionSignature(node *sitter.Node, content []byte) string {
	nameNode := node.ChildByFieldName("name")
	typeParams := node.ChildByFieldName("type_parameters")
	paramsNode := node.ChildByFieldName("parameters")
	resultNode := node.ChildByFieldName("result")

	sig := "func"
	if nameNode != nil {
		sig += " " + nameNode.Content(content)
	}
	if typeParams != nil {
		sig += typeParams.Content(content)
	}
	if paramsNode != nil {
		sig += paramsNode.Content(content)
	}
	if resultNode != nil {
		sig += " " + resultNode.Content(content)
	}

	return sig
}

func (g *GoParser) extractCalls(bodyNode *sitter.Node, content []byte, receiverVar, receiverType string) []parser.CallSite {
	var calls []parser.CallSite
	walkCalls(bodyNode, goCallNodes, func(callNode *sitter.Node) {
		fnNode := callNode.ChildByFieldName("function")
		name, qualifier := g.extractCallName(fnNode, content)
		if name == "" || (qualifier == "" && goBuiltins[name]) {
			return
		}
		callSite := parser.CallSite{
			Name:      name,
			Qualifier: qualifier,
			Raw:       nodeText(fnNode, content),
			Line:      nodeLine(callNode),
			Arity:     countNamedChildren(callNode.ChildByFieldName("arguments")),
		}
		if receiverVar != "" && qualifier == receiverVar {
			callSite.Receiver = receiverType
		}
		calls = append(calls, callSite)
	})
	return calls
}

func (g *GoParser) extractCallName(node *sitter.Node, content []byte) (name, qualifier string) {
	if node == nil {
		return "", ""
	}

	switch node.Type() {
	case "identifier":
		return node.Content(content), ""
	case "selector_expression":
		operandNode := node.ChildByFieldName("operand")
		fieldNode := node.ChildByFieldName("field")
		if fieldNode != nil {
			return fieldNode.Content(content), nodeText(operandNode, content)
		}
		qualifierValue, nameValue := splitQualifiedName(node.Content(content))
		return nameValue, qualifierValue
	case "parenthesized_expression":
		if node.NamedChildCount() > 0 {
			return g.extractCallName(node.NamedChild(0), content)
		}
		return "", ""
	case "index_expression", "type_instantiation_expression", "generic_type":
		operand := node.ChildByFieldName("operand")
		if operand == nil {
			operand = node.ChildByFieldName("type")
		}
		return g.extractCallName(operand, content)
	case "func_literal":
		return "", ""
	}

	qualifierValue, nameValue := splitQualifiedName(node.Content(content))
	if nameValue != "" && !strings.ContainsAny(nameValue, "(){}[] \t\n") {
		return nameValue, qualifierValue
	}
	return "", ""
}
