package languages

import (
	"context"
	"strings"

	"github.com/skelly-dev/atlas/internal/parser"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

var pythonCallNodes = map[string]bool{"call": true}

// PythonParser implements parsing for Python source files
type PythonParser struct{}

// NewPythonParser creates a new Python parser
func NewPythonParser() *PythonParser {
	return &PythonParser{}
}

func (p *PythonParser) Language() string {
	return "python"
}

func (p *PythonParser) Extensions() []string {
	return []string{".py", ".pyw"}
}

func (p *PythonParser) Parse(filename string, content []byte) (*parser.FileSymbols, error) {
	sp := sitter.NewParser()
	defer sp.Close()
	sp.SetLanguage(python.GetLanguage())

	tree, err := sp.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	result := &parser.FileSymbols{
		Path:     filename,
		Language: "python",
	}

	p.extractSymbols(tree.RootNode(), content, result, "")
	return result, nil
}

func (p *PythonParser) extractSymbols(node *sitter.Node, content []byte, result *parser.FileSymbols, className string) {
	switch node.Type() {
	case "function_definition":
		if sym := p.extractFunction(node, content, className); sym != nil {
			result.Symbols = append(result.Symbols, *sym)
		}
		// Nested functions belong to their enclosing symbol.
		return

	case "class_definition":
		nameNode := node.ChildByFieldName("name")
		if nameNode == nil {
			return
		}
		if bodyNode := node.ChildByFieldName("body"); bodyNode != nil {
			for i := 0; i < int(bodyNode.NamedChildCount()); i++ {
				p.extractSymbols(bodyNode.NamedChild(i), content, result, nameNode.Content(content))
			}
		}
		return

	case "import_statement":
		result.Imports = append(result.Imports, p.extractImport(node, content)...)
		return

	case "import_from_statement":
		if imp, ok := p.extractFromImport(node, content); ok {
			result.Imports = append(result.Imports, imp)
		}
		return
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		p.extractSymbols(node.NamedChild(i), content, result, className)
	}
}

func (p *PythonParser) extractFunction(node *sitter.Node, content []byte, className string) *parser.Symbol {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	sym := newSymbol(nameNode.Content(content), className, nodeLine(node))
	sym.Signature = p.buildFunctionSignature(node, content)
	sym.Params = p.extractParams(node.ChildByFieldName("parameters"), content)
	sym.Returns = nodeText(node.ChildByFieldName("return_type"), content)

	bodyNode := node.ChildByFieldName("body")
	if bodyNode != nil && bodyNode.NamedChildCount() > 0 {
		firstStmt := bodyNode.NamedChild(0)
		if firstStmt.Type() == "expression_statement" && firstStmt.NamedChildCount() > 0 {
			if expr := firstStmt.NamedChild(0); expr.Type() == "string" {
				sym.Doc = extractDocstring(expr.Content(content))
			}
		}
	}
	if sym.Doc == "" {
		sym.Doc = leadingComment(node, content)
	}
	sym.Calls = p.extractCalls(bodyNode, content, className)
	return &sym
}

func (p *PythonParser) extractParams(node *sitter.Node, content []byte) []parser.Param {
	if node == nil {
		return nil
	}

	var params []parser.Param
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "identifier":
			params = append(params, parser.Param{Name: child.Content(content)})
		case "typed_parameter":
			name := ""
			if child.NamedChildCount() > 0 {
				name = nodeText(child.NamedChild(0), content)
			}
			params = append(params, parser.Param{
				Name: name,
				Type: nodeText(child.ChildByFieldName("type"), content),
			})
		case "default_parameter", "typed_default_parameter":
			params = append(params, parser.Param{
				Name: nodeText(child.ChildByFieldName("name"), content),
				Type: nodeText(child.ChildByFieldName("type"), content),
			})
		case "list_splat_pattern", "dictionary_splat_pattern":
			params = append(params, parser.Param{Name: child.Content(content)})
		}
	}
	return params
}

func (p *PythonParser) extractImport(node *sitter.Node, content []byte) []parser.Import {
	var imports []parser.Import
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "dotted_name":
			module := nodeText(child, content)
			if module != "" {
				imports = append(imports, parser.Import{Path: module, Alias: module, Line: nodeLine(node)})
			}
		case "aliased_import":
			module := nodeText(child.ChildByFieldName("name"), content)
			alias := nodeText(child.ChildByFieldName("alias"), content)
			if module == "" {
				module, alias = splitAliasByAs(child.Content(content))
			}
			if alias == "" {
				alias = module
			}
			if module != "" {
				imports = append(imports, parser.Import{Path: module, Alias: alias, Line: nodeLine(node)})
			}
		}
	}
	return imports
}

func (p *PythonParser) extractFromImport(node *sitter.Node, content []byte) (parser.Import, bool) {
	moduleNode := node.ChildByFieldName("module_name")
	if moduleNode == nil {
		return parser.Import{}, false
	}
	moduleName := nodeText(moduleNode, content)
	if moduleName == "" {
		return parser.Import{}, false
	}

	imp := parser.Import{Path: moduleName, Line: nodeLine(node)}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if child.Type() == "wildcard_import" {
			imp.Names = append(imp.Names, parser.ImportedName{Name: "*", Local: "*"})
			continue
		}
		if node.FieldNameForChild(i) != "name" {
			continue
		}

		switch child.Type() {
		case "aliased_import":
			importedName := nodeText(child.ChildByFieldName("name"), content)
			aliasName := nodeText(child.ChildByFieldName("alias"), content)
			if importedName != "" {
				imp.Names = append(imp.Names, parser.ImportedName{Name: importedName, Local: aliasName})
			}
		case "dotted_name", "identifier":
			if importedName := nodeText(child, content); importedName != "" {
				imp.Names = append(imp.Names, parser.ImportedName{Name: importedName})
			}
		}
	}
	return imp, true
}

func (p *PythonParser) buildFunctionSignature(node *sitter.Node, content []byte) string {
	nameNode := node.ChildByFieldName("name")
	paramsNode := node.ChildByFieldName("parameters")
	returnNode := node.ChildByFieldName("return_type")

	sig := "def"
	if nameNode != nil {
		sig += " " + nameNode.Content(content)
	}
	if paramsNode != nil {
		sig += paramsNode.Content(content)
	}
	if returnNode != nil {
		sig += " -> " + returnNode.Content(content)
	}

	return sig
}

func (p *PythonParser) extractCalls(bodyNode *sitter.Node, content []byte, className string) []parser.CallSite {
	var calls []parser.CallSite
	walkCalls(bodyNode, pythonCallNodes, func(callNode *sitter.Node) {
		fnNode := callNode.ChildByFieldName("function")
		name, qualifier := p.extractCallName(fnNode, content)
		if name == "" {
			return
		}
		callSite := parser.CallSite{
			Name:      name,
			Qualifier: qualifier,
			Raw:       nodeText(fnNode, content),
			Line:      nodeLine(callNode),
			Arity:     countNamedChildren(callNode.ChildByFieldName("arguments")),
		}
		if className != "" && (qualifier == "self" || qualifier == "cls") {
			callSite.Receiver = className
		}
		calls = append(calls, callSite)
	})
	return calls
}

func (p *PythonParser) extractCallName(node *sitter.Node, content []byte) (name, qualifier string) {
	if node == nil {
		return "", ""
	}

	switch node.Type() {
	case "identifier":
		return node.Content(content), ""
	case "attribute":
		object := node.ChildByFieldName("object")
		attr := node.ChildByFieldName("attribute")
		if attr != nil {
			return attr.Content(content), nodeText(object, content)
		}
		qualifierValue, nameValue := splitQualifiedName(node.Content(content))
		return nameValue, qualifierValue
	case "parenthesized_expression":
		if node.NamedChildCount() > 0 {
			return p.extractCallName(node.NamedChild(0), content)
		}
		return "", ""
	case "subscript":
		return p.extractCallName(node.ChildByFieldName("value"), content)
	case "call", "lambda":
		return "", ""
	}

	qualifierValue, nameValue := splitQualifiedName(node.Content(content))
	if nameValue != "" && !strings.ContainsAny(nameValue, "(){}[] \t\n") {
		return nameValue, qualifierValue
	}
	return "", ""
}

func extractDocstring(s string) string {
	// Remove triple quotes and clean up
	s = strings.TrimSpace(s)
	for _, quote := range []string{`"""`, `'''`} {
		if strings.HasPrefix(s, quote) && strings.HasSuffix(s, quote) && len(s) >= 6 {
			s = s[3 : len(s)-3]
			break
		}
	}
	s = unquote(s)
	// Take first line only for brevity
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
