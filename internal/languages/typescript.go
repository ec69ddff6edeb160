package languages

import (
	"context"
	"strings"

	"github.com/skelly-dev/atlas/internal/parser"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

var tsCallNodes = map[string]bool{"call_expression": true, "new_expression": true}

// TypeScriptParser implements parsing for TypeScript/JavaScript source files
type TypeScriptParser struct{}

// NewTypeScriptParser creates a new TypeScript/JavaScript parser
func NewTypeScriptParser() *TypeScriptParser {
	return &TypeScriptParser{}
}

func (t *TypeScriptParser) Language() string {
	return "typescript"
}

func (t *TypeScriptParser) Extensions() []string {
	return []string{".ts", ".tsx", ".mts", ".cts", ".js", ".jsx", ".mjs", ".cjs"}
}

func (t *TypeScriptParser) Parse(filename string, content []byte) (*parser.FileSymbols, error) {
	// Choose grammar based on extension
	var language *sitter.Language
	lang := "typescript"
	switch {
	case strings.HasSuffix(filename, ".tsx"):
		language = tsx.GetLanguage()
	case strings.HasSuffix(filename, ".js"), strings.HasSuffix(filename, ".jsx"),
		strings.HasSuffix(filename, ".mjs"), strings.HasSuffix(filename, ".cjs"):
		language = javascript.GetLanguage()
		lang = "javascript"
	default:
		language = typescript.GetLanguage()
	}

	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(language)

	tree, err := p.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	result := &parser.FileSymbols{
		Path:     filename,
		Language: lang,
	}

	t.extractSymbols(tree.RootNode(), content, result, "")
	return result, nil
}

func (t *TypeScriptParser) extractSymbols(node *sitter.Node, content []byte, result *parser.FileSymbols, className string) {
	switch node.Type() {
	case "function_declaration", "generator_function_declaration":
		if sym := t.extractFunction(node, content); sym != nil {
			result.Symbols = append(result.Symbols, *sym)
		}
		return

	case "method_definition":
		if sym := t.extractMethod(node, content, className); sym != nil {
			result.Symbols = append(result.Symbols, *sym)
		}
		return

	case "public_field_definition", "field_definition":
		// class fields holding arrow functions behave like methods
		if sym := t.extractFieldFunction(node, content, className); sym != nil {
			result.Symbols = append(result.Symbols, *sym)
		}
		return

	case "class_declaration", "abstract_class_declaration", "class":
		nameNode := node.ChildByFieldName("name")
		if nameNode == nil {
			return
		}
		if bodyNode := node.ChildByFieldName("body"); bodyNode != nil {
			for i := 0; i < int(bodyNode.NamedChildCount()); i++ {
				t.extractSymbols(bodyNode.NamedChild(i), content, result, nameNode.Content(content))
			}
		}
		return

	case "lexical_declaration", "variable_declaration":
		syms, imports := t.extractVariableDeclarations(node, content)
		result.Symbols = append(result.Symbols, syms...)
		result.Imports = append(result.Imports, imports...)
		return

	case "import_statement":
		if imp, ok := t.extractImport(node, content); ok {
			result.Imports = append(result.Imports, imp)
		}
		return

	case "call_expression":
		// bare require('x') at module level
		if imp, ok := t.readRequire(node, content); ok {
			result.Imports = append(result.Imports, imp)
			return
		}

	case "arrow_function", "function", "function_expression":
		// anonymous function bodies are not symbols
		return
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		t.extractSymbols(node.NamedChild(i), content, result, className)
	}
}

func (t *TypeScriptParser) extractFunction(node *sitter.Node, content []byte) *parser.Symbol {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	sym := newSymbol(nameNode.Content(content), "", nodeLine(node))
	sym.Signature = t.buildFunctionSignature("function", node, content)
	t.fillCallable(&sym, node, node, content, "")
	return &sym
}

func (t *TypeScriptParser) extractMethod(node *sitter.Node, content []byte, className string) *parser.Symbol {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	sym := newSymbol(nameNode.Content(content), className, nodeLine(node))
	sym.Signature = t.buildFunctionSignature("", node, content)
	t.fillCallable(&sym, node, node, content, className)
	return &sym
}

func (t *TypeScriptParser) extractFieldFunction(node *sitter.Node, content []byte, className string) *parser.Symbol {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		nameNode = node.ChildByFieldName("property")
	}
	valueNode := node.ChildByFieldName("value")
	if nameNode == nil || valueNode == nil || !isJSFunctionValue(valueNode) {
		return nil
	}

	sym := newSymbol(nameNode.Content(content), className, nodeLine(node))
	sym.Signature = t.buildArrowFunctionSignature(nameNode.Content(content)+" =", valueNode, content)
	t.fillCallable(&sym, node, valueNode, content, className)
	return &sym
}

func (t *TypeScriptParser) extractVariableDeclarations(node *sitter.Node, content []byte) ([]parser.Symbol, []parser.Import) {
	var symbols []parser.Symbol
	var imports []parser.Import

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() != "variable_declarator" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		valueNode := child.ChildByFieldName("value")
		if nameNode == nil || valueNode == nil {
			continue
		}

		if imp, ok := t.readRequire(valueNode, content); ok {
			switch nameNode.Type() {
			case "identifier":
				imp.Alias = nameNode.Content(content)
			case "object_pattern":
				imp.Names = readObjectPatternNames(nameNode, content)
			}
			imports = append(imports, imp)
			continue
		}

		if !isJSFunctionValue(valueNode) || nameNode.Type() != "identifier" {
			continue
		}
		name := nameNode.Content(content)
		sym := newSymbol(name, "", nodeLine(child))
		sym.Signature = t.buildArrowFunctionSignature("const "+name+" =", valueNode, content)
		t.fillCallable(&sym, node, valueNode, content, "")
		symbols = append(symbols, sym)
	}

	return symbols, imports
}

func isJSFunctionValue(node *sitter.Node) bool {
	switch node.Type() {
	case "arrow_function", "function", "function_expression", "generator_function":
		return true
	}
	return false
}

// fillCallable populates params, return type, doc and calls. declNode anchors
// the doc comment, fnNode carries parameters and body.
func (t *TypeScriptParser) fillCallable(sym *parser.Symbol, declNode, fnNode *sitter.Node, content []byte, className string) {
	paramsNode := fnNode.ChildByFieldName("parameters")
	if paramsNode == nil {
		paramsNode = fnNode.ChildByFieldName("parameter")
	}
	sym.Params = t.extractParams(paramsNode, content)
	sym.Returns = trimTypeAnnotation(nodeText(fnNode.ChildByFieldName("return_type"), content))

	docAnchor := declNode
	if parent := declNode.Parent(); parent != nil && parent.Type() == "export_statement" {
		docAnchor = parent
	}
	sym.Doc = leadingComment(docAnchor, content)

	body := fnNode.ChildByFieldName("body")
	sym.Calls = t.extractCalls(body, content, className)
}

func (t *TypeScriptParser) extractParams(node *sitter.Node, content []byte) []parser.Param {
	if node == nil {
		return nil
	}
	if node.Type() == "identifier" {
		return []parser.Param{{Name: node.Content(content)}}
	}

	var params []parser.Param
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "required_parameter", "optional_parameter":
			name := nodeText(child.ChildByFieldName("pattern"), content)
			if child.Type() == "optional_parameter" {
				name += "?"
			}
			params = append(params, parser.Param{
				Name: name,
				Type: trimTypeAnnotation(nodeText(child.ChildByFieldName("type"), content)),
			})
		case "identifier", "rest_pattern", "object_pattern", "array_pattern":
			params = append(params, parser.Param{Name: child.Content(content)})
		case "assignment_pattern":
			params = append(params, parser.Param{Name: nodeText(child.ChildByFieldName("left"), content)})
		}
	}
	return params
}

func (t *TypeScriptParser) extractImport(node *sitter.Node, content []byte) (parser.Import, bool) {
	sourceNode := node.ChildByFieldName("source")
	if sourceNode == nil {
		for i := 0; i < int(node.NamedChildCount()); i++ {
			if child := node.NamedChild(i); child.Type() == "string" {
				sourceNode = child
				break
			}
		}
	}
	if sourceNode == nil {
		return parser.Import{}, false
	}
	importPath := unquote(sourceNode.Content(content))
	if importPath == "" {
		return parser.Import{}, false
	}

	imp := parser.Import{Path: importPath, Line: nodeLine(node)}
	imp.Alias, imp.Names = parseJSImportClause(node.Content(content))
	return imp, true
}

// readRequire recognizes require('x') and returns its import.
func (t *TypeScriptParser) readRequire(node *sitter.Node, content []byte) (parser.Import, bool) {
	if node == nil || node.Type() != "call_expression" {
		return parser.Import{}, false
	}
	fn := node.ChildByFieldName("function")
	if fn == nil || fn.Type() != "identifier" || fn.Content(content) != "require" {
		return parser.Import{}, false
	}
	args := node.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return parser.Import{}, false
	}
	arg := args.NamedChild(0)
	if arg.Type() != "string" {
		return parser.Import{}, false
	}
	importPath := unquote(arg.Content(content))
	if importPath == "" {
		return parser.Import{}, false
	}
	return parser.Import{Path: importPath, Line: nodeLine(node)}, true
}

func readObjectPatternNames(node *sitter.Node, content []byte) []parser.ImportedName {
	var names []parser.ImportedName
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "shorthand_property_identifier_pattern", "shorthand_property_identifier":
			names = append(names, parser.ImportedName{Name: child.Content(content)})
		case "pair_pattern":
			names = append(names, parser.ImportedName{
				Name:  nodeText(child.ChildByFieldName("key"), content),
				Local: nodeText(child.ChildByFieldName("value"), content),
			})
		}
	}
	return names
}

func (t *TypeScriptParser) buildFunctionSignature(prefix string, node *sitter.Node, content []byte) string {
	nameNode := node.ChildByFieldName("name")
	paramsNode := node.ChildByFieldName("parameters")
	returnNode := node.ChildByFieldName("return_type")

	sig := prefix
	if nameNode != nil {
		if sig != "" {
			sig += " "
		}
		sig += nameNode.Content(content)
	}
	if paramsNode != nil {
		sig += paramsNode.Content(content)
	}
	if returnNode != nil {
		sig += formatTypeScriptReturnType(returnNode.Content(content))
	}

	return sig
}

func (t *TypeScriptParser) buildArrowFunctionSignature(prefix string, valueNode *sitter.Node, content []byte) string {
	paramsNode := valueNode.ChildByFieldName("parameters")
	if paramsNode == nil {
		paramsNode = valueNode.ChildByFieldName("parameter")
	}
	returnNode := valueNode.ChildByFieldName("return_type")

	sig := prefix + " "
	if paramsNode != nil {
		params := paramsNode.Content(content)
		if !strings.HasPrefix(params, "(") {
			params = "(" + params + ")"
		}
		sig += params
	} else {
		sig += "()"
	}
	if returnNode != nil {
		sig += formatTypeScriptReturnType(returnNode.Content(content))
	}
	sig += " =>"

	return sig
}

func (t *TypeScriptParser) extractCalls(bodyNode *sitter.Node, content []byte, className string) []parser.CallSite {
	var calls []parser.CallSite
	walkCalls(bodyNode, tsCallNodes, func(callNode *sitter.Node) {
		fnNode := callNode.ChildByFieldName("function")
		if callNode.Type() == "new_expression" {
			fnNode = callNode.ChildByFieldName("constructor")
		}
		name, qualifier := t.extractCallName(fnNode, content)
		if name == "" || (qualifier == "" && name == "require") {
			return
		}
		callSite := parser.CallSite{
			Name:      name,
			Qualifier: qualifier,
			Raw:       nodeText(fnNode, content),
			Line:      nodeLine(callNode),
			Arity:     countNamedChildren(callNode.ChildByFieldName("arguments")),
		}
		if className != "" && qualifier == "this" {
			callSite.Receiver = className
		}
		calls = append(calls, callSite)
	})
	return calls
}

func (t *TypeScriptParser) extractCallName(node *sitter.Node, content []byte) (name, qualifier string) {
	if node == nil {
		return "", ""
	}

	switch node.Type() {
	case "identifier":
		return node.Content(content), ""
	case "member_expression":
		objectNode := node.ChildByFieldName("object")
		property := node.ChildByFieldName("property")
		if property != nil {
			return property.Content(content), nodeText(objectNode, content)
		}
	case "subscript_expression":
		return t.extractCallName(node.ChildByFieldName("object"), content)
	case "parenthesized_expression":
		if node.NamedChildCount() > 0 {
			return t.extractCallName(node.NamedChild(0), content)
		}
		return "", ""
	case "non_null_expression":
		if node.NamedChildCount() > 0 {
			return t.extractCallName(node.NamedChild(0), content)
		}
		return "", ""
	case "arrow_function", "function", "function_expression", "call_expression":
		return "", ""
	}

	qualifierValue, nameValue := splitQualifiedName(node.Content(content))
	if nameValue != "" && !strings.ContainsAny(nameValue, "(){}[] \t\n") {
		return nameValue, qualifierValue
	}
	return "", ""
}

// parseJSImportClause reads the binding clause of an ES import:
// `import def, { a as b, c } from 'x'` binds names def, b and c;
// `import * as ns from 'x'` binds the module alias ns.
func parseJSImportClause(raw string) (alias string, names []parser.ImportedName) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "import ") {
		return "", nil
	}

	fromIdx := strings.LastIndex(raw, " from ")
	if fromIdx == -1 {
		return "", nil
	}
	spec := strings.TrimSpace(strings.TrimPrefix(raw[:fromIdx], "import "))
	spec = strings.TrimSpace(strings.TrimPrefix(spec, "type "))
	if spec == "" {
		return "", nil
	}

	for _, part := range splitTopLevelCSV(spec) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			for _, member := range splitTopLevelCSV(strings.Trim(part, "{} ")) {
				member = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(member), "type "))
				if member == "" {
					continue
				}
				base, local := splitAliasByAs(member)
				if base != "" {
					names = append(names, parser.ImportedName{Name: base, Local: local})
				}
			}
			continue
		}

		if strings.HasPrefix(part, "*") {
			_, ns := splitAliasByAs(part)
			alias = ns
			continue
		}

		// default import; assume the default export shares the local name
		names = append(names, parser.ImportedName{Name: part})
	}
	return alias, names
}

func trimTypeAnnotation(raw string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), ":"))
}

func formatTypeScriptReturnType(raw string) string {
	value := trimTypeAnnotation(raw)
	if value == "" {
		return ""
	}
	return ": " + value
}

func splitTopLevelCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := make([]string, 0)
	depth := 0
	start := 0
	for i, ch := range raw {
		switch ch {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(raw[start:i]))
				start = i + 1
			}
		}
	}
	parts = append(parts, strings.TrimSpace(raw[start:]))
	return parts
}
