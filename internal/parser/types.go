package parser

import "strings"

// SymbolKind represents the type of callable symbol
type SymbolKind int

const (
	SymbolFunction SymbolKind = iota
	SymbolMethod
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolFunction:
		return "func"
	case SymbolMethod:
		return "method"
	default:
		return "unknown"
	}
}

// ParseSymbolKind is the inverse of SymbolKind.String.
func ParseSymbolKind(value string) (SymbolKind, bool) {
	switch value {
	case "func":
		return SymbolFunction, true
	case "method":
		return SymbolMethod, true
	}
	return SymbolFunction, false
}

// Param is one declared parameter. Type is empty when the language or the
// declaration carries no annotation.
type Param struct {
	Name string
	Type string
}

// CallSite captures a function/method invocation discovered inside a symbol body.
type CallSite struct {
	Name      string
	Qualifier string // text left of the last selector, e.g. "os" in os.Exit
	Receiver  string // enclosing container when called through self/this/cls or the Go receiver
	Arity     int
	Line      int
	Raw       string
}

// QualifiedName returns qualifier.name, or name for unqualified calls.
func (c CallSite) QualifiedName() string {
	if c.Qualifier == "" {
		return c.Name
	}
	return c.Qualifier + "." + c.Name
}

// Symbol is a function or method definition as written in one file.
// Calls are raw and unresolved.
type Symbol struct {
	Name      string
	Container string // class, module or receiver type; empty for free functions
	Kind      SymbolKind
	Signature string
	Line      int
	Params    []Param
	Returns   string
	Doc       string
	Calls     []CallSite
}

// QualifiedName returns Container.Name for methods and Name otherwise.
func (s Symbol) QualifiedName() string {
	if s.Container == "" {
		return s.Name
	}
	return s.Container + "." + s.Name
}

// ImportedName is a single name bound by an import statement.
// `from util import foo as bar` yields {Name: "foo", Local: "bar"}.
type ImportedName struct {
	Name  string
	Local string
}

// Import is one import/require statement target.
type Import struct {
	Path  string         // module/package path as written
	Alias string         // local name bound to the module itself, if any
	Names []ImportedName // individually imported names
	Line  int
}

// ImportedNames returns the original names of individually imported symbols.
func (i Import) ImportedNames() []string {
	if len(i.Names) == 0 {
		return nil
	}
	out := make([]string, 0, len(i.Names))
	for _, name := range i.Names {
		out = append(out, name.Name)
	}
	return out
}

// IsRelative reports whether the import path is written relative to the
// importing file (./x, ../x, or Python's leading dots).
func (i Import) IsRelative() bool {
	return strings.HasPrefix(i.Path, ".")
}

// FileSymbols holds everything extracted from a single file
type FileSymbols struct {
	Path     string
	Language string
	Symbols  []Symbol
	Imports  []Import
	Sections []string // document headers, for documentation files
	Hash     string   // content hash
}

// ParseIssue captures non-fatal problems encountered while scanning or
// extracting files.
type ParseIssue struct {
	File     string `json:"file"`
	Language string `json:"language,omitempty"`
	Severity string `json:"severity"` // warning | error
	Message  string `json:"message"`
}
