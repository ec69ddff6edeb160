package languages

import "github.com/skelly-dev/atlas/internal/parser"

// NewDefaultRegistry creates a registry with all supported language parsers
func NewDefaultRegistry() *parser.Registry {
	r := parser.NewRegistry()

	r.Register(NewGoParser())
	r.Register(NewPythonParser())
	r.Register(NewRubyParser())
	r.Register(NewTypeScriptParser())
	r.Register(NewShellParser())
	r.Register(NewMarkdownParser())

	return r
}
