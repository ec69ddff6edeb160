package resolve

import (
	"testing"

	"github.com/skelly-dev/atlas/internal/index"
	"github.com/skelly-dev/atlas/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fn(name string, line int, calls ...parser.CallSite) parser.Symbol {
	return parser.Symbol{Name: name, Kind: parser.SymbolFunction, Line: line, Calls: calls}
}

func method(container, name string, line int, calls ...parser.CallSite) parser.Symbol {
	return parser.Symbol{Name: name, Container: container, Kind: parser.SymbolMethod, Line: line, Calls: calls}
}

func call(name string) parser.CallSite {
	return parser.CallSite{Name: name, Line: 1}
}

func qcall(qualifier, name string) parser.CallSite {
	return parser.CallSite{Name: name, Qualifier: qualifier, Line: 1}
}

func TestResolveTwoFileScenario(t *testing.T) {
	files := []parser.FileSymbols{
		{
			Path:     "x.py",
			Language: "python",
			Imports:  []parser.Import{{Path: "y", Names: []parser.ImportedName{{Name: "bar", Local: "bar"}}}},
			Symbols:  []parser.Symbol{fn("foo", 2, call("bar"))},
		},
		{Path: "y.py", Language: "python", Symbols: []parser.Symbol{fn("bar", 1)}},
	}

	res := Resolve(files)
	assert.Equal(t, []index.Edge{{Target: 1, Confidence: index.ConfidenceImport, Candidates: 1}}, res.Calls[0])
	assert.Empty(t, res.Unresolved[0])
	assert.Equal(t, [][]int{{1}}, res.ImportTargets[0])

	idx, err := index.Build(index.Input{Files: files, Resolution: res})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, idx.Symbols[1].Callers)
	assert.Equal(t, []int{1}, idx.Files[0].Deps)
}

func TestResolveTwoFileScenarioImportingCaller(t *testing.T) {
	// y imports x, so foo in x can only reach bar through the global table.
	files := []parser.FileSymbols{
		{Path: "x.py", Language: "python", Symbols: []parser.Symbol{fn("foo", 1, call("bar"))}},
		{
			Path:     "y.py",
			Language: "python",
			Imports:  []parser.Import{{Path: "x", Line: 1}},
			Symbols:  []parser.Symbol{fn("bar", 4)},
		},
	}

	res := Resolve(files)
	assert.Equal(t, []index.Edge{{Target: 1, Confidence: index.ConfidenceGlobal, Candidates: 1}}, res.Calls[0])
	assert.Empty(t, res.Unresolved[0])
	assert.Equal(t, [][]int{{0}}, res.ImportTargets[1])

	idx, err := index.Build(index.Input{Files: files, Resolution: res})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, idx.Symbols[1].Callers)
	assert.Empty(t, idx.Symbols[0].Callers)
	assert.Equal(t, []int{0}, idx.Files[1].Deps)
	assert.Empty(t, idx.Files[0].Deps)
}

func TestResolvePrefersSameFileDefinition(t *testing.T) {
	files := []parser.FileSymbols{
		{Path: "a.py", Language: "python", Symbols: []parser.Symbol{fn("helper", 1)}},
		{Path: "b.py", Language: "python", Symbols: []parser.Symbol{fn("run", 1, call("helper")), fn("helper", 5)}},
	}

	res := Resolve(files)
	assert.Equal(t, []index.Edge{{Target: 2, Confidence: index.ConfidenceLocal, Candidates: 1}}, res.Calls[1])
}

func TestResolveAmbiguousTakesFirstInScanOrder(t *testing.T) {
	files := []parser.FileSymbols{
		{Path: "a.py", Language: "python", Symbols: []parser.Symbol{fn("process", 1)}},
		{Path: "b.py", Language: "python", Symbols: []parser.Symbol{fn("process", 1)}},
		{Path: "c.py", Language: "python", Symbols: []parser.Symbol{fn("main", 1, call("process"))}},
	}

	res := Resolve(files)
	assert.Equal(t, []index.Edge{{Target: 0, Confidence: index.ConfidenceAmbiguous, Candidates: 2}}, res.Calls[2])
}

func TestResolveUniqueGlobalMatch(t *testing.T) {
	files := []parser.FileSymbols{
		{Path: "lib/util.py", Language: "python", Symbols: []parser.Symbol{fn("slugify", 1)}},
		{Path: "app.py", Language: "python", Symbols: []parser.Symbol{fn("main", 1, call("slugify"), call("print"))}},
	}

	res := Resolve(files)
	assert.Equal(t, []index.Edge{{Target: 0, Confidence: index.ConfidenceGlobal, Candidates: 1}}, res.Calls[1])
	assert.Equal(t, []string{"print"}, res.Unresolved[1])
}

func TestResolveExternalAliasStaysUnresolved(t *testing.T) {
	files := []parser.FileSymbols{
		{
			Path:     "main.go",
			Language: "go",
			Imports:  []parser.Import{{Path: "os", Alias: "os"}},
			Symbols:  []parser.Symbol{fn("main", 1, qcall("os", "Exit"))},
		},
		{Path: "lib/proc.go", Language: "go", Symbols: []parser.Symbol{method("Proc", "Exit", 3)}},
	}

	res := Resolve(files)
	assert.Empty(t, res.Calls[0])
	assert.Equal(t, []string{"os.Exit"}, res.Unresolved[0])
	assert.Equal(t, [][]int{nil}, res.ImportTargets[0])
}

func TestResolveExternalNamedImportStaysUnresolved(t *testing.T) {
	files := []parser.FileSymbols{
		{Path: "http.py", Language: "python", Symbols: []parser.Symbol{fn("get", 1)}},
		{
			Path:     "client.py",
			Language: "python",
			Imports:  []parser.Import{{Path: "requests", Names: []parser.ImportedName{{Name: "get", Local: "get"}}}},
			Symbols:  []parser.Symbol{fn("fetch", 1, call("get"))},
		},
	}

	res := Resolve(files)
	assert.Empty(t, res.Calls[1])
	assert.Equal(t, []string{"get"}, res.Unresolved[1])
}

func TestResolveReceiverScopedCalls(t *testing.T) {
	save := parser.CallSite{Name: "save", Qualifier: "self", Receiver: "Account", Line: 3}
	audit := parser.CallSite{Name: "audit", Qualifier: "self", Receiver: "Account", Line: 4}
	files := []parser.FileSymbols{
		{Path: "store.py", Language: "python", Symbols: []parser.Symbol{method("Store", "save", 1)}},
		{
			Path:     "account.py",
			Language: "python",
			Symbols: []parser.Symbol{
				method("Account", "deposit", 1, save, audit),
				method("Account", "save", 8),
			},
		},
		{Path: "base.py", Language: "python", Symbols: []parser.Symbol{method("Base", "audit", 1)}},
	}

	res := Resolve(files)
	assert.Equal(t, []index.Edge{
		{Target: 2, Confidence: index.ConfidenceLocal, Candidates: 1},
		{Target: 3, Confidence: index.ConfidenceGlobal, Candidates: 1},
	}, res.Calls[1])
}

func TestResolveGoPackageScope(t *testing.T) {
	files := []parser.FileSymbols{
		{
			Path:     "cmd/main.go",
			Language: "go",
			Imports:  []parser.Import{{Path: "example.com/m/pkg", Alias: "pkg"}},
			Symbols:  []parser.Symbol{fn("main", 1, qcall("pkg", "A"))},
		},
		{Path: "pkg/a.go", Language: "go", Symbols: []parser.Symbol{fn("A", 1, call("B"))}},
		{Path: "pkg/b.go", Language: "go", Symbols: []parser.Symbol{fn("B", 1)}},
	}

	res := Resolve(files)
	assert.ElementsMatch(t, []int{1, 2}, res.ImportTargets[0][0])
	assert.Equal(t, []index.Edge{{Target: 1, Confidence: index.ConfidenceImport, Candidates: 1}}, res.Calls[0])
	assert.Equal(t, []index.Edge{{Target: 2, Confidence: index.ConfidenceLocal, Candidates: 1}}, res.Calls[1])
}

func TestResolveGoReceiverAcrossPackageFiles(t *testing.T) {
	files := []parser.FileSymbols{
		{
			Path:     "srv/run.go",
			Language: "go",
			Symbols: []parser.Symbol{
				method("Server", "Run", 1, parser.CallSite{Name: "listen", Qualifier: "s", Receiver: "Server"}),
			},
		},
		{Path: "srv/net.go", Language: "go", Symbols: []parser.Symbol{method("Server", "listen", 1)}},
	}

	res := Resolve(files)
	assert.Equal(t, []index.Edge{{Target: 1, Confidence: index.ConfidenceLocal, Candidates: 1}}, res.Calls[0])
}

func TestResolveConstructorThroughNamedImport(t *testing.T) {
	files := []parser.FileSymbols{
		{
			Path:     "models.py",
			Language: "python",
			Symbols:  []parser.Symbol{method("User", "__init__", 2), method("User", "create", 6)},
		},
		{
			Path:     "app.py",
			Language: "python",
			Imports:  []parser.Import{{Path: "models", Names: []parser.ImportedName{{Name: "User", Local: "User"}}}},
			Symbols:  []parser.Symbol{fn("main", 1, call("User"), qcall("User", "create"))},
		},
	}

	res := Resolve(files)
	assert.Equal(t, []index.Edge{
		{Target: 0, Confidence: index.ConfidenceImport, Candidates: 1},
		{Target: 1, Confidence: index.ConfidenceImport, Candidates: 1},
	}, res.Calls[2])
}

func TestResolveQualifiedPrefersMatchingContainer(t *testing.T) {
	files := []parser.FileSymbols{
		{Path: "cache.rb", Language: "ruby", Symbols: []parser.Symbol{method("Cache", "fetch", 1)}},
		{Path: "store.rb", Language: "ruby", Symbols: []parser.Symbol{method("Admin::Store", "fetch", 1)}},
		{Path: "job.rb", Language: "ruby", Symbols: []parser.Symbol{fn("perform", 1, qcall("Store", "fetch"), qcall("obj", "fetch"))}},
	}

	res := Resolve(files)
	assert.Equal(t, []index.Edge{
		{Target: 1, Confidence: index.ConfidenceGlobal, Candidates: 1},
		{Target: 0, Confidence: index.ConfidenceAmbiguous, Candidates: 2},
	}, res.Calls[2])
}

func TestResolveRubyConstructor(t *testing.T) {
	files := []parser.FileSymbols{
		{Path: "user.rb", Language: "ruby", Symbols: []parser.Symbol{method("User", "initialize", 2)}},
		{Path: "app.rb", Language: "ruby", Symbols: []parser.Symbol{fn("boot", 1, qcall("User", "initialize"))}},
	}

	res := Resolve(files)
	assert.Equal(t, []index.Edge{{Target: 0, Confidence: index.ConfidenceGlobal, Candidates: 1}}, res.Calls[1])
}

func TestResolveDropsSelfRecursion(t *testing.T) {
	files := []parser.FileSymbols{
		{Path: "walk.py", Language: "python", Symbols: []parser.Symbol{fn("walk", 1, call("walk"))}},
	}

	res := Resolve(files)
	assert.Empty(t, res.Calls[0])
	assert.Empty(t, res.Unresolved[0])
}

func TestResolvePrefersLanguageFamily(t *testing.T) {
	files := []parser.FileSymbols{
		{Path: "tools/gen.py", Language: "python", Symbols: []parser.Symbol{fn("render", 1), fn("format", 5)}},
		{Path: "web/view.ts", Language: "typescript", Symbols: []parser.Symbol{fn("show", 1, call("render"), call("format"))}},
		{Path: "web/fmt.js", Language: "javascript", Symbols: []parser.Symbol{fn("format", 1)}},
	}

	res := Resolve(files)
	assert.Equal(t, []index.Edge{
		{Target: 0, Confidence: index.ConfidenceAmbiguous, Candidates: 1},
		{Target: 3, Confidence: index.ConfidenceGlobal, Candidates: 1},
	}, res.Calls[2])
	assert.Empty(t, res.Unresolved[2])
}

func TestResolveFallsBackAcrossKinds(t *testing.T) {
	files := []parser.FileSymbols{
		{Path: "a.rb", Language: "ruby", Symbols: []parser.Symbol{method("Foo", "run", 2, call("helper"))}},
		{Path: "b.rb", Language: "ruby", Symbols: []parser.Symbol{method("Util", "helper", 2)}},
	}

	res := Resolve(files)
	assert.Equal(t, []index.Edge{{Target: 1, Confidence: index.ConfidenceAmbiguous, Candidates: 1}}, res.Calls[0])
	assert.Empty(t, res.Unresolved[0])

	idx, err := index.Build(index.Input{Files: files, Resolution: res})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, idx.Symbols[1].Callers)
}

func TestResolveWildcardImport(t *testing.T) {
	files := []parser.FileSymbols{
		{Path: "helpers.py", Language: "python", Symbols: []parser.Symbol{fn("clean", 1)}},
		{Path: "other.py", Language: "python", Symbols: []parser.Symbol{fn("clean", 1)}},
		{
			Path:     "main.py",
			Language: "python",
			Imports:  []parser.Import{{Path: "helpers", Names: []parser.ImportedName{{Name: "*", Local: "*"}}}},
			Symbols:  []parser.Symbol{fn("main", 1, call("clean"))},
		},
	}

	res := Resolve(files)
	assert.Equal(t, []index.Edge{{Target: 0, Confidence: index.ConfidenceImport, Candidates: 1}}, res.Calls[2])
}

func TestResolveModuleAliasAndSubmodule(t *testing.T) {
	files := []parser.FileSymbols{
		{Path: "pkg/__init__.py", Language: "python"},
		{Path: "pkg/text.py", Language: "python", Symbols: []parser.Symbol{fn("wrap", 1)}},
		{
			Path:     "main.py",
			Language: "python",
			Imports:  []parser.Import{{Path: "pkg", Alias: "pkg"}},
			Symbols:  []parser.Symbol{fn("main", 1, qcall("pkg.text", "wrap"))},
		},
	}

	res := Resolve(files)
	assert.Equal(t, []index.Edge{{Target: 0, Confidence: index.ConfidenceImport, Candidates: 1}}, res.Calls[1])
}

func TestResolveEmptyInput(t *testing.T) {
	res := Resolve(nil)
	assert.Empty(t, res.Calls)
	assert.Empty(t, res.ImportTargets)

	idx, err := index.Build(index.Input{Resolution: res})
	require.NoError(t, err)
	assert.Empty(t, idx.Symbols)
}
