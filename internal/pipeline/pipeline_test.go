package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/skelly-dev/atlas/internal/index"
	"github.com/skelly-dev/atlas/internal/languages"
	"github.com/skelly-dev/atlas/internal/parser"
	"github.com/skelly-dev/atlas/internal/query"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func symbolByName(t *testing.T, idx *index.Index, name string) (int, index.Symbol) {
	t.Helper()
	for id, sym := range idx.Symbols {
		if sym.Name == name {
			return id, sym
		}
	}
	t.Fatalf("symbol %s not found", name)
	return -1, index.Symbol{}
}

func TestRunTwoFileProject(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "x.py"), "from y import bar\n\n\ndef foo():\n    bar()\n")
	mustWriteFile(t, filepath.Join(root, "y.py"), "def bar():\n    return 1\n")
	mustWriteFile(t, filepath.Join(root, "node_modules", "dep", "z.py"), "def hidden():\n    pass\n")
	mustWriteFile(t, filepath.Join(root, "notes.txt"), "not source\n")

	var seen atomic.Int32
	builtAt := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	result, err := Run(context.Background(), Options{
		Root:    root,
		Workers: 2,
		Logger:  quietLogger(),
		OnFile:  func(string) { seen.Add(1) },
		Clock:   func() time.Time { return builtAt },
	})
	require.NoError(t, err)

	idx := result.Index
	require.Len(t, idx.Files, 2)
	assert.Equal(t, "x.py", idx.Files[0].Path)
	assert.Equal(t, "y.py", idx.Files[1].Path)
	assert.Equal(t, []int{1}, idx.Files[0].Deps)
	assert.Equal(t, 2, result.Scanned)
	assert.Equal(t, 2, result.Parsed)
	assert.EqualValues(t, 2, seen.Load())

	fooID, foo := symbolByName(t, idx, "foo")
	barID, bar := symbolByName(t, idx, "bar")
	require.Len(t, foo.Calls, 1)
	assert.Equal(t, barID, foo.Calls[0].Target)
	assert.Equal(t, index.ConfidenceImport, foo.Calls[0].Confidence)
	assert.Equal(t, []int{fooID}, bar.Callers)

	assert.Equal(t, builtAt, idx.Meta.BuiltAt)
	assert.NotEmpty(t, idx.Meta.BuildID)
	assert.NotEmpty(t, idx.Meta.Fingerprint)
	assert.NoError(t, idx.Validate())

	var passes []string
	for _, timing := range result.Timings {
		passes = append(passes, timing.Pass)
	}
	assert.Equal(t, []string{"scan", "extract", "resolve", "build"}, passes)
}

func TestRunTwoFileProjectImportedByCallee(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "x.py"), "def foo():\n    bar()\n")
	mustWriteFile(t, filepath.Join(root, "y.py"), "import x\n\n\ndef bar():\n    return 1\n")

	result, err := Run(context.Background(), Options{Root: root, Logger: quietLogger()})
	require.NoError(t, err)

	idx := result.Index
	assert.Equal(t, []int{0}, idx.Files[1].Deps)
	fooID, foo := symbolByName(t, idx, "foo")
	barID, bar := symbolByName(t, idx, "bar")
	require.Len(t, foo.Calls, 1)
	assert.Equal(t, barID, foo.Calls[0].Target)
	assert.Equal(t, index.ConfidenceGlobal, foo.Calls[0].Confidence)
	assert.Equal(t, []int{fooID}, bar.Callers)

	engine, err := query.New(idx, query.Options{})
	require.NoError(t, err)

	impact, err := engine.Impact(barID, query.Limits{Depth: 1})
	require.NoError(t, err)
	require.Len(t, impact.Nodes, 1)
	assert.Equal(t, fooID, impact.Nodes[0].Symbol.ID)

	dead, err := engine.DeadCode(query.DeadRequest{})
	require.NoError(t, err)
	require.Len(t, dead, 1, "bar has a caller, foo does not")
	assert.Equal(t, "foo", dead[0].Symbol.Name)
}

func TestRunHonorsIgnoreRules(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "keep.go"), "package main\n\nfunc main() {}\n")
	mustWriteFile(t, filepath.Join(root, "gen", "skip.go"), "package gen\n\nfunc Skip() {}\n")
	mustWriteFile(t, filepath.Join(root, ".gitignore"), "*.log\n")
	mustWriteFile(t, filepath.Join(root, "old.go"), "package main\n\nfunc old() {}\n")
	mustWriteFile(t, filepath.Join(root, ".atlasignore"), "old.go\n")

	result, err := Run(context.Background(), Options{
		Root:        root,
		IgnoreRules: []string{"gen/"},
		GitIgnore:   true,
		Logger:      quietLogger(),
	})
	require.NoError(t, err)
	require.Len(t, result.Index.Files, 1)
	assert.Equal(t, "keep.go", result.Index.Files[0].Path)
}

func TestRunCancelled(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "a.py"), "def a():\n    pass\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, Options{Root: root, Logger: quietLogger()})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunMissingRoot(t *testing.T) {
	_, err := Run(context.Background(), Options{Root: filepath.Join(t.TempDir(), "missing"), Logger: quietLogger()})
	assert.Error(t, err)
}

// toyParser understands a line language: "use <file>", "def <name>" and
// "call <name>".
type toyParser struct{}

func (toyParser) Language() string     { return "toy" }
func (toyParser) Extensions() []string { return []string{".toy"} }

func (toyParser) Parse(filename string, content []byte) (*parser.FileSymbols, error) {
	result := &parser.FileSymbols{Path: filename, Language: "toy"}
	for i, line := range strings.Split(string(content), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		switch fields[0] {
		case "use":
			result.Imports = append(result.Imports, parser.Import{Path: fields[1], Line: i + 1})
		case "def":
			result.Symbols = append(result.Symbols, parser.Symbol{Name: fields[1], Line: i + 1, Signature: line})
		case "call":
			if n := len(result.Symbols); n > 0 {
				result.Symbols[n-1].Calls = append(result.Symbols[n-1].Calls, parser.CallSite{Name: fields[1], Line: i + 1, Raw: fields[1]})
			}
		}
	}
	return result, nil
}

func TestRunWithAddedLanguagePlugin(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "a.toy"), "use b\ndef start\ncall helper\ncall missing\n")
	mustWriteFile(t, filepath.Join(root, "b.toy"), "def helper\n")

	registry := languages.NewDefaultRegistry()
	registry.Register(toyParser{})

	result, err := Run(context.Background(), Options{Root: root, Registry: registry, Logger: quietLogger()})
	require.NoError(t, err)

	idx := result.Index
	require.Len(t, idx.Files, 2)
	assert.Equal(t, "toy", idx.Files[0].Language)
	assert.Equal(t, []int{1}, idx.Files[0].Deps)

	startID, start := symbolByName(t, idx, "start")
	helperID, helper := symbolByName(t, idx, "helper")
	require.Len(t, start.Calls, 1)
	assert.Equal(t, helperID, start.Calls[0].Target)
	assert.Equal(t, index.ConfidenceGlobal, start.Calls[0].Confidence)
	assert.Equal(t, []string{"missing"}, start.Unresolved)
	assert.Equal(t, []int{startID}, helper.Callers)
}

func TestRunGoServiceTestdata(t *testing.T) {
	result, err := Run(context.Background(), Options{
		Root:   filepath.Join("testdata", "goservice"),
		Logger: quietLogger(),
	})
	require.NoError(t, err)

	idx := result.Index
	require.Len(t, idx.Files, 1)
	require.Len(t, idx.Symbols, 3, "interface methods are not definitions")

	runID, run := symbolByName(t, idx, "Run")
	assert.Equal(t, parser.SymbolMethod, run.Kind)
	helperID, helper := symbolByName(t, idx, "helper")
	logID, logStart := symbolByName(t, idx, "logStart")

	require.Len(t, run.Calls, 2)
	for _, call := range run.Calls {
		assert.Equal(t, index.ConfidenceLocal, call.Confidence)
	}
	assert.ElementsMatch(t, []int{helperID, logID}, []int{run.Calls[0].Target, run.Calls[1].Target})
	assert.Equal(t, []int{runID}, helper.Callers)
	assert.Equal(t, []int{runID}, logStart.Callers)
	assert.Equal(t, []string{"fmt.Println"}, helper.Unresolved)

	// fmt and context are standard library imports
	for _, imp := range idx.Files[0].Imports {
		assert.True(t, imp.External(), imp.Path)
	}
}
