package resolve

import (
	"testing"

	"github.com/skelly-dev/atlas/internal/parser"
	"github.com/stretchr/testify/assert"
)

func importFixture() []parser.FileSymbols {
	paths := map[string]string{
		"pkg/__init__.py":          "python",
		"pkg/util.py":              "python",
		"pkg/sub/__init__.py":      "python",
		"pkg/sub/helpers.py":       "python",
		"pkg/sub/mod.py":           "python",
		"lib/os.py":                "python",
		"src/app.ts":               "typescript",
		"src/lib/helpers.js":       "javascript",
		"src/components/index.tsx": "typescript",
		"src/util.ts":              "typescript",
		"app/user.rb":              "ruby",
		"app/models/base.rb":       "ruby",
		"cmd/main.go":              "go",
		"internal/store/a.go":      "go",
		"internal/store/b.go":      "go",
		"internal/store.py":        "python",
	}
	order := []string{
		"app/models/base.rb", "app/user.rb", "cmd/main.go", "internal/store.py",
		"internal/store/a.go", "internal/store/b.go", "lib/os.py", "pkg/__init__.py",
		"pkg/sub/__init__.py", "pkg/sub/helpers.py", "pkg/sub/mod.py", "pkg/util.py",
		"src/app.ts", "src/components/index.tsx", "src/lib/helpers.js", "src/util.ts",
	}
	files := make([]parser.FileSymbols, 0, len(order))
	for _, p := range order {
		files = append(files, parser.FileSymbols{Path: p, Language: paths[p]})
	}
	return files
}

func resolveFrom(t *testing.T, files []parser.FileSymbols, from string, imp parser.Import) []string {
	t.Helper()
	table := newImportTable(files)
	id := -1
	for i, f := range files {
		if f.Path == from {
			id = i
		}
	}
	if id < 0 {
		t.Fatalf("no fixture file %s", from)
	}
	var out []string
	for _, target := range table.resolve(id, imp) {
		out = append(out, files[target].Path)
	}
	return out
}

func TestResolvePythonRelativeImports(t *testing.T) {
	files := importFixture()

	got := resolveFrom(t, files, "pkg/sub/mod.py", parser.Import{Path: "..util"})
	assert.Equal(t, []string{"pkg/util.py"}, got)

	got = resolveFrom(t, files, "pkg/sub/mod.py", parser.Import{
		Path:  ".",
		Names: []parser.ImportedName{{Name: "helpers", Local: "helpers"}},
	})
	assert.ElementsMatch(t, []string{"pkg/sub/__init__.py", "pkg/sub/helpers.py"}, got)

	got = resolveFrom(t, files, "pkg/sub/mod.py", parser.Import{Path: ".helpers"})
	assert.Equal(t, []string{"pkg/sub/helpers.py"}, got)
}

func TestResolvePythonAbsoluteImports(t *testing.T) {
	files := importFixture()

	assert.Equal(t, []string{"pkg/sub/mod.py"},
		resolveFrom(t, files, "pkg/util.py", parser.Import{Path: "pkg.sub.mod"}))
	assert.Equal(t, []string{"pkg/__init__.py"},
		resolveFrom(t, files, "pkg/util.py", parser.Import{Path: "pkg"}))
	// standard library names never bind to nested files
	assert.Empty(t, resolveFrom(t, files, "pkg/util.py", parser.Import{Path: "os"}))
}

func TestResolveJavaScriptImports(t *testing.T) {
	files := importFixture()

	assert.Equal(t, []string{"src/lib/helpers.js"},
		resolveFrom(t, files, "src/app.ts", parser.Import{Path: "./lib/helpers"}))
	assert.Equal(t, []string{"src/components/index.tsx"},
		resolveFrom(t, files, "src/app.ts", parser.Import{Path: "./components"}))
	assert.Equal(t, []string{"src/util.ts"},
		resolveFrom(t, files, "src/app.ts", parser.Import{Path: "./util.js"}))
	assert.Equal(t, []string{"src/components/index.tsx"},
		resolveFrom(t, files, "src/app.ts", parser.Import{Path: "@app/src/components"}))
	assert.Empty(t, resolveFrom(t, files, "src/app.ts", parser.Import{Path: "react"}))
}

func TestResolveRubyRequires(t *testing.T) {
	files := importFixture()

	assert.Equal(t, []string{"app/models/base.rb"},
		resolveFrom(t, files, "app/user.rb", parser.Import{Path: "./models/base"}))
	assert.Equal(t, []string{"app/models/base.rb"},
		resolveFrom(t, files, "app/user.rb", parser.Import{Path: "models/base"}))
	assert.Empty(t, resolveFrom(t, files, "app/user.rb", parser.Import{Path: "json"}))
}

func TestResolveGoImportsNameDirectories(t *testing.T) {
	files := importFixture()

	got := resolveFrom(t, files, "cmd/main.go", parser.Import{Path: "example.com/m/internal/store"})
	assert.Equal(t, []string{"internal/store/a.go", "internal/store/b.go"}, got)
	assert.Empty(t, resolveFrom(t, files, "cmd/main.go", parser.Import{Path: "net/http"}))
}

func TestContainerMatches(t *testing.T) {
	assert.True(t, containerMatches("User", "User"))
	assert.True(t, containerMatches("Admin::User", "User"))
	assert.True(t, containerMatches("models.User", "User"))
	assert.False(t, containerMatches("SuperUser", "User"))
	assert.False(t, containerMatches("", "User"))
}
