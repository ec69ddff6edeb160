package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skelly-dev/atlas/internal/codec"
	"github.com/skelly-dev/atlas/internal/query"
)

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand("test")
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeProject lays out a small Python project: app.main calls
// service.handle, handle calls store.save, and store imports service back.
func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "app", "__init__.py"), "")
	mustWriteFile(t, filepath.Join(root, "app", "main.py"), `from app.service import handle


def main():
    handle(1)
`)
	mustWriteFile(t, filepath.Join(root, "app", "service.py"), `from app.store import save


def handle(item):
    """Process one item."""
    save(item)


def orphan():
    pass
`)
	mustWriteFile(t, filepath.Join(root, "app", "store.py"), `from app import service


def save(item):
    print(item)
`)
	return root
}

func buildProject(t *testing.T) string {
	t.Helper()
	root := writeProject(t)
	_, _, err := runCLI(t, "--root", root, "build")
	require.NoError(t, err)
	return root
}

func decodeJSON(t *testing.T, data string, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(data), v), data)
}

func TestBuildWritesIndex(t *testing.T) {
	root := writeProject(t)

	stdout, _, err := runCLI(t, "--root", root, "--json", "build")
	require.NoError(t, err)

	var summary BuildSummary
	decodeJSON(t, stdout, &summary)
	assert.Equal(t, "build", summary.Mode)
	assert.Equal(t, 4, summary.Files)
	assert.Equal(t, 4, summary.Symbols)
	assert.Equal(t, 2, summary.Resolved["import"])
	assert.Len(t, summary.Passes, 4)

	idx, err := codec.Load(filepath.Join(root, ".atlas", "index.json"))
	require.NoError(t, err)
	assert.Len(t, idx.Symbols, 4)
}

func TestBuildTextSummaryAndCustomIndexPath(t *testing.T) {
	root := writeProject(t)
	out := filepath.Join(t.TempDir(), "custom.json")

	stdout, _, err := runCLI(t, "--root", root, "--index", out, "build")
	require.NoError(t, err)
	assert.Contains(t, stdout, "build complete")
	assert.Contains(t, stdout, "output: "+out)
	assert.FileExists(t, out)

	stdout, _, err = runCLI(t, "--root", root, "--index", out, "symbol", "handle")
	require.NoError(t, err)
	assert.Contains(t, stdout, "app/service.py:4")
}

func TestQueriesWithoutIndex(t *testing.T) {
	root := writeProject(t)

	_, _, err := runCLI(t, "--root", root, "search", "handle")
	require.ErrorIs(t, err, codec.ErrIndexMissing)
	assert.Contains(t, err.Error(), "atlas build")

	stdout, _, err := runCLI(t, "--root", root, "--json", "status")
	require.NoError(t, err)
	var report StatusReport
	decodeJSON(t, stdout, &report)
	assert.Equal(t, StateMissing, report.State)
}

func TestStatusFreshThenStale(t *testing.T) {
	root := buildProject(t)

	stdout, _, err := runCLI(t, "--root", root, "--json", "status")
	require.NoError(t, err)
	var report StatusReport
	decodeJSON(t, stdout, &report)
	assert.Equal(t, StateFresh, report.State)
	assert.True(t, report.Changes.Empty())

	mustWriteFile(t, filepath.Join(root, "app", "store.py"), "def save(item):\n    return item\n")
	mustWriteFile(t, filepath.Join(root, "app", "extra.py"), "def extra():\n    pass\n")
	require.NoError(t, os.Remove(filepath.Join(root, "app", "main.py")))

	stdout, _, err = runCLI(t, "--root", root, "--json", "status")
	require.NoError(t, err)
	report = StatusReport{}
	decodeJSON(t, stdout, &report)
	assert.Equal(t, StateStale, report.State)
	assert.Equal(t, []string{"app/extra.py"}, report.Changes.Added)
	assert.Equal(t, []string{"app/store.py"}, report.Changes.Changed)
	assert.Equal(t, []string{"app/main.py"}, report.Changes.Deleted)
	assert.Contains(t, report.ImpactedFiles, "app/service.py")

	stdout, _, err = runCLI(t, "--root", root, "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "(stale)")
	assert.Contains(t, stdout, "changed (1): app/store.py")
}

func TestStatusIncompatible(t *testing.T) {
	root := writeProject(t)
	mustWriteFile(t, filepath.Join(root, ".atlas", "index.json"), `{"v":"other/9"}`)

	stdout, _, err := runCLI(t, "--root", root, "--json", "status")
	require.NoError(t, err)
	var report StatusReport
	decodeJSON(t, stdout, &report)
	assert.Equal(t, StateIncompatible, report.State)
	assert.NotEmpty(t, report.Error)

	_, _, err = runCLI(t, "--root", root, "dirs")
	assert.ErrorIs(t, err, codec.ErrIndexIncompatible)
}

func TestSearchCommand(t *testing.T) {
	root := buildProject(t)

	stdout, _, err := runCLI(t, "--root", root, "--json", "search", "HAND")
	require.NoError(t, err)
	var result query.SearchResult
	decodeJSON(t, stdout, &result)
	require.Len(t, result.Symbols, 1)
	assert.Equal(t, "handle", result.Symbols[0].Name)
	assert.Equal(t, "def handle(item)", result.Symbols[0].Signature)

	stdout, _, err = runCLI(t, "--root", root, "search", "--files", "store")
	require.NoError(t, err)
	assert.Contains(t, stdout, "app/store.py")

	_, _, err = runCLI(t, "--root", root, "search", "--regex", "(")
	assert.ErrorIs(t, err, query.ErrInvalidPattern)
}

func TestNeighborCommands(t *testing.T) {
	root := buildProject(t)

	stdout, _, err := runCLI(t, "--root", root, "--json", "callers", "save")
	require.NoError(t, err)
	var callers []query.EdgeRecord
	decodeJSON(t, stdout, &callers)
	require.Len(t, callers, 1)
	assert.Equal(t, "handle", callers[0].Symbol.Name)
	assert.Equal(t, "import", callers[0].Confidence)

	stdout, _, err = runCLI(t, "--root", root, "callees", "app/store.py:save")
	require.NoError(t, err)
	assert.Contains(t, stdout, "no callees found")
	assert.Contains(t, stdout, "unresolved (1): print")

	_, _, err = runCLI(t, "--root", root, "callers", "sav")
	assert.ErrorIs(t, err, query.ErrSymbolNotFound)
	assert.Contains(t, err.Error(), "did you mean")
}

func TestTraversalCommands(t *testing.T) {
	root := buildProject(t)

	stdout, _, err := runCLI(t, "--root", root, "--json", "impact", "save")
	require.NoError(t, err)
	var impact query.Traversal
	decodeJSON(t, stdout, &impact)
	require.Len(t, impact.Nodes, 2)
	assert.Equal(t, "handle", impact.Nodes[0].Symbol.Name)
	assert.Equal(t, "main", impact.Nodes[1].Symbol.Name)

	stdout, _, err = runCLI(t, "--root", root, "--json", "impact", "save", "--depth", "1")
	require.NoError(t, err)
	impact = query.Traversal{}
	decodeJSON(t, stdout, &impact)
	assert.Len(t, impact.Nodes, 1)

	stdout, _, err = runCLI(t, "--root", root, "trace", "main", "--budget", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "d=1")
	assert.Contains(t, stdout, "truncated")

	stdout, _, err = runCLI(t, "--root", root, "path", "main", "save")
	require.NoError(t, err)
	assert.Contains(t, stdout, "length=2")

	_, _, err = runCLI(t, "--root", root, "trace", "main", "--depth", "-1")
	assert.Error(t, err)
}

func TestDeadCyclesDepsDirs(t *testing.T) {
	root := buildProject(t)

	stdout, _, err := runCLI(t, "--root", root, "--json", "dead")
	require.NoError(t, err)
	var dead []query.DeadSymbol
	decodeJSON(t, stdout, &dead)
	require.Len(t, dead, 1)
	assert.Equal(t, "orphan", dead[0].Symbol.Name)

	stdout, _, err = runCLI(t, "--root", root, "--json", "dead", "--entry", "orph*")
	require.NoError(t, err)
	assert.Equal(t, "[]", trimJSON(stdout))

	stdout, _, err = runCLI(t, "--root", root, "--json", "cycles")
	require.NoError(t, err)
	var cycles query.CycleResult
	decodeJSON(t, stdout, &cycles)
	require.Len(t, cycles.Cycles, 1)
	assert.ElementsMatch(t, []string{"app/service.py", "app/store.py"}, cycles.Cycles[0].Files)

	stdout, _, err = runCLI(t, "--root", root, "deps", "app/service.py")
	require.NoError(t, err)
	assert.Contains(t, stdout, "app.store -> app/store.py")
	assert.Contains(t, stdout, "dependents (2)")

	_, _, err = runCLI(t, "--root", root, "deps", "missing.py")
	assert.ErrorIs(t, err, query.ErrUnknownFile)

	stdout, _, err = runCLI(t, "--root", root, "dirs")
	require.NoError(t, err)
	assert.Contains(t, stdout, "app/ files=4")
}

func TestInitWritesConfigAndBuilds(t *testing.T) {
	root := writeProject(t)

	_, stderr, err := runCLI(t, "--root", root, "init")
	require.NoError(t, err)
	assert.Contains(t, stderr, "config.yaml")
	assert.FileExists(t, filepath.Join(root, ".atlas", "config.yaml"))
	assert.FileExists(t, filepath.Join(root, ".atlasignore"))
	assert.FileExists(t, filepath.Join(root, ".atlas", "index.json"))

	// second run keeps the existing files
	mustWriteFile(t, filepath.Join(root, ".atlasignore"), "app/store.py\n")
	_, _, err = runCLI(t, "--root", root, "init", "--no-build")
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(root, ".atlasignore"))
	require.NoError(t, err)
	assert.Equal(t, "app/store.py\n", string(data))
}

func TestVersion(t *testing.T) {
	stdout, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "atlas test\n", stdout)
}

func trimJSON(s string) string {
	return string(bytes.TrimSpace([]byte(s)))
}
