package languages

import (
	"testing"

	"github.com/skelly-dev/atlas/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pythonSource = `from util import foo as myfoo, bar
import os.path
import numpy as np
from . import sibling

class Greeter:
    def greet(self, name: str, times=1) -> str:
        """Say hello.

        Longer text.
        """
        self.render(name)
        myfoo()
        return np.array(name)

    def render(self, name):
        pass

def run(*args, **kwargs):
    def inner():
        bar()
    inner()
`

func TestPythonFromImportCapturesAliasedMembers(t *testing.T) {
	file, err := NewPythonParser().Parse("main.py", []byte(pythonSource))
	require.NoError(t, err)

	require.Len(t, file.Imports, 4)
	assert.Equal(t, "util", file.Imports[0].Path)
	assert.Equal(t, "", file.Imports[0].Alias)
	assert.Equal(t, []parser.ImportedName{{Name: "foo", Local: "myfoo"}, {Name: "bar"}}, file.Imports[0].Names)

	assert.Equal(t, parser.Import{Path: "os.path", Alias: "os.path", Line: 2}, file.Imports[1])
	assert.Equal(t, parser.Import{Path: "numpy", Alias: "np", Line: 3}, file.Imports[2])

	assert.Equal(t, ".", file.Imports[3].Path)
	assert.True(t, file.Imports[3].IsRelative())
	assert.Equal(t, []string{"sibling"}, file.Imports[3].ImportedNames())
}

func TestPythonMethodsBelongToTheirClass(t *testing.T) {
	file, err := NewPythonParser().Parse("main.py", []byte(pythonSource))
	require.NoError(t, err)

	names := make([]string, 0, len(file.Symbols))
	for _, sym := range file.Symbols {
		names = append(names, sym.QualifiedName())
	}
	assert.Equal(t, []string{"Greeter.greet", "Greeter.render", "run"}, names, "nested functions are not symbols")

	greet := findSymbol(t, file.Symbols, "greet")
	assert.Equal(t, parser.SymbolMethod, greet.Kind)
	assert.Equal(t, "def greet(self, name: str, times=1) -> str", greet.Signature)
	assert.Equal(t, []parser.Param{{Name: "self"}, {Name: "name", Type: "str"}, {Name: "times"}}, greet.Params)
	assert.Equal(t, "str", greet.Returns)
	assert.Equal(t, "Say hello.", greet.Doc)

	calls := callsByName(greet.Calls)
	require.Contains(t, calls, "render")
	assert.Equal(t, "Greeter", calls["render"].Receiver)
	require.Contains(t, calls, "myfoo")
	assert.Empty(t, calls["myfoo"].Qualifier)
	require.Contains(t, calls, "array")
	assert.Equal(t, "np", calls["array"].Qualifier)
}

func TestPythonNestedFunctionCallsAttributeToEnclosingSymbol(t *testing.T) {
	file, err := NewPythonParser().Parse("main.py", []byte(pythonSource))
	require.NoError(t, err)

	run := findSymbol(t, file.Symbols, "run")
	assert.Equal(t, []parser.Param{{Name: "*args"}, {Name: "**kwargs"}}, run.Params)

	calls := callsByName(run.Calls)
	assert.Contains(t, calls, "bar")
	assert.Contains(t, calls, "inner")
}
