package languages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownParserCollectsHeaders(t *testing.T) {
	file, err := NewMarkdownParser().Parse("README.md", []byte("# Atlas\n\nIntro\n\n## Usage ##\n\n```sh\n# not a header\n```\n\n#### too deep\n### Flags\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"# Atlas", "## Usage", "### Flags"}, file.Sections)
	assert.Empty(t, file.Symbols)
}

func TestMarkdownParserCapsSectionCount(t *testing.T) {
	content := ""
	for i := 0; i < 15; i++ {
		content += "## Section\n"
	}
	file, err := NewMarkdownParser().Parse("doc.md", []byte(content))
	require.NoError(t, err)
	assert.Len(t, file.Sections, maxMarkdownSections)
}

func TestDefaultRegistryCoversBuiltInLanguages(t *testing.T) {
	r := NewDefaultRegistry()
	for _, name := range []string{"a.go", "b.py", "c.rb", "d.ts", "e.tsx", "f.js", "g.md"} {
		assert.True(t, r.Supports(name), name)
	}
	assert.False(t, r.Supports("h.rs"))

	file, err := r.Extract("h.rs", []byte("fn main() {}"))
	require.NoError(t, err)
	assert.Empty(t, file.Symbols)
}
