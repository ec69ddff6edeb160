package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferFilePurpose(t *testing.T) {
	cases := map[string]string{
		"src/index.ts":           "Application entry point",
		"cmd/atlas/main.go":      "Application entry point",
		"app.py":                 "Application entry point",
		"pkg/scanner_test.go":    "Test file",
		"config/settings.py":     "Configuration",
		"web/routes.rb":          "Route definitions",
		"db/user_model.py":       "Data model",
		"lib/string_utils.js":    "Utility functions",
		"server/middleware.go":   "Middleware",
		"internal/query/dead.go": "",
	}
	for path, want := range cases {
		assert.Equal(t, want, InferFilePurpose(path), path)
	}
}

func TestInferDirectoryPurpose(t *testing.T) {
	assert.Equal(t, "Authentication and authorization logic", InferDirectoryPurpose("app/auth", nil))
	assert.Equal(t, "Data models and database schemas", InferDirectoryPurpose("models", []string{"models/user.py"}))
	assert.Equal(t, "Middleware functions and handlers", InferDirectoryPurpose("http_middleware", nil))
	assert.Equal(t, "Test files and test utilities",
		InferDirectoryPurpose("checks", []string{"checks/a_test.go", "checks/b.go"}))
	assert.Equal(t, "UI components",
		InferDirectoryPurpose("web/widgets", []string{"web/widgets/ButtonComponent.tsx"}))
	assert.Equal(t, "Files about parser, registry",
		InferDirectoryPurpose("front", []string{"front/parser.go", "front/parsers.go", "front/registry.go"}))
	assert.Equal(t, "", InferDirectoryPurpose("empty", nil))
}

func TestDirectoryTreeIncludesAncestors(t *testing.T) {
	idx := &Index{Files: []File{
		{Path: "README.md"},
		{Path: "internal/query/engine.go"},
		{Path: "internal/query/search.go"},
		{Path: "cmd/atlas/main.go"},
	}}

	assert.Equal(t, []TreeEntry{
		{Path: ".", Files: 1},
		{Path: "cmd", Files: 0},
		{Path: "cmd/atlas", Files: 1},
		{Path: "internal", Files: 0},
		{Path: "internal/query", Files: 2},
	}, DirectoryTree(idx))

	purposes := DirectoryPurposes(idx)
	assert.Equal(t, "Command entry points", purposes["cmd"])
	assert.Equal(t, "Private application packages", purposes["internal"])
	assert.Equal(t, "Files about engine, search", purposes["internal/query"])
}

func TestSplitIdentifier(t *testing.T) {
	assert.Equal(t, []string{"http", "server", "config"}, splitIdentifier("HTTPServer_config"))
	assert.Equal(t, []string{"parse", "file", "v2"}, splitIdentifier("parse-file.v2"))
}
