// Package config loads atlas settings from defaults, the project's
// .atlas/config file and ATLAS_* environment variables.
package config

import (
	"path/filepath"
	"runtime"
)

// Dir is the per-project directory holding the config file and the index.
const Dir = ".atlas"

// Config is the complete atlas configuration.
type Config struct {
	Index    IndexConfig    `yaml:"index" mapstructure:"index"`
	Scan     ScanConfig     `yaml:"scan" mapstructure:"scan"`
	Build    BuildConfig    `yaml:"build" mapstructure:"build"`
	Query    QueryConfig    `yaml:"query" mapstructure:"query"`
	DeadCode DeadCodeConfig `yaml:"dead_code" mapstructure:"dead_code"`
}

// IndexConfig locates the serialized index.
type IndexConfig struct {
	Output string `yaml:"output" mapstructure:"output"` // relative to the project root unless absolute
}

// ScanConfig controls which files are indexed.
type ScanConfig struct {
	Ignore         []string `yaml:"ignore" mapstructure:"ignore"`                   // extra gitignore-style rules
	GitIgnore      bool     `yaml:"gitignore" mapstructure:"gitignore"`             // honor the root .gitignore
	FollowSymlinks bool     `yaml:"follow_symlinks" mapstructure:"follow_symlinks"` // descend into symlinked directories
}

// BuildConfig tunes the build pipeline.
type BuildConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"` // parallel extraction workers
}

// QueryConfig sets traversal defaults.
type QueryConfig struct {
	MaxDepth int `yaml:"max_depth" mapstructure:"max_depth"` // 0 walks until closure
	Budget   int `yaml:"budget" mapstructure:"budget"`       // max nodes visited per traversal
}

// DeadCodeConfig tunes dead-code detection.
type DeadCodeConfig struct {
	EntryPoints         []string `yaml:"entry_points" mapstructure:"entry_points"`
	ExportedEntryPoints bool     `yaml:"exported_entry_points" mapstructure:"exported_entry_points"`
	ExcludeFiles        []string `yaml:"exclude_files" mapstructure:"exclude_files"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Index: IndexConfig{
			Output: filepath.Join(Dir, "index.json"),
		},
		Scan: ScanConfig{
			GitIgnore:      true,
			FollowSymlinks: true,
		},
		Build: BuildConfig{
			Workers: runtime.NumCPU(),
		},
		Query: QueryConfig{
			Budget: 50000,
		},
		DeadCode: DeadCodeConfig{
			ExportedEntryPoints: true,
		},
	}
}

// IndexPath resolves the index output path against root.
func (c *Config) IndexPath(root string) string {
	if filepath.IsAbs(c.Index.Output) {
		return c.Index.Output
	}
	return filepath.Join(root, c.Index.Output)
}
