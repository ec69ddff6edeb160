package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ATLAS_BUILD_WORKERS.
const EnvPrefix = "ATLAS"

var keys = []string{
	"index.output",
	"scan.ignore",
	"scan.gitignore",
	"scan.follow_symlinks",
	"build.workers",
	"query.max_depth",
	"query.budget",
	"dead_code.entry_points",
	"dead_code.exported_entry_points",
	"dead_code.exclude_files",
}

// Load reads configuration with the following priority (highest first):
// 1. Environment variables (ATLAS_*)
// 2. Config file (.atlas/config.yaml, .yml, .toml or .json)
// 3. Default values
func Load(root string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.AddConfigPath(filepath.Join(root, Dir))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("index.output", defaults.Index.Output)

	v.SetDefault("scan.ignore", defaults.Scan.Ignore)
	v.SetDefault("scan.gitignore", defaults.Scan.GitIgnore)
	v.SetDefault("scan.follow_symlinks", defaults.Scan.FollowSymlinks)

	v.SetDefault("build.workers", defaults.Build.Workers)

	v.SetDefault("query.max_depth", defaults.Query.MaxDepth)
	v.SetDefault("query.budget", defaults.Query.Budget)

	v.SetDefault("dead_code.entry_points", defaults.DeadCode.EntryPoints)
	v.SetDefault("dead_code.exported_entry_points", defaults.DeadCode.ExportedEntryPoints)
	v.SetDefault("dead_code.exclude_files", defaults.DeadCode.ExcludeFiles)
}
