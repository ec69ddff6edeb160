package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/skelly-dev/atlas/internal/config"
	"github.com/skelly-dev/atlas/internal/fileutil"
	"github.com/skelly-dev/atlas/internal/ignore"
	"github.com/spf13/cobra"
)

const configTemplate = `# atlas configuration. Every key can be overridden with ATLAS_* environment
# variables, e.g. ATLAS_BUILD_WORKERS=4.
index:
  output: .atlas/index.json
scan:
  ignore: []
  gitignore: true
  follow_symlinks: true
build:
  workers: 0 # 0 uses one worker per CPU
query:
  max_depth: 0 # 0 walks to closure
  budget: 50000
dead_code:
  entry_points: []
  exported_entry_points: true
  exclude_files: []
`

const ignoreTemplate = `# Extra paths to leave out of the index, one gitignore-style rule per line.
# Defaults such as node_modules/, vendor/ and .git/ are always applied.
`

func runInit(cmd *cobra.Command, opts *globalOptions) error {
	s, err := newSession(cmd, opts, "")
	if err != nil {
		return err
	}

	configPath := filepath.Join(s.root, config.Dir, "config.yaml")
	wrote, err := fileutil.WriteIfMissing(configPath, []byte(configTemplate), 0o644)
	if err != nil {
		return err
	}
	if wrote {
		fmt.Fprintf(s.errOut, "Wrote %s\n", configPath)
	}

	ignorePath := filepath.Join(s.root, ignore.FileName)
	if wrote, err = fileutil.WriteIfMissing(ignorePath, []byte(ignoreTemplate), 0o644); err != nil {
		return err
	}
	if wrote {
		fmt.Fprintf(s.errOut, "Wrote %s\n", ignorePath)
	}

	noBuild, err := cmd.Flags().GetBool("no-build")
	if err != nil {
		return fmt.Errorf("failed to read --no-build flag: %w", err)
	}
	if noBuild {
		return nil
	}

	// reload so the freshly written file applies
	if s, err = newSession(cmd, opts, ""); err != nil {
		return err
	}
	summary, err := buildIndex(cmd, s)
	if err != nil {
		return err
	}
	return s.emit(summary, func(w io.Writer) { printBuildSummary(w, summary) })
}
