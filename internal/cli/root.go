package cli

import (
	"fmt"

	"github.com/skelly-dev/atlas/internal/query"
	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	root      string
	indexPath string
	asJSON    bool
	verbose   bool
}

func NewRootCommand(version string) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "atlas",
		Short: "Build and query a code intelligence index",
		Long: `Atlas extracts functions, call relationships, import dependencies and
directory summaries from a source tree into one compact index, then answers
questions about it without re-parsing source: search, callers and callees,
impact radius, call traces, dead code and import cycles.

The index is written to .atlas/index.json by default.`,
		SilenceUsage: true,
	}
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.root, "root", "C", ".", "Project root directory")
	flags.StringVar(&opts.indexPath, "index", "", "Index file path (default from config, .atlas/index.json)")
	flags.BoolVar(&opts.asJSON, "json", false, "Print machine-readable output")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug details to stderr")

	// Build Commands
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create .atlas/config.yaml and .atlasignore with defaults",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return runInit(cmd, opts) },
	}
	initCmd.Flags().Bool("no-build", false, "Write config only, skip the initial build")

	buildCmd := &cobra.Command{
		Use:   "build [path]",
		Short: "Scan, extract, resolve and write the index",
		Args:  cobra.MaximumNArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return runBuild(cmd, opts, args) },
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether the index is missing, incompatible, stale or fresh",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return runStatus(cmd, opts) },
	}

	// Query Commands
	searchCmd := &cobra.Command{
		Use:   "search <pattern>",
		Short: "Match file paths and symbol names (case-insensitive)",
		Args:  cobra.ExactArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return runSearch(cmd, opts, args) },
	}
	searchCmd.Flags().Bool("regex", false, "Treat the pattern as a regular expression")
	searchCmd.Flags().Bool("files", false, "Search file paths only")
	searchCmd.Flags().Bool("symbols", false, "Search symbol names only")
	searchCmd.Flags().Int("limit", 50, "Maximum matches per kind (0 for all)")

	symbolCmd := &cobra.Command{
		Use:   "symbol <ref>",
		Short: "Show symbols matching #id, name, Container.name, path:name or path:line",
		Args:  cobra.ExactArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return runSymbol(cmd, opts, args) },
	}

	callersCmd := &cobra.Command{
		Use:   "callers <ref>",
		Short: "Show direct callers of a symbol",
		Args:  cobra.ExactArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return runNeighbors(cmd, opts, args, query.Callers) },
	}

	calleesCmd := &cobra.Command{
		Use:   "callees <ref>",
		Short: "Show direct callees and unresolved calls of a symbol",
		Args:  cobra.ExactArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return runNeighbors(cmd, opts, args, query.Callees) },
	}

	impactCmd := &cobra.Command{
		Use:   "impact <ref>",
		Short: "Show every symbol that transitively calls a symbol",
		Args:  cobra.ExactArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return runTraversal(cmd, opts, args, query.Callers) },
	}
	addLimitFlags(impactCmd)

	traceCmd := &cobra.Command{
		Use:   "trace <ref>",
		Short: "Show every symbol a symbol transitively calls",
		Args:  cobra.ExactArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return runTraversal(cmd, opts, args, query.Callees) },
	}
	addLimitFlags(traceCmd)

	pathCmd := &cobra.Command{
		Use:   "path <from> <to>",
		Short: "Find the shortest call path between two symbols",
		Args:  cobra.ExactArgs(2),
		RunE:  func(cmd *cobra.Command, args []string) error { return runPath(cmd, opts, args) },
	}
	addLimitFlags(pathCmd)

	deadCmd := &cobra.Command{
		Use:   "dead",
		Short: "Rank symbols without callers that are not entry points",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return runDead(cmd, opts) },
	}
	deadCmd.Flags().StringSlice("entry", nil, "Extra entry point name globs")
	deadCmd.Flags().Int("limit", 0, "Maximum symbols to report (0 for all)")

	cyclesCmd := &cobra.Command{
		Use:   "cycles",
		Short: "Report import cycles between files",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return runCycles(cmd, opts) },
	}
	cyclesCmd.Flags().Int("budget", 0, "Maximum files visited (0 for the configured default)")

	depsCmd := &cobra.Command{
		Use:   "deps <file>",
		Short: "Show imports, dependencies and dependents of a file",
		Args:  cobra.ExactArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return runDeps(cmd, opts, args) },
	}

	dirsCmd := &cobra.Command{
		Use:   "dirs",
		Short: "List indexed directories with their inferred purpose",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return runDirs(cmd, opts) },
	}

	// Additional Commands
	installHookCmd := &cobra.Command{
		Use:   "install-hook",
		Short: "Install a git pre-commit hook that rebuilds the index",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return runInstallHook(cmd, opts) },
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "atlas %s\n", version)
		},
	}

	rootCmd.AddCommand(
		initCmd,
		buildCmd,
		statusCmd,
		searchCmd,
		symbolCmd,
		callersCmd,
		calleesCmd,
		impactCmd,
		traceCmd,
		pathCmd,
		deadCmd,
		cyclesCmd,
		depsCmd,
		dirsCmd,
		installHookCmd,
		versionCmd,
	)

	return rootCmd
}

func addLimitFlags(cmd *cobra.Command) {
	cmd.Flags().Int("depth", 0, "Traversal depth (0 for the configured default, which walks to closure)")
	cmd.Flags().Int("budget", 0, "Maximum symbols visited (0 for the configured default)")
}
