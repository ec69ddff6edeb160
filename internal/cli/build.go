package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/skelly-dev/atlas/internal/codec"
	"github.com/skelly-dev/atlas/internal/pipeline"
	"github.com/spf13/cobra"
)

// BuildSummary reports one build.
type BuildSummary struct {
	Mode        string                `json:"mode"`
	RootPath    string                `json:"root_path"`
	Output      string                `json:"output"`
	Scanned     int                   `json:"scanned"`
	Parsed      int                   `json:"parsed"`
	Files       int                   `json:"files"`
	Symbols     int                   `json:"symbols"`
	Resolved    map[string]int        `json:"resolved"`
	Unresolved  int                   `json:"unresolved"`
	ImportEdges int                   `json:"import_edges"`
	External    int                   `json:"external_imports"`
	Warnings    int                   `json:"warnings"`
	Revision    string                `json:"revision,omitempty"`
	DurationMS  int64                 `json:"duration_ms"`
	Passes      []pipeline.PassTiming `json:"passes"`
}

func runBuild(cmd *cobra.Command, opts *globalOptions, args []string) error {
	root := ""
	if len(args) > 0 {
		root = args[0]
	}
	s, err := newSession(cmd, opts, root)
	if err != nil {
		return err
	}
	summary, err := buildIndex(cmd, s)
	if err != nil {
		return err
	}
	return s.emit(summary, func(w io.Writer) { printBuildSummary(w, summary) })
}

func buildIndex(cmd *cobra.Command, s *session) (BuildSummary, error) {
	start := time.Now()
	output, err := s.indexPath()
	if err != nil {
		return BuildSummary{}, err
	}

	progress := newExtractProgress(s.errOut, s.opts.asJSON)
	result, err := pipeline.Run(cmd.Context(), pipeline.Options{
		Root:           s.root,
		IgnoreRules:    s.cfg.Scan.Ignore,
		GitIgnore:      s.cfg.Scan.GitIgnore,
		FollowSymlinks: s.cfg.Scan.FollowSymlinks,
		Workers:        s.cfg.Build.Workers,
		Logger:         s.logger,
		OnScanned:      progress.Start,
		OnFile:         progress.Advance,
	})
	progress.Finish()
	if err != nil {
		return BuildSummary{}, err
	}

	if err := codec.Save(output, result.Index); err != nil {
		return BuildSummary{}, err
	}

	stats := result.Index.Stats()
	return BuildSummary{
		Mode:        "build",
		RootPath:    s.root,
		Output:      output,
		Scanned:     result.Scanned,
		Parsed:      result.Parsed,
		Files:       stats.Files,
		Symbols:     stats.Symbols,
		Resolved:    stats.Resolved,
		Unresolved:  stats.Unresolved,
		ImportEdges: stats.ImportEdges,
		External:    stats.External,
		Warnings:    stats.Warnings,
		Revision:    result.Index.Meta.Revision,
		DurationMS:  time.Since(start).Milliseconds(),
		Passes:      result.Timings,
	}, nil
}

func printBuildSummary(w io.Writer, summary BuildSummary) {
	fmt.Fprintf(w, "build complete in %dms\n", summary.DurationMS)
	fmt.Fprintf(w, "output: %s\n", summary.Output)
	fmt.Fprintf(w, "files: scanned=%d parsed=%d\n", summary.Scanned, summary.Parsed)
	fmt.Fprintf(w, "symbols: %d\n", summary.Symbols)
	fmt.Fprintf(w, "calls: %s unresolved=%d\n", formatCounts(summary.Resolved), summary.Unresolved)
	fmt.Fprintf(w, "imports: %d (%d external)\n", summary.ImportEdges, summary.External)
	if summary.Warnings > 0 {
		fmt.Fprintf(w, "warnings: %d (see `atlas status --json`)\n", summary.Warnings)
	}
}
