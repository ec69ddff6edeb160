package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/skelly-dev/atlas/internal/codec"
	"github.com/skelly-dev/atlas/internal/fileutil"
	"github.com/skelly-dev/atlas/internal/ignore"
	"github.com/skelly-dev/atlas/internal/index"
	"github.com/skelly-dev/atlas/internal/languages"
	"github.com/skelly-dev/atlas/internal/parser"
	"github.com/skelly-dev/atlas/internal/query"
	"github.com/skelly-dev/atlas/internal/scanner"
	"github.com/spf13/cobra"
)

// Index states reported by status.
const (
	StateMissing      = "missing"
	StateIncompatible = "incompatible"
	StateStale        = "stale"
	StateFresh        = "fresh"
)

// StatusReport compares the stored index with the live tree.
type StatusReport struct {
	Mode            string              `json:"mode"`
	State           string              `json:"state"`
	RootPath        string              `json:"root_path"`
	Index           string              `json:"index"`
	Error           string              `json:"error,omitempty"`
	BuiltAt         string              `json:"built_at,omitempty"`
	BuildID         string              `json:"build_id,omitempty"`
	Revision        string              `json:"revision,omitempty"`
	Fingerprint     string              `json:"fingerprint,omitempty"`
	LiveFingerprint string              `json:"live_fingerprint,omitempty"`
	Stats           *index.Stats        `json:"stats,omitempty"`
	Changes         scanner.Changes     `json:"changes"`
	ImpactedFiles   []string            `json:"impacted_files,omitempty"`
	Warnings        []parser.ParseIssue `json:"warnings,omitempty"`
}

func runStatus(cmd *cobra.Command, opts *globalOptions) error {
	s, err := newSession(cmd, opts, "")
	if err != nil {
		return err
	}
	report, err := indexStatus(cmd, s)
	if err != nil {
		return err
	}
	return s.emit(report, func(w io.Writer) { printStatus(w, report) })
}

func indexStatus(cmd *cobra.Command, s *session) (StatusReport, error) {
	path, err := s.indexPath()
	if err != nil {
		return StatusReport{}, err
	}
	report := StatusReport{Mode: "status", RootPath: s.root, Index: path}

	idx, err := codec.Load(path)
	switch {
	case errors.Is(err, codec.ErrIndexMissing):
		report.State = StateMissing
		return report, nil
	case errors.Is(err, codec.ErrIndexIncompatible):
		report.State = StateIncompatible
		report.Error = err.Error()
		return report, nil
	case err != nil:
		return StatusReport{}, err
	}

	report.BuiltAt = idx.Meta.BuiltAt.Format(time.RFC3339)
	report.BuildID = idx.Meta.BuildID
	report.Revision = idx.Meta.Revision
	report.Fingerprint = idx.Meta.Fingerprint
	stats := idx.Stats()
	report.Stats = &stats
	report.Warnings = idx.Warnings

	registry := languages.NewDefaultRegistry()
	matcher, err := ignore.Load(s.root, ignore.Options{Rules: s.cfg.Scan.Ignore, GitIgnore: s.cfg.Scan.GitIgnore})
	if err != nil {
		return StatusReport{}, err
	}
	live, err := scanner.Scan(cmd.Context(), scanner.Options{
		Root:           s.root,
		Matcher:        matcher,
		Supports:       registry.Supports,
		FollowSymlinks: s.cfg.Scan.FollowSymlinks,
		Logger:         s.logger,
	})
	if err != nil {
		return StatusReport{}, fmt.Errorf("failed to scan %s: %w", s.root, err)
	}
	report.LiveFingerprint = live.Fingerprint

	recorded := make(map[string]string, len(idx.Files))
	for _, file := range idx.Files {
		recorded[file.Path] = file.Hash
	}
	current := scanner.HashFiles(s.root, live.Files)
	for _, warning := range idx.Warnings {
		// files that failed extraction were scanned but never recorded
		if _, ok := recorded[warning.File]; !ok {
			delete(current, warning.File)
		}
	}
	report.Changes = scanner.Diff(recorded, current)

	report.State = StateFresh
	if !report.Changes.Empty() || live.Fingerprint != idx.Meta.Fingerprint {
		report.State = StateStale
	}
	if !report.Changes.Empty() {
		engine, err := query.New(idx, s.queryOptions())
		if err != nil {
			return StatusReport{}, err
		}
		touched := append(append(append([]string(nil), report.Changes.Added...), report.Changes.Changed...), report.Changes.Deleted...)
		report.ImpactedFiles = engine.AffectedFiles(fileutil.DedupeStrings(touched))
	}
	return report, nil
}

func printStatus(w io.Writer, report StatusReport) {
	fmt.Fprintf(w, "index: %s (%s)\n", report.Index, report.State)
	switch report.State {
	case StateMissing:
		fmt.Fprintln(w, "run `atlas build` to create it")
		return
	case StateIncompatible:
		fmt.Fprintf(w, "error: %s\n", report.Error)
		fmt.Fprintln(w, "run `atlas build` to rebuild it")
		return
	}

	fmt.Fprintf(w, "built: %s", report.BuiltAt)
	if report.Revision != "" {
		fmt.Fprintf(w, " at %s", report.Revision)
	}
	fmt.Fprintln(w)
	if report.Stats != nil {
		fmt.Fprintf(w, "files=%d symbols=%d warnings=%d\n", report.Stats.Files, report.Stats.Symbols, report.Stats.Warnings)
	}
	fmt.Fprintf(w, "changes: %s\n", report.Changes)
	printPathList(w, "added", report.Changes.Added)
	printPathList(w, "changed", report.Changes.Changed)
	printPathList(w, "deleted", report.Changes.Deleted)
	printPathList(w, "impacted", report.ImpactedFiles)
}
