// Package pipeline builds an index from a source tree: scan, parallel
// extraction, resolution and assembly, timed and logged per pass.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/skelly-dev/atlas/internal/gitinfo"
	"github.com/skelly-dev/atlas/internal/ignore"
	"github.com/skelly-dev/atlas/internal/index"
	"github.com/skelly-dev/atlas/internal/languages"
	"github.com/skelly-dev/atlas/internal/parser"
	"github.com/skelly-dev/atlas/internal/resolve"
	"github.com/skelly-dev/atlas/internal/scanner"
)

// Options configures one build.
type Options struct {
	Root           string
	Registry       *parser.Registry // nil uses every built-in language
	IgnoreRules    []string
	GitIgnore      bool
	FollowSymlinks bool
	Workers        int // 0 uses one worker per CPU
	Logger         *slog.Logger

	OnScanned func(files int)   // called once the file list is known
	OnFile    func(path string) // called as each file is extracted, from worker goroutines
	Clock     func() time.Time
}

// PassTiming is how long one pass took.
type PassTiming struct {
	Pass    string        `json:"pass"`
	Elapsed time.Duration `json:"elapsed"`
}

// Result is a built index plus build statistics.
type Result struct {
	Index   *index.Index
	Scanned int
	Parsed  int
	Timings []PassTiming
}

// Run builds an index for opts.Root. Per-file problems become warnings in the
// index; an error means no index was produced.
func Run(ctx context.Context, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := opts.Registry
	if registry == nil {
		registry = languages.NewDefaultRegistry()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", opts.Root, err)
	}

	result := &Result{}
	timed := func(pass string, start time.Time) {
		elapsed := time.Since(start)
		result.Timings = append(result.Timings, PassTiming{Pass: pass, Elapsed: elapsed})
		logger.Debug("pass.timing", "pass", pass, "elapsed", elapsed)
	}

	start := time.Now()
	matcher, err := ignore.Load(root, ignore.Options{Rules: opts.IgnoreRules, GitIgnore: opts.GitIgnore})
	if err != nil {
		return nil, fmt.Errorf("failed to load ignore rules: %w", err)
	}
	scan, err := scanner.Scan(ctx, scanner.Options{
		Root:           root,
		Matcher:        matcher,
		Supports:       registry.Supports,
		FollowSymlinks: opts.FollowSymlinks,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	timed("scan", start)
	result.Scanned = len(scan.Files)
	if opts.OnScanned != nil {
		opts.OnScanned(len(scan.Files))
	}

	start = time.Now()
	files, issues, err := registry.ExtractAll(ctx, root, scan.Files, workers, opts.OnFile)
	if err != nil {
		return nil, err
	}
	timed("extract", start)
	result.Parsed = len(files)
	for _, issue := range issues {
		logger.Warn("extraction failed", "file", issue.File, "language", issue.Language, "error", issue.Message)
	}

	start = time.Now()
	resolution := resolve.Resolve(files)
	timed("resolve", start)

	start = time.Now()
	warnings := append(append([]parser.ParseIssue(nil), scan.Warnings...), issues...)
	idx, err := index.Build(index.Input{
		Files:      files,
		Resolution: resolution,
		Warnings:   warnings,
		Meta: index.Meta{
			Root:        root,
			BuiltAt:     clock(),
			BuildID:     uuid.NewString(),
			Fingerprint: scan.Fingerprint,
			Revision:    gitinfo.Revision(root),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}
	timed("build", start)
	result.Index = idx

	stats := idx.Stats()
	logger.Info("index built",
		"files", stats.Files,
		"symbols", stats.Symbols,
		"unresolved", stats.Unresolved,
		"warnings", stats.Warnings,
	)
	return result, nil
}
