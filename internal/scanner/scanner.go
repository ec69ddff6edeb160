// Package scanner walks a project tree and produces the sorted list of source
// files an index is built from, plus a fingerprint of their sizes and mtimes.
package scanner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/skelly-dev/atlas/internal/ignore"
	"github.com/skelly-dev/atlas/internal/parser"
)

// Options configures a scan.
type Options struct {
	Root           string
	Matcher        *ignore.Matcher         // nil applies ignore.DefaultRules only
	Supports       func(path string) bool // nil accepts every file
	FollowSymlinks bool
	Logger         *slog.Logger
}

// Result is the outcome of a scan. Files are slash-separated, relative to
// Root and sorted.
type Result struct {
	Root        string
	Files       []string
	Warnings    []parser.ParseIssue
	Fingerprint string
}

type walker struct {
	opts     Options
	root     string
	visited  map[string]bool // resolved real paths, directories and files
	files    []string
	stats    map[string]os.FileInfo
	warnings []parser.ParseIssue
	logger   *slog.Logger
}

// Scan walks opts.Root. Unreadable entries become warnings; only a missing or
// unreadable root, or cancellation, is an error.
func Scan(ctx context.Context, opts Options) (*Result, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", opts.Root, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", root)
	}
	if opts.Matcher == nil {
		opts.Matcher = ignore.NewMatcher(nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	w := &walker{
		opts:    opts,
		root:    root,
		visited: make(map[string]bool),
		stats:   make(map[string]os.FileInfo),
		logger:  logger,
	}
	if real, err := filepath.EvalSymlinks(root); err == nil {
		w.visited[real] = true
	}
	if err := w.walkDir(ctx, root, ""); err != nil {
		return nil, err
	}

	sort.Strings(w.files)
	return &Result{
		Root:        root,
		Files:       w.files,
		Warnings:    w.warnings,
		Fingerprint: fingerprint(w.files, w.stats),
	}, nil
}

func (w *walker) walkDir(ctx context.Context, absDir, relDir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		w.warn(relDir, err)
		return nil
	}

	for _, entry := range entries {
		absPath := filepath.Join(absDir, entry.Name())
		relPath := entry.Name()
		if relDir != "" {
			relPath = path.Join(relDir, entry.Name())
		}

		info, err := os.Lstat(absPath)
		if err != nil {
			w.warn(relPath, err)
			continue
		}

		if info.Mode()&os.ModeSymlink != 0 {
			if !w.opts.FollowSymlinks {
				continue
			}
			target, err := os.Stat(absPath)
			if err != nil {
				w.warn(relPath, err)
				continue
			}
			info = target
		}

		if info.IsDir() {
			if w.opts.Matcher.ShouldIgnore(relPath, true) && !w.opts.Matcher.Reopens(relPath) {
				continue
			}
			if !w.markVisited(absPath) {
				w.logger.Debug("scan.skip_revisit", "path", relPath)
				continue
			}
			if err := w.walkDir(ctx, absPath, relPath); err != nil {
				return err
			}
			continue
		}

		if !info.Mode().IsRegular() {
			continue
		}
		if w.opts.Matcher.ShouldIgnore(relPath, false) {
			continue
		}
		if w.opts.Supports != nil && !w.opts.Supports(relPath) {
			continue
		}
		if !w.markVisited(absPath) {
			continue
		}
		if err := checkReadable(absPath); err != nil {
			w.warn(relPath, err)
			continue
		}
		w.files = append(w.files, relPath)
		w.stats[relPath] = info
	}
	return nil
}

// markVisited records the real path behind absPath and reports whether it
// was new.
func (w *walker) markVisited(absPath string) bool {
	real, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		real = absPath
	}
	if w.visited[real] {
		return false
	}
	w.visited[real] = true
	return true
}

func (w *walker) warn(relPath string, err error) {
	if relPath == "" {
		relPath = "."
	}
	w.logger.Warn("scan.warning", "path", relPath, "err", err)
	w.warnings = append(w.warnings, parser.ParseIssue{
		File:     relPath,
		Severity: "warning",
		Message:  err.Error(),
	})
}

func checkReadable(absPath string) error {
	f, err := os.Open(absPath)
	if err != nil {
		return err
	}
	return f.Close()
}

// fingerprint hashes path, size and mtime of every scanned file.
func fingerprint(files []string, stats map[string]os.FileInfo) string {
	h := xxhash.New()
	for _, file := range files {
		info := stats[file]
		_, _ = io.WriteString(h, file)
		_, _ = io.WriteString(h, "\x00")
		_, _ = io.WriteString(h, strconv.FormatInt(info.Size(), 10))
		_, _ = io.WriteString(h, "\x00")
		_, _ = io.WriteString(h, strconv.FormatInt(info.ModTime().UnixNano(), 10))
		_, _ = io.WriteString(h, "\n")
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
