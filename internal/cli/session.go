package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/skelly-dev/atlas/internal/codec"
	"github.com/skelly-dev/atlas/internal/config"
	"github.com/skelly-dev/atlas/internal/fileutil"
	"github.com/skelly-dev/atlas/internal/index"
	"github.com/skelly-dev/atlas/internal/query"
	"github.com/spf13/cobra"
)

// session is the per-invocation context shared by command handlers.
type session struct {
	opts   *globalOptions
	root   string
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
	errOut io.Writer
}

func newSession(cmd *cobra.Command, opts *globalOptions, root string) (*session, error) {
	if root == "" {
		root = opts.root
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %q: %w", root, err)
	}
	cfg, err := config.Load(absRoot)
	if err != nil {
		return nil, err
	}
	return &session{
		opts:   opts,
		root:   absRoot,
		cfg:    cfg,
		logger: newLogger(cmd.ErrOrStderr(), opts.verbose),
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
	}, nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// indexPath is the --index override or the configured output path.
func (s *session) indexPath() (string, error) {
	if s.opts.indexPath == "" {
		return s.cfg.IndexPath(s.root), nil
	}
	return filepath.Abs(s.opts.indexPath)
}

func (s *session) loadIndex() (*index.Index, error) {
	path, err := s.indexPath()
	if err != nil {
		return nil, err
	}
	idx, err := codec.Load(path)
	switch {
	case errors.Is(err, codec.ErrIndexMissing):
		return nil, fmt.Errorf("%w; run `atlas build` first", err)
	case errors.Is(err, codec.ErrIndexIncompatible):
		return nil, fmt.Errorf("%w; run `atlas build` to rebuild it", err)
	case err != nil:
		return nil, err
	}
	return idx, nil
}

func (s *session) engine() (*query.Engine, error) {
	idx, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	return query.New(idx, s.queryOptions())
}

func (s *session) queryOptions() query.Options {
	return query.Options{
		EntryPoints:         s.cfg.DeadCode.EntryPoints,
		ExportedEntryPoints: s.cfg.DeadCode.ExportedEntryPoints,
		ExcludeFiles:        s.cfg.DeadCode.ExcludeFiles,
		DefaultBudget:       s.cfg.Query.Budget,
		DefaultDepth:        s.cfg.Query.MaxDepth,
	}
}

// emit prints value as JSON under --json and through text otherwise.
func (s *session) emit(value any, text func(w io.Writer)) error {
	if s.opts.asJSON {
		return fileutil.PrintJSON(s.out, value)
	}
	text(s.out)
	return nil
}
