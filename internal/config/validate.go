package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"

	"github.com/skelly-dev/atlas/internal/ignore"
)

var (
	// ErrInvalidLimit indicates a negative worker count, depth or budget
	ErrInvalidLimit = errors.New("invalid limit")

	// ErrInvalidGlob indicates a pattern that does not compile
	ErrInvalidGlob = errors.New("invalid glob")

	// ErrEmptyOutput indicates a missing index output path
	ErrEmptyOutput = errors.New("empty index output path")
)

// Validate checks that the configuration is usable, reporting every problem
// at once.
func Validate(cfg *Config) error {
	var errs []error

	if strings.TrimSpace(cfg.Index.Output) == "" {
		errs = append(errs, ErrEmptyOutput)
	}

	if cfg.Build.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: build.workers must be >= 0, got %d", ErrInvalidLimit, cfg.Build.Workers))
	}
	if cfg.Query.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("%w: query.max_depth must be >= 0, got %d", ErrInvalidLimit, cfg.Query.MaxDepth))
	}
	if cfg.Query.Budget < 0 {
		errs = append(errs, fmt.Errorf("%w: query.budget must be >= 0, got %d", ErrInvalidLimit, cfg.Query.Budget))
	}

	for _, rule := range cfg.Scan.Ignore {
		if !ignore.ValidRule(rule) {
			errs = append(errs, fmt.Errorf("%w: scan.ignore %q", ErrInvalidGlob, rule))
		}
	}
	for _, pattern := range cfg.DeadCode.EntryPoints {
		if _, err := glob.Compile(pattern); err != nil {
			errs = append(errs, fmt.Errorf("%w: dead_code.entry_points %q: %v", ErrInvalidGlob, pattern, err))
		}
	}
	for _, pattern := range cfg.DeadCode.ExcludeFiles {
		if !doublestar.ValidatePattern(pattern) {
			errs = append(errs, fmt.Errorf("%w: dead_code.exclude_files %q", ErrInvalidGlob, pattern))
		}
	}

	return errors.Join(errs...)
}
