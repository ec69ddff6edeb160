package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/skelly-dev/atlas/internal/query"
	"github.com/spf13/cobra"
)

func runSearch(cmd *cobra.Command, opts *globalOptions, args []string) error {
	s, engine, err := openEngine(cmd, opts)
	if err != nil {
		return err
	}
	req := query.SearchRequest{Pattern: args[0]}
	if req.Regex, err = cmd.Flags().GetBool("regex"); err != nil {
		return fmt.Errorf("failed to read --regex flag: %w", err)
	}
	if req.Files, err = cmd.Flags().GetBool("files"); err != nil {
		return fmt.Errorf("failed to read --files flag: %w", err)
	}
	if req.Symbols, err = cmd.Flags().GetBool("symbols"); err != nil {
		return fmt.Errorf("failed to read --symbols flag: %w", err)
	}
	if req.Limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return fmt.Errorf("failed to read --limit flag: %w", err)
	}

	result, err := engine.Search(req)
	if err != nil {
		return err
	}
	return s.emit(result, func(w io.Writer) {
		if len(result.Files) == 0 && len(result.Symbols) == 0 {
			fmt.Fprintf(w, "no matches for %q\n", req.Pattern)
			return
		}
		if len(result.Files) > 0 {
			fmt.Fprintf(w, "files (%d)\n", len(result.Files))
			for _, f := range result.Files {
				fmt.Fprintf(w, "- %s [%s] symbols=%d", f.Path, f.Language, f.Symbols)
				if f.Purpose != "" {
					fmt.Fprintf(w, " (%s)", f.Purpose)
				}
				fmt.Fprintln(w)
			}
		}
		if len(result.Symbols) > 0 {
			fmt.Fprintf(w, "symbols (%d)\n", len(result.Symbols))
			for _, r := range result.Symbols {
				printSymbol(w, r)
			}
		}
		if result.Truncated {
			fmt.Fprintln(w, "(truncated: raise --limit for more)")
		}
	})
}

func runSymbol(cmd *cobra.Command, opts *globalOptions, args []string) error {
	s, engine, err := openEngine(cmd, opts)
	if err != nil {
		return err
	}
	ids, err := engine.Lookup(args[0])
	if err != nil {
		return err
	}
	records := make([]query.SymbolRecord, 0, len(ids))
	for _, id := range ids {
		r, err := engine.Record(id)
		if err != nil {
			return err
		}
		records = append(records, r)
	}
	return s.emit(records, func(w io.Writer) {
		fmt.Fprintf(w, "symbol matches for %q (%d)\n", args[0], len(records))
		for _, r := range records {
			printSymbol(w, r)
		}
	})
}

func runNeighbors(cmd *cobra.Command, opts *globalOptions, args []string, dir query.Direction) error {
	s, engine, err := openEngine(cmd, opts)
	if err != nil {
		return err
	}
	id, err := engine.Resolve(args[0])
	if err != nil {
		return err
	}
	n, err := engine.Neighbors(id)
	if err != nil {
		return err
	}

	if dir == query.Callers {
		return s.emit(n.Callers, func(w io.Writer) {
			fmt.Fprintf(w, "callers for %s (%d)\n", symbolLine(n.Symbol), len(n.Callers))
			if len(n.Callers) == 0 {
				fmt.Fprintln(w, "no callers found")
			}
			for _, e := range n.Callers {
				printEdge(w, e)
			}
		})
	}
	return s.emit(n, func(w io.Writer) {
		fmt.Fprintf(w, "callees for %s (%d)\n", symbolLine(n.Symbol), len(n.Callees))
		if len(n.Callees) == 0 {
			fmt.Fprintln(w, "no callees found")
		}
		for _, e := range n.Callees {
			printEdge(w, e)
		}
		if len(n.Unresolved) > 0 {
			fmt.Fprintf(w, "unresolved (%d): %s\n", len(n.Unresolved), strings.Join(n.Unresolved, ", "))
		}
	})
}

func runTraversal(cmd *cobra.Command, opts *globalOptions, args []string, dir query.Direction) error {
	s, engine, err := openEngine(cmd, opts)
	if err != nil {
		return err
	}
	limits, err := readLimits(cmd)
	if err != nil {
		return err
	}
	id, err := engine.Resolve(args[0])
	if err != nil {
		return err
	}

	var result query.Traversal
	label := "impact of"
	if dir == query.Callers {
		result, err = engine.Impact(id, limits)
	} else {
		result, err = engine.Trace(id, limits)
		label = "trace from"
	}
	if err != nil {
		return err
	}
	return s.emit(result, func(w io.Writer) {
		depth := "closure"
		if result.Depth > 0 {
			depth = fmt.Sprintf("%d", result.Depth)
		}
		fmt.Fprintf(w, "%s %s depth=%s symbols=%d\n", label, symbolLine(result.Root), depth, len(result.Nodes))
		if len(result.Nodes) == 0 {
			fmt.Fprintf(w, "no %s found\n", dir)
		}
		for _, n := range result.Nodes {
			fmt.Fprintf(w, "- d=%d %s (via #%d)\n", n.Depth, symbolLine(n.Symbol), n.Via)
		}
		printTruncated(w, result.Truncated)
	})
}

func runPath(cmd *cobra.Command, opts *globalOptions, args []string) error {
	s, engine, err := openEngine(cmd, opts)
	if err != nil {
		return err
	}
	limits, err := readLimits(cmd)
	if err != nil {
		return err
	}
	from, err := engine.Resolve(args[0])
	if err != nil {
		return err
	}
	to, err := engine.Resolve(args[1])
	if err != nil {
		return err
	}

	result, err := engine.Path(from, to, limits)
	if err != nil {
		return err
	}
	return s.emit(result, func(w io.Writer) {
		if !result.Found {
			fmt.Fprintf(w, "no call path from %s to %s\n", symbolLine(result.From), symbolLine(result.To))
			printTruncated(w, result.Truncated)
			return
		}
		fmt.Fprintf(w, "path %s -> %s length=%d\n", result.From.Qualified, result.To.Qualified, len(result.Path)-1)
		for i, r := range result.Path {
			fmt.Fprintf(w, "%d. %s\n", i+1, symbolLine(r))
		}
	})
}

func runDead(cmd *cobra.Command, opts *globalOptions) error {
	s, engine, err := openEngine(cmd, opts)
	if err != nil {
		return err
	}
	req := query.DeadRequest{}
	if req.EntryPoints, err = cmd.Flags().GetStringSlice("entry"); err != nil {
		return fmt.Errorf("failed to read --entry flag: %w", err)
	}
	if req.Limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return fmt.Errorf("failed to read --limit flag: %w", err)
	}

	dead, err := engine.DeadCode(req)
	if err != nil {
		return err
	}
	return s.emit(dead, func(w io.Writer) {
		fmt.Fprintf(w, "dead code candidates (%d)\n", len(dead))
		for _, d := range dead {
			fmt.Fprintf(w, "- %.2f %s", d.Score, symbolLine(d.Symbol))
			if len(d.Reasons) > 0 {
				fmt.Fprintf(w, " (%s)", strings.Join(d.Reasons, "; "))
			}
			fmt.Fprintln(w)
		}
	})
}

func runCycles(cmd *cobra.Command, opts *globalOptions) error {
	s, engine, err := openEngine(cmd, opts)
	if err != nil {
		return err
	}
	budget, err := cmd.Flags().GetInt("budget")
	if err != nil {
		return fmt.Errorf("failed to read --budget flag: %w", err)
	}

	result, err := engine.DependencyCycles(query.Limits{Budget: budget})
	if err != nil {
		return err
	}
	return s.emit(result, func(w io.Writer) {
		if len(result.Cycles) == 0 {
			fmt.Fprintln(w, "no import cycles found")
		}
		for i, c := range result.Cycles {
			fmt.Fprintf(w, "%d. %s -> %s", i+1, strings.Join(c.Files, " -> "), c.Files[0])
			if len(c.Members) > len(c.Files) {
				fmt.Fprintf(w, " (component of %d files)", len(c.Members))
			}
			fmt.Fprintln(w)
		}
		printTruncated(w, result.Truncated)
	})
}

func runDeps(cmd *cobra.Command, opts *globalOptions, args []string) error {
	s, engine, err := openEngine(cmd, opts)
	if err != nil {
		return err
	}
	deps, err := engine.FileDeps(args[0])
	if err != nil {
		return err
	}
	return s.emit(deps, func(w io.Writer) {
		fmt.Fprintf(w, "%s [%s]", deps.Path, deps.Language)
		if deps.Purpose != "" {
			fmt.Fprintf(w, " (%s)", deps.Purpose)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "imports (%d)\n", len(deps.Imports))
		for _, imp := range deps.Imports {
			target := "external"
			if !imp.External {
				target = strings.Join(imp.Targets, ", ")
			}
			fmt.Fprintf(w, "- %s:%d %s -> %s\n", deps.Path, imp.Line, imp.Path, target)
		}
		printPathList(w, "dependencies", deps.Dependencies)
		printPathList(w, "dependents", deps.Dependents)
		fmt.Fprintf(w, "symbols (%d)\n", len(deps.Symbols))
		for _, r := range deps.Symbols {
			fmt.Fprintf(w, "- %s\n", symbolLine(r))
		}
	})
}

func runDirs(cmd *cobra.Command, opts *globalOptions) error {
	s, engine, err := openEngine(cmd, opts)
	if err != nil {
		return err
	}
	dirs := engine.Directories()
	return s.emit(dirs, func(w io.Writer) {
		for _, d := range dirs {
			fmt.Fprintf(w, "%s/ files=%d", d.Path, d.Files)
			if d.Purpose != "" {
				fmt.Fprintf(w, " - %s", d.Purpose)
			}
			fmt.Fprintln(w)
		}
	})
}

func openEngine(cmd *cobra.Command, opts *globalOptions) (*session, *query.Engine, error) {
	s, err := newSession(cmd, opts, "")
	if err != nil {
		return nil, nil, err
	}
	engine, err := s.engine()
	if err != nil {
		return nil, nil, err
	}
	return s, engine, nil
}

func readLimits(cmd *cobra.Command) (query.Limits, error) {
	var limits query.Limits
	var err error
	if limits.Depth, err = cmd.Flags().GetInt("depth"); err != nil {
		return limits, fmt.Errorf("failed to read --depth flag: %w", err)
	}
	if limits.Budget, err = cmd.Flags().GetInt("budget"); err != nil {
		return limits, fmt.Errorf("failed to read --budget flag: %w", err)
	}
	if limits.Depth < 0 || limits.Budget < 0 {
		return limits, fmt.Errorf("--depth and --budget must be >= 0")
	}
	return limits, nil
}
