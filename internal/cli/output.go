package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/skelly-dev/atlas/internal/fileutil"
	"github.com/skelly-dev/atlas/internal/query"
)

const maxListedPaths = 8

var confidenceOrder = []string{"local", "import", "global", "ambiguous"}

func formatCounts(counts map[string]int) string {
	parts := make([]string, 0, len(confidenceOrder))
	for _, key := range confidenceOrder {
		parts = append(parts, fmt.Sprintf("%s=%d", key, counts[key]))
	}
	return strings.Join(parts, " ")
}

func symbolLine(r query.SymbolRecord) string {
	return fmt.Sprintf("#%d %s [%s] %s:%d", r.ID, r.Qualified, r.Kind, r.File, r.Line)
}

func printSymbol(w io.Writer, r query.SymbolRecord) {
	fmt.Fprintf(w, "- %s\n", symbolLine(r))
	if r.Signature != "" {
		fmt.Fprintf(w, "  sig: %s\n", fileutil.Truncate(r.Signature, 160))
	}
	if r.Doc != "" {
		fmt.Fprintf(w, "  doc: %s\n", fileutil.Truncate(r.Doc, 160))
	}
}

func printEdge(w io.Writer, e query.EdgeRecord) {
	fmt.Fprintf(w, "- %s (%s", symbolLine(e.Symbol), e.Confidence)
	if e.Candidates > 1 {
		fmt.Fprintf(w, " of %d", e.Candidates)
	}
	fmt.Fprintln(w, ")")
}

// printPathList prints at most maxListedPaths paths and a count of the rest.
func printPathList(w io.Writer, label string, paths []string) {
	if len(paths) == 0 {
		return
	}
	shown := paths
	if len(shown) > maxListedPaths {
		shown = shown[:maxListedPaths]
	}
	fmt.Fprintf(w, "%s (%d): %s", label, len(paths), strings.Join(shown, ", "))
	if rest := len(paths) - len(shown); rest > 0 {
		fmt.Fprintf(w, ", ... (+%d more)", rest)
	}
	fmt.Fprintln(w)
}

func printTruncated(w io.Writer, truncated bool) {
	if truncated {
		fmt.Fprintln(w, "(truncated: budget exhausted, raise --budget for more)")
	}
}
