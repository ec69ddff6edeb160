package query

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"

	"github.com/skelly-dev/atlas/internal/index"
)

// defaultEntryPoints are name globs that runtimes and test runners call
// without a visible caller.
var defaultEntryPoints = []string{
	"main",
	"init",
	"Test*",
	"Benchmark*",
	"Example*",
	"Fuzz*",
	"test_*",
	"__*__",
	"constructor",
	"initialize",
}

const (
	unresolvedPenalty = 0.5
	publicPenalty     = 0.25
)

// DeadRequest tunes one dead-code query.
type DeadRequest struct {
	EntryPoints []string // extra name globs for this query only
	Limit       int
}

// DeadSymbol is a symbol nothing in the index calls. Score is 1 when nothing
// suggests a hidden caller and drops for each hint that one may exist.
type DeadSymbol struct {
	Symbol  SymbolRecord `json:"symbol"`
	Score   float64      `json:"score"`
	Reasons []string     `json:"reasons,omitempty"`
}

// DeadCode lists symbols without callers that are not entry points, most
// certainly dead first.
func (e *Engine) DeadCode(req DeadRequest) ([]DeadSymbol, error) {
	globs := e.entryGlobs
	for _, pattern := range req.EntryPoints {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, invalidPattern(pattern, err)
		}
		globs = append(append([]glob.Glob(nil), globs...), g)
	}

	out := make([]DeadSymbol, 0)
	for id, sym := range e.idx.Symbols {
		if len(sym.Callers) > 0 {
			continue
		}
		file := e.idx.Files[sym.File]
		if e.excluded(file.Path) || e.isEntryPoint(sym, file, globs) {
			continue
		}

		dead := DeadSymbol{Symbol: e.record(id), Score: 1}
		if e.unresolvedBy[sym.Name] {
			dead.Score -= unresolvedPenalty
			dead.Reasons = append(dead.Reasons, "name appears in unresolved calls")
		}
		if looksPublic(sym.Name) {
			dead.Score -= publicPenalty
			dead.Reasons = append(dead.Reasons, "name looks public")
		}
		out = append(out, dead)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Symbol.File != out[j].Symbol.File {
			return out[i].Symbol.File < out[j].Symbol.File
		}
		return out[i].Symbol.Line < out[j].Symbol.Line
	})
	if req.Limit > 0 && len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, nil
}

func (e *Engine) isEntryPoint(sym index.Symbol, file index.File, globs []glob.Glob) bool {
	qualified := sym.QualifiedName()
	for _, g := range globs {
		if g.Match(sym.Name) || g.Match(qualified) {
			return true
		}
	}
	return e.opts.ExportedEntryPoints && file.Language == "go" && looksPublic(sym.Name)
}

func (e *Engine) excluded(filePath string) bool {
	for _, pattern := range e.opts.ExcludeFiles {
		if ok, err := doublestar.Match(pattern, filePath); err == nil && ok {
			return true
		}
	}
	return false
}

// looksPublic reports an exported-looking name: one starting with an upper
// case letter.
func looksPublic(name string) bool {
	r, _ := utf8.DecodeRuneInString(strings.TrimLeft(name, "$"))
	return unicode.IsUpper(r)
}
