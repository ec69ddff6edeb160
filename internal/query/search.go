package query

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// SearchRequest selects what a pattern is matched against. When neither
// Files nor Symbols is set both are searched.
type SearchRequest struct {
	Pattern string
	Regex   bool
	Files   bool
	Symbols bool
	Limit   int
}

// FileMatch is a file whose path matched a search.
type FileMatch struct {
	Path     string `json:"path"`
	Language string `json:"language,omitempty"`
	Purpose  string `json:"purpose,omitempty"`
	Symbols  int    `json:"symbols"`
}

// SearchResult lists matches in a stable order: symbols whose name equals the
// pattern first, then prefix matches, then the rest, each group in index order.
type SearchResult struct {
	Files     []FileMatch    `json:"files,omitempty"`
	Symbols   []SymbolRecord `json:"symbols,omitempty"`
	Truncated bool           `json:"truncated,omitempty"`
}

type regexpEntry struct {
	re *regexp.Regexp
}

type matcher func(s string) bool

// Search matches a case-insensitive substring or regular expression against
// file paths and symbol names.
func (e *Engine) Search(req SearchRequest) (*SearchResult, error) {
	if strings.TrimSpace(req.Pattern) == "" {
		return nil, fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}
	match, err := e.compile(req.Pattern, req.Regex)
	if err != nil {
		return nil, err
	}
	wantFiles, wantSymbols := req.Files, req.Symbols
	if !wantFiles && !wantSymbols {
		wantFiles, wantSymbols = true, true
	}

	result := &SearchResult{}
	if wantFiles {
		for _, file := range e.idx.Files {
			if !match(file.Path) {
				continue
			}
			result.Files = append(result.Files, FileMatch{
				Path:     file.Path,
				Language: file.Language,
				Purpose:  file.Purpose,
				Symbols:  len(file.Symbols),
			})
		}
		if req.Limit > 0 && len(result.Files) > req.Limit {
			result.Files = result.Files[:req.Limit]
			result.Truncated = true
		}
	}

	if wantSymbols {
		type ranked struct {
			id   int
			rank int
		}
		lowered := strings.ToLower(req.Pattern)
		var hits []ranked
		for id, sym := range e.idx.Symbols {
			if !match(sym.Name) && !match(sym.QualifiedName()) {
				continue
			}
			rank := 2
			if !req.Regex {
				name := strings.ToLower(sym.Name)
				switch {
				case name == lowered || strings.ToLower(sym.QualifiedName()) == lowered:
					rank = 0
				case strings.HasPrefix(name, lowered):
					rank = 1
				}
			}
			hits = append(hits, ranked{id: id, rank: rank})
		}
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].rank < hits[j].rank })
		if req.Limit > 0 && len(hits) > req.Limit {
			hits = hits[:req.Limit]
			result.Truncated = true
		}
		for _, hit := range hits {
			result.Symbols = append(result.Symbols, e.record(hit.id))
		}
	}
	return result, nil
}

func (e *Engine) compile(pattern string, isRegex bool) (matcher, error) {
	if !isRegex {
		needle := strings.ToLower(pattern)
		return func(s string) bool {
			return strings.Contains(strings.ToLower(s), needle)
		}, nil
	}

	if cached, ok := e.regexCache.Get(pattern); ok {
		return cached.re.MatchString, nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	e.regexCache.Add(pattern, &regexpEntry{re: re})
	return re.MatchString, nil
}
