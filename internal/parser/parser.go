package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"
)

// LanguageParser defines the interface each language must implement
type LanguageParser interface {
	// Language returns the language name (e.g., "go", "python")
	Language() string

	// Extensions returns file extensions this parser handles
	Extensions() []string

	// Parse extracts symbols and imports from source code
	Parse(filename string, content []byte) (*FileSymbols, error)
}

// Registry holds all registered language parsers
type Registry struct {
	parsers   map[string]LanguageParser // language name -> parser
	extToLang map[string]string         // extension -> language name
}

// NewRegistry creates a new parser registry
func NewRegistry() *Registry {
	return &Registry{
		parsers:   make(map[string]LanguageParser),
		extToLang: make(map[string]string),
	}
}

// Register adds a language parser to the registry
func (r *Registry) Register(p LanguageParser) {
	lang := p.Language()
	r.parsers[lang] = p
	for _, ext := range p.Extensions() {
		r.extToLang[strings.ToLower(ext)] = lang
	}
}

// GetParserForFile returns the appropriate parser for a file
func (r *Registry) GetParserForFile(filename string) (LanguageParser, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	lang, ok := r.extToLang[ext]
	if !ok {
		return nil, false
	}
	parser, ok := r.parsers[lang]
	return parser, ok
}

// Supports reports whether a parser is registered for the file's extension.
func (r *Registry) Supports(filename string) bool {
	_, ok := r.GetParserForFile(filename)
	return ok
}

// SupportedExtensions returns all supported file extensions, sorted
func (r *Registry) SupportedExtensions() []string {
	exts := make([]string, 0, len(r.extToLang))
	for ext := range r.extToLang {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Languages returns the registered language names, sorted.
func (r *Registry) Languages() []string {
	langs := make([]string, 0, len(r.parsers))
	for lang := range r.parsers {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Extract runs the matching plugin over content. Unknown extensions yield an
// empty extraction rather than an error.
func (r *Registry) Extract(path string, content []byte) (*FileSymbols, error) {
	parser, ok := r.GetParserForFile(path)
	if !ok {
		return &FileSymbols{Path: path, Hash: HashContent(content)}, nil
	}

	symbols, err := parser.Parse(path, content)
	if err != nil {
		return nil, err
	}
	if symbols == nil {
		symbols = &FileSymbols{}
	}
	symbols.Path = path
	if symbols.Language == "" {
		symbols.Language = parser.Language()
	}

	sanitizeText(symbols)
	symbols.Imports = normalizeImports(symbols.Imports)
	symbols.Sections = normalizeSections(symbols.Sections)
	for i := range symbols.Symbols {
		symbols.Symbols[i].Calls = normalizeCallSites(symbols.Symbols[i].Calls)
		symbols.Symbols[i].Params = normalizeParams(symbols.Symbols[i].Params)
		symbols.Symbols[i].Returns = strings.TrimSpace(symbols.Symbols[i].Returns)
	}
	sort.SliceStable(symbols.Symbols, func(i, j int) bool {
		return symbols.Symbols[i].Line < symbols.Symbols[j].Line
	})

	symbols.Hash = HashContent(content)
	return symbols, nil
}

// ParseFile reads and extracts a single file
func (r *Registry) ParseFile(path string) (*FileSymbols, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return r.Extract(path, content)
}

// ExtractAll extracts every path (relative to root) with a bounded pool of
// workers. Each worker writes only its own result slot; results come back in
// the order of paths. Unreadable or unparseable files are reported as issues
// and left out. The only error returned is context cancellation.
func (r *Registry) ExtractAll(ctx context.Context, root string, paths []string, workers int, onFile func(path string)) ([]FileSymbols, []ParseIssue, error) {
	if workers <= 0 {
		workers = 1
	}

	type slot struct {
		file  *FileSymbols
		issue *ParseIssue
	}
	slots := make([]slot, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, relPath := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			symbols, err := r.ParseFile(filepath.Join(root, filepath.FromSlash(relPath)))
			if err != nil {
				lang := ""
				if p, ok := r.GetParserForFile(relPath); ok {
					lang = p.Language()
				}
				slots[i].issue = &ParseIssue{
					File:     relPath,
					Language: lang,
					Severity: "error",
					Message:  err.Error(),
				}
			} else {
				symbols.Path = relPath
				slots[i].file = symbols
			}
			if onFile != nil {
				onFile(relPath)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("extraction cancelled: %w", err)
	}

	files := make([]FileSymbols, 0, len(paths))
	issues := make([]ParseIssue, 0)
	for _, s := range slots {
		if s.issue != nil {
			issues = append(issues, *s.issue)
			continue
		}
		if s.file != nil {
			files = append(files, *s.file)
		}
	}
	return files, issues, nil
}

// sanitizeText replaces invalid UTF-8 in every extracted string so that the
// index encodes and decodes to the same value.
func sanitizeText(file *FileSymbols) {
	valid := func(s string) string { return strings.ToValidUTF8(s, "\uFFFD") }
	for i := range file.Symbols {
		sym := &file.Symbols[i]
		sym.Name = valid(sym.Name)
		sym.Container = valid(sym.Container)
		sym.Signature = valid(sym.Signature)
		sym.Returns = valid(sym.Returns)
		sym.Doc = valid(sym.Doc)
		for j := range sym.Params {
			sym.Params[j].Name = valid(sym.Params[j].Name)
			sym.Params[j].Type = valid(sym.Params[j].Type)
		}
		for j := range sym.Calls {
			call := &sym.Calls[j]
			call.Name = valid(call.Name)
			call.Qualifier = valid(call.Qualifier)
			call.Receiver = valid(call.Receiver)
			call.Raw = valid(call.Raw)
		}
	}
	for i := range file.Imports {
		imp := &file.Imports[i]
		imp.Path = valid(imp.Path)
		imp.Alias = valid(imp.Alias)
		for j := range imp.Names {
			imp.Names[j].Name = valid(imp.Names[j].Name)
			imp.Names[j].Local = valid(imp.Names[j].Local)
		}
	}
	for i := range file.Sections {
		file.Sections[i] = valid(file.Sections[i])
	}
}

// HashContent returns the short content hash stored per file.
func HashContent(content []byte) string {
	return strconv.FormatUint(xxhash.Sum64(content), 16)
}

func normalizeSections(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value != "" {
			out = append(out, value)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func normalizeParams(values []Param) []Param {
	if len(values) == 0 {
		return nil
	}
	out := make([]Param, 0, len(values))
	for _, value := range values {
		value.Name = strings.TrimSpace(value.Name)
		value.Type = strings.TrimSpace(value.Type)
		if value.Name == "" && value.Type == "" {
			continue
		}
		out = append(out, value)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func normalizeCallSites(values []CallSite) []CallSite {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(values))
	out := make([]CallSite, 0, len(values))
	for _, value := range values {
		value.Name = strings.TrimSpace(value.Name)
		value.Qualifier = strings.TrimSpace(value.Qualifier)
		value.Receiver = strings.TrimSpace(value.Receiver)
		value.Raw = strings.TrimSpace(value.Raw)
		if value.Name == "" {
			continue
		}

		key := strings.Join([]string{
			value.Name,
			value.Qualifier,
			value.Receiver,
			strconv.Itoa(value.Arity),
			strconv.Itoa(value.Line),
		}, "|")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, value)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		if out[i].Qualifier != out[j].Qualifier {
			return out[i].Qualifier < out[j].Qualifier
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		if out[i].Receiver != out[j].Receiver {
			return out[i].Receiver < out[j].Receiver
		}
		return out[i].Raw < out[j].Raw
	})

	if len(out) == 0 {
		return nil
	}
	return out
}

// normalizeImports trims, drops empty paths, and merges repeated imports of
// the same path and alias. Order is by line, then path.
func normalizeImports(values []Import) []Import {
	if len(values) == 0 {
		return nil
	}

	byKey := make(map[string]int, len(values))
	out := make([]Import, 0, len(values))
	for _, value := range values {
		value.Path = strings.TrimSpace(value.Path)
		value.Alias = strings.TrimSpace(value.Alias)
		if value.Path == "" {
			continue
		}
		key := value.Path + "|" + value.Alias
		if idx, ok := byKey[key]; ok {
			out[idx].Names = append(out[idx].Names, value.Names...)
			continue
		}
		byKey[key] = len(out)
		out = append(out, value)
	}

	for i := range out {
		out[i].Names = normalizeImportedNames(out[i].Names)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Path < out[j].Path
	})
	if len(out) == 0 {
		return nil
	}
	return out
}

func normalizeImportedNames(values []ImportedName) []ImportedName {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(values))
	out := make([]ImportedName, 0, len(values))
	for _, value := range values {
		value.Name = strings.TrimSpace(value.Name)
		value.Local = strings.TrimSpace(value.Local)
		if value.Name == "" {
			continue
		}
		if value.Local == "" {
			value.Local = value.Name
		}
		key := value.Name + "|" + value.Local
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, value)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
