package codec

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/skelly-dev/atlas/internal/fileutil"
	"github.com/skelly-dev/atlas/internal/index"
	"github.com/skelly-dev/atlas/internal/parser"
)

// Version tags every document this package writes.
const Version = "atlas/1"

var (
	// ErrIndexMissing means there is no index document at the path.
	ErrIndexMissing = errors.New("index not found")
	// ErrIndexIncompatible means a document exists but cannot be used: a
	// different version, malformed content, or a shape that fails validation.
	ErrIndexIncompatible = errors.New("index incompatible")
)

type document struct {
	V        string              `json:"v"`
	Meta     metaRecord          `json:"m"`
	Files    []fileRecord        `json:"f"`
	Symbols  []symbolRecord      `json:"s"`
	Purposes map[string]string   `json:"dp,omitempty"`
	Tree     []treeRecord        `json:"tr,omitempty"`
	Warnings []parser.ParseIssue `json:"w,omitempty"`
}

type metaRecord struct {
	Root        string `json:"r,omitempty"`
	BuiltAt     string `json:"t,omitempty"`
	BuildID     string `json:"id,omitempty"`
	Fingerprint string `json:"fp,omitempty"`
	Revision    string `json:"rev,omitempty"`
}

type fileRecord struct {
	Path     string         `json:"p"`
	Language string         `json:"l,omitempty"`
	Hash     string         `json:"h,omitempty"`
	Purpose  string         `json:"pu,omitempty"`
	Symbols  []int          `json:"s,omitempty"`
	Imports  []importRecord `json:"i,omitempty"`
	Deps     []int          `json:"d,omitempty"`
	Sections []string       `json:"sec,omitempty"`
}

type importRecord struct {
	Path    string     `json:"p"`
	Alias   string     `json:"a,omitempty"`
	Names   [][]string `json:"n,omitempty"`
	Line    int        `json:"ln,omitempty"`
	Targets []int      `json:"t,omitempty"`
}

type symbolRecord struct {
	Name       string     `json:"n"`
	Container  string     `json:"c,omitempty"`
	Kind       string     `json:"k,omitempty"`
	File       int        `json:"f"`
	Line       int        `json:"ln,omitempty"`
	Signature  string     `json:"sig,omitempty"`
	Params     [][]string `json:"pa,omitempty"`
	Returns    string     `json:"r,omitempty"`
	Doc        string     `json:"doc,omitempty"`
	Calls      []int      `json:"ca,omitempty"`
	Confidence string     `json:"cf,omitempty"`
	Candidates []int      `json:"cn,omitempty"`
	Unresolved []string   `json:"u,omitempty"`
	Callers    []int      `json:"cb,omitempty"`
}

type treeRecord struct {
	Path  string `json:"p"`
	Files int    `json:"n"`
}

// Encode writes idx as one compact document. Files and symbols are
// marshaled one record at a time.
func Encode(w io.Writer, idx *index.Index) error {
	sw := &streamWriter{w: w}
	sw.raw(`{"v":`)
	sw.value(Version)
	sw.raw(`,"m":`)
	sw.value(encodeMeta(idx.Meta))

	sw.raw(`,"f":[`)
	for i, file := range idx.Files {
		if i > 0 {
			sw.raw(",")
		}
		sw.value(encodeFile(file))
	}
	sw.raw(`],"s":[`)
	for i, sym := range idx.Symbols {
		if i > 0 {
			sw.raw(",")
		}
		sw.value(encodeSymbol(sym))
	}
	sw.raw("]")

	if len(idx.Purposes) > 0 {
		sw.raw(`,"dp":`)
		sw.value(idx.Purposes)
	}
	if len(idx.Tree) > 0 {
		tree := make([]treeRecord, 0, len(idx.Tree))
		for _, entry := range idx.Tree {
			tree = append(tree, treeRecord{Path: entry.Path, Files: entry.Files})
		}
		sw.raw(`,"tr":`)
		sw.value(tree)
	}
	if len(idx.Warnings) > 0 {
		sw.raw(`,"w":`)
		sw.value(idx.Warnings)
	}
	sw.raw("}")
	return sw.err
}

// Decode reads a document and validates the index it describes.
func Decode(r io.Reader) (*index.Index, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexIncompatible, err)
	}
	if doc.V != Version {
		return nil, fmt.Errorf("%w: document version %q, expected %q", ErrIndexIncompatible, doc.V, Version)
	}

	idx := &index.Index{
		Files:    make([]index.File, len(doc.Files)),
		Symbols:  make([]index.Symbol, len(doc.Symbols)),
		Warnings: doc.Warnings,
	}
	meta, err := decodeMeta(doc.Meta)
	if err != nil {
		return nil, err
	}
	idx.Meta = meta

	for i, rec := range doc.Files {
		idx.Files[i] = decodeFile(rec)
	}
	for i, rec := range doc.Symbols {
		sym, err := decodeSymbol(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: symbol %d: %v", ErrIndexIncompatible, i, err)
		}
		idx.Symbols[i] = sym
	}
	if len(doc.Purposes) > 0 {
		idx.Purposes = doc.Purposes
	}
	for _, rec := range doc.Tree {
		idx.Tree = append(idx.Tree, index.TreeEntry{Path: rec.Path, Files: rec.Files})
	}

	if err := idx.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexIncompatible, err)
	}
	return idx, nil
}

// Save atomically writes idx to path.
func Save(path string, idx *index.Index) error {
	return fileutil.WriteAtomic(path, func(w io.Writer) error {
		return Encode(w, idx)
	})
}

// Load reads the index at path. A missing file yields ErrIndexMissing.
func Load(path string) (*index.Index, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrIndexMissing, path)
		}
		return nil, fmt.Errorf("failed to open index %s: %w", path, err)
	}
	defer f.Close()

	idx, err := Decode(bufio.NewReaderSize(f, 1<<16))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return idx, nil
}

func encodeMeta(meta index.Meta) metaRecord {
	rec := metaRecord{
		Root:        meta.Root,
		BuildID:     meta.BuildID,
		Fingerprint: meta.Fingerprint,
		Revision:    meta.Revision,
	}
	if !meta.BuiltAt.IsZero() {
		rec.BuiltAt = meta.BuiltAt.UTC().Format(time.RFC3339Nano)
	}
	return rec
}

func decodeMeta(rec metaRecord) (index.Meta, error) {
	meta := index.Meta{
		Root:        rec.Root,
		BuildID:     rec.BuildID,
		Fingerprint: rec.Fingerprint,
		Revision:    rec.Revision,
	}
	if rec.BuiltAt != "" {
		builtAt, err := time.Parse(time.RFC3339Nano, rec.BuiltAt)
		if err != nil {
			return index.Meta{}, fmt.Errorf("%w: build time: %v", ErrIndexIncompatible, err)
		}
		meta.BuiltAt = builtAt.UTC()
	}
	return meta, nil
}

func encodeFile(file index.File) fileRecord {
	rec := fileRecord{
		Path:     file.Path,
		Language: file.Language,
		Hash:     file.Hash,
		Purpose:  file.Purpose,
		Symbols:  file.Symbols,
		Deps:     file.Deps,
		Sections: file.Sections,
	}
	for _, imp := range file.Imports {
		ir := importRecord{Path: imp.Path, Alias: imp.Alias, Line: imp.Line, Targets: imp.Targets}
		for _, name := range imp.Names {
			if name.Local == name.Name {
				ir.Names = append(ir.Names, []string{name.Name})
			} else {
				ir.Names = append(ir.Names, []string{name.Name, name.Local})
			}
		}
		rec.Imports = append(rec.Imports, ir)
	}
	return rec
}

func decodeFile(rec fileRecord) index.File {
	file := index.File{
		Path:     rec.Path,
		Language: rec.Language,
		Hash:     rec.Hash,
		Purpose:  rec.Purpose,
		Symbols:  rec.Symbols,
		Deps:     rec.Deps,
		Sections: rec.Sections,
	}
	for _, ir := range rec.Imports {
		imp := index.ImportEdge{Path: ir.Path, Alias: ir.Alias, Line: ir.Line, Targets: ir.Targets}
		for _, pair := range ir.Names {
			switch len(pair) {
			case 0:
				continue
			case 1:
				imp.Names = append(imp.Names, parser.ImportedName{Name: pair[0], Local: pair[0]})
			default:
				imp.Names = append(imp.Names, parser.ImportedName{Name: pair[0], Local: pair[1]})
			}
		}
		file.Imports = append(file.Imports, imp)
	}
	return file
}

func encodeSymbol(sym index.Symbol) symbolRecord {
	rec := symbolRecord{
		Name:       sym.Name,
		Container:  sym.Container,
		File:       sym.File,
		Line:       sym.Line,
		Signature:  sym.Signature,
		Returns:    sym.Returns,
		Doc:        sym.Doc,
		Unresolved: sym.Unresolved,
		Callers:    sym.Callers,
	}
	if sym.Kind != parser.SymbolFunction {
		rec.Kind = sym.Kind.String()
	}
	for _, p := range sym.Params {
		if p.Type == "" {
			rec.Params = append(rec.Params, []string{p.Name})
		} else {
			rec.Params = append(rec.Params, []string{p.Name, p.Type})
		}
	}

	if len(sym.Calls) > 0 {
		letters := make([]byte, 0, len(sym.Calls))
		counts := make([]int, 0, len(sym.Calls))
		plain := true
		for _, call := range sym.Calls {
			rec.Calls = append(rec.Calls, call.Target)
			letters = append(letters, call.Confidence.Letter())
			counts = append(counts, call.Candidates)
			if call.Candidates != 1 {
				plain = false
			}
		}
		rec.Confidence = string(letters)
		if !plain {
			rec.Candidates = counts
		}
	}
	return rec
}

func decodeSymbol(rec symbolRecord) (index.Symbol, error) {
	sym := index.Symbol{
		Name:       rec.Name,
		Container:  rec.Container,
		File:       rec.File,
		Line:       rec.Line,
		Signature:  rec.Signature,
		Returns:    rec.Returns,
		Doc:        rec.Doc,
		Unresolved: rec.Unresolved,
		Callers:    rec.Callers,
	}
	if rec.Kind != "" {
		kind, ok := parser.ParseSymbolKind(rec.Kind)
		if !ok {
			return index.Symbol{}, fmt.Errorf("unknown kind %q", rec.Kind)
		}
		sym.Kind = kind
	}
	for _, pair := range rec.Params {
		switch len(pair) {
		case 0:
			sym.Params = append(sym.Params, parser.Param{})
		case 1:
			sym.Params = append(sym.Params, parser.Param{Name: pair[0]})
		default:
			sym.Params = append(sym.Params, parser.Param{Name: pair[0], Type: pair[1]})
		}
	}

	if len(rec.Confidence) != len(rec.Calls) {
		return index.Symbol{}, fmt.Errorf("%d callees but %d confidence letters", len(rec.Calls), len(rec.Confidence))
	}
	if rec.Candidates != nil && len(rec.Candidates) != len(rec.Calls) {
		return index.Symbol{}, fmt.Errorf("%d callees but %d candidate counts", len(rec.Calls), len(rec.Candidates))
	}
	for i, target := range rec.Calls {
		confidence, ok := index.ConfidenceFromLetter(rec.Confidence[i])
		if !ok {
			return index.Symbol{}, fmt.Errorf("unknown confidence %q", rec.Confidence[i])
		}
		edge := index.Edge{Target: target, Confidence: confidence, Candidates: 1}
		if rec.Candidates != nil {
			edge.Candidates = rec.Candidates[i]
		}
		sym.Calls = append(sym.Calls, edge)
	}
	return sym, nil
}

// streamWriter keeps the first write error so Encode can check once.
type streamWriter struct {
	w   io.Writer
	err error
}

func (s *streamWriter) raw(text string) {
	if s.err != nil {
		return
	}
	_, s.err = io.WriteString(s.w, text)
}

func (s *streamWriter) value(v any) {
	if s.err != nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		s.err = err
		return
	}
	_, s.err = s.w.Write(data)
}
