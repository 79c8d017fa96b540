// Package xref parses a PDF's cross-reference information: the
// traditional xref table, xref streams, hybrid files combining both,
// /Prev chains linking incremental updates, and (when all of that is
// too damaged to trust) a from-scratch reconstruction by scanning the
// file for "N G obj" markers.
package xref

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	tkn "github.com/benoitkugler/pstokenizer"
	"github.com/vellumdoc/pdf/model"
	"github.com/vellumdoc/pdf/parser"
)

// maxPrevChain bounds how many "/Prev" links we will follow, guarding
// against a cycle of incremental updates pointing back at each other.
const maxPrevChain = 100

// maxSubsections bounds how many xref subsections a single section may
// declare, so a corrupt byte can't make us loop allocating forever.
const maxSubsections = 1_000_000

// malformedEntryGeneration is the generation stamped on the placeholder
// Free entry parseTraditionalEntry substitutes for a corrupt 20-byte
// record, matching the conventional "never allocate again" marker used
// for the free-list tail.
const malformedEntryGeneration = 65535

// EntryKind distinguishes the three shapes an xref entry can take.
type EntryKind uint8

const (
	Free EntryKind = iota
	InUse
	Compressed
)

// Entry is one cross-reference table record.
type Entry struct {
	Kind EntryKind

	// valid when Kind == InUse
	Offset     int64
	Generation int64

	// valid when Kind == Compressed
	StreamNumber int64
	StreamIndex  int64
}

// Table maps an object number to its xref entry. Only the entry for
// the highest generation/most recent incremental update of a given
// object number is kept, matching 7.5.4's "most recent wins" rule.
type Table map[int64]Entry

// Trailer is the merged content of every trailer dictionary (or xref
// stream dictionary) encountered while walking the /Prev chain.
type Trailer struct {
	Size    int64
	Root    *model.Reference
	Info    *model.Reference
	ID      model.Array
	Encrypt model.Object // Dict or Reference, resolved later by the caller
}

// offsetFromObject accepts either a direct Integer or (tolerating
// producers that violate the spec) an indirect reference written in
// place of one, returning its numeric value either way.
func offsetFromObject(o model.Object) (int64, bool) {
	switch v := o.(type) {
	case model.Integer:
		return int64(v), true
	case model.Reference:
		return v.Number, true
	default:
		return 0, false
	}
}

// reader abstracts the random-access source a document is parsed from.
type reader struct {
	rs       io.ReadSeeker
	fileSize int64
}

func newReader(rs io.ReadSeeker) (*reader, error) {
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	return &reader{rs: rs, fileSize: size}, nil
}

func (r *reader) readAt(offset int64, n int) ([]byte, error) {
	if offset < 0 || offset > r.fileSize {
		return nil, fmt.Errorf("offset %d out of bounds (file size %d)", offset, r.fileSize)
	}
	if n < 0 {
		n = 0
	}
	if offset+int64(n) > r.fileSize {
		n = int(r.fileSize - offset)
	}
	buf := make([]byte, n)
	if _, err := r.rs.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r.rs, buf); err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf, nil
}

func (r *reader) tail(n int64) ([]byte, int64, error) {
	if n > r.fileSize {
		n = r.fileSize
	}
	start := r.fileSize - n
	buf, err := r.readAt(start, int(n))
	return buf, start, err
}

// Parse locates the file's cross-reference information and builds a
// Table and Trailer from it, merging every link of the /Prev chain
// (and any hybrid /XRefStm). sanityThreshold is the minimum number of
// resolved entries below which Parse falls back to Reconstruct instead
// of trusting a suspiciously small table (see Open Questions).
func Parse(rs io.ReadSeeker, sanityThreshold int) (Table, Trailer, error) {
	r, err := newReader(rs)
	if err != nil {
		return nil, Trailer{}, model.WrapError(model.Io, "seeking source", err)
	}

	startOffset, err := locateStartXref(r)
	if err != nil {
		return reconstruct(r)
	}

	table := Table{}
	trailer := Trailer{}
	seen := map[int64]bool{}

	offset := startOffset
	for step := 0; offset != 0; step++ {
		if step >= maxPrevChain {
			return nil, Trailer{}, model.RecursionLimitError(maxPrevChain)
		}
		if seen[offset] {
			break // a /Prev cycle; stop rather than loop forever
		}
		seen[offset] = true

		buf, err := r.readAt(offset, int(r.fileSize-offset))
		if err != nil {
			return reconstruct(r)
		}
		tk := tkn.NewTokenizer(buf)

		start, err := tk.PeekToken()
		if err != nil {
			return reconstruct(r)
		}

		if start.IsOther("xref") {
			_, _ = tk.NextToken()
			offset, err = parseTraditionalSection(r, tk, table, &trailer)
		} else {
			offset, err = parseXRefStreamAt(r, offset, table, &trailer)
		}
		if err != nil {
			return reconstruct(r)
		}
	}

	if len(table) < sanityThreshold && r.fileSize > 300 {
		if recTable, recTrailer, rerr := reconstruct(r); rerr == nil && len(recTable) > len(table) {
			return recTable, recTrailer, nil
		}
	}

	if trailer.Root == nil {
		return reconstruct(r)
	}

	return table, trailer, nil
}

func locateStartXref(r *reader) (int64, error) {
	const chunk = 1024
	var window []byte
	for scanned := int64(0); scanned < r.fileSize; scanned += chunk {
		n := chunk
		if scanned+int64(n) > r.fileSize {
			n = int(r.fileSize - scanned)
		}
		buf, _, err := r.tail(scanned + int64(n))
		if err != nil {
			return 0, err
		}
		window = buf
		if i := bytes.LastIndex(window, []byte("startxref")); i >= 0 {
			rest := window[i+len("startxref"):]
			if j := bytes.Index(rest, []byte("%%EOF")); j >= 0 {
				rest = rest[:j]
			}
			off, err := strconv.ParseInt(string(bytes.TrimSpace(rest)), 10, 64)
			if err != nil || off < 0 || off >= r.fileSize {
				return 0, fmt.Errorf("corrupt startxref offset")
			}
			return off, nil
		}
	}
	return 0, fmt.Errorf("no startxref marker found")
}

func parseInt(tk *tkn.Tokenizer) (int64, error) {
	tok, err := tk.NextToken()
	if err != nil {
		return 0, err
	}
	i, err := tok.Int()
	return int64(i), err
}

// parseTraditionalSection parses one or more "N G\noffset gen f/n"
// subsections followed by a trailer dictionary, and returns the /Prev
// offset (0 if none).
func parseTraditionalSection(r *reader, tk *tkn.Tokenizer, table Table, trailer *Trailer) (int64, error) {
	subsections := 0
	for {
		start, err := parseInt(tk)
		if err != nil {
			return 0, fmt.Errorf("xref subsection start: %w", err)
		}
		count, err := parseInt(tk)
		if err != nil {
			return 0, fmt.Errorf("xref subsection count: %w", err)
		}
		subsections++
		if subsections > maxSubsections {
			return 0, fmt.Errorf("too many xref subsections")
		}

		for i := int64(0); i < count; i++ {
			parseTraditionalEntry(tk, start+i, table)
		}

		next, _ := tk.PeekToken()
		if next.IsOther("trailer") {
			_, _ = tk.NextToken()
			break
		}
		if next.Kind != tkn.Integer {
			break // malformed; let the caller fall back if needed
		}
	}

	p := parser.NewFromTokenizer(tk)
	obj, err := p.ParseObject()
	if err != nil {
		return 0, err
	}
	dict, ok := obj.(model.Dict)
	if !ok {
		return 0, fmt.Errorf("trailer: expected dict, got %T", obj)
	}
	return mergeTrailerDict(r, dict, table, trailer)
}

// parseTraditionalEntry parses one 20-byte "offset gen f/n" record for
// objNum. Per spec.md §4.4, a malformed entry never fails the section:
// it adds a placeholder Free entry and the subsection loop continues,
// so object numbers stay aligned with the declared count.
func parseTraditionalEntry(tk *tkn.Tokenizer, objNum int64, table Table) {
	placeholder := func() {
		if _, exists := table[objNum]; !exists {
			table[objNum] = Entry{Kind: Free, Generation: malformedEntryGeneration}
		}
	}

	offsetTok, err := tk.NextToken()
	if err != nil {
		placeholder()
		return
	}
	offset, err := strconv.ParseInt(string(offsetTok.Value), 10, 64)
	if err != nil {
		placeholder()
		// best-effort: still try to consume the rest of this record so
		// the following subsection entries don't desync.
		_, _ = parseInt(tk)
		_, _ = tk.NextToken()
		return
	}
	gen, err := parseInt(tk)
	if err != nil {
		placeholder()
		// best-effort: still consume the type-marker token so the
		// following subsection entries don't desync.
		_, _ = tk.NextToken()
		return
	}
	kindTok, err := tk.NextToken()
	if err != nil {
		placeholder()
		return
	}
	kindStr := string(kindTok.Value)
	if kindTok.Kind != tkn.Other || (kindStr != "f" && kindStr != "n") {
		placeholder()
		return
	}

	if _, exists := table[objNum]; exists {
		// a more recent section (processed first, since we walk /Prev
		// backwards from the newest) already won.
		return
	}
	if kindStr == "f" {
		table[objNum] = Entry{Kind: Free, Generation: gen}
		return
	}
	if offset == 0 {
		return // in-use entry with offset 0: skip, matches common leniency
	}
	table[objNum] = Entry{Kind: InUse, Offset: offset, Generation: gen}
}

func mergeTrailerDict(r *reader, d model.Dict, table Table, trailer *Trailer) (prevOffset int64, err error) {
	if enc, ok := d["Encrypt"]; ok && trailer.Encrypt == nil {
		trailer.Encrypt = enc
	}
	if trailer.Size == 0 {
		size, ok := d.IntOf("Size")
		if !ok {
			return 0, fmt.Errorf("trailer: missing /Size")
		}
		trailer.Size = size
	}
	if trailer.Root == nil {
		if ref, ok := d["Root"].(model.Reference); ok {
			trailer.Root = &ref
		}
	}
	if trailer.Info == nil {
		if ref, ok := d["Info"].(model.Reference); ok {
			trailer.Info = &ref
		}
	}
	if trailer.ID == nil {
		if id, ok := d["ID"].(model.Array); ok {
			trailer.ID = id
		}
	}

	prevOffset, _ = offsetFromObject(d["Prev"])

	if xrefStm, ok := d["XRefStm"].(model.Integer); ok {
		// hybrid file: process the hidden xref stream before continuing
		// up the traditional /Prev chain (7.5.8.4).
		if _, err := parseXRefStreamAt(r, int64(xrefStm), table, trailer); err != nil {
			return 0, err
		}
	}

	return prevOffset, nil
}
