// Package store is the central object accessor: given a document's
// parsed cross-reference table, it loads and caches model.Object
// values by reference, transparently decoding object streams and
// decrypting content along the way.
package store

import (
	"bytes"
	"fmt"
	"io"

	"github.com/vellumdoc/pdf/crypt"
	"github.com/vellumdoc/pdf/filter"
	"github.com/vellumdoc/pdf/model"
	"github.com/vellumdoc/pdf/xref"
)

// maxResolutionDepth bounds how many indirect hops (ref -> ref, or
// nested container walks through Resolve) a single top-level request
// may take before we assume a cycle and give up.
const maxResolutionDepth = 100

// backwardSearchWindow is how far Load searches backward from a
// declared offset for the true "id gen obj" header, to tolerate
// producers that record an offset a few bytes short.
const backwardSearchWindow = 100

// smallCriticalObjectID is the heuristic threshold below which a Free
// xref entry is still worth a load-through attempt: small ids are
// almost always structural (catalog, pages root, first page).
const smallCriticalObjectID = 10

// Store is the central object accessor for one opened document. It is
// not safe for concurrent use from multiple goroutines.
type Store struct {
	rs      io.ReadSeeker
	table   xref.Table
	trailer xref.Trailer
	crypt   *crypt.Handler // nil when the document is not encrypted

	cache   map[model.Reference]model.Object
	objStms map[int64][]parsedMember // decoded object-stream contents, keyed by the stream's object number
	stack   []model.Reference        // current resolution stack, for cycle detection

	maxDepth int // overrides maxResolutionDepth when non-zero
}

// SetMaxResolutionDepth overrides the default resolution-depth guard
// (maxResolutionDepth), letting a caller configure it per spec.md §9's
// recursion-depth cap.
func (s *Store) SetMaxResolutionDepth(n int) {
	s.maxDepth = n
}

func (s *Store) resolutionDepthLimit() int {
	if s.maxDepth > 0 {
		return s.maxDepth
	}
	return maxResolutionDepth
}

type parsedMember struct {
	ref    model.Reference
	object model.Object
}

// New builds a Store from an already-parsed cross-reference table and
// trailer. h may be nil for an unencrypted document.
func New(rs io.ReadSeeker, table xref.Table, trailer xref.Trailer, h *crypt.Handler) *Store {
	return &Store{
		rs:      rs,
		table:   table,
		trailer: trailer,
		crypt:   h,
		cache:   make(map[model.Reference]model.Object),
		objStms: make(map[int64][]parsedMember),
	}
}

// Trailer returns the document trailer merged across the /Prev chain.
func (s *Store) Trailer() xref.Trailer { return s.trailer }

// SetHandler installs a new crypt.Handler, discarding the cache so
// already-loaded (and possibly garbled, under the wrong key) objects
// are re-fetched. Used when AuthenticatePassword succeeds after Open
// tried only the empty password.
func (s *Store) SetHandler(h *crypt.Handler) {
	s.crypt = h
	s.cache = make(map[model.Reference]model.Object)
}

// Resolve follows o if it is an indirect reference, returning it
// unchanged otherwise. It shares Load's cycle/depth guard.
func (s *Store) Resolve(o model.Object) (model.Object, error) {
	ref, ok := o.(model.Reference)
	if !ok {
		return o, nil
	}
	return s.Load(ref)
}

// Load resolves ref to its object, following §4.7 of the object store
// contract: cache, xref dispatch (uncompressed/compressed/free), and
// a whole-file fallback scan when the xref has no entry at all.
func (s *Store) Load(ref model.Reference) (model.Object, error) {
	for _, seen := range s.stack {
		if seen == ref {
			return nil, model.CircularReferenceError(ref)
		}
	}
	if limit := s.resolutionDepthLimit(); len(s.stack) >= limit {
		return nil, model.RecursionLimitError(limit)
	}

	if o, ok := s.cache[ref]; ok {
		return cloneObject(o), nil
	}

	s.stack = append(s.stack, ref)
	defer func() { s.stack = s.stack[:len(s.stack)-1] }()

	entry, hasEntry := s.table[ref.Number]
	if !hasEntry {
		offset, ferr := s.scanForObjectHeader(ref.Number, ref.Generation)
		if ferr != nil {
			return nil, model.ObjectNotFoundError(ref)
		}
		obj, err := s.loadUncompressed(ref, offset)
		if err != nil {
			return nil, err
		}
		s.cache[ref] = obj
		return cloneObject(obj), nil
	}

	switch entry.Kind {
	case xref.Free:
		if ref.Number > smallCriticalObjectID {
			return nil, model.ObjectNotFoundError(ref)
		}
		// small ids are almost always structural; the entry being marked
		// free is often itself the product of a damaged xref, so try a
		// file-wide scan before giving up.
		offset, ferr := s.scanForObjectHeader(ref.Number, ref.Generation)
		if ferr != nil {
			return nil, model.ObjectNotFoundError(ref)
		}
		obj, err := s.loadUncompressed(ref, offset)
		if err != nil {
			return nil, err
		}
		s.cache[ref] = obj
		return cloneObject(obj), nil

	case xref.InUse:
		obj, err := s.loadUncompressed(ref, entry.Offset)
		if err != nil {
			return nil, err
		}
		s.cache[ref] = obj
		return cloneObject(obj), nil

	case xref.Compressed:
		obj, err := s.loadCompressed(ref, entry.StreamNumber, entry.StreamIndex)
		if err != nil {
			return nil, err
		}
		s.cache[ref] = obj
		return cloneObject(obj), nil

	default:
		return nil, model.ObjectNotFoundError(ref)
	}
}

func cloneObject(o model.Object) model.Object {
	if o == nil {
		return nil
	}
	return o.Clone()
}

// loadUncompressed parses the object declared at offset, tolerating a
// missing or mismatched "id gen obj" header by searching up to
// backwardSearchWindow bytes backward for the real one. When the
// declaration is a stream, its content is read and decoded.
func (s *Store) loadUncompressed(ref model.Reference, offset int64) (model.Object, error) {
	decl, err := s.parseDeclarationAt(offset)
	if err != nil || decl.number != ref.Number {
		fixedOffset, ferr := s.searchBackwardForHeader(offset, ref.Number, ref.Generation)
		if ferr != nil {
			if err != nil {
				return nil, model.WrapError(model.ParseError, fmt.Sprintf("loading object %d %d", ref.Number, ref.Generation), err)
			}
			return nil, model.NewErrorf(model.InvalidObjectType, "object header mismatch: wanted %d %d, found %d %d", ref.Number, ref.Generation, decl.number, decl.generation)
		}
		decl, err = s.parseDeclarationAt(fixedOffset)
		if err != nil {
			return nil, model.WrapError(model.ParseError, fmt.Sprintf("loading object %d %d", ref.Number, ref.Generation), err)
		}
	}

	dict, isDict := decl.object.(model.Dict)
	if decl.isStream && isDict {
		content, err := s.readAndDecodeStream(ref, dict, decl.contentOffset)
		if err != nil {
			return nil, err
		}
		return model.Stream{Dict: s.decryptObjectStrings(ref, dict).(model.Dict), Content: content}, nil
	}

	return s.decryptObjectStrings(ref, decl.object), nil
}

func (s *Store) searchBackwardForHeader(offset int64, wantNum, wantGen int64) (int64, error) {
	start := offset - backwardSearchWindow
	if start < 0 {
		start = 0
	}
	if _, err := s.rs.Seek(start, io.SeekStart); err != nil {
		return 0, err
	}
	window := make([]byte, int(offset-start)+32)
	n, _ := io.ReadFull(s.rs, window)
	window = window[:n]

	needle := []byte(fmt.Sprintf("%d %d obj", wantNum, wantGen))
	idx := bytes.Index(window, needle)
	if idx < 0 {
		return 0, fmt.Errorf("no header found for %d %d", wantNum, wantGen)
	}
	return start + int64(idx), nil
}

// scanForObjectHeader performs the whole-file fallback scan described
// by step 4 of the object store contract, for objects absent from the
// xref entirely (or whose entry is a Free marker worth a retry).
func (s *Store) scanForObjectHeader(num, gen int64) (int64, error) {
	if _, err := s.rs.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	data, err := io.ReadAll(s.rs)
	if err != nil {
		return 0, err
	}
	needle := []byte(fmt.Sprintf("%d %d obj", num, gen))
	idx := 0
	for {
		rel := bytes.Index(data[idx:], needle)
		if rel < 0 {
			return 0, fmt.Errorf("object %d %d not found by file scan", num, gen)
		}
		pos := idx + rel
		before := byte(' ')
		if pos > 0 {
			before = data[pos-1]
		}
		if isPdfWhitespace(before) {
			return int64(pos), nil
		}
		idx = pos + 1
	}
}

func isPdfWhitespace(b byte) bool {
	switch b {
	case 0x00, 0x09, 0x0A, 0x0C, 0x0D, 0x20:
		return true
	default:
		return false
	}
}

// decryptObjectStrings walks an object recursively and decrypts any
// string literal/hex literal it contains, in a freshly built copy.
func (s *Store) decryptObjectStrings(ref model.Reference, obj model.Object) model.Object {
	if s.crypt == nil {
		return obj
	}
	switch v := obj.(type) {
	case model.StringLiteral:
		out, err := s.crypt.DecryptString(string(v), ref)
		if err != nil {
			return v
		}
		return model.StringLiteral(out)
	case model.HexLiteral:
		out, err := s.crypt.DecryptString(string(v), ref)
		if err != nil {
			return v
		}
		return model.HexLiteral(out)
	case model.Array:
		out := make(model.Array, len(v))
		for i, e := range v {
			out[i] = s.decryptObjectStrings(ref, e)
		}
		return out
	case model.Dict:
		out := make(model.Dict, len(v))
		for k, e := range v {
			out[k] = s.decryptObjectStrings(ref, e)
		}
		return out
	default:
		return obj
	}
}

// readAndDecodeStream reads a stream's raw content bytes (resolving
// /Length, which may itself be an indirect reference), decrypts them
// unless bypassed by an explicit Identity /Crypt filter, and applies
// the declared filter chain.
func (s *Store) readAndDecodeStream(ref model.Reference, dict model.Dict, contentOffset int64) ([]byte, error) {
	lengthObj, err := s.Resolve(dict["Length"])
	if err != nil {
		return nil, model.WrapError(model.ParseError, "resolving stream /Length", err)
	}
	length, ok := lengthObj.(model.Integer)
	if !ok || length < 0 {
		return s.readStreamByScanningEndstream(contentOffset)
	}

	raw, err := s.readAt(contentOffset, int64(length))
	if err != nil {
		return nil, err
	}

	var bypass bool
	if stm := (model.Stream{Dict: dict}); stm.BypassCrypt() {
		bypass = true
	}
	if s.crypt != nil && !bypass {
		raw, err = s.crypt.DecryptStream(raw, ref)
		if err != nil {
			return nil, model.WrapError(model.ParseError, "decrypting stream", err)
		}
	}

	decoded, _, err := filter.Decode(raw, s.decryptObjectStrings(ref, dict).(model.Dict))
	if err != nil {
		return nil, model.WrapError(model.ParseError, "decoding stream filters", err)
	}
	return decoded, nil
}

// readStreamByScanningEndstream is the fallback for a missing or
// non-numeric /Length: read until the literal "endstream" keyword.
func (s *Store) readStreamByScanningEndstream(contentOffset int64) ([]byte, error) {
	if _, err := s.rs.Seek(contentOffset, io.SeekStart); err != nil {
		return nil, err
	}
	rest, err := io.ReadAll(s.rs)
	if err != nil {
		return nil, err
	}
	idx := bytes.Index(rest, []byte("endstream"))
	if idx < 0 {
		return nil, model.NewError(model.UnexpectedEof, "stream has no /Length and no \"endstream\" marker")
	}
	return bytes.TrimRight(rest[:idx], "\r\n"), nil
}

func (s *Store) readAt(offset, n int64) ([]byte, error) {
	if _, err := s.rs.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(s.rs, buf); err != nil {
		return nil, model.WrapError(model.Io, "reading stream content", err)
	}
	return buf, nil
}
