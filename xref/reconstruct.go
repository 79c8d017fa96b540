package xref

import (
	"bufio"
	"bytes"
	"io"

	"github.com/vellumdoc/pdf/model"
	"github.com/vellumdoc/pdf/parser"
)

// maxReconstructedLineLength bounds how far a single "N G obj" scan
// line is allowed to run before reconstruction gives up on it, so a
// pathological file (no newlines at all) can't make the line reader
// buffer the entire file in one pass per candidate line.
const maxReconstructedLineLength = 10_000

// reconstruct rebuilds a Table and Trailer from scratch by scanning
// the whole file for "N G obj" declarations, used when the declared
// xref information is missing, too small to trust, or fails to parse.
//
// This never trusts stored offsets: every object it finds is recorded
// at the byte offset of its own "N G obj" line, so a reconstructed table
// is immune to the stale-offset corruption that made the stored xref
// untrustworthy in the first place.
func reconstruct(r *reader) (Table, Trailer, error) {
	table := Table{}
	var trailerDict model.Dict
	var catalogRef *model.Reference
	var current *model.Reference // the object whose body is being scanned

	if _, err := r.rs.Seek(0, io.SeekStart); err != nil {
		return nil, Trailer{}, model.WrapError(model.Io, "reconstructing xref", err)
	}
	lr := newLineReader(r.rs)

	for {
		line, lineStart := lr.readLine()
		if line == nil {
			break
		}

		if bytes.Contains(line, []byte("trailer")) {
			idx := bytes.Index(line, []byte("trailer"))
			rest := line[idx+len("trailer"):]
			if obj, err := parser.ParseObject(rest); err == nil {
				if d, ok := obj.(model.Dict); ok {
					trailerDict = d
				}
			}
			continue
		}

		if num, gen, _, err := parser.ParseObjectDefinition(line, true); err == nil {
			table[num] = Entry{Kind: InUse, Offset: lineStart, Generation: gen}
			current = &model.Reference{Number: num, Generation: gen}
		}

		// A conforming writer almost always keeps "/Type /Catalog" on
		// the object's opening line or close to it; a textual match on
		// any line of the most recently declared object is enough to
		// identify the root without fully parsing every object during
		// reconstruction.
		if catalogRef == nil && current != nil && bytes.Contains(line, []byte("/Catalog")) {
			catalogRef = current
		}
	}

	trailer := Trailer{}
	if trailerDict != nil {
		if _, err := mergeTrailerDict(r, trailerDict, table, &trailer); err != nil {
			trailer = Trailer{} // a malformed trailer dict: fall back to synthesis below
		}
	}

	if trailer.Root == nil {
		if catalogRef == nil {
			return table, trailer, model.NewError(model.InvalidXref, "reconstruction found no /Type /Catalog object")
		}
		trailer.Root = catalogRef
	}
	if trailer.Size == 0 {
		var max int64
		for n := range table {
			if n > max {
				max = n
			}
		}
		trailer.Size = max + 1
	}

	return table, trailer, nil
}

// lineReader walks a source byte by byte, handing back one line at a
// time along with the file offset of its first byte. It tolerates
// \n, \r, and \r\n line endings, and skips leading blank lines.
type lineReader struct {
	src    *bufio.Reader
	buf    []byte
	offset int64
}

func newLineReader(src io.Reader) lineReader {
	return lineReader{src: bufio.NewReader(src)}
}

func (l *lineReader) readByte() (byte, bool) {
	c, err := l.src.ReadByte()
	if err != nil {
		return 0, false
	}
	l.offset++
	return c, true
}

func (l *lineReader) readLine() ([]byte, int64) {
	c, ok := l.readByte()
	for ok && (c == '\n' || c == '\r') {
		c, ok = l.readByte()
	}
	if !ok {
		return nil, 0
	}
	start := l.offset - 1
	l.buf = l.buf[:0]
	for {
		l.buf = append(l.buf, c)
		if len(l.buf) > maxReconstructedLineLength {
			break
		}
		c, ok = l.readByte()
		if !ok || c == '\n' || c == '\r' {
			break
		}
	}
	return l.buf, start
}
