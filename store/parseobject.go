package store

import (
	"fmt"
	"io"

	tkn "github.com/benoitkugler/pstokenizer"
	"github.com/vellumdoc/pdf/model"
	"github.com/vellumdoc/pdf/parser"
)

// declaration is the result of parsing one "N G obj ... endobj" (or
// "... stream ... endstream") chunk at a known file offset.
type declaration struct {
	number, generation int64
	object             model.Object // the dict itself, when isStream
	isStream           bool
	contentOffset      int64 // valid when isStream: offset right after the "stream" keyword's EOL
}

// parseDeclarationAt reads from offset to the end of the file and
// parses a single object declaration, detecting (without yet reading)
// a following stream body. This mirrors the header-parsing shape used
// throughout the xref package's stream-dict parsing.
func (s *Store) parseDeclarationAt(offset int64) (declaration, error) {
	var out declaration

	if _, err := s.rs.Seek(offset, io.SeekStart); err != nil {
		return out, err
	}
	buf, err := io.ReadAll(s.rs)
	if err != nil {
		return out, err
	}
	tk := tkn.NewTokenizer(buf)

	numTok, err := tk.NextToken()
	if err != nil {
		return out, err
	}
	num, err := numTok.Int()
	if numTok.Kind != tkn.Integer || err != nil {
		return out, fmt.Errorf("expected object number at offset %d", offset)
	}
	out.number = int64(num)

	genTok, err := tk.NextToken()
	if err != nil {
		return out, err
	}
	gen, err := genTok.Int()
	if genTok.Kind != tkn.Integer || err != nil {
		return out, fmt.Errorf("expected generation number at offset %d", offset)
	}
	out.generation = int64(gen)

	objKw, err := tk.NextToken()
	if err != nil || !objKw.IsOther("obj") {
		return out, fmt.Errorf("expected \"obj\" keyword at offset %d", offset)
	}

	p := parser.NewFromTokenizer(tk)
	obj, err := p.ParseObject()
	if err != nil {
		return out, fmt.Errorf("parsing object at offset %d: %w", offset, err)
	}
	out.object = obj

	if streamKw, err := tk.PeekToken(); err == nil && streamKw.IsOther("stream") {
		_, _ = tk.NextToken()
		out.isStream = true
		out.contentOffset = offset + int64(tk.StreamPosition())
	}

	return out, nil
}
