// Package parser turns a token stream into model.Object values. It
// knows nothing about files, streams, or cross-reference tables: it
// only understands the grammar of a single PDF object (or a sequence
// of them, as found inside a dictionary or array).
package parser

import (
	"errors"
	"fmt"
	"strconv"

	tkn "github.com/benoitkugler/pstokenizer"
	"github.com/vellumdoc/pdf/model"
)

var (
	errDictionaryCorrupt      = errors.New("parser: corrupted dictionary")
	errDictionaryDuplicateKey = errors.New("parser: duplicate key")
	errBufNotAvailable        = errors.New("parser: no buffer available")
)

// Parser turns a token stream into model.Object values.
//
// A Parser only handles chunks of a PDF file (an object's body, the
// contents of a content stream): it has no notion of streams' raw
// bytes, which requires knowing the resolved /Length, nor of indirect
// object headers, both handled by the store package.
type Parser struct {
	tokens *tkn.Tokenizer

	// ContentStreamMode, when true, disallows indirect references (an
	// integer followed by "0 R" is two separate integers) and allows
	// bare keyword commands (Tj, re, cm...) to parse as model.Operator.
	ContentStreamMode bool
}

// New builds a Parser reading from data.
func New(data []byte) *Parser {
	return NewFromTokenizer(tkn.NewTokenizer(data))
}

// NewFromTokenizer builds a Parser on top of an existing tokenizer,
// useful when the caller wants to keep tokenizing after this parser is
// done (e.g. reading consecutive content-stream operations).
func NewFromTokenizer(tokens *tkn.Tokenizer) *Parser {
	return &Parser{tokens: tokens}
}

// ParseObject parses a single PDF object out of data.
func ParseObject(data []byte) (model.Object, error) {
	return New(data).ParseObject()
}

// CurrentPosition returns the current byte offset of the underlying
// tokenizer, useful for error reporting and save/restore.
func (p *Parser) CurrentPosition() int { return p.tokens.CurrentPosition() }

// SetPosition rewinds (or advances) the underlying tokenizer.
func (p *Parser) SetPosition(pos int) { p.tokens.SetPosition(pos) }

// ParseObject reads the next complete object from the stream.
func (p *Parser) ParseObject() (model.Object, error) {
	tk, err := p.tokens.NextToken()
	if err != nil {
		return nil, err
	}

	var value model.Object

	switch tk.Kind {
	case tkn.EOF:
		return nil, errBufNotAvailable
	case tkn.Name:
		value = decodeName(tk.Value)
	case tkn.String:
		value = model.StringLiteral(tk.Value)
	case tkn.StringHex:
		value = model.HexLiteral(tk.Value)
	case tkn.StartArray:
		arr, err := p.parseArray()
		if err != nil {
			return nil, err
		}
		value = arr
	case tkn.StartDic:
		// Try strict parsing first; some producers write dict entries
		// terminated by EOL with a missing value (a common scanner
		// bug), which only the relaxed pass tolerates.
		save := p.tokens.CurrentPosition()
		dict, derr := p.parseDict(false)
		if derr != nil {
			p.tokens.SetPosition(save)
			dict, derr = p.parseDict(true)
		}
		if derr != nil {
			return nil, derr
		}
		value = dict
	case tkn.Float:
		f, err := tk.Float()
		if err != nil {
			return nil, err
		}
		value = model.Real(f)
	case tkn.Other:
		value, err = p.parseOther(tk.Value)
		if err != nil {
			return nil, err
		}
	default:
		// Must be an integer or the start of an indirect reference:
		// "12", "12 0 R".
		value, err = p.parseNumericOrIndirectRef(tk)
		if err != nil {
			return nil, err
		}
	}

	return value, nil
}

func (p *Parser) parseArray() (model.Array, error) {
	arr := model.Array{}
	tk, err := p.tokens.PeekToken()
	for ; err == nil; tk, err = p.tokens.PeekToken() {
		switch tk.Kind {
		case tkn.EndArray:
			_, _ = p.tokens.NextToken()
			return arr, nil
		case tkn.EOF:
			// Lenient mode (spec.md §4.2/§9): end-of-input mid-array
			// returns what was parsed so far rather than failing the
			// whole array.
			return arr, nil
		default:
			obj, err := p.ParseObject()
			if err != nil {
				return nil, err
			}
			arr = append(arr, obj)
		}
	}
	return nil, err
}

func (p *Parser) parseDict(relaxed bool) (model.Dict, error) {
	d := model.Dict{}

	tk, err := p.tokens.PeekToken()
	for ; err == nil; tk, err = p.tokens.PeekToken() {
		switch tk.Kind {
		case tkn.EndDic:
			_, _ = p.tokens.NextToken()
			return d, nil
		case tkn.EOF:
			// Lenient mode (spec.md §4.2/§9): end-of-input mid-
			// dictionary returns what was parsed so far.
			return d, nil
		case tkn.Name:
			key := decodeName(tk.Value)
			_, _ = p.tokens.NextToken() // consume the key

			var obj model.Object
			if relaxed && p.tokens.HasEOLBeforeToken() {
				obj = model.StringLiteral("")
			} else {
				obj, err = p.ParseObject()
				if err != nil {
					return nil, err
				}
			}

			// Per 7.3.7, a null value is equivalent to an absent entry.
			if _, isNull := obj.(model.Null); obj != nil && !isNull {
				if _, has := d[key]; has {
					return nil, errDictionaryDuplicateKey
				}
				d[key] = obj
			}
		default:
			return nil, errDictionaryCorrupt
		}
	}
	return nil, err
}

func (p *Parser) parseOther(l []byte) (model.Object, error) {
	switch string(l) {
	case "null":
		return model.Null{}, nil
	case "true":
		return model.Boolean(true), nil
	case "false":
		return model.Boolean(false), nil
	default:
		if p.ContentStreamMode {
			return model.Operator(l), nil
		}
		return nil, fmt.Errorf("unexpected keyword %q outside a content stream", l)
	}
}

func (p *Parser) parseNumericOrIndirectRef(currentToken tkn.Token) (model.Object, error) {
	if currentToken.Kind != tkn.Integer {
		return nil, fmt.Errorf("expected a number, got %v", currentToken)
	}
	i, err := currentToken.Int()
	if err != nil {
		return nil, err
	}

	if p.ContentStreamMode {
		// "12 0 R" never appears in content streams; 12 is just 12.
		return model.Integer(i), nil
	}

	next, err := p.tokens.PeekToken()
	if err != nil {
		return nil, err
	}
	gen, err := next.Int()
	if next.Kind != tkn.Integer || err != nil {
		return model.Integer(i), nil
	}

	nextNext, _ := p.tokens.PeekPeekToken()
	if !nextNext.IsOther("R") {
		return model.Integer(i), nil
	}

	_, _ = p.tokens.NextToken() // consume generation
	_, _ = p.tokens.NextToken() // consume "R"
	return model.Reference{Number: int64(i), Generation: int64(gen)}, nil
}

// ParseObjectDefinition parses an "id gen obj ... endobj"-shaped chunk,
// as found at a direct xref offset. If headerOnly, parsing stops right
// after the "obj" keyword and a nil object is returned (the caller
// handles stream bodies itself, since that requires the resolved
// /Length).
func ParseObjectDefinition(data []byte, headerOnly bool) (number, generation int64, obj model.Object, err error) {
	tokens := tkn.NewTokenizer(data)

	tok, err := tokens.NextToken()
	if err != nil {
		return 0, 0, nil, err
	}
	num, err := tok.Int()
	if tok.Kind != tkn.Integer || err != nil {
		return 0, 0, nil, errors.New("parser: can't find object number")
	}
	number = int64(num)

	tok, err = tokens.NextToken()
	if err != nil {
		return 0, 0, nil, err
	}
	gen, err := tok.Int()
	if tok.Kind != tkn.Integer || err != nil {
		return 0, 0, nil, errors.New("parser: can't find generation number")
	}
	generation = int64(gen)

	tok, err = tokens.NextToken()
	if err != nil || !tok.IsOther("obj") {
		return 0, 0, nil, errors.New("parser: can't find \"obj\" keyword")
	}

	if headerOnly {
		return number, generation, nil, nil
	}

	p := NewFromTokenizer(tokens)
	obj, err = p.ParseObject()
	return number, generation, obj, err
}

// decodeName expands the #XX hex escapes of a name token's text.
func decodeName(raw []byte) model.Name {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] == '#' && i+2 < len(raw) {
			if v, err := strconv.ParseUint(string(raw[i+1:i+3]), 16, 8); err == nil {
				out = append(out, byte(v))
				i += 2
				continue
			}
		}
		out = append(out, raw[i])
	}
	return model.Name(out)
}
