// Package cmap parses CMap resources: the character-code-to-Unicode
// mapping attached to a font via /ToUnicode, and the character-code-
// to-CID mapping of a composite font's /Encoding. Both share the same
// PostScript-derived grammar (codespaceranges, bfchar/bfrange/
// notdefrange or cidrange sections inside begincmap/endcmap).
package cmap

import (
	"errors"
	"sort"

	tkn "github.com/benoitkugler/pstokenizer"
	"golang.org/x/text/encoding/unicode"
)

// ErrBadCMap is returned when the CMap's syntax cannot be made sense
// of at all (no codespace ranges could be parsed, for instance).
var ErrBadCMap = errors.New("cmap: malformed CMap")

// Range is one codespacerange or cidrange entry: character codes of
// exactly NumBytes bytes, Low <= code <= High.
type Range struct {
	Low, High uint32
	NumBytes  int
}

// bfRange is one bfrange or notdefrange entry, sorted by Low for
// binary search at lookup time.
type bfRange struct {
	low, high uint32
	// exactly one of the following is set.
	dst  string   // hex-string destination form: dst, dst+1, dst+2, ...
	list []string // array destination form: one independent string per code
}

// CIDRange is one begincidrange entry of a composite font's /Encoding
// CMap: codes in [Low, High] map to consecutive CIDs starting at
// CIDStart.
type CIDRange struct {
	Low, High uint32
	CIDStart  uint32
}

// CMap is a parsed character-code mapping, as described by spec §4.8
// and §3 (CMap data model): codespace ranges plus bfchar/bfrange/
// notdefrange sections for a ToUnicode CMap, or cidrange sections for
// a composite font's CID CMap.
type CMap struct {
	Name       string
	Codespaces []Range

	singles map[uint32]string // bfchar entries, exact match
	ranges  []bfRange         // bfrange entries, sorted by low
	notdef  []bfRange         // notdefrange entries, sorted by low

	cidRanges []CIDRange // sorted by low, for composite-font code->CID
}

// Parse reads a CMap's PostScript-like syntax (the body found in a
// /ToUnicode stream, or a composite font's non-Identity /Encoding
// stream) and builds a CMap.
func Parse(data []byte) (*CMap, error) {
	c := &CMap{singles: map[uint32]string{}}
	tk := tkn.NewTokenizer(data)

	for {
		tok, err := tk.NextToken()
		if err != nil || tok.Kind == tkn.EOF {
			break // EOF or a lexing error both just stop the scan
		}
		if tok.Kind != tkn.Other {
			continue
		}
		switch string(tok.Value) {
		case "begincodespacerange":
			if err := c.parseCodespaceRanges(tk); err != nil {
				return nil, err
			}
		case "beginbfchar":
			if err := c.parseBfchar(tk); err != nil {
				return nil, err
			}
		case "beginbfrange":
			if err := c.parseBfrange(tk, &c.ranges); err != nil {
				return nil, err
			}
		case "beginnotdefrange":
			if err := c.parseBfrange(tk, &c.notdef); err != nil {
				return nil, err
			}
		case "begincidrange":
			if err := c.parseCIDRange(tk); err != nil {
				return nil, err
			}
		case "CMapName":
			if name, err := tk.PeekToken(); err == nil && name.Kind == tkn.Name {
				_, _ = tk.NextToken()
				c.Name = string(name.Value)
			}
		}
	}

	sort.Slice(c.ranges, func(i, j int) bool { return c.ranges[i].low < c.ranges[j].low })
	sort.Slice(c.notdef, func(i, j int) bool { return c.notdef[i].low < c.notdef[j].low })
	sort.Slice(c.cidRanges, func(i, j int) bool { return c.cidRanges[i].Low < c.cidRanges[j].Low })

	if len(c.Codespaces) == 0 && len(c.singles) == 0 && len(c.ranges) == 0 && len(c.cidRanges) == 0 {
		return nil, ErrBadCMap
	}
	return c, nil
}

func hexCode(tok tkn.Token) (uint32, int) {
	var code uint32
	for _, b := range tok.Value {
		code = code<<8 | uint32(b)
	}
	return code, len(tok.Value)
}

func (c *CMap) parseCodespaceRanges(tk *tkn.Tokenizer) error {
	for {
		lo, err := tk.NextToken()
		if err != nil {
			return err
		}
		if lo.Kind == tkn.EOF {
			return ErrBadCMap
		}
		if lo.IsOther("endcodespacerange") {
			return nil
		}
		if lo.Kind != tkn.StringHex {
			return ErrBadCMap
		}
		hi, err := tk.NextToken()
		if err != nil || hi.Kind != tkn.StringHex {
			return ErrBadCMap
		}
		loCode, n := hexCode(lo)
		hiCode, _ := hexCode(hi)
		c.Codespaces = append(c.Codespaces, Range{Low: loCode, High: hiCode, NumBytes: n})
	}
}

func (c *CMap) parseBfchar(tk *tkn.Tokenizer) error {
	for {
		src, err := tk.NextToken()
		if err != nil {
			return err
		}
		if src.Kind == tkn.EOF {
			return ErrBadCMap
		}
		if src.IsOther("endbfchar") {
			return nil
		}
		if src.Kind != tkn.StringHex {
			return ErrBadCMap
		}
		code, _ := hexCode(src)

		dst, err := tk.NextToken()
		if err != nil {
			return err
		}
		if dst.Kind == tkn.EOF {
			return ErrBadCMap
		}
		switch dst.Kind {
		case tkn.StringHex:
			c.singles[code] = utf16beToString(dst.Value)
		case tkn.Name:
			// some producers leave a bare name where a destination string
			// belongs; there is nothing usable to map to.
		default:
			return ErrBadCMap
		}
	}
}

func (c *CMap) parseBfrange(tk *tkn.Tokenizer, out *[]bfRange) error {
	for {
		lo, err := tk.NextToken()
		if err != nil {
			return err
		}
		if lo.Kind == tkn.EOF {
			return ErrBadCMap
		}
		if lo.IsOther("endbfrange") || lo.IsOther("endnotdefrange") {
			return nil
		}
		if lo.Kind != tkn.StringHex {
			return ErrBadCMap
		}
		hi, err := tk.NextToken()
		if err != nil || hi.Kind != tkn.StringHex {
			return ErrBadCMap
		}
		loCode, _ := hexCode(lo)
		hiCode, _ := hexCode(hi)

		target, err := tk.NextToken()
		if err != nil {
			return err
		}
		if target.Kind == tkn.EOF {
			return ErrBadCMap
		}
		switch target.Kind {
		case tkn.StringHex:
			*out = append(*out, bfRange{low: loCode, high: hiCode, dst: utf16beToString(target.Value)})
		case tkn.StartArray:
			list, err := parseHexArray(tk)
			if err != nil {
				return err
			}
			*out = append(*out, bfRange{low: loCode, high: hiCode, list: list})
		default:
			return ErrBadCMap
		}
	}
}

func parseHexArray(tk *tkn.Tokenizer) ([]string, error) {
	var out []string
	for {
		tok, err := tk.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Kind == tkn.EOF {
			return nil, ErrBadCMap
		}
		if tok.Kind == tkn.EndArray {
			return out, nil
		}
		if tok.Kind != tkn.StringHex {
			return nil, ErrBadCMap
		}
		out = append(out, utf16beToString(tok.Value))
	}
}

func (c *CMap) parseCIDRange(tk *tkn.Tokenizer) error {
	for {
		lo, err := tk.NextToken()
		if err != nil {
			return err
		}
		if lo.Kind == tkn.EOF {
			return ErrBadCMap
		}
		if lo.IsOther("endcidrange") {
			return nil
		}
		if lo.Kind != tkn.StringHex {
			return ErrBadCMap
		}
		hi, err := tk.NextToken()
		if err != nil || hi.Kind != tkn.StringHex {
			return ErrBadCMap
		}
		cidTok, err := tk.NextToken()
		if err != nil {
			return err
		}
		if cidTok.Kind == tkn.EOF {
			return ErrBadCMap
		}
		cid, err := cidTok.Int()
		if cidTok.Kind != tkn.Integer || err != nil {
			return ErrBadCMap
		}
		loCode, _ := hexCode(lo)
		hiCode, _ := hexCode(hi)
		c.cidRanges = append(c.cidRanges, CIDRange{Low: loCode, High: hiCode, CIDStart: uint32(cid)})
	}
}

// CodeWidth reports how many leading bytes of data form one valid
// character code, per the declared codespace ranges (§4.8: codes are
// 1-4 bytes big-endian, the valid widths enumerated by
// codespacerange). When no codespace range was declared, codes
// default to a single byte.
func (c *CMap) CodeWidth(data []byte) int {
	if len(c.Codespaces) == 0 {
		return 1
	}
	var code uint32
	for n := 1; n <= 4 && n <= len(data); n++ {
		code = code<<8 | uint32(data[n-1])
		for _, r := range c.Codespaces {
			if r.NumBytes == n && code >= r.Low && code <= r.High {
				return n
			}
		}
	}
	// no codespace matched; fall back to the width of the first
	// declared range rather than mis-splitting the remaining bytes.
	return c.Codespaces[0].NumBytes
}

// Lookup is total over the declared codespace ranges (§8): bfchar
// wins first, then a binary search over sorted bfrange entries,
// finally a notdefrange fallback, which maps every code in its range
// to the same destination. ok is false only when none of the three
// layers has anything for code.
func (c *CMap) Lookup(code uint32) (string, bool) {
	if s, ok := c.singles[code]; ok {
		return s, true
	}
	if s, ok := lookupRange(c.ranges, code, true); ok {
		return s, true
	}
	if s, ok := lookupRange(c.notdef, code, false); ok {
		return s, true
	}
	return "", false
}

func lookupRange(ranges []bfRange, code uint32, increment bool) (string, bool) {
	i := sort.Search(len(ranges), func(i int) bool { return ranges[i].high >= code })
	if i >= len(ranges) || ranges[i].low > code {
		return "", false
	}
	r := ranges[i]
	if r.list != nil {
		idx := int(code - r.low)
		if idx < 0 || idx >= len(r.list) {
			return "", false
		}
		return r.list[idx], true
	}
	if !increment {
		return r.dst, true
	}
	return incrementLastRune(r.dst, code-r.low), true
}

// incrementLastRune adds delta to the last rune of s, the behavior a
// hex-string bfrange destination needs when mapping a contiguous code
// range to a contiguous Unicode range starting at s.
func incrementLastRune(s string, delta uint32) string {
	if s == "" || delta == 0 {
		return s
	}
	runes := []rune(s)
	runes[len(runes)-1] += rune(delta)
	return string(runes)
}

// ToCID maps a character code to a CID via this CMap's cidrange
// sections (composite-font /Encoding CMaps, not ToUnicode CMaps).
// Codes outside every range map to CID 0 (.notdef), the behavior
// 9.7.6.2 of the PDF spec requires.
func (c *CMap) ToCID(code uint32) uint32 {
	i := sort.Search(len(c.cidRanges), func(i int) bool { return c.cidRanges[i].High >= code })
	if i >= len(c.cidRanges) || c.cidRanges[i].Low > code {
		return 0
	}
	return c.cidRanges[i].CIDStart + (code - c.cidRanges[i].Low)
}

// utf16beDecoder turns a CMap destination string's raw bytes into a Go
// (UTF-8) string, surrogate pairs included (§8's boundary behavior:
// target points beyond U+FFFF are emitted as a surrogate pair in the
// source bytes, which this decoder recombines into one rune).
var utf16beDecoder = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()

func utf16beToString(b []byte) string {
	if len(b)%2 != 0 {
		b = append(append([]byte(nil), b...), 0) // tolerate a stray odd trailing byte
	}
	out, err := utf16beDecoder.Bytes(b)
	if err != nil {
		return ""
	}
	return string(out)
}
