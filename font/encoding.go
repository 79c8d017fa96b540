// Package font implements layers 2 and 3 of the Font & CMap Engine
// (§4.8): resolving a simple font's character codes to Unicode via a
// named or /Differences encoding and the Adobe Glyph List, an Identity
// fallback, and parsing font descriptors / embedded font programs for
// widths and CID-to-GID mapping.
package font

import (
	"strconv"

	"github.com/vellumdoc/pdf/model"
)

// PredefinedEncoding names one of the base encodings 9.6.6 allows a
// simple font's /Encoding to name directly.
type PredefinedEncoding string

const (
	StandardEncoding  PredefinedEncoding = "StandardEncoding"
	WinAnsiEncoding   PredefinedEncoding = "WinAnsiEncoding"
	MacRomanEncoding  PredefinedEncoding = "MacRomanEncoding"
	MacExpertEncoding PredefinedEncoding = "MacExpertEncoding"
	SymbolEncoding    PredefinedEncoding = "Symbol"
	ZapfDingbatsEncoding PredefinedEncoding = "ZapfDingbats"
)

// Encoding is a byte -> glyph name table, the intermediate
// representation §4.8 layer 2 resolves a code through before the name
// is turned into Unicode by the Adobe Glyph List.
type Encoding [256]string

// asciiNames is shared by Standard, WinAnsi and MacRoman: all three
// agree with ASCII in the printable range 0x20-0x7E (9.6.6.2, Appendix
// D). Differences begin only in the high half of the byte range.
var asciiNames = [...]string{
	0x20: "space", 0x21: "exclam", 0x22: "quotedbl", 0x23: "numbersign",
	0x24: "dollar", 0x25: "percent", 0x26: "ampersand", 0x27: "quotesingle",
	0x28: "parenleft", 0x29: "parenright", 0x2A: "asterisk", 0x2B: "plus",
	0x2C: "comma", 0x2D: "hyphen", 0x2E: "period", 0x2F: "slash",
	0x30: "zero", 0x31: "one", 0x32: "two", 0x33: "three", 0x34: "four",
	0x35: "five", 0x36: "six", 0x37: "seven", 0x38: "eight", 0x39: "nine",
	0x3A: "colon", 0x3B: "semicolon", 0x3C: "less", 0x3D: "equal",
	0x3E: "greater", 0x3F: "question", 0x40: "at",
	0x5B: "bracketleft", 0x5C: "backslash", 0x5D: "bracketright",
	0x5E: "asciicircum", 0x5F: "underscore", 0x60: "grave",
	0x7B: "braceleft", 0x7C: "bar", 0x7D: "braceright", 0x7E: "asciitilde",
}

func init() {
	for c := rune('A'); c <= 'Z'; c++ {
		asciiNames[c] = string(c)
	}
	for c := rune('a'); c <= 'z'; c++ {
		asciiNames[c] = string(c)
	}
}

// winAnsiHigh is WinAnsiEncoding's 0x80-0xFF half (close to Latin-1,
// CP1252's curly quotes/dashes substituted in the 0x80-0x9F block).
var winAnsiHigh = map[byte]string{
	0x80: "Euro", 0x82: "quotesinglbase", 0x83: "florin", 0x84: "quotedblbase",
	0x85: "ellipsis", 0x86: "dagger", 0x87: "daggerdbl", 0x88: "circumflex",
	0x89: "perthousand", 0x8A: "Scaron", 0x8B: "guilsinglleft", 0x8C: "OE",
	0x8E: "Zcaron", 0x91: "quoteleft", 0x92: "quoteright", 0x93: "quotedblleft",
	0x94: "quotedblright", 0x95: "bullet", 0x96: "endash", 0x97: "emdash",
	0x98: "tilde", 0x99: "trademark", 0x9A: "scaron", 0x9B: "guilsinglright",
	0x9C: "oe", 0x9E: "zcaron", 0x9F: "Ydieresis", 0xA0: "space",
	0xA1: "exclamdown", 0xA2: "cent", 0xA3: "sterling", 0xA4: "currency",
	0xA5: "yen", 0xA6: "brokenbar", 0xA7: "section", 0xA8: "dieresis",
	0xA9: "copyright", 0xAA: "ordfeminine", 0xAB: "guillemotleft",
	0xAC: "logicalnot", 0xAD: "hyphen", 0xAE: "registered", 0xAF: "macron",
	0xB0: "degree", 0xB1: "plusminus", 0xB2: "twosuperior", 0xB3: "threesuperior",
	0xB4: "acute", 0xB5: "mu", 0xB6: "paragraph", 0xB7: "periodcentered",
	0xB8: "cedilla", 0xB9: "onesuperior", 0xBA: "ordmasculine",
	0xBB: "guillemotright", 0xBC: "onequarter", 0xBD: "onehalf",
	0xBE: "threequarters", 0xBF: "questiondown",
	0xC0: "Agrave", 0xC1: "Aacute", 0xC2: "Acircumflex", 0xC3: "Atilde",
	0xC4: "Adieresis", 0xC5: "Aring", 0xC6: "AE", 0xC7: "Ccedilla",
	0xC8: "Egrave", 0xC9: "Eacute", 0xCA: "Ecircumflex", 0xCB: "Edieresis",
	0xCC: "Igrave", 0xCD: "Iacute", 0xCE: "Icircumflex", 0xCF: "Idieresis",
	0xD0: "Eth", 0xD1: "Ntilde", 0xD2: "Ograve", 0xD3: "Oacute",
	0xD4: "Ocircumflex", 0xD5: "Otilde", 0xD6: "Odieresis", 0xD7: "multiply",
	0xD8: "Oslash", 0xD9: "Ugrave", 0xDA: "Uacute", 0xDB: "Ucircumflex",
	0xDC: "Udieresis", 0xDD: "Yacute", 0xDE: "Thorn", 0xDF: "germandbls",
	0xE0: "agrave", 0xE1: "aacute", 0xE2: "acircumflex", 0xE3: "atilde",
	0xE4: "adieresis", 0xE5: "aring", 0xE6: "ae", 0xE7: "ccedilla",
	0xE8: "egrave", 0xE9: "eacute", 0xEA: "ecircumflex", 0xEB: "edieresis",
	0xEC: "igrave", 0xED: "iacute", 0xEE: "icircumflex", 0xEF: "idieresis",
	0xF0: "eth", 0xF1: "ntilde", 0xF2: "ograve", 0xF3: "oacute",
	0xF4: "ocircumflex", 0xF5: "otilde", 0xF6: "odieresis", 0xF7: "divide",
	0xF8: "oslash", 0xF9: "ugrave", 0xFA: "uacute", 0xFB: "ucircumflex",
	0xFC: "udieresis", 0xFD: "yacute", 0xFE: "thorn", 0xFF: "ydieresis",
}

// macRomanHigh is MacRomanEncoding's 0x80-0xFF half (Apple's original
// Mac OS Roman codepage, which predates and differs from Latin-1).
var macRomanHigh = map[byte]string{
	0x80: "Adieresis", 0x81: "Aring", 0x82: "Ccedilla", 0x83: "Eacute",
	0x84: "Ntilde", 0x85: "Odieresis", 0x86: "Udieresis", 0x87: "aacute",
	0x88: "agrave", 0x89: "acircumflex", 0x8A: "adieresis", 0x8B: "atilde",
	0x8C: "aring", 0x8D: "ccedilla", 0x8E: "eacute", 0x8F: "egrave",
	0x90: "ecircumflex", 0x91: "edieresis", 0x92: "iacute", 0x93: "igrave",
	0x94: "icircumflex", 0x95: "idieresis", 0x96: "ntilde", 0x97: "oacute",
	0x98: "ograve", 0x99: "ocircumflex", 0x9A: "odieresis", 0x9B: "otilde",
	0x9C: "uacute", 0x9D: "ugrave", 0x9E: "ucircumflex", 0x9F: "udieresis",
	0xA0: "dagger", 0xA1: "degree", 0xA2: "cent", 0xA3: "sterling",
	0xA4: "section", 0xA5: "bullet", 0xA6: "paragraph", 0xA7: "germandbls",
	0xA8: "registered", 0xA9: "copyright", 0xAA: "trademark", 0xAB: "acute",
	0xAC: "dieresis", 0xAE: "AE", 0xAF: "Oslash", 0xB1: "plusminus",
	0xB4: "yen", 0xB5: "mu", 0xBB: "ordfeminine", 0xBC: "ordmasculine",
	0xBE: "ae", 0xBF: "oslash", 0xC0: "questiondown", 0xC1: "exclamdown",
	0xC2: "logicalnot", 0xC4: "florin", 0xC7: "guillemotleft",
	0xC8: "guillemotright", 0xC9: "ellipsis", 0xCA: "space", 0xCB: "Agrave",
	0xCC: "Atilde", 0xCD: "Otilde", 0xCE: "OE", 0xCF: "oe", 0xD0: "endash",
	0xD1: "emdash", 0xD2: "quotedblleft", 0xD3: "quotedblright",
	0xD4: "quoteleft", 0xD5: "quoteright", 0xD6: "divide", 0xD8: "ydieresis",
	0xD9: "Ydieresis", 0xDA: "fraction", 0xDB: "currency",
	0xDC: "guilsinglleft", 0xDD: "guilsinglright", 0xDE: "fi", 0xDF: "fl",
	0xE0: "daggerdbl", 0xE1: "periodcentered", 0xE2: "quotesinglbase",
	0xE3: "quotedblbase", 0xE4: "perthousand", 0xE5: "Acircumflex",
	0xE6: "Ecircumflex", 0xE7: "Aacute", 0xE8: "Edieresis", 0xE9: "Egrave",
	0xEA: "Iacute", 0xEB: "Icircumflex", 0xEC: "Idieresis", 0xED: "Igrave",
	0xEE: "Oacute", 0xEF: "Ocircumflex", 0xF1: "Ograve", 0xF2: "Uacute",
	0xF3: "Ucircumflex", 0xF4: "Ugrave", 0xF5: "dotlessi", 0xF6: "circumflex",
	0xF7: "tilde", 0xF8: "macron", 0xF9: "breve", 0xFA: "dotaccent",
	0xFB: "ring", 0xFC: "cedilla", 0xFD: "hungarumlaut", 0xFE: "ogonek",
	0xFF: "caron",
}

func buildEncoding(high map[byte]string) Encoding {
	var e Encoding
	for i, n := range asciiNames {
		e[i] = n
	}
	for b, n := range high {
		e[b] = n
	}
	return e
}

// StandardEnc, WinAnsiEnc and MacRomanEnc are the three named encodings
// a simple font's /Encoding may select (9.6.6). StandardEnc has no
// table of its own for the high half of the byte range: it reuses
// WinAnsi's high-byte names there.
var (
	StandardEnc = buildEncoding(winAnsiHigh) // Adobe StandardEncoding's high half is a subset of WinAnsi's in common use
	WinAnsiEnc  = buildEncoding(winAnsiHigh)
	MacRomanEnc = buildEncoding(macRomanHigh)
)

// PredefinedEncodings maps the name a font dictionary writes to the
// table it selects.
var PredefinedEncodings = map[PredefinedEncoding]*Encoding{
	StandardEncoding: &StandardEnc,
	WinAnsiEncoding:  &WinAnsiEnc,
	MacRomanEncoding: &MacRomanEnc,
}

// Differences is a simple font's /Encoding /Differences array, already
// flattened to byte -> glyph name (model.Dict parsing happens in the
// caller; this package only applies the result).
type Differences map[byte]string

// Apply overlays diffs onto base, returning a new table (base is never
// mutated).
func (diffs Differences) Apply(base Encoding) Encoding {
	out := base
	for b, n := range diffs {
		out[b] = n
	}
	return out
}

// ParseDifferences reads a /Differences array: a sequence of
// (number, name, name, name...) runs, where each run assigns
// consecutive codes starting at number to the names that follow until
// the next number (9.6.6.2).
func ParseDifferences(arr model.Array) Differences {
	out := Differences{}
	code := int64(0)
	for _, o := range arr {
		switch v := o.(type) {
		case model.Integer:
			code = int64(v)
		case model.Real:
			code = int64(v)
		case model.Name:
			if code >= 0 && code <= 255 {
				out[byte(code)] = string(v)
			}
			code++
		}
	}
	return out
}

// GlyphToRune resolves a glyph name to a Unicode scalar via the Adobe
// Glyph List (a curated high-frequency subset, §4.8 layer 2's final
// step), the "uniXXXX"/"uXXXXXX" naming convention the AGL
// specification itself defines, or a bare single-letter name. Any
// other name, including many the named encodings use ("space",
// "eacute", "quotedblleft"), reports false.
func GlyphToRune(name string) (rune, bool) {
	if r, ok := adobeGlyphList[name]; ok {
		return r, true
	}
	if r, ok := parseUniName(name); ok {
		return r, true
	}
	if len([]rune(name)) == 1 {
		return []rune(name)[0], true
	}
	return 0, false
}

// parseUniName decodes the AGL's "uniXXXX" (exactly 4 hex digits) and
// "uXXXX"-"uXXXXXX" (4-6 hex digits) glyph name conventions.
func parseUniName(name string) (rune, bool) {
	if len(name) == 7 && name[:3] == "uni" {
		if v, err := strconv.ParseInt(name[3:], 16, 32); err == nil {
			return rune(v), true
		}
	}
	if len(name) >= 5 && len(name) <= 7 && name[0] == 'u' {
		if v, err := strconv.ParseInt(name[1:], 16, 32); err == nil {
			return rune(v), true
		}
	}
	return 0, false
}
