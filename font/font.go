package font

import (
	"github.com/vellumdoc/pdf/cmap"
	"github.com/vellumdoc/pdf/model"
	"github.com/vellumdoc/pdf/standardfonts"
	"github.com/vellumdoc/pdf/store"
	"golang.org/x/image/font/sfnt"
)

// Kind distinguishes a simple font (one-byte character codes, decoded
// through a named/Differences encoding) from a composite Type0 font
// (multi-byte codes through an /Encoding CMap), the split §4.8 keys
// every other decision off.
type Kind uint8

const (
	Simple Kind = iota
	Composite
)

// Options tunes the Unicode-resolution policy a Info applies.
type Options struct {
	// RejectReplacementChar makes Unicode treat a /ToUnicode result of
	// U+FFFD as no mapping and fall through to the encoding and
	// Identity layers instead of emitting visible mojibake. Default
	// true.
	RejectReplacementChar bool
}

// DefaultOptions is the policy used when a caller has no opinion.
func DefaultOptions() Options { return Options{RejectReplacementChar: true} }

// Info is a font resolved from a PDF font dictionary: enough to turn
// the byte codes a content stream shows into Unicode text (§4.8) and
// to measure the glyph widths the spacing heuristics of §4.9 need.
type Info struct {
	Kind     Kind
	BaseFont string
	opts     Options

	// simple-font fields
	encoding  Encoding
	firstChar int
	widths    []float64 // widths[code-firstChar], in 1/1000 text-space units

	// composite-font fields
	codeMap      *cmap.CMap // code -> CID; nil means an Identity-H/V /Encoding
	cidWidths    map[uint32]float64
	defaultWidth float64
	cidToGID     cidToGIDMap

	toUnicode *cmap.CMap // optional /ToUnicode CMap, present on either kind

	missingWidth float64
	glyphCount   int // 0 when no embedded program was parsed
}

// cidToGIDMap is a composite font's /CIDToGIDMap: either the identity
// (CID == GID, the common case for Identity-H+TrueType) or an explicit
// stream of big-endian uint16 GIDs indexed by CID (9.7.4.2).
type cidToGIDMap struct {
	identity bool
	table    []uint16
}

func (m cidToGIDMap) GIDFor(cid uint32) uint32 {
	if m.identity {
		return cid
	}
	if int(cid) >= len(m.table) {
		return 0
	}
	return uint32(m.table[cid])
}

// Resolve reads a font dictionary (already resolved to a model.Dict)
// out of st and builds an Info, loading its /ToUnicode CMap and, for a
// composite font, its /Encoding CMap and /CIDToGIDMap lazily through
// cache so repeated fonts sharing the same CMap bytes parse it once.
func Resolve(st *store.Store, dict model.Dict, cache *cmap.Cache, opts Options) (*Info, error) {
	fi := &Info{opts: opts, defaultWidth: 0, missingWidth: 0}

	if bf, ok := resolve(st, dict["BaseFont"]).(model.Name); ok {
		fi.BaseFont = string(bf)
	}

	subtype, _ := resolve(st, dict["Subtype"]).(model.Name)

	if subtype == "Type0" {
		fi.Kind = Composite
		if err := fi.resolveComposite(st, dict, cache); err != nil {
			return nil, err
		}
	} else {
		fi.Kind = Simple
		if err := fi.resolveSimple(st, dict); err != nil {
			return nil, err
		}
	}

	if tu := resolve(st, dict["ToUnicode"]); tu != nil {
		if data, err := streamContent(tu); err == nil {
			if cm, err := cache.GetOrParse(data); err == nil {
				fi.toUnicode = cm
			}
		}
	}

	if desc, ok := resolve(st, dict["FontDescriptor"]).(model.Dict); ok {
		fi.applyDescriptor(st, desc)
	}

	return fi, nil
}

func (fi *Info) resolveSimple(st *store.Store, dict model.Dict) error {
	base := defaultEncodingFor(fi.BaseFont)

	switch enc := resolve(st, dict["Encoding"]).(type) {
	case model.Name:
		if named, ok := PredefinedEncodings[PredefinedEncoding(enc)]; ok {
			base = *named
		}
	case model.Dict:
		if baseName, ok := resolve(st, enc["BaseEncoding"]).(model.Name); ok {
			if named, ok := PredefinedEncodings[PredefinedEncoding(baseName)]; ok {
				base = *named
			}
		}
		if diffs, ok := resolve(st, enc["Differences"]).(model.Array); ok {
			base = ParseDifferences(diffs).Apply(base)
		}
	}
	fi.encoding = base

	if fc, ok := model.Number(resolve(st, dict["FirstChar"])); ok {
		fi.firstChar = int(fc)
	}
	if arr, ok := resolve(st, dict["Widths"]).(model.Array); ok {
		fi.widths = make([]float64, len(arr))
		for i, o := range arr {
			if w, ok := model.Number(resolve(st, o)); ok {
				fi.widths[i] = w
			}
		}
	}
	if len(fi.widths) == 0 {
		fi.applyStandardMetrics()
	}
	return nil
}

// applyStandardMetrics fills in fi.firstChar/fi.widths from the
// standard-14 metrics table when the font dictionary omitted /Widths
// entirely, which PDF permits for the 14 standard fonts (9.6.2.2) and
// which many non-conformant producers do for near-standard fonts too.
// A subset tag ("ABCDEF+Helvetica") is stripped before lookup.
func (fi *Info) applyStandardMetrics() {
	name := fi.BaseFont
	if len(name) > 7 && name[6] == '+' {
		isTag := true
		for _, c := range name[:6] {
			if c < 'A' || c > 'Z' {
				isTag = false
				break
			}
		}
		if isTag {
			name = name[7:]
		}
	}
	m, ok := standardfonts.Lookup(name)
	if !ok {
		return
	}
	fi.firstChar = m.FirstChar
	fi.widths = make([]float64, len(m.Widths))
	for i, w := range m.Widths {
		fi.widths[i] = float64(w)
	}
}

// defaultEncodingFor picks the encoding a viewer falls back to absent
// an explicit /Encoding entry: Symbol/ZapfDingbats fonts carry their
// own builtin table that this package does not model, so they fall
// through to the Identity layer; everything else defaults to Standard
// (9.6.6.2).
func defaultEncodingFor(baseFont string) Encoding {
	switch PredefinedEncoding(baseFont) {
	case SymbolEncoding, ZapfDingbatsEncoding:
		return Encoding{}
	}
	return StandardEnc
}

func (fi *Info) resolveComposite(st *store.Store, dict model.Dict, cache *cmap.Cache) error {
	switch enc := resolve(st, dict["Encoding"]).(type) {
	case model.Name:
		// Identity-H and Identity-V both map code == CID directly;
		// fi.codeMap stays nil to mean "identity".
	case model.Stream:
		data, err := streamContent(enc)
		if err == nil {
			if cm, err := cache.GetOrParse(data); err == nil {
				fi.codeMap = cm
			}
		}
	}

	descendants, _ := resolve(st, dict["DescendantFonts"]).(model.Array)
	if len(descendants) == 0 {
		return nil
	}
	desc, _ := resolve(st, descendants[0]).(model.Dict)
	if desc == nil {
		return nil
	}

	fi.defaultWidth = 1000
	if dw, ok := model.Number(resolve(st, desc["DW"])); ok {
		fi.defaultWidth = dw
	}
	fi.cidWidths = parseCompositeWidths(st, desc["W"])

	switch cg := resolve(st, desc["CIDToGIDMap"]).(type) {
	case model.Stream:
		data, err := streamContent(cg)
		if err == nil {
			fi.cidToGID = parseCIDToGIDTable(data)
		} else {
			fi.cidToGID = cidToGIDMap{identity: true}
		}
	default:
		fi.cidToGID = cidToGIDMap{identity: true}
	}

	if fdesc, ok := resolve(st, desc["FontDescriptor"]).(model.Dict); ok {
		fi.applyDescriptor(st, fdesc)
	}
	return nil
}

// parseCompositeWidths reads a /W array (9.7.4.3): runs of either
// `c [w1 w2 ... wn]` (consecutive CIDs starting at c, one width each)
// or `cFirst cLast w` (a whole range sharing one width).
func parseCompositeWidths(st *store.Store, wObj model.Object) map[uint32]float64 {
	arr, ok := resolve(st, wObj).(model.Array)
	if !ok {
		return nil
	}
	out := map[uint32]float64{}
	i := 0
	for i < len(arr) {
		first, ok := model.Number(resolve(st, arr[i]))
		if !ok {
			break
		}
		i++
		if i >= len(arr) {
			break
		}
		switch next := resolve(st, arr[i]).(type) {
		case model.Array:
			for j, wo := range next {
				if w, ok := model.Number(resolve(st, wo)); ok {
					out[uint32(first)+uint32(j)] = w
				}
			}
			i++
		default:
			last, ok := model.Number(next)
			if !ok || i+1 >= len(arr) {
				return out
			}
			w, ok := model.Number(resolve(st, arr[i+1]))
			if !ok {
				return out
			}
			for cid := uint32(first); cid <= uint32(last); cid++ {
				out[cid] = w
			}
			i += 2
		}
	}
	return out
}

func parseCIDToGIDTable(data []byte) cidToGIDMap {
	table := make([]uint16, len(data)/2)
	for i := range table {
		table[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return cidToGIDMap{table: table}
}

func (fi *Info) applyDescriptor(st *store.Store, desc model.Dict) {
	if mw, ok := model.Number(resolve(st, desc["MissingWidth"])); ok {
		fi.missingWidth = mw
	}
	for _, key := range [...]model.Name{"FontFile", "FontFile2", "FontFile3"} {
		s, ok := resolve(st, desc[key]).(model.Stream)
		if !ok {
			continue
		}
		data, err := streamContent(s)
		if err != nil {
			continue
		}
		if key == "FontFile2" {
			if f, err := sfnt.Parse(data); err == nil {
				fi.glyphCount = f.NumGlyphs()
			}
		}
		break
	}
}

// CodeWidth reports how many leading bytes of data make up one
// character code: always 1 for a simple font, the codespace-declared
// width for a composite font with an explicit /Encoding CMap, or 2 for
// Identity-H/V (9.7.6.2's "two-byte codes" default).
func (fi *Info) CodeWidth(data []byte) int {
	if fi.Kind == Simple {
		return 1
	}
	if fi.codeMap != nil {
		return fi.codeMap.CodeWidth(data)
	}
	if len(data) < 2 {
		return len(data)
	}
	return 2
}

// ToCID maps a character code to the glyph selector used for width and
// GID lookups. Simple fonts use the code itself as the selector.
func (fi *Info) ToCID(code uint32) uint32 {
	if fi.Kind == Simple {
		return code
	}
	if fi.codeMap == nil {
		return code
	}
	return fi.codeMap.ToCID(code)
}

// Width returns the glyph width for code, in 1/1000 text-space units.
// When code has no explicit entry, a simple font falls back to its
// declared MissingWidth (default 0) and a composite font to its
// descendant's /DW (1000 when absent).
func (fi *Info) Width(code uint32) float64 {
	if fi.Kind == Simple {
		idx := int(code) - fi.firstChar
		if idx >= 0 && idx < len(fi.widths) {
			return fi.widths[idx]
		}
		return fi.missingWidth
	}
	cid := fi.ToCID(code)
	if w, ok := fi.cidWidths[cid]; ok {
		return w
	}
	return fi.defaultWidth
}

// Unicode resolves a character code to text, per §4.8's three layers:
// the font's own /ToUnicode CMap, then (simple fonts only) the
// encoding-name + Adobe-Glyph-List path, then an Identity fallback
// that treats the raw code/CID as the Unicode scalar value directly.
// Since the Identity layer always yields a rune, ok is always true.
func (fi *Info) Unicode(code uint32) (string, bool) {
	if fi.toUnicode != nil {
		if s, ok := fi.toUnicode.Lookup(code); ok {
			if fi.opts.RejectReplacementChar && s == "�" {
				// fall through to a lower-confidence layer
			} else {
				return s, true
			}
		}
	}

	if fi.Kind == Simple {
		if code < 256 {
			if name := fi.encoding[code]; name != "" {
				if r, ok := GlyphToRune(name); ok {
					return string(r), true
				}
			}
		}
		return string(rune(code)), true
	}

	cid := fi.ToCID(code)
	return string(rune(cid)), true
}

func resolve(st *store.Store, o model.Object) model.Object {
	if o == nil {
		return nil
	}
	r, err := st.Resolve(o)
	if err != nil {
		return o
	}
	return r
}

// streamContent returns a resolved stream's payload. The Store already
// ran it through the declared /Filter chain while loading it, so this
// is a plain field read, not another decode pass.
func streamContent(o model.Object) ([]byte, error) {
	s, ok := o.(model.Stream)
	if !ok {
		return nil, errNotAStream
	}
	return s.Content, nil
}

var errNotAStream = notAStreamError{}

type notAStreamError struct{}

func (notAStreamError) Error() string { return "font: expected a stream object" }
