// Package content interprets a decoded content stream (§4.9): it
// replays graphics-state, text-state and text-showing operators
// against a small state machine and emits a flat sequence of
// positioned TextSpan records.
package content

import (
	"github.com/vellumdoc/pdf/cmap"
	"github.com/vellumdoc/pdf/font"
	"github.com/vellumdoc/pdf/model"
	"github.com/vellumdoc/pdf/parser"
	"github.com/vellumdoc/pdf/store"
)

// Options tunes interpretation policy.
type Options struct {
	// WordBreakThreshold is the magnitude (in units of font size) a
	// negative TJ offset must reach before it is treated as a
	// word-break hint rather than ordinary kerning. Default 0.25.
	WordBreakThreshold float64
}

func DefaultOptions() Options { return Options{WordBreakThreshold: 0.25} }

// TextSpan is one run of text shown by a single Tj/TJ/'/" invocation
// (or one contiguous piece of a TJ array), positioned in the
// coordinate space initialCTM established: page user space as written,
// rotated per /Rotate when the interpreter was given a rotation-aware
// initial CTM.
type TextSpan struct {
	Text     string
	X0, Y0   float64 // baseline origin of the first glyph
	X1, Y1   float64 // baseline origin past the last glyph (pre-advance)
	FontSize float64
	MCID     int // -1 when not inside a marked-content sequence carrying one
}

// graphicsState is the subset of the PDF graphics state §4.9 needs:
// the operators it tracks are exactly those that affect text
// positioning and font selection, not painting.
type graphicsState struct {
	ctm model.Matrix

	charSpace float64
	wordSpace float64
	hscale    float64 // Tz/100, default 1
	leading   float64
	font      *font.Info
	fontSize  float64
	rise      float64
}

func newGraphicsState() graphicsState {
	return graphicsState{ctm: model.Identity, hscale: 1}
}

// Interpreter runs one page's concatenated content stream.
type Interpreter struct {
	store     *store.Store
	resources model.Dict
	cache     *cmap.Cache
	opts      Options

	fonts map[model.Name]*font.Info

	gs    graphicsState
	stack []graphicsState

	inText    bool
	tm, tlm   model.Matrix
	mcidStack []int // -1 marks a BDC/BMC level with no MCID

	spans []TextSpan
}

// NewInterpreter builds an Interpreter for one page. initialCTM should
// already account for the page's /Rotate and coordinate flip; resources
// is the page's (inherited) /Resources dictionary, resolved.
func NewInterpreter(st *store.Store, resources model.Dict, initialCTM model.Matrix, cache *cmap.Cache, opts Options) *Interpreter {
	it := &Interpreter{
		store:     st,
		resources: resources,
		cache:     cache,
		opts:      opts,
		fonts:     map[model.Name]*font.Info{},
	}
	it.gs = newGraphicsState()
	it.gs.ctm = initialCTM
	return it
}

// Run interprets content and returns the spans it emitted, in
// execution order.
func (it *Interpreter) Run(content []byte) ([]TextSpan, error) {
	p := parser.New(content)
	p.ContentStreamMode = true

	var operands []model.Object
	for {
		obj, err := p.ParseObject()
		if err != nil {
			break // EOF, or a malformed trailing operator: best-effort stop
		}
		op, ok := obj.(model.Operator)
		if !ok {
			operands = append(operands, obj)
			continue
		}
		it.exec(string(op), operands)
		operands = operands[:0]
	}
	return it.spans, nil
}

func num(o model.Object) float64 {
	f, _ := model.Number(o)
	return f
}

// resolveEntry reads d[key] and follows it if it is an indirect
// reference, since a page's Resources sub-dictionaries (/Font,
// /ExtGState, /Properties...) are frequently shared, and thus
// commonly indirect, objects.
func resolveEntry(st *store.Store, d model.Dict, key model.Name) model.Object {
	if d == nil {
		return nil
	}
	o, err := st.Resolve(d[key])
	if err != nil {
		return nil
	}
	return o
}

func (it *Interpreter) exec(op string, args []model.Object) {
	switch op {
	case "q":
		it.stack = append(it.stack, it.gs)
	case "Q":
		if n := len(it.stack); n > 0 {
			it.gs = it.stack[n-1]
			it.stack = it.stack[:n-1]
		}
	case "cm":
		if len(args) >= 6 {
			m := model.Matrix{num(args[0]), num(args[1]), num(args[2]), num(args[3]), num(args[4]), num(args[5])}
			it.gs.ctm = m.Mul(it.gs.ctm)
		}
	case "gs":
		// ExtGState may carry /Font [fontRef size]; anything else
		// (blend modes, soft masks) has no bearing on text extraction.
		if len(args) >= 1 {
			it.applyExtGState(args[0])
		}

	case "BT":
		it.inText = true
		it.tm = model.Identity
		it.tlm = model.Identity
		it.mcidStack = it.mcidStack[:0]
	case "ET":
		it.inText = false

	case "Tc":
		if len(args) >= 1 {
			it.gs.charSpace = num(args[0])
		}
	case "Tw":
		if len(args) >= 1 {
			it.gs.wordSpace = num(args[0])
		}
	case "Tz":
		if len(args) >= 1 {
			it.gs.hscale = num(args[0]) / 100
		}
	case "TL":
		if len(args) >= 1 {
			it.gs.leading = num(args[0])
		}
	case "Tf":
		if len(args) >= 2 {
			if name, ok := args[0].(model.Name); ok {
				it.gs.font = it.lookupFont(name)
			}
			it.gs.fontSize = num(args[1])
		}
	case "Tr":
		// rendering mode does not change what text extracts to.
	case "Ts":
		if len(args) >= 1 {
			it.gs.rise = num(args[0])
		}

	case "Td":
		if len(args) >= 2 {
			it.tlm = model.Matrix{1, 0, 0, 1, num(args[0]), num(args[1])}.Mul(it.tlm)
			it.tm = it.tlm
		}
	case "TD":
		if len(args) >= 2 {
			it.gs.leading = -num(args[1])
			it.tlm = model.Matrix{1, 0, 0, 1, num(args[0]), num(args[1])}.Mul(it.tlm)
			it.tm = it.tlm
		}
	case "Tm":
		if len(args) >= 6 {
			it.tlm = model.Matrix{num(args[0]), num(args[1]), num(args[2]), num(args[3]), num(args[4]), num(args[5])}
			it.tm = it.tlm
		}
	case "T*":
		it.tlm = model.Matrix{1, 0, 0, 1, 0, -it.gs.leading}.Mul(it.tlm)
		it.tm = it.tlm

	case "Tj":
		if len(args) >= 1 {
			it.showText(args[0])
		}
	case "'":
		it.tlm = model.Matrix{1, 0, 0, 1, 0, -it.gs.leading}.Mul(it.tlm)
		it.tm = it.tlm
		if len(args) >= 1 {
			it.showText(args[0])
		}
	case "\"":
		if len(args) >= 3 {
			it.gs.wordSpace = num(args[0])
			it.gs.charSpace = num(args[1])
			it.tlm = model.Matrix{1, 0, 0, 1, 0, -it.gs.leading}.Mul(it.tlm)
			it.tm = it.tlm
			it.showText(args[2])
		}
	case "TJ":
		if len(args) >= 1 {
			if arr, ok := args[0].(model.Array); ok {
				it.showTextArray(arr)
			}
		}

	case "BDC", "BMC":
		it.mcidStack = append(it.mcidStack, it.resolveMCID(op, args))
	case "EMC":
		if n := len(it.mcidStack); n > 0 {
			it.mcidStack = it.mcidStack[:n-1]
		}
	}
}

func (it *Interpreter) applyExtGState(nameObj model.Object) {
	name, ok := nameObj.(model.Name)
	if !ok || it.resources == nil {
		return
	}
	extGStates, _ := resolveEntry(it.store, it.resources, "ExtGState").(model.Dict)
	egsRef, ok := extGStates[name]
	if !ok {
		return
	}
	egs, _ := it.store.Resolve(egsRef)
	d, ok := egs.(model.Dict)
	if !ok {
		return
	}
	if fontArr, ok := d["Font"].(model.Array); ok && len(fontArr) == 2 {
		if fref, ok := fontArr[0].(model.Reference); ok {
			if dict, err := it.store.Resolve(fref); err == nil {
				if fd, ok := dict.(model.Dict); ok {
					if fi, err := font.Resolve(it.store, fd, it.cache, font.DefaultOptions()); err == nil {
						it.gs.font = fi
					}
				}
			}
		}
		it.gs.fontSize = num(fontArr[1])
	}
}

// currentMCID returns the innermost non-negative MCID on the marked-
// content stack, or -1 when none is open.
func (it *Interpreter) currentMCID() int {
	for i := len(it.mcidStack) - 1; i >= 0; i-- {
		if it.mcidStack[i] >= 0 {
			return it.mcidStack[i]
		}
	}
	return -1
}

func (it *Interpreter) resolveMCID(op string, args []model.Object) int {
	if len(args) < 2 {
		return -1
	}
	props := args[1]
	var dict model.Dict
	switch p := props.(type) {
	case model.Dict:
		dict = p
	case model.Name:
		if it.resources == nil {
			return -1
		}
		properties, _ := resolveEntry(it.store, it.resources, "Properties").(model.Dict)
		if ref, ok := properties[p]; ok {
			if resolved, err := it.store.Resolve(ref); err == nil {
				dict, _ = resolved.(model.Dict)
			}
		}
	}
	if dict == nil {
		return -1
	}
	if mcid, ok := dict.IntOf("MCID"); ok {
		return int(mcid)
	}
	return -1
}

func (it *Interpreter) lookupFont(name model.Name) *font.Info {
	if fi, ok := it.fonts[name]; ok {
		return fi
	}
	if it.resources == nil {
		return nil
	}
	fontsDict, _ := resolveEntry(it.store, it.resources, "Font").(model.Dict)
	ref, ok := fontsDict[name]
	if !ok {
		return nil
	}
	obj, err := it.store.Resolve(ref)
	if err != nil {
		return nil
	}
	dict, ok := obj.(model.Dict)
	if !ok {
		return nil
	}
	fi, err := font.Resolve(it.store, dict, it.cache, font.DefaultOptions())
	if err != nil {
		return nil
	}
	it.fonts[name] = fi
	return fi
}

// showText decodes and shows one string operand (Tj/'/").
func (it *Interpreter) showText(o model.Object) {
	bytes := stringBytes(o)
	it.showBytes(bytes)
}

// showTextArray interleaves strings and kerning numbers (TJ).
func (it *Interpreter) showTextArray(arr model.Array) {
	for _, el := range arr {
		switch v := el.(type) {
		case model.Integer, model.Real:
			amount := num(v)
			it.applyKerning(amount)
		default:
			it.showBytes(stringBytes(v))
		}
	}
}

func stringBytes(o model.Object) []byte {
	switch v := o.(type) {
	case model.StringLiteral:
		return []byte(v)
	case model.HexLiteral:
		return []byte(v)
	default:
		return nil
	}
}

// applyKerning advances the text matrix by a TJ numeric operand and,
// when the adjustment is a large negative value (meaning: push the
// next glyph further right than normal kerning would), emits a space
// as a word-break hint per spec.md §4.9/§9.
func (it *Interpreter) applyKerning(amount float64) {
	if !it.inText || it.gs.font == nil {
		return
	}
	tx := -(amount / 1000) * it.gs.fontSize * it.gs.hscale
	it.tm = model.Matrix{1, 0, 0, 1, tx, 0}.Mul(it.tm)

	threshold := it.opts.WordBreakThreshold * it.gs.fontSize
	if -amount/1000*it.gs.fontSize >= threshold {
		it.appendSpan(" ", 0)
	}
}

// showBytes decodes fi's character codes out of raw, emitting one
// TextSpan per call and advancing the text matrix per glyph exactly
// as 9.4.3 describes.
func (it *Interpreter) showBytes(raw []byte) {
	if !it.inText || it.gs.font == nil || len(raw) == 0 {
		return
	}
	fi := it.gs.font

	x0, y0 := it.glyphOrigin()
	var b []byte
	for i := 0; i < len(raw); {
		n := fi.CodeWidth(raw[i:])
		if n <= 0 || i+n > len(raw) {
			n = 1
		}
		var code uint32
		for _, c := range raw[i : i+n] {
			code = code<<8 | uint32(c)
		}
		i += n

		s, _ := fi.Unicode(code)
		b = append(b, []byte(s)...)

		w0 := fi.Width(code) / 1000
		isSpace := n == 1 && code == 0x20
		tw := 0.0
		if isSpace {
			tw = it.gs.wordSpace
		}
		tx := (w0*it.gs.fontSize + it.gs.charSpace + tw) * it.gs.hscale
		it.tm = model.Matrix{1, 0, 0, 1, tx, 0}.Mul(it.tm)
	}
	x1, y1 := it.glyphOrigin()
	if len(b) > 0 {
		it.spans = append(it.spans, TextSpan{
			Text: string(b), X0: x0, Y0: y0, X1: x1, Y1: y1,
			FontSize: it.gs.fontSize, MCID: it.currentMCID(),
		})
	}
}

// appendSpan records a synthetic span (currently only the TJ
// word-break space) at the interpreter's current position.
func (it *Interpreter) appendSpan(text string, fontSize float64) {
	x, y := it.glyphOrigin()
	if fontSize == 0 {
		fontSize = it.gs.fontSize
	}
	it.spans = append(it.spans, TextSpan{Text: text, X0: x, Y0: y, X1: x, Y1: y, FontSize: fontSize, MCID: it.currentMCID()})
}

// glyphOrigin computes the current glyph-space origin in device space:
// the text rendering matrix (scale/rise folded in) times Tm times CTM
// (9.4.4's "Trm").
func (it *Interpreter) glyphOrigin() (float64, float64) {
	trm := model.Matrix{it.gs.fontSize * it.gs.hscale, 0, 0, it.gs.fontSize, 0, it.gs.rise}.Mul(it.tm).Mul(it.gs.ctm)
	return trm.Apply(0, 0)
}
