// Package model defines the in-memory representation of parsed PDF
// objects: a tagged variant (Object), indirect references, and the
// small value types (names, rectangles, matrices) used throughout the
// rest of the reader.
package model

import "strconv"

// Object is a node of a PDF syntax tree, as read from a file.
//
// The PDF null object is represented by its own concrete type (Null),
// so an Object value must never be a nil interface.
type Object interface {
	// Clone returns a deep copy, preserving the concrete type.
	Clone() Object
	isObject()
}

// Null is the PDF null object.
type Null struct{}

func (Null) Clone() Object { return Null{} }
func (Null) isObject()     {}
func (Null) String() string { return "null" }

// Boolean is a PDF boolean object.
type Boolean bool

func (b Boolean) Clone() Object { return b }
func (Boolean) isObject()       {}

// Integer is a PDF integer object.
type Integer int64

func (i Integer) Clone() Object { return i }
func (Integer) isObject()       {}

// Real is a PDF real (floating point) object.
type Real float64

func (r Real) Clone() Object { return r }
func (Real) isObject()       {}

// Number reports whether o is an Integer or Real, returning its value
// as a float64 either way.
func Number(o Object) (float64, bool) {
	switch t := o.(type) {
	case Integer:
		return float64(t), true
	case Real:
		return float64(t), true
	default:
		return 0, false
	}
}

// StringLiteral is a PDF string written with ( ... ) syntax. Escape
// sequences have already been decoded; the bytes are the raw (still
// possibly encrypted, still possibly PDFDocEncoded/UTF-16BE) content.
type StringLiteral string

func (s StringLiteral) Clone() Object { return s }
func (StringLiteral) isObject()       {}

// HexLiteral is a PDF string written with < ... > syntax. Its bytes
// have already been unhexed.
type HexLiteral string

func (h HexLiteral) Clone() Object { return h }
func (HexLiteral) isObject()       {}

// StringValue returns the decoded bytes of a StringLiteral or
// HexLiteral, and whether o was one of those two kinds.
func StringValue(o Object) (string, bool) {
	switch s := o.(type) {
	case StringLiteral:
		return string(s), true
	case HexLiteral:
		return string(s), true
	default:
		return "", false
	}
}

// Name is a PDF name object (written /Foo in a file). It is stored
// already unescaped (no #XX sequences).
type Name string

func (n Name) Clone() Object { return n }
func (Name) isObject()       {}

func (n Name) String() string { return "/" + string(n) }

// Array is a PDF array object.
type Array []Object

func (a Array) Clone() Object {
	out := make(Array, len(a))
	for i, v := range a {
		out[i] = v.Clone()
	}
	return out
}
func (Array) isObject() {}

// Dict is a PDF dictionary object.
type Dict map[Name]Object

func (d Dict) Clone() Object {
	out := make(Dict, len(d))
	for k, v := range d {
		out[k] = v.Clone()
	}
	return out
}
func (Dict) isObject() {}

// NameOf returns the Name value of d[key], if present.
func (d Dict) NameOf(key Name) (Name, bool) {
	n, ok := d[key].(Name)
	return n, ok
}

// IntOf returns the integer value of d[key], accepting Integer or Real.
func (d Dict) IntOf(key Name) (int64, bool) {
	switch v := d[key].(type) {
	case Integer:
		return int64(v), true
	case Real:
		return int64(v), true
	default:
		return 0, false
	}
}

// ArrayOf returns the array value of d[key], if present.
func (d Dict) ArrayOf(key Name) (Array, bool) {
	a, ok := d[key].(Array)
	return a, ok
}

// DictOf returns the dict value of d[key], if present.
func (d Dict) DictOf(key Name) (Dict, bool) {
	v, ok := d[key].(Dict)
	return v, ok
}

// Operator is a bare keyword found in a content stream, such as "re"
// or "Tj". It only ever appears when parsing in content-stream mode.
type Operator string

func (o Operator) Clone() Object { return o }
func (Operator) isObject()       {}

// Reference is an indirect reference to an object, written "id gen R"
// in a PDF file. It is itself an Object, but the object it points to
// must be resolved (via a Store) before it can be inspected.
type Reference struct {
	Number     int64
	Generation int64
}

func (r Reference) Clone() Object { return r }
func (Reference) isObject()       {}

func (r Reference) String() string {
	return strconv.FormatInt(r.Number, 10) + " " + strconv.FormatInt(r.Generation, 10) + " R"
}

// Stream is a PDF stream object: a dictionary plus byte content. By
// the time a Store hands one back, Content has already been
// decrypted and run through the declared /Filter chain; callers never
// see the still-encoded payload.
type Stream struct {
	Dict    Dict
	Content []byte
}

func (s Stream) Clone() Object {
	return Stream{
		Dict:    s.Dict.Clone().(Dict),
		Content: append([]byte(nil), s.Content...),
	}
}
func (Stream) isObject() {}

// BypassCrypt reports whether this stream opts out of decryption via
// an explicit /Crypt filter naming the Identity crypt filter, or more
// generally a /Filter /Crypt entry (handled upstream by the filter
// pipeline, which treats Crypt as a no-op placeholder).
func (s Stream) BypassCrypt() bool {
	switch f := s.Dict["Filter"].(type) {
	case Name:
		return f == "Crypt"
	case Array:
		return len(f) == 1 && f[0] == Name("Crypt")
	default:
		return false
	}
}
