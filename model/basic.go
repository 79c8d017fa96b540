package model

// Rectangle is a PDF rectangle: lower-left and upper-right corners.
type Rectangle struct {
	Llx, Lly, Urx, Ury float64
}

// Width returns the absolute width of the rectangle.
func (r Rectangle) Width() float64 {
	w := r.Urx - r.Llx
	if w < 0 {
		return -w
	}
	return w
}

// Height returns the absolute height of the rectangle.
func (r Rectangle) Height() float64 {
	h := r.Ury - r.Lly
	if h < 0 {
		return -h
	}
	return h
}

// Matrix is a PDF transformation matrix [a b c d e f], mapping
// (x, y) -> (a*x + c*y + e, b*x + d*y + f).
type Matrix [6]float64

// Identity is the identity transformation matrix.
var Identity = Matrix{1, 0, 0, 1, 0, 0}

// Mul returns m composed with n, applying m first then n (n*m in
// matrix-left-multiplication terms, matching PDF's row-vector
// convention where a point is transformed as [x y 1] * M).
func (m Matrix) Mul(n Matrix) Matrix {
	return Matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

// Apply transforms the point (x, y) by m.
func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// Rotation encodes an optional clockwise rotation, in multiples of 90
// degrees, as found in a page's /Rotate entry.
type Rotation uint8

const (
	Unset Rotation = iota // no explicit rotation; inherit or default to Zero
	Zero
	Quarter
	Half
	ThreeQuarter
)

// NewRotation validates degrees (which must be a multiple of 90) and
// returns the corresponding Rotation, or Unset if it is not a multiple
// of 90.
func NewRotation(degrees int64) Rotation {
	if degrees%90 != 0 {
		return Unset
	}
	norm := ((degrees / 90) % 4 + 4) % 4
	return Rotation(norm) + 1
}

// Degrees returns the clockwise rotation in degrees, 0 for Unset.
func (r Rotation) Degrees() int {
	if r == Unset {
		return 0
	}
	return 90 * int(r-1)
}

// PageCTM returns the initial content-transformation matrix for a page
// with the given media box and /Rotate value: identity when the page
// isn't rotated, otherwise a clockwise turn by that many degrees with
// the translation a renderer applies to keep the rotated page's
// coordinates non-negative.
func PageCTM(box Rectangle, rotate Rotation) Matrix {
	switch rotate.Degrees() {
	case 90:
		return Matrix{0, -1, 1, 0, 0, box.Width()}
	case 180:
		return Matrix{-1, 0, 0, -1, box.Width(), box.Height()}
	case 270:
		return Matrix{0, 1, -1, 0, box.Height(), 0}
	default:
		return Identity
	}
}
