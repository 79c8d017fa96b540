package pdf

import (
	"bytes"
	"crypto/md5"
	"crypto/rc4"
	"encoding/hex"
	"testing"

	"github.com/vellumdoc/pdf/model"
)

// fixtureBuilder assembles a minimal, well-formed single-section PDF
// byte-for-byte, mirroring xref.minimalPDF's approach (a traditional
// xref table over hand-written object bodies) but extended with a
// content stream, resources and an optional structure tree, since the
// root package exercises the whole read path end to end rather than
// just Parse.
type fixtureBuilder struct {
	buf     bytes.Buffer
	offsets map[int]int
}

func newFixtureBuilder() *fixtureBuilder {
	b := &fixtureBuilder{offsets: map[int]int{}}
	b.buf.WriteString("%PDF-1.7\n")
	return b
}

// obj writes "N 0 obj\n<body>\nendobj\n", recording N's byte offset.
func (b *fixtureBuilder) obj(n int, body string) {
	b.offsets[n] = b.buf.Len()
	b.buf.WriteString(itoa(n))
	b.buf.WriteString(" 0 obj\n")
	b.buf.WriteString(body)
	b.buf.WriteString("\nendobj\n")
}

// stream writes an object whose body is a dict followed by a stream,
// computing /Length itself so callers don't have to.
func (b *fixtureBuilder) stream(n int, dictWithoutLength string, content []byte) {
	b.offsets[n] = b.buf.Len()
	b.buf.WriteString(itoa(n))
	b.buf.WriteString(" 0 obj\n")
	b.buf.WriteString(dictWithoutLength[:len(dictWithoutLength)-2]) // drop trailing ">>"
	b.buf.WriteString(" /Length ")
	b.buf.WriteString(itoa(len(content)))
	b.buf.WriteString(">>\nstream\n")
	b.buf.Write(content)
	b.buf.WriteString("\nendstream\nendobj\n")
}

// finish writes the xref table and trailer for object numbers 1..maxObj
// and returns the finished file.
func (b *fixtureBuilder) finish(maxObj int, trailerExtra string) []byte {
	xrefOffset := b.buf.Len()
	b.buf.WriteString("xref\n0 ")
	b.buf.WriteString(itoa(maxObj + 1))
	b.buf.WriteString("\n0000000000 65535 f \n")
	for i := 1; i <= maxObj; i++ {
		b.buf.WriteString(padOffset(b.offsets[i]))
		b.buf.WriteString(" 00000 n \n")
	}
	b.buf.WriteString("trailer\n<</Size ")
	b.buf.WriteString(itoa(maxObj + 1))
	b.buf.WriteString(" /Root 1 0 R")
	b.buf.WriteString(trailerExtra)
	b.buf.WriteString(">>\nstartxref\n")
	b.buf.WriteString(itoa(xrefOffset))
	b.buf.WriteString("\n%%EOF")
	return b.buf.Bytes()
}

func padOffset(n int) string {
	s := itoa(n)
	for len(s) < 10 {
		s = "0" + s
	}
	return s
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

const helveticaFont = `<</Subtype /TrueType /BaseFont /Helvetica /Encoding /WinAnsiEncoding ` +
	`/FirstChar 32 /Widths [278 278 556 556 556 556 556 556 556 556 556 556 278 278 278 278 556 ` +
	`556 556 556 556 556 556 556 556 556 278 278 584 556 584 556 1015 667 667 722 722 667 611 778 ` +
	`722 278 500 667 556 833 722 778 667 778 722 667 611 722 667 944 667 667 611 278 278 278 469 ` +
	`556 333 556 556 500 556 556 278 556 556 222 222 500 222 833 556 556 556 556 333 500 278 556 ` +
	`500 722 500 500 500]>>`

// buildUntaggedPDF returns a one-page document with a single content
// stream, no structure tree: ExtractText falls back to position-
// inferred layout.
func buildUntaggedPDF(t *testing.T) []byte {
	t.Helper()
	b := newFixtureBuilder()
	b.obj(1, "<</Type /Catalog /Pages 2 0 R>>")
	b.obj(2, "<</Type /Pages /Kids [3 0 R] /Count 1>>")
	b.obj(3, "<</Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
		"/Resources <</Font <</F1 "+helveticaFont+">>>> /Contents 4 0 R>>")
	b.stream(4, "<<>>", []byte("BT /F1 12 Tf 100 700 Td (Hello World) Tj ET"))
	return b.finish(4, "")
}

// buildTaggedPDF returns a one-page document whose content stream
// wraps its text in a marked-content sequence, with a /StructTreeRoot
// whose single Span kid references that MCID, so ExtractText takes
// the tagged (structure-tree-ordered) path.
func buildTaggedPDF(t *testing.T) []byte {
	t.Helper()
	b := newFixtureBuilder()
	b.obj(1, "<</Type /Catalog /Pages 2 0 R /StructTreeRoot 5 0 R>>")
	b.obj(2, "<</Type /Pages /Kids [3 0 R] /Count 1>>")
	b.obj(3, "<</Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
		"/Resources <</Font <</F1 "+helveticaFont+">>>> /Contents 4 0 R>>")
	b.stream(4, "<<>>", []byte("BT /F1 12 Tf 100 700 Td /Span <</MCID 0>> BDC (Hello) Tj EMC ET"))
	b.obj(5, "<</Type /StructTreeRoot /K 6 0 R>>")
	b.obj(6, "<</Type /StructElem /S /Span /P 5 0 R /Pg 3 0 R /K 0>>")
	return b.finish(6, "")
}

// buildTaggedPDFWithStraySpan is buildTaggedPDF plus a second Tj shown
// outside any marked-content sequence, so it carries no MCID and the
// structure tree has no entry for it: AssembleTagged must append it at
// the end and report it through reportMissing.
func buildTaggedPDFWithStraySpan(t *testing.T) []byte {
	t.Helper()
	b := newFixtureBuilder()
	b.obj(1, "<</Type /Catalog /Pages 2 0 R /StructTreeRoot 5 0 R>>")
	b.obj(2, "<</Type /Pages /Kids [3 0 R] /Count 1>>")
	b.obj(3, "<</Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
		"/Resources <</Font <</F1 "+helveticaFont+">>>> /Contents 4 0 R>>")
	b.stream(4, "<<>>", []byte("BT /F1 12 Tf 100 700 Td /Span <</MCID 0>> BDC (Hello) Tj EMC "+
		"0 -20 Td (Stray) Tj ET"))
	b.obj(5, "<</Type /StructTreeRoot /K 6 0 R>>")
	b.obj(6, "<</Type /StructElem /S /Span /P 5 0 R /Pg 3 0 R /K 0>>")
	return b.finish(6, "")
}

// buildRotatedPDF is buildUntaggedPDF with the page's /Rotate set to
// degrees, so ExtractSpans's rotation handling can be exercised against
// known, hand-computed coordinates.
func buildRotatedPDF(t *testing.T, degrees int) []byte {
	t.Helper()
	b := newFixtureBuilder()
	b.obj(1, "<</Type /Catalog /Pages 2 0 R>>")
	b.obj(2, "<</Type /Pages /Kids [3 0 R] /Count 1>>")
	b.obj(3, "<</Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Rotate "+itoa(degrees)+" "+
		"/Resources <</Font <</F1 "+helveticaFont+">>>> /Contents 4 0 R>>")
	b.stream(4, "<<>>", []byte("BT /F1 12 Tf 100 700 Td (Hello World) Tj ET"))
	return b.finish(4, "")
}

// buildBrokenHeaderPDF corrupts the %PDF-M.m header so Open's very
// first step fails.
func buildBrokenHeaderPDF(t *testing.T) []byte {
	t.Helper()
	data := buildUntaggedPDF(t)
	out := append([]byte(nil), data...)
	copy(out[:5], "XXXXX")
	return out
}

// buildRC4Encrypt independently computes a valid /O and /U pair at
// revision 3 (Algorithm 3.3/3.4) for the given owner and user
// passwords, the same way crypt's own tests build a fixture.
func buildRC4Encrypt(ownerPw, userPw string, fileID []byte, keyLen int) (o, u []byte) {
	pad := func(pw string) []byte {
		out := make([]byte, 32)
		copy(out, append([]byte(pw), model.Padding[:]...))
		return out
	}

	ownerHashKey := md5.Sum(pad(ownerPw))
	for i := 0; i < 50; i++ {
		ownerHashKey = md5.Sum(ownerHashKey[:keyLen])
	}
	rc4Key := ownerHashKey[:keyLen]
	o = pad(userPw)
	for i := 0; i < 20; i++ {
		roundKey := make([]byte, keyLen)
		for j, bb := range rc4Key {
			roundKey[j] = bb ^ byte(i)
		}
		c, _ := rc4.NewCipher(roundKey)
		c.XORKeyStream(o, o)
	}

	buf := append([]byte(nil), pad(userPw)...)
	buf = append(buf, o...)
	buf = append(buf, 0xFF, 0xFF, 0xFF, 0xFF) // /P = -1, all permissions
	buf = append(buf, fileID...)
	fileKeyHash := md5.Sum(buf)
	for i := 0; i < 50; i++ {
		fileKeyHash = md5.Sum(fileKeyHash[:keyLen])
	}
	fileKey := fileKeyHash[:keyLen]

	h := md5.Sum(append(append([]byte(nil), model.Padding[:]...), fileID...))
	c, _ := rc4.NewCipher(fileKey)
	c.XORKeyStream(h[:], h[:])
	for i := 1; i <= 19; i++ {
		roundKey := make([]byte, keyLen)
		for j, bb := range fileKey {
			roundKey[j] = bb ^ byte(i)
		}
		cc, _ := rc4.NewCipher(roundKey)
		cc.XORKeyStream(h[:], h[:])
	}
	u = make([]byte, 32)
	copy(u, h[:16])
	return o, u
}

// buildEncryptedPDF returns a document whose trailer carries an
// /Encrypt dictionary (Standard security handler, RC4-128, R3)
// authenticated by ownerPw/userPw. The page content stream itself is
// left as plaintext: these fixtures exist to exercise the
// authentication handshake, not stream decryption.
func buildEncryptedPDF(t *testing.T, ownerPw, userPw string) []byte {
	t.Helper()
	fileID := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	o, u := buildRC4Encrypt(ownerPw, userPw, fileID, 16)

	b := newFixtureBuilder()
	b.obj(1, "<</Type /Catalog /Pages 2 0 R>>")
	b.obj(2, "<</Type /Pages /Kids [3 0 R] /Count 1>>")
	b.obj(3, "<</Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
		"/Resources <</Font <</F1 "+helveticaFont+">>>> /Contents 4 0 R>>")
	b.stream(4, "<<>>", []byte("BT /F1 12 Tf 100 700 Td (Hello) Tj ET"))
	b.obj(5, "<</Filter /Standard /V 2 /R 3 /Length 128 /P -1 "+
		"/O <"+hex.EncodeToString(o)+"> /U <"+hex.EncodeToString(u)+">>>")

	trailerExtra := " /Encrypt 5 0 R /ID [<" + hex.EncodeToString(fileID) + "> <" + hex.EncodeToString(fileID) + ">]"
	return b.finish(5, trailerExtra)
}
