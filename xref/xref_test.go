package xref

import (
	"bytes"
	"strings"
	"testing"

	tkn "github.com/benoitkugler/pstokenizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimalPDF builds a tiny but well-formed single-section PDF file
// with a traditional xref table, for exercising Parse end to end.
func minimalPDF(t *testing.T) []byte {
	t.Helper()
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, 4)

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<</Type /Catalog /Pages 2 0 R>>\nendobj\n")

	offsets[2] = b.Len()
	b.WriteString("2 0 obj\n<</Type /Pages /Kids [3 0 R] /Count 1>>\nendobj\n")

	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<</Type /Page /Parent 2 0 R>>\nendobj\n")

	xrefOffset := b.Len()
	b.WriteString("xref\n0 4\n")
	b.WriteString("0000000000 65535 f \n")
	for i := 1; i <= 3; i++ {
		b.WriteString(padOffset(offsets[i]) + " 00000 n \n")
	}
	b.WriteString("trailer\n<</Size 4 /Root 1 0 R>>\n")
	b.WriteString("startxref\n")
	b.WriteString(itoa(xrefOffset))
	b.WriteString("\n%%EOF")
	return b.Bytes()
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

func TestParseTraditionalTable(t *testing.T) {
	data := minimalPDF(t)
	table, trailer, err := Parse(bytes.NewReader(data), 5)
	require.NoError(t, err)

	require.NotNil(t, trailer.Root)
	assert.EqualValues(t, 1, trailer.Root.Number)
	assert.EqualValues(t, 4, trailer.Size)

	require.Contains(t, table, int64(1))
	assert.Equal(t, InUse, table[1].Kind)
	require.Contains(t, table, int64(0))
	assert.Equal(t, Free, table[0].Kind)
}

func TestReconstructFallsBackWhenStartxrefMissing(t *testing.T) {
	data := minimalPDF(t)
	// truncate away the startxref/trailer footer to force reconstruction
	cut := bytes.Index(data, []byte("xref\n"))
	broken := append([]byte(nil), data[:cut]...)
	broken = append(broken, []byte("%%EOF")...)

	table, trailer, err := Parse(bytes.NewReader(broken), 5)
	require.NoError(t, err)
	require.NotNil(t, trailer.Root)
	assert.EqualValues(t, 1, trailer.Root.Number)
	assert.Contains(t, table, int64(1))
	assert.Contains(t, table, int64(2))
	assert.Contains(t, table, int64(3))
}

func TestReconstructFindsCatalogByTextMatch(t *testing.T) {
	src := "5 0 obj\n<</Type /Catalog /Pages 6 0 R>>\nendobj\n"
	r, err := newReader(strings.NewReader(src))
	require.NoError(t, err)
	table, trailer, err := reconstruct(r)
	require.NoError(t, err)
	require.NotNil(t, trailer.Root)
	assert.EqualValues(t, 5, trailer.Root.Number)
	assert.Contains(t, table, int64(5))
}

func TestParseTraditionalEntryMalformedInsertsPlaceholder(t *testing.T) {
	// spec.md §4.4: a malformed 20-byte entry adds a placeholder Free
	// entry and parsing continues, keeping object numbers aligned,
	// rather than failing the whole xref section.
	src := "xref\n0 2\n0000000000 65535 f \ninvalid entry here\ntrailer\n<</Size 2 /Root 1 0 R>>\n"
	r, err := newReader(strings.NewReader(src))
	require.NoError(t, err)
	tk := tkn.NewTokenizer([]byte(src[len("xref\n"):]))
	table := Table{}
	var trailer Trailer

	_, err = parseTraditionalSection(r, tk, table, &trailer)
	require.NoError(t, err)

	require.Contains(t, table, int64(0))
	assert.Equal(t, Free, table[0].Kind)
	require.Contains(t, table, int64(1))
	assert.Equal(t, Free, table[1].Kind)
	assert.EqualValues(t, malformedEntryGeneration, table[1].Generation)

	require.NotNil(t, trailer.Root)
	assert.EqualValues(t, 1, trailer.Root.Number)
}

func TestParseTraditionalEntryMalformedGenerationResyncs(t *testing.T) {
	// A malformed generation field must not desync the following
	// entries: the type-marker token for the bad entry is still
	// consumed so object numbering and subsequent offsets stay intact.
	src := "xref\n0 3\n0000000000 65535 f \n0000000010 XX n \n0000000020 00000 n \ntrailer\n<</Size 3 /Root 1 0 R>>\n"
	r, err := newReader(strings.NewReader(src))
	require.NoError(t, err)
	tk := tkn.NewTokenizer([]byte(src[len("xref\n"):]))
	table := Table{}
	var trailer Trailer

	_, err = parseTraditionalSection(r, tk, table, &trailer)
	require.NoError(t, err)

	require.Contains(t, table, int64(1))
	assert.Equal(t, Free, table[1].Kind)
	require.Contains(t, table, int64(2))
	assert.Equal(t, InUse, table[2].Kind)
	assert.EqualValues(t, 20, table[2].Offset)

	require.NotNil(t, trailer.Root)
	assert.EqualValues(t, 1, trailer.Root.Number)
}
