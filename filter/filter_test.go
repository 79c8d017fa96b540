package filter

import (
	"bytes"
	"compress/zlib"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vellumdoc/pdf/model"
)

func flateCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDecodeFlateRoundTrip(t *testing.T) {
	want := []byte("the quick brown fox jumps over the lazy dog")
	encoded := flateCompress(t, want)
	got, remaining, err := Decode(encoded, model.Dict{"Filter": model.Name("FlateDecode")})
	require.NoError(t, err)
	assert.Empty(t, remaining)
	assert.Equal(t, want, got)
}

func TestDecodeFilterChain(t *testing.T) {
	want := []byte("hello world")
	encoded := flateCompress(t, want)
	got, _, err := Decode(encoded, model.Dict{
		"Filter": model.Array{model.Name("FlateDecode")},
	})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeImageFilterPassthrough(t *testing.T) {
	raw := []byte{0xff, 0xd8, 0xff, 0xe0} // fake JPEG-ish bytes
	got, remaining, err := Decode(raw, model.Dict{"Filter": model.Name("DCTDecode")})
	require.NoError(t, err)
	assert.Equal(t, model.Name("DCTDecode"), remaining)
	assert.Equal(t, raw, got)
}

func TestDecodeASCIIHex(t *testing.T) {
	got, err := decodeASCIIHex([]byte("68656C6C6F>"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestDecodeASCII85(t *testing.T) {
	got, err := decodeASCII85([]byte("<~87cURD_*#4DfTZ)+T~>"))
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!", string(got))
}

func TestDecodeRunLength(t *testing.T) {
	// 2 literal bytes "AB", then 3 repeats of 'C', then EOD
	encoded := []byte{0x01, 'A', 'B', 0xFE, 'C', 0x80}
	got, err := decodeRunLength(encoded)
	require.NoError(t, err)
	assert.Equal(t, "ABCCC", string(got))
}

func TestPredictorPNGUp(t *testing.T) {
	// two 1-byte-per-pixel rows, predictor 12 (PNG Up), 1 color, 8 bpc
	raw := []byte{
		2, 10, 20, 30, // filter type 2 (Up), row 1
		2, 1, 1, 1, // filter type 2 (Up), row 2 (deltas)
	}
	pp := predictorParams{predictor: 12, colors: 1, bpc: 8, columns: 3}
	got, err := pp.apply(raw)
	require.NoError(t, err)
	assert.Equal(t, []byte{10, 20, 30, 11, 21, 31}, got)
}
