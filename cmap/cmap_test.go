package cmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleToUnicode = `
/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
2 beginbfchar
<0001> <0041>
<0002> <00660066>
endbfchar
1 beginbfrange
<0003> <0005> <0061>
endbfrange
1 beginnotdefrange
<0000> <FFFF> <003F>
endnotdefrange
endcmap
CMapName currentdict /CMap defineresource pop
end
end
`

func TestParseBfchar(t *testing.T) {
	cm, err := Parse([]byte(sampleToUnicode))
	require.NoError(t, err)

	s, ok := cm.Lookup(0x0001)
	require.True(t, ok)
	assert.Equal(t, "A", s)

	// a bfchar target may decode to more than one rune (a ligature).
	s, ok = cm.Lookup(0x0002)
	require.True(t, ok)
	assert.Equal(t, "ff", s)
}

func TestParseBfrange(t *testing.T) {
	cm, err := Parse([]byte(sampleToUnicode))
	require.NoError(t, err)

	s, ok := cm.Lookup(0x0003)
	require.True(t, ok)
	assert.Equal(t, "a", s)

	s, ok = cm.Lookup(0x0005)
	require.True(t, ok)
	assert.Equal(t, "c", s)
}

func TestNotdefRangeFallback(t *testing.T) {
	cm, err := Parse([]byte(sampleToUnicode))
	require.NoError(t, err)

	s, ok := cm.Lookup(0x9999)
	require.True(t, ok)
	assert.Equal(t, "?", s)
}

func TestCodeWidthFromCodespace(t *testing.T) {
	cm, err := Parse([]byte(sampleToUnicode))
	require.NoError(t, err)
	assert.Equal(t, 2, cm.CodeWidth([]byte{0x00, 0x01, 0x00, 0x02}))
}

func TestSurrogatePairBfrange(t *testing.T) {
	// U+1F600 ("😀") needs a surrogate pair in the UTF-16BE source bytes.
	data := []byte(`
begincmap
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
1 beginbfrange
<0010> <0010> <D83DDE00>
endbfrange
endcmap
`)
	cm, err := Parse(data)
	require.NoError(t, err)
	s, ok := cm.Lookup(0x0010)
	require.True(t, ok)
	assert.Equal(t, "😀", s)
}

func TestCache(t *testing.T) {
	c := NewCache(1)
	data := []byte(sampleToUnicode)
	first, err := c.GetOrParse(data)
	require.NoError(t, err)
	second, err := c.GetOrParse(data)
	require.NoError(t, err)
	assert.Same(t, first, second)
}
