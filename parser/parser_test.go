package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vellumdoc/pdf/model"
)

func TestParseScalarObjects(t *testing.T) {
	cases := []struct {
		in   string
		want model.Object
	}{
		{"true", model.Boolean(true)},
		{"false", model.Boolean(false)},
		{"null", model.Null{}},
		{"123", model.Integer(123)},
		{"-17", model.Integer(-17)},
		{"3.14", model.Real(3.14)},
		{"/Name#20With#20Spaces", model.Name("Name With Spaces")},
		{"(hello)", model.StringLiteral("hello")},
		{"<68656C6C6F>", model.HexLiteral("hello")},
	}
	for _, c := range cases {
		got, err := ParseObject([]byte(c.in))
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestParseArray(t *testing.T) {
	got, err := ParseObject([]byte("[1 2.5 (s) /N]"))
	require.NoError(t, err)
	assert.Equal(t, model.Array{
		model.Integer(1), model.Real(2.5), model.StringLiteral("s"), model.Name("N"),
	}, got)
}

func TestParseArrayTruncatedAtEOF(t *testing.T) {
	// spec.md §4.2/§9: end-of-input mid-array is lenient, not fatal —
	// return what was parsed.
	got, err := ParseObject([]byte("[1 2.5 (s)"))
	require.NoError(t, err)
	assert.Equal(t, model.Array{
		model.Integer(1), model.Real(2.5), model.StringLiteral("s"),
	}, got)
}

func TestParseDict(t *testing.T) {
	got, err := ParseObject([]byte("<</Type /Catalog /Count 3>>"))
	require.NoError(t, err)
	assert.Equal(t, model.Dict{
		"Type":  model.Name("Catalog"),
		"Count": model.Integer(3),
	}, got)
}

func TestParseDictNullEntryOmitted(t *testing.T) {
	got, err := ParseObject([]byte("<</A null /B 1>>"))
	require.NoError(t, err)
	d := got.(model.Dict)
	_, hasA := d["A"]
	assert.False(t, hasA)
	assert.Equal(t, model.Integer(1), d["B"])
}

func TestParseIndirectReference(t *testing.T) {
	got, err := ParseObject([]byte("12 0 R"))
	require.NoError(t, err)
	assert.Equal(t, model.Reference{Number: 12, Generation: 0}, got)
}

func TestParseIntegerNotReference(t *testing.T) {
	got, err := ParseObject([]byte("12 34"))
	require.NoError(t, err)
	// "12 34" is not followed by "R": the first integer stands alone.
	assert.Equal(t, model.Integer(12), got)
}

func TestContentStreamModeDisablesReferences(t *testing.T) {
	p := New([]byte("12 0 R"))
	p.ContentStreamMode = true
	got, err := p.ParseObject()
	require.NoError(t, err)
	assert.Equal(t, model.Integer(12), got)
}

func TestContentStreamModeAllowsOperators(t *testing.T) {
	p := New([]byte("re"))
	p.ContentStreamMode = true
	got, err := p.ParseObject()
	require.NoError(t, err)
	assert.Equal(t, model.Operator("re"), got)
}

func TestParseObjectDefinitionHeaderOnly(t *testing.T) {
	num, gen, obj, err := ParseObjectDefinition([]byte("7 0 obj <</X 1>>"), true)
	require.NoError(t, err)
	assert.EqualValues(t, 7, num)
	assert.EqualValues(t, 0, gen)
	assert.Nil(t, obj)
}

func TestParseObjectDefinitionFull(t *testing.T) {
	num, gen, obj, err := ParseObjectDefinition([]byte("7 0 obj <</X 1>>"), false)
	require.NoError(t, err)
	assert.EqualValues(t, 7, num)
	assert.EqualValues(t, 0, gen)
	assert.Equal(t, model.Dict{"X": model.Integer(1)}, obj)
}

func TestParseDictTruncatedAtEOF(t *testing.T) {
	// spec.md §4.2/§9: end-of-input mid-dictionary is lenient, not
	// fatal — return what was parsed.
	got, err := ParseObject([]byte("<</Type /Catalog /Count 3"))
	require.NoError(t, err)
	assert.Equal(t, model.Dict{
		"Type":  model.Name("Catalog"),
		"Count": model.Integer(3),
	}, got)
}
