package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectClonePreservesType(t *testing.T) {
	d := Dict{
		"A": Array{Integer(1), Real(2.5), Name("Foo")},
		"B": StringLiteral("hello"),
		"C": Reference{Number: 3, Generation: 0},
	}
	clone := d.Clone().(Dict)
	require.Equal(t, d, clone)

	// mutating the clone must not affect the original
	clone["A"].(Array)[0] = Integer(99)
	assert.Equal(t, Integer(1), d["A"].(Array)[0])
}

func TestNumberHelper(t *testing.T) {
	v, ok := Number(Integer(4))
	assert.True(t, ok)
	assert.Equal(t, 4.0, v)

	v, ok = Number(Real(4.5))
	assert.True(t, ok)
	assert.Equal(t, 4.5, v)

	_, ok = Number(Name("x"))
	assert.False(t, ok)
}

func TestStringValueHelper(t *testing.T) {
	s, ok := StringValue(StringLiteral("abc"))
	assert.True(t, ok)
	assert.Equal(t, "abc", s)

	s, ok = StringValue(HexLiteral("abc"))
	assert.True(t, ok)
	assert.Equal(t, "abc", s)

	_, ok = StringValue(Integer(1))
	assert.False(t, ok)
}

func TestStreamBypassCrypt(t *testing.T) {
	s := Stream{Dict: Dict{"Filter": Name("Crypt")}}
	assert.True(t, s.BypassCrypt())

	s = Stream{Dict: Dict{"Filter": Array{Name("Crypt")}}}
	assert.True(t, s.BypassCrypt())

	s = Stream{Dict: Dict{"Filter": Name("FlateDecode")}}
	assert.False(t, s.BypassCrypt())
}

func TestDictAccessors(t *testing.T) {
	d := Dict{
		"N": Name("Catalog"),
		"I": Integer(5),
		"A": Array{Integer(1)},
		"D": Dict{"X": Integer(1)},
	}
	n, ok := d.NameOf("N")
	require.True(t, ok)
	assert.Equal(t, Name("Catalog"), n)

	i, ok := d.IntOf("I")
	require.True(t, ok)
	assert.EqualValues(t, 5, i)

	_, ok = d.ArrayOf("A")
	assert.True(t, ok)

	_, ok = d.DictOf("D")
	assert.True(t, ok)

	_, ok = d.NameOf("Missing")
	assert.False(t, ok)
}
