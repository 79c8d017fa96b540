package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vellumdoc/pdf/model"
	"github.com/vellumdoc/pdf/store"
	"github.com/vellumdoc/pdf/xref"
)

func newTestStore() *store.Store {
	return store.New(nil, xref.Table{}, xref.Trailer{}, nil)
}

func TestParseTreePreorderMCIDs(t *testing.T) {
	page := model.Reference{Number: 5}

	para := model.Dict{
		"S": model.Name("P"),
		"Pg": page,
		"K": model.Array{
			model.Integer(0),
			model.Dict{"Type": model.Name("MCR"), "Pg": page, "MCID": model.Integer(1)},
		},
	}
	figure := model.Dict{
		"S": model.Name("Figure"),
		"Pg": page,
		"K": model.Array{
			model.Dict{"Type": model.Name("OBJR")}, // annotation reference, dropped
			model.Integer(2),
		},
	}
	root := model.Dict{
		"K": model.Array{para, figure},
	}

	tree, err := ParseTree(newTestStore(), root)
	require.NoError(t, err)
	require.Len(t, tree.Roots, 2)
	assert.Equal(t, model.Name("P"), tree.Roots[0].Tag)
	assert.Equal(t, model.Name("Figure"), tree.Roots[1].Tag)

	assert.Equal(t, []int{0, 1, 2}, tree.MCIDOrder(page))
}

func TestParseTreeNestedElements(t *testing.T) {
	page := model.Reference{Number: 9}
	span := model.Dict{
		"S": model.Name("Span"),
		"K": model.Integer(4),
	}
	sect := model.Dict{
		"S":  model.Name("Sect"),
		"Pg": page,
		"K":  model.Array{span},
	}
	root := model.Dict{"K": sect}

	tree, err := ParseTree(newTestStore(), root)
	require.NoError(t, err)
	require.Len(t, tree.Roots, 1)
	require.Len(t, tree.Roots[0].Kids, 1)
	require.NotNil(t, tree.Roots[0].Kids[0].Elem)
	assert.Equal(t, []int{4}, tree.MCIDOrder(page))
}

func TestMCIDOrderFiltersOtherPages(t *testing.T) {
	page1 := model.Reference{Number: 1}
	page2 := model.Reference{Number: 2}

	root := model.Dict{
		"K": model.Array{
			model.Dict{"Type": model.Name("MCR"), "Pg": page1, "MCID": model.Integer(0)},
			model.Dict{"Type": model.Name("MCR"), "Pg": page2, "MCID": model.Integer(1)},
		},
	}

	tree, err := ParseTree(newTestStore(), root)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, tree.MCIDOrder(page1))
	assert.Equal(t, []int{1}, tree.MCIDOrder(page2))
}
