package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vellumdoc/pdf/cmap"
	"github.com/vellumdoc/pdf/model"
	"github.com/vellumdoc/pdf/store"
	"github.com/vellumdoc/pdf/xref"
)

func newTestStore() *store.Store {
	return store.New(nil, xref.Table{}, xref.Trailer{}, nil)
}

func helveticaResources() model.Dict {
	font := model.Dict{
		"Subtype":   model.Name("TrueType"),
		"BaseFont":  model.Name("Helvetica"),
		"Encoding":  model.Name("WinAnsiEncoding"),
		"FirstChar": model.Integer(32),
		"Widths":    model.Array{model.Integer(278), model.Integer(278), model.Integer(556)}, // space, !, "
	}
	return model.Dict{
		"Font": model.Dict{"F1": font},
	}
}

func TestShowSimpleText(t *testing.T) {
	res := helveticaResources()
	it := NewInterpreter(newTestStore(), res, model.Identity, cmap.NewCache(4), DefaultOptions())

	stream := []byte(`BT /F1 12 Tf 100 700 Td (!!) Tj ET`)
	spans, err := it.Run(stream)
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, "!!", spans[0].Text)
	assert.Equal(t, float64(12), spans[0].FontSize)
	assert.Equal(t, float64(100), spans[0].X0)
	assert.Equal(t, float64(700), spans[0].Y0)
	assert.Greater(t, spans[0].X1, spans[0].X0)
}

func TestGraphicsStateStack(t *testing.T) {
	res := helveticaResources()
	it := NewInterpreter(newTestStore(), res, model.Identity, cmap.NewCache(4), DefaultOptions())

	stream := []byte(`q 2 0 0 2 0 0 cm Q BT /F1 10 Tf 0 0 Td (!) Tj ET`)
	spans, err := it.Run(stream)
	require.NoError(t, err)
	require.Len(t, spans, 1)
	// cm was undone by Q, so the CTM at Tj time is the identity.
	assert.Equal(t, float64(0), spans[0].X0)
}

func TestTJWordBreakHeuristic(t *testing.T) {
	res := helveticaResources()
	it := NewInterpreter(newTestStore(), res, model.Identity, cmap.NewCache(4), DefaultOptions())

	// -400/1000 of a 12pt font is 4.8pt, comfortably above the
	// 0.25*12=3pt default threshold: a synthesized word-break space.
	stream := []byte(`BT /F1 12 Tf 0 0 Td [(!!) -400 (!)] TJ ET`)
	spans, err := it.Run(stream)
	require.NoError(t, err)
	require.Len(t, spans, 3)
	assert.Equal(t, "!!", spans[0].Text)
	assert.Equal(t, " ", spans[1].Text)
	assert.Equal(t, "!", spans[2].Text)
}

func TestMarkedContentMCID(t *testing.T) {
	res := helveticaResources()
	it := NewInterpreter(newTestStore(), res, model.Identity, cmap.NewCache(4), DefaultOptions())

	stream := []byte(`BT /F1 12 Tf 0 0 Td /P <</MCID 3>> BDC (!!) Tj EMC ET`)
	spans, err := it.Run(stream)
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, 3, spans[0].MCID)
}
