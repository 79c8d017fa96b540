package pdf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vellumdoc/pdf/model"
)

func TestCatalogIsCachedAfterFirstResolve(t *testing.T) {
	data := buildUntaggedPDF(t)
	doc, err := Open(bytes.NewReader(data), nil)
	require.NoError(t, err)

	cat1, err := doc.Catalog()
	require.NoError(t, err)
	assert.Equal(t, model.Name("Catalog"), cat1["Type"])

	cat2, err := doc.Catalog()
	require.NoError(t, err)
	assert.Equal(t, cat1, cat2)
}

func TestPageCount(t *testing.T) {
	data := buildUntaggedPDF(t)
	doc, err := Open(bytes.NewReader(data), nil)
	require.NoError(t, err)

	n, err := doc.PageCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGetPageContentData(t *testing.T) {
	data := buildUntaggedPDF(t)
	doc, err := Open(bytes.NewReader(data), nil)
	require.NoError(t, err)

	content, err := doc.GetPageContentData(0)
	require.NoError(t, err)
	assert.Equal(t, "BT /F1 12 Tf 100 700 Td (Hello World) Tj ET", string(content))
}

func TestGetPageContentDataOutOfRange(t *testing.T) {
	data := buildUntaggedPDF(t)
	doc, err := Open(bytes.NewReader(data), nil)
	require.NoError(t, err)

	_, err = doc.GetPageContentData(5)
	assert.Error(t, err)
}

func TestLoadObjectResolvesAnyReference(t *testing.T) {
	data := buildUntaggedPDF(t)
	doc, err := Open(bytes.NewReader(data), nil)
	require.NoError(t, err)

	obj, err := doc.LoadObject(model.Reference{Number: 2})
	require.NoError(t, err)
	dict, ok := obj.(model.Dict)
	require.True(t, ok)
	assert.Equal(t, model.Name("Pages"), dict["Type"])
}
