package pdf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenReadsVersionAndTrailer(t *testing.T) {
	data := buildUntaggedPDF(t)
	doc, err := Open(bytes.NewReader(data), nil)
	require.NoError(t, err)

	major, minor := doc.Version()
	assert.EqualValues(t, 1, major)
	assert.EqualValues(t, 7, minor)

	require.NotNil(t, doc.Trailer().Root)
	assert.EqualValues(t, 1, doc.Trailer().Root.Number)
}

func TestOpenRejectsBadHeader(t *testing.T) {
	data := buildBrokenHeaderPDF(t)
	_, err := Open(bytes.NewReader(data), nil)
	assert.Error(t, err)
}

func TestOpenRejectsShortFile(t *testing.T) {
	_, err := Open(bytes.NewReader([]byte("%PD")), nil)
	assert.Error(t, err)
}

func TestOpenValidatesOptions(t *testing.T) {
	data := buildUntaggedPDF(t)
	_, err := Open(bytes.NewReader(data), &OpenOptions{MaxResolutionDepth: -1})
	assert.Error(t, err)
}

func TestOpenUsesSuppliedLogger(t *testing.T) {
	data := buildUntaggedPDF(t)
	var logged []string
	opts := DefaultOpenOptions()
	opts.Logger = logFunc(func(format string, args ...interface{}) {
		logged = append(logged, format)
	})
	doc, err := Open(bytes.NewReader(data), &opts)
	require.NoError(t, err)
	_, err = doc.ExtractText(0)
	require.NoError(t, err)
	// no warnings expected on a clean untagged document
	assert.Empty(t, logged)
}

// logFunc adapts a plain function to the Logger interface, the way a
// caller might wire in their own structured logger without pulling in
// StdLogger.
type logFunc func(format string, args ...interface{})

func (f logFunc) Printf(format string, args ...interface{}) { f(format, args...) }

func TestAuthenticatePasswordNoOpWhenUnencrypted(t *testing.T) {
	data := buildUntaggedPDF(t)
	doc, err := Open(bytes.NewReader(data), nil)
	require.NoError(t, err)

	ok, err := doc.AuthenticatePassword("anything")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOpenOnEncryptedDocumentSucceedsWithoutPassword(t *testing.T) {
	data := buildEncryptedPDF(t, "ownerSecret", "userSecret")
	doc, err := Open(bytes.NewReader(data), nil)
	require.NoError(t, err, "a wrong/missing password must not fail Open itself")
	require.NotNil(t, doc.Trailer().Encrypt)
}

func TestAuthenticatePasswordWrongThenRight(t *testing.T) {
	data := buildEncryptedPDF(t, "ownerSecret", "userSecret")
	doc, err := Open(bytes.NewReader(data), nil)
	require.NoError(t, err)

	ok, err := doc.AuthenticatePassword("wrongGuess")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = doc.AuthenticatePassword("userSecret")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOpenWithCorrectPasswordUpfront(t *testing.T) {
	data := buildEncryptedPDF(t, "ownerSecret", "userSecret")
	opts := DefaultOpenOptions()
	opts.Password = "userSecret"
	doc, err := Open(bytes.NewReader(data), &opts)
	require.NoError(t, err)

	ok, err := doc.AuthenticatePassword("wrongGuess")
	require.NoError(t, err)
	assert.False(t, ok, "AuthenticatePassword always re-derives against the fresh password, not a cached result")
}
