package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("boom")
	err := WrapError(Io, "reading stream", cause)
	assert.True(t, errors.Is(err, cause))

	var asErr *Error
	assert.True(t, errors.As(err, &asErr))
	assert.Equal(t, Io, asErr.Kind)
}

func TestErrorAtOffset(t *testing.T) {
	err := AtOffset(ParseError, 42, "unexpected token")
	assert.Contains(t, err.Error(), "offset 42")
	assert.Equal(t, int64(42), err.Offset)
}

func TestObjectNotFoundError(t *testing.T) {
	err := ObjectNotFoundError(Reference{Number: 7, Generation: 0})
	assert.Equal(t, ObjectNotFound, err.Kind)
	assert.Contains(t, err.Error(), "7 0")
}
