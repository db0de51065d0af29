package core

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	err := WrapError(KindDecode, "strip.reencode", "image could not be decoded", io.ErrUnexpectedEOF)

	assert.True(t, IsKind(err, KindDecode))
	assert.False(t, IsKind(err, KindUnsupportedInput))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Contains(t, err.Error(), "[decode:strip.reencode]")
	assert.Contains(t, err.Error(), "unexpected EOF")
}

func TestWrapErrorKeepsTypedError(t *testing.T) {
	inner := NewError(KindUnsupportedInput, "engine.inspect", "input is empty")
	assert.Equal(t, error(inner), WrapError(KindDecode, "other", "other", inner), "WrapError replaced a typed error")
	assert.NoError(t, WrapError(KindDecode, "op", "msg", nil))
	assert.False(t, IsKind(errors.New("plain"), KindDecode), "plain error reported a kind")
}
