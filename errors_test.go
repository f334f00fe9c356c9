package capio

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_StringsAndCodes(t *testing.T) {
	assert.Equal(t, "short read", ErrShortRead.String())
	assert.Equal(t, "decompression error", ErrDecompress.String())
	assert.Equal(t, "unknown error", ErrCode(99).String())
}

func TestError_ErrorMessageFormatting(t *testing.T) {
	e := errDecompress("bad CRC")
	assert.Equal(t, "decompression error: bad CRC", e.Error())

	e2 := errInternal("")
	assert.Equal(t, "internal error", e2.Error())
}

func TestError_FromErrnoUnwraps(t *testing.T) {
	underlying := fs.ErrNotExist
	e := errFromErrno(underlying)
	require.Error(t, e)
	assert.True(t, errors.Is(e, fs.ErrNotExist))
}
