package capio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompressionMode_String(t *testing.T) {
	cases := []struct {
		mode CompressionMode
		want string
	}{
		{ModeUnknown, "unknown"},
		{ModeUncompressed, "uncompressed"},
		{ModeDeflate, "deflate"},
		{ModeDeflateAfterHeader, "deflate-after-header"},
		{ModeZstd, "zstd"},
		{ModeLZ4, "lz4"},
		{CompressionMode(99), "invalid"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.mode.String())
	}
}

func TestCompressionMode_ExtensionAndDescription(t *testing.T) {
	assert.Equal(t, "gz", ModeDeflate.Extension())
	assert.Equal(t, "Gzip-wrapped deflate", ModeDeflate.Description())

	assert.Equal(t, "", ModeUncompressed.Extension())
	assert.Equal(t, "Uncompressed", ModeUncompressed.Description())

	assert.Equal(t, "", ModeZstd.Extension())
	assert.Equal(t, "Zstandard", ModeZstd.Description())

	assert.Equal(t, "Unknown", ModeUnknown.Description())
}
