package seekindex

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex_AppendFloorLast(t *testing.T) {
	idx := New()
	assert.Equal(t, 0, idx.Len())

	_, ok := idx.Floor(100)
	assert.False(t, ok)

	idx.Append(Checkpoint{InOffset: 10, OutOffset: 0, Mode: ModeDeflateAfterHeader})
	idx.Append(Checkpoint{InOffset: 500, OutOffset: 1 << 20, Mode: ModeDeflate, Checksum: 0xdeadbeef})
	idx.Append(Checkpoint{InOffset: 1000, OutOffset: 2 << 20, Mode: ModeDeflate, Checksum: 0xfeedface})

	require.Equal(t, 3, idx.Len())

	cp, ok := idx.Floor(0)
	require.True(t, ok)
	assert.Equal(t, int64(0), cp.OutOffset)

	cp, ok = idx.Floor((1 << 20) + 500)
	require.True(t, ok)
	assert.Equal(t, int64(1<<20), cp.OutOffset)
	assert.Equal(t, uint32(0xdeadbeef), cp.Checksum)

	last, ok := idx.Last()
	require.True(t, ok)
	assert.Equal(t, int64(2<<20), last.OutOffset)
}

func TestIndex_AppendPanicsOnNonIncreasingOffset(t *testing.T) {
	idx := New()
	idx.Append(Checkpoint{OutOffset: 100})
	assert.Panics(t, func() {
		idx.Append(Checkpoint{OutOffset: 100})
	})
	assert.Panics(t, func() {
		idx.Append(Checkpoint{OutOffset: 50})
	})
}

func TestIndex_WriteToLoadIndexRoundTrip(t *testing.T) {
	idx := New()
	idx.Append(Checkpoint{
		InOffset:  10,
		OutOffset: 0,
		Mode:      ModeDeflateAfterHeader,
	})
	idx.Append(Checkpoint{
		InOffset:  12345,
		OutOffset: 1 << 20,
		Mode:      ModeDeflate,
		Bits:      0,
		Checksum:  0x1234abcd,
		TotalOut:  1 << 20,
		Window:    bytes.Repeat([]byte{0xAB}, WindowSize),
	})

	var buf bytes.Buffer
	n, err := idx.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	loaded, err := LoadIndex(&buf)
	require.NoError(t, err)
	assert.Equal(t, idx.Snapshot(), loaded.Snapshot())
}

func TestIndex_LoadIndexRejectsBadMagic(t *testing.T) {
	_, err := LoadIndex(bytes.NewReader([]byte("not an index")))
	assert.Error(t, err)
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "uncompressed", ModeUncompressed.String())
	assert.Equal(t, "deflate", ModeDeflate.String())
	assert.Equal(t, "unknown", ModeUnknown.String())
	assert.Equal(t, "unknown", Mode(99).String())
}
