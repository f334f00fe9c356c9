package capio

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWriterReader_RoundTrip covers the companion writer producing a
// gzip-wrapped deflate stream that this package's own Reader reads back
// byte-for-byte: 4096 repetitions of every byte value, one megabyte of
// payload.
func TestWriterReader_RoundTrip(t *testing.T) {
	payload := make([]byte, 0, 4096*256)
	for i := 0; i < 4096; i++ {
		for b := 0; b < 256; b++ {
			payload = append(payload, byte(b))
		}
	}
	require.Len(t, payload, 1048576)

	path := filepath.Join(t.TempDir(), "roundtrip.gz")

	w, err := Create(path)
	require.NoError(t, err)

	n, werr := w.Write(payload)
	require.NoError(t, werr)
	require.Equal(t, len(payload), n)
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	got, rerr := io.ReadAll(r)
	require.NoError(t, rerr)
	assert.Equal(t, payload, got)
	assert.Nil(t, r.Error())
	assert.True(t, r.IsCompressed())
	assert.Equal(t, int64(len(payload)), r.Tell())
}

// TestWriterReader_RoundTripWithFlush covers a writer that calls Flush
// mid-stream (the producer-side half of a resync point) without that
// affecting the final decoded content.
func TestWriterReader_RoundTripWithFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flushed.gz")

	w, err := Create(path)
	require.NoError(t, err)

	first := bytes.Repeat([]byte("alpha-"), 1000)
	second := bytes.Repeat([]byte("beta-"), 1000)

	_, werr := w.Write(first)
	require.NoError(t, werr)
	require.Nil(t, w.Flush())
	_, werr = w.Write(second)
	require.NoError(t, werr)
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	got, rerr := io.ReadAll(r)
	require.NoError(t, rerr)
	assert.Equal(t, append(first, second...), got)
}

// TestWriter_SmallBufferForcesMultipleFlushes covers a writer configured
// with a tiny underlying buffer, so the header, compressed body and
// trailer reach the fd in several small bufio flushes instead of one.
func TestWriter_SmallBufferForcesMultipleFlushes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small-buffer.gz")

	w, err := Create(path, WithWriterBufferSize(16), WithLevel(1))
	require.NoError(t, err)

	payload := bytes.Repeat([]byte("x"), 4096)
	_, werr := w.Write(payload)
	require.NoError(t, werr)
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	got, rerr := io.ReadAll(r)
	require.NoError(t, rerr)
	assert.Equal(t, payload, got)
}
