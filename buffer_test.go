package capio

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByteBuffer_RefillPeekAdvance(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)

	_, err = w.Write([]byte("hello world"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	defer r.Close()

	b := newByteBuffer(16)

	res := b.refill(r)
	require.NoError(t, res.err)
	require.False(t, res.eof)
	require.Equal(t, 11, res.n)
	require.Equal(t, 11, b.avail)
	require.Equal(t, "hello world", string(b.peek()))

	b.advance(6) // consumes "hello "
	require.Equal(t, "world", string(b.peek()))
	require.Equal(t, 6, b.offset())
	require.Equal(t, 11, b.bytesBuffered())

	// A second refill with nothing left to read slides the unread tail
	// down to the front and then observes true EOF on the pipe.
	res2 := b.refill(r)
	require.NoError(t, res2.err)
	require.True(t, res2.eof)
	require.Equal(t, 0, res2.n)
	require.Equal(t, "world", string(b.peek()))
	require.Equal(t, 0, b.offset())
	require.Equal(t, 5, b.bytesBuffered())
}

func TestByteBuffer_CopyOut(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	_, err = w.Write([]byte("abcdef"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	defer r.Close()

	b := newByteBuffer(16)
	res := b.refill(r)
	require.NoError(t, res.err)
	require.Equal(t, 6, res.n)

	dst := make([]byte, 4)
	n := b.copyOut(dst)
	require.Equal(t, 4, n)
	require.Equal(t, "abcd", string(dst))
	require.Equal(t, 2, b.avail)
	require.Equal(t, "ef", string(b.peek()))
}

func TestByteBuffer_ResetClearsState(t *testing.T) {
	b := newByteBuffer(8)
	b.avail = 4
	b.next = 2
	b.reset()
	require.Equal(t, 0, b.avail)
	require.Equal(t, 0, b.next)
}
