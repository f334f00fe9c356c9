package capio

import "io"

// bufferFeeder adapts the Reader's input buffer and underlying fd into a
// plain io.Reader, so that pull-based backend decoders (deflate, zstd,
// lz4) can be driven without any concurrency: each Read call synchronously
// drains whatever is already buffered, refilling from fd only when the
// buffer is empty. This keeps the whole reader single-threaded, per spec
// §5.
type bufferFeeder struct {
	r *Reader
}

func (f bufferFeeder) Read(p []byte) (int, error) {
	r := f.r
	if r.in.avail == 0 {
		if r.eofFlag {
			return 0, io.EOF
		}
		res := r.in.refill(r.fd)
		r.rawPos += int64(res.n)
		if res.err != nil {
			r.fail(errFromErrno(res.err))
			return 0, res.err
		}
		if res.eof {
			r.eofFlag = true
		}
		if r.in.avail == 0 {
			return 0, io.EOF
		}
	}
	return r.in.copyOut(p), nil
}

// ReadByte lets flate.NewReader (both stdlib and klauspost/compress) use
// bufferFeeder directly instead of wrapping it in its own internal
// bufio.Reader. Without this, the backend would pull ahead by a whole
// internal buffer's worth of bytes on every refill, so currentInOffset
// (what a deflate checkpoint's InOffset records) would run well past the
// bit position the decoder has actually consumed. One byte at a time here
// keeps the two in lockstep, up to the sub-byte bit position a checkpoint
// still can't capture (see the Bits field and maybeCheckpointDeflate).
func (f bufferFeeder) ReadByte() (byte, error) {
	r := f.r
	if r.in.avail == 0 {
		if r.eofFlag {
			return 0, io.EOF
		}
		res := r.in.refill(r.fd)
		r.rawPos += int64(res.n)
		if res.err != nil {
			r.fail(errFromErrno(res.err))
			return 0, res.err
		}
		if res.eof {
			r.eofFlag = true
		}
		if r.in.avail == 0 {
			return 0, io.EOF
		}
	}
	b := r.in.peek()[0]
	r.in.advance(1)
	return b, nil
}
