package capio

import (
	"io"
	"os"
)

// Read implements io.Reader over the decompressed byte stream. It returns
// as soon as at least one byte is available, short of EOF or a sticky
// error, matching spec §4.5's "return a short read rather than blocking
// for a full buffer".
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	r.drainPendingSeek()
	if r.err != nil {
		return 0, r.err
	}

	for r.out.avail == 0 {
		r.fillOutput()
		if r.err != nil && r.out.avail == 0 {
			return 0, r.err
		}
		if r.out.avail == 0 && r.eofFlag {
			return 0, io.EOF
		}
	}

	n := r.out.copyOut(p)
	r.pos += int64(n)
	return n, nil
}

// PeekByte returns the next byte without consuming it, or ok=false at EOF
// or on a sticky error (check Error() to distinguish the two).
func (r *Reader) PeekByte() (b byte, ok bool) {
	r.drainPendingSeek()
	if r.err != nil {
		return 0, false
	}
	for r.out.avail == 0 {
		r.fillOutput()
		if r.err != nil {
			return 0, false
		}
		if r.out.avail == 0 && r.eofFlag {
			return 0, false
		}
	}
	return r.out.peek()[0], true
}

// GetByte consumes and returns the next byte, or ok=false at EOF or on a
// sticky error.
func (r *Reader) GetByte() (b byte, ok bool) {
	var buf [1]byte
	n, err := r.Read(buf[:])
	if n == 0 || err != nil {
		return 0, false
	}
	return buf[0], true
}

// Gets reads up to len(p)-1 bytes into p, stopping at and including the
// first newline, and appends a terminating NUL, mirroring fgets(3)
// semantics (spec §4.5). It reports how many bytes of p were filled,
// excluding the trailing NUL.
func (r *Reader) Gets(p []byte) int {
	if len(p) < 2 {
		return 0
	}
	limit := len(p) - 1
	i := 0
	for i < limit {
		b, ok := r.GetByte()
		if !ok {
			break
		}
		p[i] = b
		i++
		if b == '\n' {
			break
		}
	}
	p[i] = 0
	return i
}

// Tell returns the logical (uncompressed) read position. While a deferred
// seek is pending, it reports the seek's target rather than the position
// actually reached internally so far.
func (r *Reader) Tell() int64 {
	if r.seekPending {
		return r.pos + r.skip
	}
	return r.pos
}

// TellRaw returns the underlying fd's read offset as the Reader tracks it:
// the offset it started from plus the bytes pulled since. A seek that
// repositions the fd (a rewind, a checkpoint resume, a raw lseek) resets
// it to the new fd offset, so it can decrease.
func (r *Reader) TellRaw() int64 {
	return r.rawPos
}

// Eof reports whether the stream is exhausted: no buffered output remains,
// no deferred seek is pending, and the underlying fd has returned EOF.
func (r *Reader) Eof() bool {
	return !r.seekPending && r.out.avail == 0 && r.eofFlag && r.err == nil
}

// Fstat returns os.File.Stat on the underlying fd.
func (r *Reader) Fstat() (os.FileInfo, error) {
	return r.fd.Stat()
}

// Error returns the sticky error recorded on the reader, or nil if none.
func (r *Reader) Error() *Error {
	return r.err
}

// Clearerr clears a previously recorded sticky error and the EOF flag,
// allowing the reader to be used again from its current position. It
// does not undo whatever state change triggered the error.
func (r *Reader) Clearerr() {
	r.err = nil
	r.eofFlag = false
}

// IsCompressed reports whether the detected format is a compressed one.
// Sticky: once true, it never reverts to false, even across a rewind.
func (r *Reader) IsCompressed() bool {
	return r.isCompressed
}

// CompressionType returns the detected (or currently active) compression
// mode.
func (r *Reader) CompressionType() CompressionMode {
	return r.mode
}

// FdClose detaches the underlying fd from the reader without closing it,
// so the caller regains ownership. After FdClose, Close becomes a no-op
// on the fd itself.
func (r *Reader) FdClose() *os.File {
	r.releaseDrivers()
	r.detached = true
	return r.fd
}

// FdReopen swaps in a fresh fd for the reader, re-running detection from
// its current position as though the reader had just been opened on it.
// Used to resume reading after a file has been rotated out from under a
// long-lived reader.
func (r *Reader) FdReopen(fd *os.File) *Error {
	pos, err := fd.Seek(0, 1)
	if err != nil {
		return r.fail(errFromErrno(err))
	}
	r.releaseDrivers()
	r.fd = fd
	r.detached = false
	r.ownsFD = false
	r.start = pos
	r.rawStart = pos
	r.rawPos = pos
	r.pos = 0
	r.mode = ModeUnknown
	r.isCompressed = false
	r.eofFlag = false
	r.err = nil
	r.seekPending = false
	r.skip = 0
	r.in.reset()
	r.out.reset()
	return nil
}

// Close releases decoder resources and, unless the fd was detached via
// FdClose or the reader never owned it, closes the underlying fd.
func (r *Reader) Close() error {
	r.releaseDrivers()
	if r.detached || !r.ownsFD {
		return nil
	}
	return r.fd.Close()
}
