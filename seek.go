package capio

import (
	"io"

	"github.com/nettrace/capio/internal/seekindex"
)

// Seek repositions the logical read cursor, following io.Seeker's
// whence convention (io.SeekStart/io.SeekCurrent/io.SeekEnd), and returns
// the resulting absolute logical position (spec §4.6, §6). SEEK_END only
// accepts a zero offset: the spec defines end-relative seeking as "skip
// to the end, then apply a signed offset that must be zero".
//
// The move itself is deferred: Seek never decodes more than whatever is
// needed to resolve a SEEK_END, or to consult a fast-seek checkpoint; the
// bulk of the work, if any, happens lazily on the next Read-family call.
func (r *Reader) Seek(offset int64, whence int) (int64, *Error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = r.Tell() + offset
	case io.SeekEnd:
		if offset != 0 {
			return r.Tell(), r.fail(errInternal("SEEK_END only supports a zero offset"))
		}
		if err := r.seekToEnd(); err != nil {
			return r.Tell(), err
		}
		return r.pos, nil
	default:
		return r.Tell(), r.fail(errInternal("invalid whence"))
	}

	if err := r.seekAbsolute(target); err != nil {
		return r.Tell(), err
	}
	return r.Tell(), nil
}

// seekToEnd drains the stream to true EOF, establishing r.pos as the
// stream's total logical length.
func (r *Reader) seekToEnd() *Error {
	var scratch [32768]byte
	for {
		_, err := r.Read(scratch[:])
		if err == io.EOF {
			return r.err
		}
		if err != nil {
			return r.err
		}
	}
}

// seekAbsolute moves the logical read position to target, an absolute
// offset in uncompressed bytes from the start of the stream (spec §4.6).
// It tries, in order, the cheapest option that applies:
//
//  1. target already sits inside the currently decoded output buffer:
//     just move the buffer's read cursor.
//  2. the stream has been uncompressed from its first byte: translate
//     directly to an fd offset.
//  3. a fast-seek checkpoint at or before target is available: reposition
//     fd and the decoder there instead of at the start of the stream.
//  4. none of the above applies and target is behind the current
//     position: rewind fd to the start and re-detect.
//
// Whatever remaining distance is left after 3-4 is recorded as a deferred
// skip (r.seekPending/r.skip) and consumed lazily by the next Read-family
// call, rather than decoded eagerly inside Seek itself.
func (r *Reader) seekAbsolute(target int64) *Error {
	if r.err != nil {
		return r.err
	}
	if target < 0 {
		return r.fail(errInternal("negative seek target"))
	}

	r.seekPending = false
	r.skip = 0

	if target == r.pos {
		return nil
	}

	if r.seekWithinBuffer(target) {
		return nil
	}

	if r.mode == ModeUncompressed && !r.isCompressed {
		r.seekUncompressed(target)
		return r.err
	}

	if r.index != nil {
		if cp, ok := r.index.Floor(target); ok && cp.OutOffset != r.pos {
			// A checkpoint is worth using whenever it is closer to target
			// than restarting from the beginning of the stream would be,
			// which backward seeks always satisfy, and forward seeks
			// satisfy whenever the checkpoint is ahead of where we already
			// are.
			if target < r.pos || cp.OutOffset > r.pos {
				r.resumeFromCheckpoint(cp, target)
				return r.err
			}
		}
	}

	if target < r.pos {
		r.rewindToStart()
	}

	r.seekPending = true
	r.skip = target - r.pos
	return nil
}

// seekWithinBuffer repositions the output buffer's read cursor if target
// falls inside the span of bytes already decoded and sitting in r.out.
func (r *Reader) seekWithinBuffer(target int64) bool {
	bufStart := r.pos - int64(r.out.offset())
	bufEnd := r.pos + int64(r.out.avail)
	if target < bufStart || target >= bufEnd {
		// An exact match on the end boundary (nothing left to deliver
		// from this load) is not worth a special case; fall through to
		// the slower paths.
		return false
	}
	newNext := r.out.next + int(target-r.pos)
	newAvail := int(bufEnd - target)
	r.out.next = newNext
	r.out.avail = newAvail
	r.pos = target
	return true
}

// seekUncompressed performs a direct fd lseek for the uncompressed case,
// where the mapping between fd offset and logical position is exact
// (spec §4.6 step 3).
func (r *Reader) seekUncompressed(target int64) {
	newFdPos := r.rawStart + target
	if _, err := r.fd.Seek(newFdPos, io.SeekStart); err != nil {
		r.fail(errFromErrno(err))
		return
	}
	r.in.reset()
	r.out.reset()
	r.rawPos = newFdPos
	r.pos = target
	r.eofFlag = false
}

// resumeFromCheckpoint repositions fd at cp.InOffset and reinitializes the
// deflate driver from the checkpoint's saved window and counters, then
// defers whatever distance remains to reach target (spec §4.6 step 2).
func (r *Reader) resumeFromCheckpoint(cp seekindex.Checkpoint, target int64) {
	if _, err := r.fd.Seek(cp.InOffset, io.SeekStart); err != nil {
		r.fail(errFromErrno(err))
		return
	}
	r.releaseDrivers()
	r.in.reset()
	r.out.reset()
	r.rawPos = cp.InOffset
	r.pos = cp.OutOffset
	r.eofFlag = false

	r.mode = CompressionMode(cp.Mode)
	if r.mode == ModeDeflate || r.mode == ModeDeflateAfterHeader {
		r.isCompressed = true
		r.deflate = newDeflateDriver(r)
		r.deflate.checksum = cp.Checksum
		r.deflate.totalOut = cp.TotalOut
		r.deflate.lastCheckpointOut = cp.OutOffset
		if len(cp.Window) > 0 {
			if err := r.deflate.zr.Reset(bufferFeeder{r: r}, cp.Window); err != nil {
				r.fail(errDecompress(err.Error()))
				return
			}
			r.deflate.rollWindow(cp.Window)
		}
	}

	r.skip = target - r.pos
	r.seekPending = r.skip > 0
}

// drainPendingSeek discards decoded output until the deferred skip left by
// Seek is fully consumed, without copying any of it to the caller. It is
// called by the Read-family methods before they deliver any bytes.
func (r *Reader) drainPendingSeek() {
	for r.seekPending && r.err == nil {
		if r.out.avail == 0 {
			r.fillOutput()
			if r.err != nil {
				return
			}
			if r.out.avail == 0 {
				if r.eofFlag {
					r.seekPending = false
				}
				return
			}
			continue
		}
		n := r.out.avail
		if int64(n) > r.skip {
			n = int(r.skip)
		}
		r.out.advance(n)
		r.pos += int64(n)
		r.skip -= int64(n)
		if r.skip == 0 {
			r.seekPending = false
		}
	}
}

// rewindToStart resets the reader to the state it was in immediately
// after Open/FdOpen, so the format can be re-detected from the beginning
// (spec §4.6 step 4, used when no checkpoint is close enough).
func (r *Reader) rewindToStart() {
	if _, err := r.fd.Seek(r.start, io.SeekStart); err != nil {
		r.fail(errFromErrno(err))
		return
	}
	r.releaseDrivers()
	r.in.reset()
	r.out.reset()
	r.rawPos = r.start
	r.pos = 0
	r.eofFlag = false
	r.mode = ModeUnknown
}
