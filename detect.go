package capio

import (
	"encoding/binary"

	"github.com/nettrace/capio/internal/seekindex"
)

var (
	magicGzip = [2]byte{0x1F, 0x8B}
	magicZstd = [4]byte{0x28, 0xB5, 0x2F, 0xFD}
	magicLZ4  = [4]byte{0x04, 0x22, 0x4D, 0x18}
)

const (
	gzipCMDeflate  = 0x08
	gzipFlagReserv = 0xE0 // reserved FLG bits that must be zero
	gzipFlagCRC    = 1 << 1
	gzipFlagExtra  = 1 << 2
	gzipFlagName   = 1 << 3
	gzipFlagComm   = 1 << 4
)

// ensureBuffered tries to get at least n bytes available in r.in,
// refilling from the fd as needed. It returns the number actually
// available, which may be less than n at true EOF.
func (r *Reader) ensureBuffered(n int) int {
	for r.in.avail < n && !r.eofFlag {
		res := r.in.refill(r.fd)
		r.rawPos += int64(res.n)
		if res.err != nil {
			r.fail(errFromErrno(res.err))
			return r.in.avail
		}
		if res.eof {
			r.eofFlag = true
		}
		if res.n == 0 {
			break
		}
	}
	return r.in.avail
}

// detect runs the format detector (spec §4.2): it sniffs the head of the
// input buffer, recognizes a magic sequence, consumes any format-specific
// header, and transitions into the corresponding mode.
func (r *Reader) detect() {
	n := r.ensureBuffered(4)
	if r.err != nil {
		return
	}
	head := r.in.peek()

	switch {
	case n >= 2 && head[0] == magicGzip[0] && head[1] == magicGzip[1]:
		r.detectGzip()
	case n >= 4 && equalBytes(head[:4], magicZstd[:]):
		// Unlike gzip, the zstd/lz4 backends read and validate the frame
		// magic themselves, so it must stay in r.in for bufferFeeder to
		// hand to them.
		r.enterZstd()
	case n >= 4 && equalBytes(head[:4], magicLZ4[:]):
		r.enterLZ4()
	default:
		r.enterUncompressed()
	}
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// detectGzip consumes the full gzip header (spec §4.2) and transitions to
// ModeDeflateAfterHeader.
func (r *Reader) detectGzip() {
	if r.ensureBuffered(10) < 10 {
		r.fail(errShortRead("gzip header"))
		return
	}
	hdr := r.in.peek()[:10]
	cm := hdr[2]
	flg := hdr[3]
	r.in.advance(10)

	if cm != gzipCMDeflate {
		r.fail(errDecompress("unknown compression method"))
		return
	}
	if flg&gzipFlagReserv != 0 {
		r.fail(errDecompress("reserved header flag bits set"))
		return
	}

	if flg&gzipFlagExtra != 0 {
		if !r.skipLengthPrefixedField() {
			return
		}
	}
	if flg&gzipFlagName != 0 {
		if !r.skipNullTerminated() {
			return
		}
	}
	if flg&gzipFlagComm != 0 {
		if !r.skipNullTerminated() {
			return
		}
	}
	if flg&gzipFlagCRC != 0 {
		if r.ensureBuffered(2) < 2 {
			r.fail(errShortRead("gzip header CRC"))
			return
		}
		r.in.advance(2)
	}

	r.isCompressed = true
	r.mode = ModeDeflateAfterHeader
	r.deflate = newDeflateDriver(r)

	if r.index != nil {
		if last, ok := r.index.Last(); !ok || last.OutOffset < r.pos {
			r.index.Append(seekindex.Checkpoint{
				InOffset:  r.currentInOffset(),
				OutOffset: r.pos,
				Mode:      seekindex.ModeDeflateAfterHeader,
			})
		}
	}
}

// skipLengthPrefixedField consumes a gzip FEXTRA-style field: a 2-byte
// little-endian length followed by that many bytes.
func (r *Reader) skipLengthPrefixedField() bool {
	if r.ensureBuffered(2) < 2 {
		r.fail(errShortRead("gzip extra field length"))
		return false
	}
	xlen := int(binary.LittleEndian.Uint16(r.in.peek()[:2]))
	r.in.advance(2)
	for xlen > 0 {
		if r.ensureBuffered(1) < 1 {
			r.fail(errShortRead("gzip extra field"))
			return false
		}
		chunk := r.in.avail
		if chunk > xlen {
			chunk = xlen
		}
		r.in.advance(chunk)
		xlen -= chunk
	}
	return true
}

// skipNullTerminated consumes bytes up to and including a zero byte
// (gzip FNAME/FCOMMENT fields).
func (r *Reader) skipNullTerminated() bool {
	for {
		if r.ensureBuffered(1) < 1 {
			r.fail(errShortRead("gzip string field"))
			return false
		}
		b := r.in.peek()[0]
		r.in.advance(1)
		if b == 0 {
			return true
		}
	}
}

// currentInOffset returns the fd position corresponding to the next byte
// the decoder will consume: bytes pulled from fd so far minus what is
// still sitting unconsumed in the input buffer.
func (r *Reader) currentInOffset() int64 {
	return r.rawPos - int64(r.in.avail)
}

// enterUncompressed transitions into ModeUncompressed, moving any
// already-buffered input bytes into the output buffer so they are not
// lost (spec §4.2).
//
// rawStart is recorded as an fd offset (currentInOffset), while its
// seek-time use (rawStart+target in seekUncompressed) treats it as the fd
// offset of logical position 0. That holds when this is the stream's first
// detection (r.pos == 0). After a compressed member has ended, detection
// runs again with r.pos > 0, which is why seekAbsolute takes the raw-lseek
// path only while IsCompressed is false.
func (r *Reader) enterUncompressed() {
	r.mode = ModeUncompressed
	r.rawStart = r.currentInOffset()

	if r.index != nil {
		if last, ok := r.index.Last(); !ok || last.OutOffset < r.pos {
			r.index.Append(seekindex.Checkpoint{
				InOffset:  r.currentInOffset(),
				OutOffset: r.pos,
				Mode:      seekindex.ModeUncompressed,
			})
		}
	}

	if r.in.avail > 0 {
		n := copy(r.out.buf, r.in.peek())
		r.out.next = 0
		r.out.avail = n
		r.in.advance(n)
	}
	r.in.reset()
}
