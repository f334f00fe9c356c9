package capio

import (
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/nettrace/capio/internal/seekindex"
)

// flateResetter mirrors ianlewis/go-dictzip's local readCloseResetter
// trick: flate.NewReader returns a plain io.ReadCloser, but the
// concrete type it returns also implements flate.Resetter, which is what
// lets a checkpoint reinstall a 32 KiB dictionary and resume decoding
// without restarting the stream.
type flateResetter interface {
	io.ReadCloser
	flate.Resetter
}

// deflateDriver drives the deflate backend for both ModeDeflateAfterHeader
// (no bytes produced yet) and ModeDeflate. It also maintains the rolling
// window and running checksum the fast-seek index needs (spec §4.3).
type deflateDriver struct {
	zr flateResetter

	checksum uint32 // running CRC-32 over produced bytes
	totalOut int64  // bytes produced since the current gzip member's header

	window     [seekindex.WindowSize]byte
	windowPos  int // next write position in the circular window
	windowHave int // number of valid bytes currently in the window (<= WindowSize)

	lastCheckpointOut int64 // r.pos value as of the last emitted checkpoint

	trailerBuf []byte // partial trailer bytes accumulated across calls
}

func newDeflateDriver(r *Reader) *deflateDriver {
	zr := flate.NewReader(bufferFeeder{r: r}).(flateResetter)
	return &deflateDriver{
		zr:                zr,
		checksum:          crc32.NewIEEE().Sum32(), // 0, spelled out for clarity against spec's "reset to the zero value"
		lastCheckpointOut: r.pos,
	}
}

func (d *deflateDriver) close() {
	if d == nil {
		return
	}
	d.zr.Close()
}

// fillDeflate decodes into r.out, updates the running checksum and rolling
// window, conditionally appends a fast-seek checkpoint, and on stream end
// verifies the gzip trailer (spec §4.3).
func (r *Reader) fillDeflate() {
	d := r.deflate
	r.mode = ModeDeflate // the "after header, no output yet" marker collapses to Deflate on first byte

	n, err := d.zr.Read(r.out.buf)
	if n > 0 {
		r.out.next = 0
		r.out.avail = n
		produced := r.out.buf[:n]
		d.checksum = crc32.Update(d.checksum, crc32.IEEETable, produced)
		d.totalOut += int64(n)
		d.rollWindow(produced)
	}

	if r.err != nil {
		return // feeder already recorded the real OS error
	}

	if err == io.EOF {
		r.finishDeflateMember()
		return
	}
	if err != nil {
		r.fail(mapFlateError(err))
		return
	}

	r.maybeCheckpointDeflate()
}

func mapFlateError(err error) *Error {
	switch err {
	case flate.ErrUnexpectedEOF:
		return errDecompress("unexpected end of deflate stream")
	default:
		if err.Error() == "preset dictionary needed" || err.Error() == "flate: preset dictionary needed" {
			return errDecompress("preset dictionary needed")
		}
		return errDecompress(err.Error())
	}
}

// rollWindow copies the newest up-to-WindowSize bytes of produced output
// into the circular rolling window (spec §4.3).
func (d *deflateDriver) rollWindow(produced []byte) {
	if len(produced) >= seekindex.WindowSize {
		copy(d.window[:], produced[len(produced)-seekindex.WindowSize:])
		d.windowPos = 0
		d.windowHave = seekindex.WindowSize
		return
	}
	for _, b := range produced {
		d.window[d.windowPos] = b
		d.windowPos = (d.windowPos + 1) % seekindex.WindowSize
		if d.windowHave < seekindex.WindowSize {
			d.windowHave++
		}
	}
}

// linearWindow rotates the circular window so index 0 is the oldest byte,
// as spec §4.3 requires for a stored checkpoint ("window contents rotated
// so that byte 0 is the oldest").
func (d *deflateDriver) linearWindow() []byte {
	if d.windowHave < seekindex.WindowSize {
		out := make([]byte, d.windowHave)
		copy(out, d.window[:d.windowHave])
		return out
	}
	out := make([]byte, seekindex.WindowSize)
	n := copy(out, d.window[d.windowPos:])
	copy(out[n:], d.window[:d.windowPos])
	return out
}

// maybeCheckpointDeflate appends a new checkpoint once the rolling window
// has filled and the logical position has advanced more than SPAN since
// the last one.
//
// The backend (klauspost/compress/flate, API-compatible with the standard
// library) does not expose deflate's internal bit position or
// block-boundary signal the way zlib's low-level inflate() does, so
// unlike a C zran.c-style implementation we cannot confirm a checkpoint
// falls exactly on a block boundary. Per spec §9's sanctioned fallback for
// backends "without a prime-with-N-bits operation", every checkpoint we
// record is treated as byte-aligned (Bits=0); this trades strict
// correctness on pathological streams for portability, exactly as the
// spec allows.
func (r *Reader) maybeCheckpointDeflate() {
	if r.index == nil {
		return
	}
	d := r.deflate
	if d.windowHave < seekindex.WindowSize {
		return
	}
	// The decoder state (window, input offset) is the one reached after the
	// bytes just produced into r.out, which the caller has not consumed yet.
	out := r.pos + int64(r.out.avail)
	if out-d.lastCheckpointOut <= seekindex.Span {
		return
	}
	if last, ok := r.index.Last(); ok && last.OutOffset >= out {
		return // a Reader sharing this index already recorded this stretch
	}

	r.index.Append(seekindex.Checkpoint{
		InOffset:  r.currentInOffset(),
		OutOffset: out,
		Mode:      seekindex.ModeDeflate,
		Bits:      0,
		Checksum:  d.checksum,
		TotalOut:  d.totalOut,
		Window:    d.linearWindow(),
	})
	d.lastCheckpointOut = out
	r.log.WithFields(map[string]interface{}{
		"out_offset": out,
		"in_offset":  r.currentInOffset(),
	}).Debug("capio: deflate checkpoint recorded")
}

// finishDeflateMember verifies the gzip trailer and returns the mode to
// ModeUnknown so a concatenated member can be re-detected (spec §4.3,
// §7's deferred-error semantics: the caller still receives bytes already
// decoded this call; the trailer error, if any, is recorded but does not
// fail the in-progress call).
func (r *Reader) finishDeflateMember() {
	d := r.deflate

	trailer := make([]byte, 8)
	got, terr := io.ReadFull(bufferFeeder{r: r}, trailer)
	r.mode = ModeUnknown
	d.close()
	r.deflate = nil

	if terr != nil {
		if r.err == nil {
			r.fail(errShortRead("gzip trailer"))
		}
		return
	}
	if got != 8 {
		r.fail(errShortRead("gzip trailer"))
		return
	}

	wantCRC := le32(trailer[0:4])
	wantLen := le32(trailer[4:8])

	if wantCRC != d.checksum && !r.dontCheckCRC {
		r.fail(errDecompress("bad CRC"))
		return
	}
	if wantLen != uint32(d.totalOut) {
		r.fail(errDecompress("length field wrong"))
		return
	}
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
