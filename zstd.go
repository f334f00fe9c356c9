package capio

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// zstdDriver adapts the klauspost/compress streaming zstd decoder to the
// reader's input/output buffer pair, grounded on
// backend/compress/zstd_handler.go's non-seekable branch
// (zstd.NewReader(cr) when offset == 0). No fast-seek checkpoints are
// emitted for zstd (spec §4.3): the streaming decoder exposes no
// equivalent of deflate's dictionary-reset hook.
type zstdDriver struct {
	dec *zstd.Decoder
}

func (r *Reader) enterZstd() {
	r.mode = ModeZstd
	r.isCompressed = true
	r.zstd = newZstdDriver(r)
}

// newZstdDriver wires the decoder to pull directly from the reader's own
// input buffer via bufferFeeder, so no goroutine or pipe is needed: the
// whole pull happens synchronously inside the fillZstd call below.
func newZstdDriver(r *Reader) *zstdDriver {
	// Concurrency 1 keeps decoding (and every bufferFeeder read) on the
	// calling goroutine; the default setting decodes streams on background
	// goroutines.
	dec, err := zstd.NewReader(bufferFeeder{r: r}, zstd.WithDecoderConcurrency(1))
	if err != nil {
		// zstd.NewReader only fails on bad options; the one we pass is valid.
		panic(err)
	}
	return &zstdDriver{dec: dec}
}

func (r *Reader) fillZstd() {
	d := r.zstd

	n, err := d.dec.Read(r.out.buf)
	if n > 0 {
		r.out.next = 0
		r.out.avail = n
	}
	switch {
	case r.err != nil:
		// the feeder already recorded the real OS error; don't mask it.
	case err == io.EOF:
		d.close()
		r.zstd = nil
		r.mode = ModeUnknown
	case err != nil:
		r.fail(errDecompress(err.Error()))
	}
}

func (d *zstdDriver) close() {
	if d == nil {
		return
	}
	d.dec.Close()
}
