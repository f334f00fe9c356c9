package capio

import (
	"io"

	"github.com/pierrec/lz4/v4"
)

// lz4Driver adapts pierrec/lz4's frame reader to the reader's buffer pair,
// following the same pattern as zstdDriver (spec §4.3: "Same pattern as
// zstd; the backend accepts input and output buffer sizes as in/out
// parameters"). No fast-seek checkpoints are emitted for LZ4 either.
type lz4Driver struct {
	dec *lz4.Reader
}

func (r *Reader) enterLZ4() {
	r.mode = ModeLZ4
	r.isCompressed = true
	r.lz4 = newLZ4Driver(r)
}

func newLZ4Driver(r *Reader) *lz4Driver {
	return &lz4Driver{dec: lz4.NewReader(bufferFeeder{r: r})}
}

func (r *Reader) fillLZ4() {
	d := r.lz4

	n, err := d.dec.Read(r.out.buf)
	if n > 0 {
		r.out.next = 0
		r.out.avail = n
	}
	switch {
	case r.err != nil:
		// feeder already recorded the real OS error.
	case err == io.EOF:
		r.lz4 = nil
		r.mode = ModeUnknown
	case err != nil:
		r.fail(errDecompress(err.Error()))
	}
}

func (d *lz4Driver) close() {
	// lz4.Reader holds no OS resources to release.
}
