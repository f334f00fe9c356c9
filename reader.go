// Package capio implements a seekable, auto-detecting decompressing reader
// for packet capture files that may be stored plain or wrapped in gzip
// (deflate), zstd, or LZ4 frame compression. It maintains a sparse
// fast-seek index of decompressor checkpoints so random access over a
// compressed file does not require re-decoding from the start.
//
// Unless otherwise noted, a Reader or Writer is not safe for concurrent
// use by multiple goroutines.
package capio

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/nettrace/capio/internal/seekindex"
)

const (
	// defaultBufferSize is the default input buffer capacity; the output
	// buffer is always twice this, to absorb a single deflate block's
	// worth of expansion (spec §3).
	defaultBufferSize = 262144 // 256 KiB, matching rclone's initialChunkSize order of magnitude

	// maxBufferSize is the largest input buffer capacity a caller may
	// request (2^30, per spec §6).
	maxBufferSize = 1 << 30
)

// Reader provides byte-stream semantics (sequential read, peek, line read,
// tell, absolute/relative seek) over a file that may be plain or wrapped in
// a supported compressed format, detected automatically from its leading
// bytes.
type Reader struct {
	fd       *os.File
	ownsFD   bool
	detached bool // true once FdClose has detached the fd

	rawPos   int64 // fd offset of the next byte to pull: start plus bytes consumed, reset by fd repositioning
	pos      int64 // logical uncompressed offset delivered to the caller
	start    int64 // fd position at open time
	rawStart int64 // fd position where uncompressed-mode data begins

	size int // input buffer capacity; output buffer capacity is 2*size
	in   *byteBuffer
	out  *byteBuffer

	mode         CompressionMode
	isCompressed bool // sticky: never reverts to false once a compressed mode is entered

	eofFlag bool
	err     *Error

	seekPending bool
	skip        int64

	dontCheckCRC bool // ".caz" quirk: suppress gzip trailer CRC mismatches

	index *seekindex.Index // optional, externally owned

	deflate *deflateDriver
	zstd    *zstdDriver
	lz4     *lz4Driver

	log logrus.FieldLogger
}

// Option configures a Reader at construction time (a Writer takes
// WriterOption instead).
type Option func(*config)

type config struct {
	bufferSize   int
	index        *seekindex.Index
	dontCheckCRC bool
	log          logrus.FieldLogger
}

func defaultConfig() *config {
	return &config{
		bufferSize: defaultBufferSize,
		log:        logrus.StandardLogger(),
	}
}

// WithBufferSize overrides the input buffer capacity (the output buffer is
// always twice this). Capacities above 2^30 are rejected by Open/FdOpen.
func WithBufferSize(n int) Option {
	return func(c *config) { c.bufferSize = n }
}

// WithIndex attaches a fast-seek index the Reader will append checkpoints
// to and consult during seeks. Multiple Readers over the same file may
// share one Index (spec §5: "owned externally... multiple readers opened
// on the same file can share accumulated checkpoints").
func WithIndex(idx *seekindex.Index) Option {
	return func(c *config) { c.index = idx }
}

// WithSuppressCRC enables the ".caz" historical vendor quirk: a bad gzip
// trailer CRC is tolerated (but a bad trailer length is still an error).
func WithSuppressCRC() Option {
	return func(c *config) { c.dontCheckCRC = true }
}

// WithLogger overrides the logrus.FieldLogger used for debug/warn logging.
// The zero value leaves logging on logrus's standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}

// Open opens path and returns a Reader over it, auto-detecting compression
// on first use.
func Open(path string, opts ...Option) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := FdOpen(f, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.ownsFD = true
	return r, nil
}

// FdOpen wraps an already-open *os.File. The Reader takes ownership of fd:
// Close will close it. Use FdClose beforehand to detach it first.
func FdOpen(fd *os.File, opts ...Option) (*Reader, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.bufferSize <= 0 || cfg.bufferSize > maxBufferSize {
		return nil, errInternal("buffer size out of range")
	}

	pos, err := fd.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		fd:           fd,
		ownsFD:       true,
		start:        pos,
		rawPos:       pos,
		size:         cfg.bufferSize,
		in:           newByteBuffer(cfg.bufferSize),
		out:          newByteBuffer(2 * cfg.bufferSize),
		mode:         ModeUnknown,
		index:        cfg.index,
		dontCheckCRC: cfg.dontCheckCRC,
		log:          cfg.log,
	}
	return r, nil
}

// fail records a sticky error and returns it. Once set, err short-circuits
// all further producing operations (spec §3 invariant, §7 propagation).
func (r *Reader) fail(err *Error) *Error {
	if r.err == nil {
		r.err = err
		r.log.WithField("code", err.Code).Warn("capio: sticky error recorded")
	}
	return r.err
}

// fillOutput is the heart of the stream state machine (spec §4.4): if the
// format has not been detected yet, run the detector; otherwise hand off to
// the active decoder driver. It makes one such step and may return with out
// still empty (detection of a compressed format produces no output), so
// callers loop until out has data, EOF is reached, or an error is recorded.
func (r *Reader) fillOutput() {
	if r.err != nil {
		return
	}
	if r.mode == ModeUnknown {
		r.detect()
		return
	}
	switch r.mode {
	case ModeUncompressed:
		r.fillUncompressed()
	case ModeDeflate, ModeDeflateAfterHeader:
		r.fillDeflate()
	case ModeZstd:
		r.fillZstd()
	case ModeLZ4:
		r.fillLZ4()
	default:
		r.fail(errInternal("unreachable compression mode"))
	}
}

// fillUncompressed delegates straight to a buffer refill on the output
// buffer, per spec §4.3.
func (r *Reader) fillUncompressed() {
	res := r.out.refill(r.fd)
	r.rawPos += int64(res.n)
	if res.err != nil {
		r.fail(errFromErrno(res.err))
		return
	}
	if res.eof {
		r.eofFlag = true
	}
}

// releaseDrivers tears down any backend decoder state, used on Close and
// before reinitializing for a seek.
func (r *Reader) releaseDrivers() {
	if r.deflate != nil {
		r.deflate.close()
		r.deflate = nil
	}
	if r.zstd != nil {
		r.zstd.close()
		r.zstd = nil
	}
	if r.lz4 != nil {
		r.lz4.close()
		r.lz4 = nil
	}
}
