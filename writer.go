package capio

import (
	"bufio"
	"hash/crc32"
	"os"

	"github.com/klauspost/compress/flate"
	"github.com/sirupsen/logrus"
)

const (
	defaultWriterLevel  = flate.DefaultCompression
	defaultWriterBuffer = 65536
)

// WriterOption configures a Writer at construction time.
type WriterOption func(*writerConfig)

type writerConfig struct {
	level      int
	bufferSize int
	log        logrus.FieldLogger
}

func defaultWriterConfig() *writerConfig {
	return &writerConfig{
		level:      defaultWriterLevel,
		bufferSize: defaultWriterBuffer,
		log:        logrus.StandardLogger(),
	}
}

// WithLevel overrides the deflate compression level (flate.NoCompression
// through flate.BestCompression, or flate.DefaultCompression).
func WithLevel(level int) WriterOption {
	return func(c *writerConfig) { c.level = level }
}

// WithWriterBufferSize overrides the size of the buffer sitting between
// the flate writer and the underlying fd.
func WithWriterBufferSize(n int) WriterOption {
	return func(c *writerConfig) { c.bufferSize = n }
}

// WithWriterLogger overrides the logrus.FieldLogger used for debug/warn
// logging.
func WithWriterLogger(log logrus.FieldLogger) WriterOption {
	return func(c *writerConfig) { c.log = log }
}

// Writer is the companion of Reader: it always produces a gzip-wrapped
// deflate stream (spec §4.7), written with the same minimal, manually
// constructed header that Reader's detector parses, rather than going
// through a pre-rolled gzip.Writer whose header layout isn't under our
// control.
type Writer struct {
	fd     *os.File
	ownsFD bool

	bw *bufio.Writer
	zw *flate.Writer

	checksum  uint32
	totalIn   int64
	headerOut bool

	err *Error
	log logrus.FieldLogger
}

// Create creates (or truncates) path and returns a Writer over it.
func Create(path string, opts ...WriterOption) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := FdOpenWriter(f, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.ownsFD = true
	return w, nil
}

// FdOpenWriter wraps an already-open, writable *os.File and immediately
// writes the gzip header.
func FdOpenWriter(fd *os.File, opts ...WriterOption) (*Writer, error) {
	cfg := defaultWriterConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	bw := bufio.NewWriterSize(fd, cfg.bufferSize)
	zw, err := flate.NewWriter(bw, cfg.level)
	if err != nil {
		return nil, err
	}

	w := &Writer{
		fd:  fd,
		bw:  bw,
		zw:  zw,
		log: cfg.log,
	}
	if err := w.writeHeader(); err != nil {
		return nil, err
	}
	return w, nil
}

// writeHeader emits the 10-byte minimal gzip header this package's Reader
// parses: CM=8 (deflate), FLG=0 (no optional fields), MTIME=0, XFL=0,
// OS=0xFF (unknown), matching the fields detectGzip in detect.go actually
// inspects and simply skipping every optional field Reader knows how to
// skip but never needs to produce.
func (w *Writer) writeHeader() error {
	hdr := [10]byte{0x1F, 0x8B, gzipCMDeflate, 0, 0, 0, 0, 0, 0, 0xFF}
	if _, err := w.bw.Write(hdr[:]); err != nil {
		w.fail(errFromErrno(err))
		return w.err
	}
	w.headerOut = true
	return nil
}

// Write compresses p and buffers the result for the underlying fd,
// updating the running CRC-32 and total length the trailer needs.
func (w *Writer) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	n, err := w.zw.Write(p)
	if n > 0 {
		w.checksum = crc32.Update(w.checksum, crc32.IEEETable, p[:n])
		w.totalIn += int64(n)
	}
	if err != nil {
		return n, w.fail(errFromErrno(err))
	}
	return n, nil
}

// Flush forces a deflate sync-flush point (an empty stored block), so a
// reader positioned up to here can resynchronize without the rest of the
// stream, then flushes the underlying buffered writer. This is the
// producer-side half of the seek checkpoints Reader records.
func (w *Writer) Flush() *Error {
	if w.err != nil {
		return w.err
	}
	if err := w.zw.Flush(); err != nil {
		return w.fail(errFromErrno(err))
	}
	if err := w.bw.Flush(); err != nil {
		return w.fail(errFromErrno(err))
	}
	return nil
}

// Close finishes the deflate stream, appends the gzip trailer (CRC-32 and
// length mod 2^32, both little-endian), and closes the underlying fd
// unless the Writer does not own it.
func (w *Writer) Close() error {
	if w.err != nil {
		if w.ownsFD {
			w.fd.Close()
		}
		return w.err
	}

	if err := w.zw.Close(); err != nil {
		w.fail(errFromErrno(err))
	}

	if w.err == nil {
		trailer := make([]byte, 8)
		putLE32(trailer[0:4], w.checksum)
		putLE32(trailer[4:8], uint32(w.totalIn))
		if _, err := w.bw.Write(trailer); err != nil {
			w.fail(errFromErrno(err))
		}
	}

	if w.err == nil {
		if err := w.bw.Flush(); err != nil {
			w.fail(errFromErrno(err))
		}
	}

	var closeErr error
	if w.ownsFD {
		closeErr = w.fd.Close()
	}
	if w.err != nil {
		return w.err
	}
	return closeErr
}

// GetErr returns the sticky error recorded on the writer, or nil if none.
func (w *Writer) GetErr() *Error {
	return w.err
}

func (w *Writer) fail(err *Error) *Error {
	if w.err == nil {
		w.err = err
		w.log.WithField("code", err.Code).Warn("capio: writer sticky error recorded")
	}
	return w.err
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
