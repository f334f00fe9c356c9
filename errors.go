package capio

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrCode mirrors the WTAP_ERR_* integer codes from the host capture-file
// library's error taxonomy verbatim, so that a drop-in reimplementation can
// translate them without a lookup table of its own.
type ErrCode int

const (
	// ErrNone indicates no error.
	ErrNone ErrCode = iota
	// ErrShortRead indicates premature EOF while parsing a header or
	// verifying a trailer.
	ErrShortRead
	// ErrDecompress indicates a decoder-reported or configuration error;
	// Error.Info carries a human-readable message.
	ErrDecompress
	// ErrDecompressionNotSupported indicates the magic bytes for a
	// compressed format were recognized but the corresponding backend is
	// unavailable.
	ErrDecompressionNotSupported
	// ErrShortWrite indicates the writer's underlying fd accepted fewer
	// bytes than requested.
	ErrShortWrite
	// ErrInternal indicates an invariant violation in the state machine.
	ErrInternal
)

func (c ErrCode) String() string {
	switch c {
	case ErrNone:
		return "no error"
	case ErrShortRead:
		return "short read"
	case ErrDecompress:
		return "decompression error"
	case ErrDecompressionNotSupported:
		return "decompression not supported"
	case ErrShortWrite:
		return "short write"
	case ErrInternal:
		return "internal error"
	default:
		return "unknown error"
	}
}

// Error is the sticky error type recorded on a Reader or Writer. It
// implements the standard error interface and carries the WTAP_ERR_* code
// alongside an optional human-readable detail string, matching spec §7's
// (err, err_info) pair.
type Error struct {
	Code ErrCode
	Info string
	// Errno holds the underlying OS error when Code is ErrNone but the
	// failure originated from a syscall (spec §7.a: "OS I/O errors:
	// captured as errno and surfaced unchanged").
	Errno error
}

func (e *Error) Error() string {
	if e.Errno != nil {
		return e.Errno.Error()
	}
	if e.Info != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Info)
	}
	return e.Code.String()
}

// Unwrap lets callers use errors.Is/errors.As against the underlying OS
// error when present.
func (e *Error) Unwrap() error {
	return e.Errno
}

func errShortRead(context string) *Error {
	return &Error{Code: ErrShortRead, Info: context}
}

func errDecompress(info string) *Error {
	return &Error{Code: ErrDecompress, Info: info}
}

func errDecompressNotSupported(mode CompressionMode) *Error {
	return &Error{Code: ErrDecompressionNotSupported, Info: fmt.Sprintf("%s backend not available", mode)}
}

func errInternal(info string) *Error {
	return &Error{Code: ErrInternal, Info: info}
}

func errFromErrno(err error) *Error {
	return &Error{Errno: errors.Wrap(err, "capio")}
}
