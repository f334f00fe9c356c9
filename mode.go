package capio

// CompressionMode identifies the wire format a Reader is currently decoding
// or a Writer produces. Values are positional-compatible with
// internal/seekindex.Mode so a checkpoint's mode can be cast directly.
type CompressionMode int

const (
	// ModeUnknown means the format has not been detected yet.
	ModeUnknown CompressionMode = iota
	// ModeUncompressed is a plain, uncompressed byte stream.
	ModeUncompressed
	// ModeDeflate is a gzip-wrapped deflate stream, positioned inside the
	// compressed payload (after the gzip header has been consumed).
	ModeDeflate
	// ModeDeflateAfterHeader marks the checkpoint taken immediately after
	// the gzip header, before any deflate output has been produced.
	ModeDeflateAfterHeader
	// ModeZstd is a zstd frame stream.
	ModeZstd
	// ModeLZ4 is an LZ4 frame stream.
	ModeLZ4
)

func (m CompressionMode) String() string {
	switch m {
	case ModeUnknown:
		return "unknown"
	case ModeUncompressed:
		return "uncompressed"
	case ModeDeflate:
		return "deflate"
	case ModeDeflateAfterHeader:
		return "deflate-after-header"
	case ModeZstd:
		return "zstd"
	case ModeLZ4:
		return "lz4"
	default:
		return "invalid"
	}
}

// compressionInfo is one row of the compression-type registry, used by a
// hosting application for filename completion. Only gzip is advertised
// with a file extension; the other formats are detected by magic bytes but
// are not suggested as a save target by extension.
type compressionInfo struct {
	extension   string
	description string
}

// compressionRegistry is a static lookup table, analogous to rclone's
// backend registration table in backend/compress/compress.go, but keyed on
// CompressionMode instead of a remote name.
var compressionRegistry = map[CompressionMode]compressionInfo{
	ModeUncompressed: {extension: "", description: "Uncompressed"},
	ModeDeflate:      {extension: "gz", description: "Gzip-wrapped deflate"},
	ModeZstd:         {extension: "", description: "Zstandard"},
	ModeLZ4:          {extension: "", description: "LZ4 frame"},
}

// Extension returns the conventional filename extension for mode, or "" if
// the format is only recognized by magic bytes.
func (m CompressionMode) Extension() string {
	return compressionRegistry[m].extension
}

// Description returns a short human-readable description of mode.
func (m CompressionMode) Description() string {
	if info, ok := compressionRegistry[m]; ok {
		return info.description
	}
	return "Unknown"
}
