// Package compress provides optional whole-buffer compression codecs for
// encoded documents and SharedKeys persistence snapshots.
//
// Compression in this module is applied once, after the writer has already
// produced a complete tagged-value document (or after SharedKeys has
// serialized its committed table) — it is not interleaved with the wire
// format itself. A compressed buffer is never passed to the zero-copy
// reader directly; callers decompress first and hand the raw bytes to
// FromData/FromTrustedData.
//
// # Overview
//
// The package supports multiple algorithms, selected by format.CompressionType:
//   - None: no compression (fastest, largest)
//   - Zstd: best compression ratio, moderate speed
//   - S2: balanced compression and speed
//   - LZ4: fastest decompression, moderate compression
//
// # Architecture
//
//	type Compressor interface {
//	    Compress(data []byte) ([]byte, error)
//	}
//
//	type Decompressor interface {
//	    Decompress(data []byte) ([]byte, error)
//	}
//
//	type Codec interface {
//	    Compressor
//	    Decompressor
//	}
//
// # Choosing an algorithm
//
// | Use case                        | Recommended | Reason                         |
// |----------------------------------|-------------|---------------------------------|
// | Archived documents, cold storage | Zstd        | best compression ratio          |
// | Hot-path document writes         | S2 or LZ4   | lowest latency                  |
// | SharedKeys snapshot persistence  | Zstd        | small, highly repetitive data   |
// | CPU-constrained callers          | None        | zero compression overhead       |
//
// # Memory management
//
// All implementations pool their encoder/decoder state:
//   - NoOp: zero overhead, returns the input slice unchanged
//   - LZ4: pooled compressor from pierrec/lz4
//   - S2: stateless, klauspost/compress/s2
//   - Zstd: pooled encoder/decoder from klauspost/compress/zstd
//
// # Thread safety
//
// All codec implementations are safe for concurrent use.
//
// # Error handling
//
// Compression failures are rare (allocation failure, input too large for the
// algorithm). Decompression failures are more common — corrupted input,
// wrong algorithm, truncated buffer — and are always wrapped with context.
package compress
