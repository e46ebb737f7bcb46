// Package compress provides optional compression codecs for raw blob
// payloads stored under the codec's bytes tag (format.TagBytes).
//
// Compression here is a value-level transform the wrapped and raw store
// APIs may opt into for bassoc/raw Put — it has no effect on the codec's
// tag stream, which is byte-identical whether or not compression is
// enabled (spec.md §6, §4.C2).
//
// Supported algorithms:
//   - None (format.CompressionNone): passthrough, no overhead
//   - Zstd (format.CompressionZstd): best ratio, moderate speed
//   - S2 (format.CompressionS2): balanced speed/ratio
//   - LZ4 (format.CompressionLZ4): fastest decompression
//
// Use GetCodec to obtain a Codec for a given format.CompressionType;
// codecs are safe for concurrent use.
package compress
