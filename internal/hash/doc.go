// Package hash provides the checksums and content digests used by scmemory.
//
// Segment blocks and the content index carry a CRC32-Castagnoli checksum,
// which Go computes with SSE4.2 or the ARM CRC extension when available:
//
//	sum := hash.CRC32C(block)
//
// Link payloads are addressed by their SHA-256 digest. Two payloads share a
// digest only if their bytes are identical, so the digest doubles as the
// exact-match key of the reverse content index:
//
//	d := hash.Sum(payload)
//	name := d.String() // 64 hex characters
package hash
