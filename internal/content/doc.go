// Package content stores link payloads and answers exact-content lookups.
//
// Payloads are content addressed. Each distinct payload is written once as
// blob data/<hh>/<sha256 hex> in the configured blob store, framed as
//
//	Codec    (1 byte)  - 0 none, 1 lz4, 2 zstd
//	RawSize  (4 bytes) - uncompressed length
//	Payload  (...)
//
// Two indexes connect links and payloads:
//
//   - forward: link address -> digest
//   - reverse: digest -> roaring64 bitmap of link addresses, ordered in a
//     B-tree by digest
//
// Both are persisted together in the blob index.bin on Save. Blobs no
// longer referenced by any link are deleted after the index is written.
package content
