// Package blobstore is the storage abstraction behind link payloads and the
// identifier mirror.
//
// Payloads are immutable, content-addressed blobs, so every backend only
// needs whole-object put, ranged read, delete and prefix listing.
//
// # Built-in Implementations
//
//   - LocalStore: files below a directory (the default, <root>/contents)
//   - MemoryStore: in-process map for tests
//   - CachingStore: block cache in front of a remote store
//   - minio.Store: MinIO and other S3-compatible services
//   - s3.Store: Amazon S3 with multipart uploads
//
// Stores that can check their backend implement Pinger.
package blobstore
