// Package s3 stores link payloads and mirrored identifiers in Amazon S3.
//
//	store, err := s3.New(ctx, "kb-contents",
//	    s3.WithPrefix("kb/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
//	mem, err := scmemory.Open("kb", scmemory.WithContentStore(store))
//
// Small blobs are written with a single PutObject carrying a CRC32C
// checksum. Streaming writes go through the multipart upload manager.
package s3
