// Package minio stores link payloads and mirrored identifiers in MinIO or
// any other S3-compatible service (Ceph, Garage, SeaweedFS).
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds: credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "kb", "contents/")
//	mem, err := scmemory.Open("kb", scmemory.WithContentStore(store))
package minio
