// Package minio provides a blobstore.Store implementation using the MinIO
// client, for MinIO itself and other S3-compatible object stores such as
// Ceph, SeaweedFS, and Garage.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "my-bucket", "indexes/")
//	idx, err := persistence.ReadBlob(ctx, store, "current.csi")
//
// Reads map to ranged GetObject calls, so loading a few bins from a large
// index transfers only the touched byte ranges. Streaming writes upload
// through a pipe and become visible atomically on Close.
package minio
