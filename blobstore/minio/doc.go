// Package minio stores checkpoints in MinIO or any other S3-compatible
// service reachable through minio-go.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds: credentials.NewStaticV4(accessKey, secretKey, ""),
//	})
//	...
//	blobs := minioblob.NewStore(client, "cash", "runs/")
//	mgr := checkpoint.NewManager(blobs)
package minio
