// Package blobstore provides the storage abstraction for checkpoints.
//
// BlobStore reads and writes immutable, whole blobs addressed by slash-separated
// names. Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process, for tests
//   - LocalStore: local filesystem with mmap reads
//   - minio.Store: MinIO and other S3-compatible services
//   - s3.Store: Amazon S3 with managed uploads
//
// The CURRENT pointer of a checkpoint series is kept behind the Pointer
// interface. BlobPointer stores it as a blob; s3.DDBCommitStore stores it in
// DynamoDB with conditional writes so that two writers can never both advance
// the same series.
package blobstore
