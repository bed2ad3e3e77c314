// Package s3 provides an Amazon S3 implementation of blobstore.BlobStore and a
// DynamoDB-backed blobstore.Pointer.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket", func(o *s3.Options) {
//	    o.Prefix = "cash/"
//	    o.Region = "us-east-1"
//	})
//
//	commits := s3.NewDDBCommitStore(store, dynamodb.NewFromConfig(cfg), "cash-commits", "s3://my-bucket/cash/")
//
// # Features
//
//   - Range reads
//   - Uploads through the S3 transfer manager (multipart for large checkpoints)
//   - CRC32C integrity checksums
//   - Conditional CURRENT pointer updates through DynamoDB
package s3
