package commands

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/cash/blobstore"
	minioblob "github.com/hupe1980/cash/blobstore/minio"
	s3blob "github.com/hupe1980/cash/blobstore/s3"
)

// OpenBlobStore opens the blob store named by a checkpoint target.
//
//	file://dir or dir                 local directory
//	s3://bucket/prefix                S3 (default AWS credential chain)
//	minio://host:port/bucket/prefix   MinIO (MINIO_ACCESS_KEY, MINIO_SECRET_KEY;
//	                                  ?secure=false for plain HTTP)
func OpenBlobStore(ctx context.Context, cfg CheckpointConfig) (blobstore.BlobStore, error) {
	target := cfg.Target
	if dir, ok := strings.CutPrefix(target, "file://"); ok {
		return blobstore.NewLocalStore(dir), nil
	}
	if !strings.Contains(target, "://") {
		return blobstore.NewLocalStore(target), nil
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("checkpoint target %q: %w", target, err)
	}

	switch u.Scheme {
	case "s3":
		if u.Host == "" {
			return nil, fmt.Errorf("checkpoint target %q: missing bucket", target)
		}
		prefix := strings.TrimPrefix(u.Path, "/")
		store, err := s3blob.New(ctx, u.Host, func(o *s3blob.Options) {
			o.Prefix = prefix
		})
		if err != nil {
			return nil, err
		}
		if cfg.DDBTable == "" {
			return store, nil
		}
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return s3blob.NewDDBCommitStore(store, dynamodb.NewFromConfig(awsCfg), cfg.DDBTable, target), nil

	case "minio":
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		if u.Host == "" || bucket == "" {
			return nil, fmt.Errorf("checkpoint target %q: want minio://host:port/bucket/prefix", target)
		}
		client, err := minio.New(u.Host, &minio.Options{
			Creds:  credentials.NewStaticV4(os.Getenv("MINIO_ACCESS_KEY"), os.Getenv("MINIO_SECRET_KEY"), ""),
			Secure: u.Query().Get("secure") != "false",
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		return minioblob.NewStore(client, bucket, prefix), nil

	default:
		return nil, fmt.Errorf("checkpoint target %q: unsupported scheme %q", target, u.Scheme)
	}
}
