package commands

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/cash/blobstore"
)

func TestOpenBlobStore_Local(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, target := range []string{"file://" + dir, dir} {
		bs, err := OpenBlobStore(ctx, CheckpointConfig{Target: target})
		require.NoError(t, err)
		assert.IsType(t, &blobstore.LocalStore{}, bs)
	}

	bs, err := OpenBlobStore(ctx, CheckpointConfig{Target: "file://" + dir})
	require.NoError(t, err)
	require.NoError(t, bs.Put(ctx, "a/b", []byte("x")))
	assert.FileExists(t, filepath.Join(dir, "a", "b"))
}

func TestOpenBlobStore_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		target string
		want   string
	}{
		{"ftp://host/path", "unsupported scheme"},
		{"s3:///prefix", "missing bucket"},
		{"minio://localhost:9000", "want minio://"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			_, err := OpenBlobStore(ctx, CheckpointConfig{Target: tt.target})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestOpenBlobStore_Minio(t *testing.T) {
	t.Setenv("MINIO_ACCESS_KEY", "access")
	t.Setenv("MINIO_SECRET_KEY", "secret")

	// minio.New does not contact the server.
	bs, err := OpenBlobStore(context.Background(), CheckpointConfig{Target: "minio://localhost:9000/bucket/ckpt?secure=false"})
	require.NoError(t, err)
	assert.NotNil(t, bs)
}
