package checkpoint

import (
	"bytes"
	"testing"
	"time"

	"github.com/hupe1980/cash/codec"
	"github.com/hupe1980/cash/hough"
	"github.com/hupe1980/cash/internal/compress"
	"github.com/hupe1980/cash/model"
	"github.com/hupe1980/cash/permutation"
	"github.com/hupe1980/cash/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCheckpoint(run string, iteration int) *Checkpoint {
	return &Checkpoint{
		RunID:     run,
		Iteration: iteration,
		Eps:       0.05,
		MinPts:    4,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Snapshot: store.Snapshot{
			Dimension: 2,
			Clusters: []model.Cluster{
				{ID: 1, Alpha: hough.Alpha{2.6779}, Offset: 0.001, Points: []model.PointID{1, 2, 3, 4}},
			},
			Active:        []byte{0x3a, 0x30, 0, 0},
			Enumerator:    permutation.State{Position: 3, Digits: []int{3}},
			NextClusterID: 2,
		},
	}
}

func assertSameCheckpoint(t *testing.T, want, got *Checkpoint) {
	t.Helper()
	assert.Equal(t, want.RunID, got.RunID)
	assert.Equal(t, want.Iteration, got.Iteration)
	assert.Equal(t, want.Eps, got.Eps)
	assert.Equal(t, want.MinPts, got.MinPts)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created at %v, want %v", got.CreatedAt, want.CreatedAt)
	assert.Equal(t, want.Snapshot, got.Snapshot)
}

func TestEncodeDecode(t *testing.T) {
	cp := testCheckpoint("run", 3)

	for _, c := range []codec.Codec{codec.JSON{}, codec.GoJSON{}, codec.Msgpack{}} {
		for _, ct := range []compress.Type{compress.None, compress.LZ4, compress.ZSTD} {
			t.Run(c.Name()+"/"+ct.String(), func(t *testing.T) {
				var buf bytes.Buffer
				require.NoError(t, Encode(&buf, cp, c, ct))

				got, err := Decode(&buf)
				require.NoError(t, err)
				assertSameCheckpoint(t, cp, got)
			})
		}
	}
}

func TestDecode_Corrupt(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, testCheckpoint("run", 1), nil, compress.None))
	data := buf.Bytes()

	t.Run("Checksum", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[len(bad)-2] ^= 0xff
		_, err := Decode(bytes.NewReader(bad))
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("Magic", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[0] = 'X'
		_, err := Decode(bytes.NewReader(bad))
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("Truncated", func(t *testing.T) {
		_, err := Decode(bytes.NewReader(data[:5]))
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("UnknownCodec", func(t *testing.T) {
		bad := bytes.Clone(data)
		// Header: magic, version, compression, name length, then "go-json".
		copy(bad[7:], "xx-json")
		_, err := Decode(bytes.NewReader(bad))
		assert.ErrorIs(t, err, ErrUnknownCodec)
	})
}
