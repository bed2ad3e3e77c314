package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	data := bytes.Repeat([]byte(`{"id":1,"points":[1,2,3,4]},`), 500)

	for _, typ := range []Type{LZ4, ZSTD} {
		t.Run(typ.String(), func(t *testing.T) {
			block, err := Encode(data, typ)
			require.NoError(t, err)
			assert.Less(t, len(block), len(data)/2)

			out, err := Decode(block, typ)
			require.NoError(t, err)
			assert.Equal(t, data, out)
		})
	}
}

func TestEncode_None(t *testing.T) {
	data := []byte("short")

	block, err := Encode(data, None)
	require.NoError(t, err)
	assert.Len(t, block, headerSize+len(data))

	// Verbatim blocks decode with any type.
	out, err := Decode(block, ZSTD)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestEncode_Incompressible(t *testing.T) {
	data := make([]byte, 1000)
	for i := range data {
		data[i] = byte(i * 17 % 256)
	}

	block, err := Encode(data, LZ4)
	require.NoError(t, err)

	out, err := Decode(block, LZ4)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestEncode_Empty(t *testing.T) {
	block, err := Encode(nil, ZSTD)
	require.NoError(t, err)

	out, err := Decode(block, ZSTD)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestDecode_Corrupt(t *testing.T) {
	_, err := Decode([]byte{1, 2}, LZ4)
	assert.ErrorIs(t, err, ErrCorrupt)

	block, err := Encode(bytes.Repeat([]byte("abc"), 200), LZ4)
	require.NoError(t, err)

	_, err = Decode(block[:len(block)-1], LZ4)
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = Decode(block, None)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestParseType(t *testing.T) {
	for _, typ := range []Type{None, LZ4, ZSTD} {
		got, err := ParseType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}

	_, err := ParseType("brotli")
	assert.Error(t, err)
	assert.Equal(t, "Type(9)", Type(9).String())
}
