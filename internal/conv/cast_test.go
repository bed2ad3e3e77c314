package conv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntToUint8(t *testing.T) {
	got, err := IntToUint8(255)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), got)

	_, err = IntToUint8(256)
	assert.ErrorIs(t, err, ErrOverflow)
	_, err = IntToUint8(-1)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestIntToUint32(t *testing.T) {
	got, err := IntToUint32(math.MaxInt32)
	require.NoError(t, err)
	assert.Equal(t, uint32(math.MaxInt32), got)

	_, err = IntToUint32(-1)
	assert.ErrorIs(t, err, ErrOverflow)

	if math.MaxInt > math.MaxUint32 {
		_, err = IntToUint32(math.MaxUint32 + 1)
		assert.ErrorIs(t, err, ErrOverflow)
	}
}

func TestUint32ToInt(t *testing.T) {
	got, err := Uint32ToInt(123)
	require.NoError(t, err)
	assert.Equal(t, 123, got)
}
