package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/cash/internal/conv"
)

// Type defines the compression algorithm used.
type Type uint8

const (
	// None stores blocks verbatim.
	None Type = 0
	// LZ4 is fast block compression.
	LZ4 Type = 1
	// ZSTD has a better ratio at a higher cost.
	ZSTD Type = 2
)

// String returns the name of the algorithm.
func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// ParseType parses the name produced by Type.String.
func ParseType(s string) (Type, error) {
	switch s {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return ZSTD, nil
	default:
		return None, fmt.Errorf("compress: unknown type %q", s)
	}
}

var (
	// ErrCorrupt is returned when a block header does not match its data.
	ErrCorrupt = errors.New("compress: corrupt block")

	// ErrTooLarge is returned for blocks that do not fit the 32-bit header.
	ErrTooLarge = errors.New("compress: block too large")
)

const headerSize = 8

// minRatio is the largest compressed/uncompressed ratio still worth storing.
const minRatio = 0.9

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

// Encode compresses data into one framed block.
func Encode(data []byte, t Type) ([]byte, error) {
	size, err := conv.IntToUint32(len(data))
	if err != nil {
		return nil, ErrTooLarge
	}

	var compressed []byte
	switch t {
	case None:
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		compressed = buf[:n]
	case ZSTD:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, err
		}
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("compress: unknown type %d", t)
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*minRatio {
		out := make([]byte, headerSize+len(data))
		binary.LittleEndian.PutUint32(out[0:], size)
		copy(out[headerSize:], data)
		return out, nil
	}

	csize, err := conv.IntToUint32(len(compressed))
	if err != nil {
		return nil, ErrTooLarge
	}
	out := make([]byte, headerSize+len(compressed))
	binary.LittleEndian.PutUint32(out[0:], size)
	binary.LittleEndian.PutUint32(out[4:], csize)
	copy(out[headerSize:], compressed)
	return out, nil
}

// Decode reverses Encode. t must be the type the block was encoded with;
// verbatim blocks decode regardless of t.
func Decode(block []byte, t Type) ([]byte, error) {
	if len(block) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorrupt, len(block))
	}

	size := binary.LittleEndian.Uint32(block[0:])
	csize := binary.LittleEndian.Uint32(block[4:])

	if csize == 0 {
		if uint64(len(block)) != headerSize+uint64(size) {
			return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrCorrupt, headerSize+uint64(size), len(block))
		}
		return block[headerSize:], nil
	}
	if uint64(len(block)) != headerSize+uint64(csize) {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrCorrupt, headerSize+uint64(csize), len(block))
	}

	n, err := conv.Uint32ToInt(size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	payload := block[headerSize:]
	out := make([]byte, n)

	switch t {
	case LZ4:
		got, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if got != n {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return out, nil
	case ZSTD:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)

		decoded, err := dec.DecodeAll(payload, out[:0])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if len(decoded) != n {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return decoded, nil
	default:
		return nil, fmt.Errorf("%w: compressed block with type %s", ErrCorrupt, t)
	}
}
